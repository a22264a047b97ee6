// Copyright 2021 - 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stopper

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/lni/goutils/leaktest"
	"github.com/matrixorigin/agrosense/pkg/common/moerr"
	"github.com/stretchr/testify/require"
)

func TestStopperStopsTasks(t *testing.T) {
	defer leaktest.AfterTest(t)()

	s := NewStopper("test")
	var exited atomic.Int32
	for i := 0; i < 4; i++ {
		require.NoError(t, s.RunNamedTask("waiter", func(ctx context.Context) {
			<-ctx.Done()
			exited.Add(1)
		}))
	}
	s.Stop()
	require.Equal(t, int32(4), exited.Load())
}

func TestRunAfterStop(t *testing.T) {
	defer leaktest.AfterTest(t)()

	s := NewStopper("test")
	s.Stop()
	err := s.RunNamedTask("late", func(ctx context.Context) {})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))
}

func TestStopIsIdempotent(t *testing.T) {
	defer leaktest.AfterTest(t)()

	s := NewStopper("test")
	require.NoError(t, s.RunNamedTask("waiter", func(ctx context.Context) {
		<-ctx.Done()
	}))
	s.Stop()
	s.Stop()
}
