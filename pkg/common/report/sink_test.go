// Copyright 2022 Matrix Origin
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

package report

import (
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
)

func TestReportDelivers(t *testing.T) {
	s, err := NewLogSink(2)
	require.NoError(t, err)
	defer s.Close()

	s.Report("free heap: 1024 bytes")
	require.Equal(t, int64(0), s.Dropped())
}

func TestOverloadDropsInsteadOfBlocking(t *testing.T) {
	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	require.NoError(t, err)
	s := &logSink{pool: pool}
	defer s.Close()

	block := make(chan struct{})
	require.NoError(t, pool.Submit(func() { <-block }))

	// the single worker is wedged; every submission must fail fast
	for i := 0; i < 10; i++ {
		s.Report("report while saturated")
	}
	require.Equal(t, int64(10), s.Dropped())
	close(block)
}
