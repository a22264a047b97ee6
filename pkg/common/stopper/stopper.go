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
	"sync"

	"github.com/matrixorigin/agrosense/pkg/common/moerr"
	"github.com/matrixorigin/agrosense/pkg/logutil"
	"go.uber.org/zap"
)

// Stopper owns the lifecycle of a set of long-running named tasks.
// Tasks observe shutdown through their context; Stop blocks until all
// of them have returned.
type Stopper struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu struct {
		sync.Mutex
		stopped bool
	}
}

func NewStopper(name string) *Stopper {
	s := &Stopper{name: name}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// RunNamedTask runs task on its own goroutine.  The task must return
// promptly once its context is done.
func (s *Stopper) RunNamedTask(name string, task func(ctx context.Context)) error {
	s.mu.Lock()
	if s.mu.stopped {
		s.mu.Unlock()
		return moerr.NewInvalidState("stopper %s is stopped", s.name)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		logutil.Debug("task started",
			zap.String("stopper", s.name),
			zap.String("task", name))
		task(s.ctx)
		logutil.Debug("task stopped",
			zap.String("stopper", s.name),
			zap.String("task", name))
	}()
	return nil
}

// Stop cancels every running task and waits for them.  Idempotent.
func (s *Stopper) Stop() {
	s.mu.Lock()
	if s.mu.stopped {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.mu.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logutil.Info("stopper stopped", zap.String("stopper", s.name))
}
