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
	"sync/atomic"

	"github.com/matrixorigin/agrosense/pkg/logutil"
	"github.com/panjf2000/ants/v2"
)

// Sink accepts formatted report lines, one-way and best-effort.  A
// line offered while the sink is saturated is dropped, never buffered;
// observers must stay decoupled from sink latency.
type Sink interface {
	Report(line string)
	Dropped() int64
	Close()
}

type logSink struct {
	pool    *ants.Pool
	dropped atomic.Int64
}

// NewLogSink writes reports through the global logger on a fixed pool
// of workers.  With the pool in nonblocking mode a saturated Submit
// fails immediately, which is exactly the lossy contract we want.
func NewLogSink(workers int) (Sink, error) {
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &logSink{pool: pool}, nil
}

func (s *logSink) Report(line string) {
	if err := s.pool.Submit(func() {
		logutil.Info(line)
	}); err != nil {
		s.dropped.Add(1)
	}
}

func (s *logSink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *logSink) Close() {
	s.pool.Release()
}
