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

package units

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lni/goutils/leaktest"
	"github.com/matrixorigin/agrosense/pkg/common/heap"
	"github.com/matrixorigin/agrosense/pkg/common/quota"
	"github.com/matrixorigin/agrosense/pkg/common/stopper"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// On a single-CPU machine the worker-pool goroutine spawned during
	// package init may still be runnable-but-unscheduled when leaktest
	// takes its baseline snapshot, so it would later be reported as a
	// leak; yield so it can start and park first.
	time.Sleep(10 * time.Millisecond)
	os.Exit(m.Run())
}

type captureSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *captureSink) Report(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *captureSink) Dropped() int64 { return 0 }
func (s *captureSink) Close()         {}

func (s *captureSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := make([]string, len(s.lines))
	copy(ls, s.lines)
	return ls
}

func newTestWorld(t *testing.T) (heap.Heap, *quota.Allocator, *Registry) {
	h, err := heap.NewFixedHeap(64 * heap.KB)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, h.Close()) })
	a := quota.NewAllocator(h)
	return h, a, NewRegistry(a)
}

func TestStressStack(t *testing.T) {
	require.Equal(t, uint64(0), stressStack(0))
	require.Equal(t, uint64(4*stressFrameSize), stressStack(4))
	require.Equal(t, uint64(7*stressFrameSize), stressStack(7))
}

func TestStackHighWaterMark(t *testing.T) {
	_, _, r := newTestWorld(t)
	u := r.Register("sensor", 2048, 2048)

	require.Equal(t, uint64(2048), u.StackHighWaterMark())

	u.ObserveStackUsage(512)
	require.Equal(t, uint64(1536), u.StackHighWaterMark())

	// smaller samples never raise the mark
	u.ObserveStackUsage(256)
	require.Equal(t, uint64(1536), u.StackHighWaterMark())

	// overrun clamps at zero remaining
	u.ObserveStackUsage(4096)
	require.Equal(t, uint64(0), u.StackHighWaterMark())
}

func TestWorkloadPairsAllocAndFree(t *testing.T) {
	defer leaktest.AfterTest(t)()

	_, a, r := newTestWorld(t)
	u := r.Register("sensor", 2048, 2048)
	w := NewWorkload(u, a, WorkloadConfig{
		MinAlloc:       64,
		MaxAlloc:       128,
		HoldInterval:   time.Millisecond,
		SleepInterval:  time.Millisecond,
		MinStressDepth: 4,
		MaxStressDepth: 7,
	}, 1)

	s := stopper.NewStopper("test")
	require.NoError(t, s.RunNamedTask("sensor", w.Run))
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	used, quotaBytes := a.Usage(u.ID())
	require.Equal(t, uint64(0), used, "every allocation must be paired with a release")
	require.Greater(t, a.Stats().NumAlloc.Load(), int64(0))
	require.Equal(t, a.Stats().NumAlloc.Load(), a.Stats().NumFree.Load())
	require.LessOrEqual(t, a.HighWaterMark(u.ID()), quotaBytes)

	// the stress probe ran at least once
	require.Less(t, u.StackHighWaterMark(), u.StackBudget())
}

func TestHeapMonitorReport(t *testing.T) {
	h, a, _ := newTestWorld(t)
	sink := &captureSink{}
	m := NewHeapMonitor(h, a.Stats(), time.Second, sink)

	m.reportOnce()
	lines := sink.Lines()
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "free heap:")
	require.Contains(t, lines[0], "min ever free:")
}

func TestStackMonitorReport(t *testing.T) {
	_, _, r := newTestWorld(t)
	r.Register("sensor", 2048, 2048)
	r.Register("comm", 2048, 2048)

	sink := &captureSink{}
	m := NewStackMonitor(r, time.Second, sink)
	m.reportOnce()

	lines := sink.Lines()
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "sensor=2048")
	require.Contains(t, lines[0], "comm=2048")
}

func TestMonitorLoopsStop(t *testing.T) {
	defer leaktest.AfterTest(t)()

	h, a, r := newTestWorld(t)
	sink := &captureSink{}
	s := stopper.NewStopper("test")
	require.NoError(t, s.RunNamedTask("heap-monitor",
		NewHeapMonitor(h, a.Stats(), time.Millisecond, sink).Run))
	require.NoError(t, s.RunNamedTask("stack-monitor",
		NewStackMonitor(r, time.Millisecond, sink).Run))
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	require.NotEmpty(t, sink.Lines())
}
