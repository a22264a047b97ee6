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
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matrixorigin/agrosense/pkg/common/heap"
	"github.com/matrixorigin/agrosense/pkg/common/quota"
	"github.com/matrixorigin/agrosense/pkg/common/report"
	"github.com/matrixorigin/agrosense/pkg/util/metric"
)

// HeapMonitor periodically reports the heap provider's aggregate
// counters.  It reads only lock-free state: never the ledger, never
// the allocator's lock.
type HeapMonitor struct {
	heap     heap.Heap
	stats    *quota.Stats
	interval time.Duration
	sink     report.Sink
}

func NewHeapMonitor(h heap.Heap, stats *quota.Stats, interval time.Duration, sink report.Sink) *HeapMonitor {
	return &HeapMonitor{heap: h, stats: stats, interval: interval, sink: sink}
}

func (m *HeapMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reportOnce()
		}
	}
}

func (m *HeapMonitor) reportOnce() {
	free := m.heap.FreeBytes()
	minEver := m.heap.MinEverFreeBytes()
	m.sink.Report(fmt.Sprintf("free heap: %d bytes, min ever free: %d bytes", free, minEver))

	metric.HeapFreeGauge.Set(float64(free))
	metric.HeapMinEverFreeGauge.Set(float64(minEver))
	metric.QuotaOpGauge.WithLabelValues("alloc").Set(float64(m.stats.NumAlloc.Load()))
	metric.QuotaOpGauge.WithLabelValues("free").Set(float64(m.stats.NumFree.Load()))
	metric.QuotaOpGauge.WithLabelValues("quota_reject").Set(float64(m.stats.NumQuotaReject.Load()))
	metric.QuotaOpGauge.WithLabelValues("oom").Set(float64(m.stats.NumOOM.Load()))
	metric.QuotaOpGauge.WithLabelValues("underflow").Set(float64(m.stats.NumUnderflow.Load()))
}

// StackMonitor periodically reports every tracked unit's stack
// high-water mark in one combined line.
type StackMonitor struct {
	registry *Registry
	interval time.Duration
	sink     report.Sink
}

func NewStackMonitor(registry *Registry, interval time.Duration, sink report.Sink) *StackMonitor {
	return &StackMonitor{registry: registry, interval: interval, sink: sink}
}

func (m *StackMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reportOnce()
		}
	}
}

func (m *StackMonitor) reportOnce() {
	var b strings.Builder
	b.WriteString("stack min free bytes:")
	for _, u := range m.registry.Units() {
		hwm := u.StackHighWaterMark()
		fmt.Fprintf(&b, " %s=%d", u.Name(), hwm)
		metric.UnitStackMinFreeGauge.WithLabelValues(u.Name()).Set(float64(hwm))
	}
	m.sink.Report(b.String())
}
