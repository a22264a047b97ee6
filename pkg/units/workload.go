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
	"math/rand"
	"time"

	"github.com/matrixorigin/agrosense/pkg/common/quota"
	"github.com/matrixorigin/agrosense/pkg/logutil"
	"github.com/matrixorigin/agrosense/pkg/util/metric"
	"go.uber.org/zap"
)

// WorkloadConfig holds the constants a workload unit is created with.
// Sensor and comm differ only here, not in behavior.
type WorkloadConfig struct {
	// allocation size range, [MinAlloc, MaxAlloc)
	MinAlloc int
	MaxAlloc int
	// how long an allocation is held while synthetic work runs
	HoldInterval time.Duration
	// pause between iterations
	SleepInterval time.Duration
	// stress probe recursion depth range, inclusive
	MinStressDepth int
	MaxStressDepth int
}

// Workload is the sensor/comm loop: allocate a random-sized buffer
// through the quota allocator, hold it while simulating work and stack
// pressure, release it, sleep, repeat until shutdown.  A rejected
// request skips straight to the sleep phase; the next cycle retries.
type Workload struct {
	unit   *Unit
	quotas *quota.Allocator
	cfg    WorkloadConfig
	rnd    *rand.Rand
}

func NewWorkload(unit *Unit, quotas *quota.Allocator, cfg WorkloadConfig, seed int64) *Workload {
	return &Workload{
		unit:   unit,
		quotas: quotas,
		cfg:    cfg,
		rnd:    rand.New(rand.NewSource(seed)),
	}
}

func (w *Workload) Run(ctx context.Context) {
	metric.UnitMemQuotaGauge.WithLabelValues(w.unit.Name()).Set(float64(w.quotaBytes()))
	for {
		w.runOnce(ctx)
		if !suspend(ctx, w.cfg.SleepInterval) {
			return
		}
	}
}

func (w *Workload) runOnce(ctx context.Context) {
	size := w.cfg.MinAlloc + w.rnd.Intn(w.cfg.MaxAlloc-w.cfg.MinAlloc)

	buf, err := w.quotas.Alloc(w.unit.ID(), size)
	if err != nil {
		// QuotaExceeded and OOM are expected steady-state
		// conditions, already logged by the allocator
		return
	}

	used, quotaBytes := w.quotas.Usage(w.unit.ID())
	metric.UnitMemUsedGauge.WithLabelValues(w.unit.Name()).Set(float64(used))
	logutil.Debug("allocated",
		zap.String("unit", w.unit.Name()),
		zap.Int("size", size),
		zap.Uint64("used", used),
		zap.Uint64("quota", quotaBytes))

	w.work(buf)

	depth := w.cfg.MinStressDepth + w.rnd.Intn(w.cfg.MaxStressDepth-w.cfg.MinStressDepth+1)
	w.unit.ObserveStackUsage(stressStack(depth))

	suspend(ctx, w.cfg.HoldInterval)

	w.quotas.Free(w.unit.ID(), buf)
	used, _ = w.quotas.Usage(w.unit.ID())
	metric.UnitMemUsedGauge.WithLabelValues(w.unit.Name()).Set(float64(used))
	logutil.Debug("freed",
		zap.String("unit", w.unit.Name()),
		zap.Int("size", size),
		zap.Uint64("used", used))
}

// work touches every byte of the buffer, standing in for the sensor
// read or packet assembly the real firmware would do.
func (w *Workload) work(buf []byte) {
	for i := range buf {
		buf[i] = byte(i)
	}
}

func (w *Workload) quotaBytes() uint64 {
	_, quotaBytes := w.quotas.Usage(w.unit.ID())
	return quotaBytes
}

// suspend is the voluntary yield between phases.  It returns false
// when the scheduler is shutting down.
func suspend(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
