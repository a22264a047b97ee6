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

package quota

import (
	"sync"

	"github.com/matrixorigin/agrosense/pkg/common/heap"
	"github.com/matrixorigin/agrosense/pkg/common/moerr"
	"github.com/matrixorigin/agrosense/pkg/logutil"
	"go.uber.org/zap"
)

// Allocator is the only path application code uses to touch the heap
// provider.  It owns the usage ledger and a single mutex; every ledger
// read or write happens with that mutex held, so the budget check and
// the ledger update are atomic with respect to all other units.
//
// Lock waits are unbounded and there is no cancellation path; with a
// fixed small set of cooperating units the critical section is a few
// loads and one provider call.
type Allocator struct {
	mu       sync.Mutex
	provider heap.Heap
	ledger   []*entry
	stats    Stats
}

func NewAllocator(provider heap.Heap) *Allocator {
	return &Allocator{provider: provider}
}

// Register creates the ledger entry for a new execution unit and
// returns its identity.  quota is fixed for the unit's lifetime.
// Registration happens during startup, before any unit runs.
func (a *Allocator) Register(name string, quota uint64) ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := ID(len(a.ledger))
	a.ledger = append(a.ledger, &entry{name: name, quota: quota})
	logutil.Info("unit registered",
		zap.String("unit", name),
		zap.Uint32("id", uint32(id)),
		zap.Uint64("quota", quota))
	return id
}

// Alloc grants size bytes against the unit's budget.  On rejection
// nothing is allocated and the ledger is unchanged; both quota and
// provider failures are expected steady-state conditions, reported via
// the returned error and a diagnostic line.
func (a *Allocator) Alloc(id ID, size int) ([]byte, error) {
	if size <= 0 {
		return nil, moerr.NewInvalidInput("alloc size %d", size)
	}

	a.mu.Lock()
	e, err := a.entryLocked(id)
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	if e.used+uint64(size) > e.quota {
		used, quota := e.used, e.quota
		a.mu.Unlock()
		a.stats.NumQuotaReject.Add(1)
		logutil.Warn("quota exceeded",
			zap.String("unit", e.name),
			zap.Int("requested", size),
			zap.Uint64("used", used),
			zap.Uint64("quota", quota))
		return nil, moerr.NewQuotaExceeded(e.name, uint64(size), used, quota)
	}

	buf, err := a.provider.Allocate(size)
	if err != nil {
		a.mu.Unlock()
		a.stats.NumOOM.Add(1)
		logutil.Error("heap allocation failed",
			zap.String("unit", e.name),
			zap.Int("requested", size),
			zap.Error(err))
		return nil, err
	}

	e.used += uint64(size)
	if e.used > e.highWater.Load() {
		e.highWater.Store(e.used)
	}
	a.mu.Unlock()

	a.stats.NumAlloc.Add(1)
	return buf, nil
}

// Free returns buf to the heap provider and credits the unit's ledger
// by len(buf).  buf must be the exact buffer returned by Alloc for the
// same unit; this is a caller contract, not something the allocator can
// verify.  A nil or empty buf is a no-op.
func (a *Allocator) Free(id ID, buf []byte) {
	if len(buf) == 0 {
		return
	}

	a.mu.Lock()
	e, err := a.entryLocked(id)
	if err != nil {
		a.mu.Unlock()
		logutil.Error("free for unknown unit", zap.Uint32("id", uint32(id)))
		return
	}
	a.provider.Release(buf)
	size := uint64(len(buf))
	if size > e.used {
		// caller contract violated somewhere; clamp rather than wrap
		e.used = 0
		a.mu.Unlock()
		a.stats.NumUnderflow.Add(1)
		logutil.Error("usage underflow clamped",
			zap.String("unit", e.name),
			zap.Uint64("freed", size))
		return
	}
	e.used -= size
	a.mu.Unlock()

	a.stats.NumFree.Add(1)
}

// Usage returns the unit's current usage and quota.
func (a *Allocator) Usage(id ID) (used, quota uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := a.entryLocked(id)
	if err != nil {
		return 0, 0
	}
	return e.used, e.quota
}

// HighWaterMark returns the unit's peak usage.  Lock-free.
func (a *Allocator) HighWaterMark(id ID) uint64 {
	a.mu.Lock()
	e, err := a.entryLocked(id)
	a.mu.Unlock()
	if err != nil {
		return 0
	}
	return e.highWater.Load()
}

func (a *Allocator) UnitName(id ID) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := a.entryLocked(id)
	if err != nil {
		return ""
	}
	return e.name
}

func (a *Allocator) Stats() *Stats {
	return &a.stats
}

func (a *Allocator) entryLocked(id ID) (*entry, error) {
	if int(id) >= len(a.ledger) {
		return nil, moerr.NewUnitNotFound(uint32(id))
	}
	return a.ledger[id], nil
}
