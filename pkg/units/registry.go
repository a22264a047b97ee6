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
	"sync"
	"sync/atomic"

	"github.com/matrixorigin/agrosense/pkg/common/quota"
)

// Unit is one periodic execution unit.  The embedded quota.ID is its
// ledger identity; the stack fields model the fixed stack budget a
// task is created with and the worst stack usage its stress probe has
// ever reported.
type Unit struct {
	id          quota.ID
	name        string
	stackBudget uint64
	peakStack   atomic.Uint64
}

func (u *Unit) ID() quota.ID {
	return u.id
}

func (u *Unit) Name() string {
	return u.name
}

func (u *Unit) StackBudget() uint64 {
	return u.stackBudget
}

// ObserveStackUsage records a stack usage sample.  Only the peak is
// kept, and it never decreases.
func (u *Unit) ObserveStackUsage(n uint64) {
	for {
		cur := u.peakStack.Load()
		if n <= cur {
			return
		}
		if u.peakStack.CompareAndSwap(cur, n) {
			return
		}
	}
}

// StackHighWaterMark returns the minimum remaining stack ever
// observed: budget minus peak usage, floored at zero.
func (u *Unit) StackHighWaterMark() uint64 {
	peak := u.peakStack.Load()
	if peak >= u.stackBudget {
		return 0
	}
	return u.stackBudget - peak
}

// Registry assigns unit identities and keeps the set of tracked units
// for the stack monitor.  All registration happens during startup,
// before any unit runs.
type Registry struct {
	mu        sync.Mutex
	units     []*Unit
	allocator *quota.Allocator
}

func NewRegistry(allocator *quota.Allocator) *Registry {
	return &Registry{allocator: allocator}
}

// Register creates the ledger entry and the tracking record for a new
// unit.  quotaBytes and stackBudget are fixed for the unit's lifetime.
func (r *Registry) Register(name string, quotaBytes, stackBudget uint64) *Unit {
	id := r.allocator.Register(name, quotaBytes)
	u := &Unit{id: id, name: name, stackBudget: stackBudget}
	r.mu.Lock()
	r.units = append(r.units, u)
	r.mu.Unlock()
	return u
}

// Units returns a snapshot of all registered units.
func (r *Registry) Units() []*Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	us := make([]*Unit, len(r.units))
	copy(us, r.units)
	return us
}
