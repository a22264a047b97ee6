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
	"sync/atomic"
)

// ID identifies one registered execution unit.  IDs are assigned by
// Allocator.Register, are stable for the unit's lifetime, and are never
// reused; they carry no scheduler-specific meaning.
type ID uint32

// entry is one ledger record.  quota is fixed at registration; used is
// mutated only while the allocator's lock is held.  highWater is the
// peak of used, stored atomically so it can be read without the lock.
type entry struct {
	name      string
	quota     uint64
	used      uint64
	highWater atomic.Uint64
}

// Stats are process-lifetime operation counters, all lock-free reads.
type Stats struct {
	NumAlloc       atomic.Int64
	NumFree        atomic.Int64
	NumQuotaReject atomic.Int64
	NumOOM         atomic.Int64
	NumUnderflow   atomic.Int64
}
