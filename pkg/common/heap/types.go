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

package heap

const (
	KB = 1024
	MB = 1024 * KB
)

// Heap is the primitive source and sink of memory.  It has no notion
// of execution units or quotas; budget enforcement lives above it in
// the quota allocator.
//
// FreeBytes and MinEverFreeBytes are safe for concurrent read without
// any external lock; observer tasks poll them directly.
type Heap interface {
	// Allocate returns a zeroed buffer of exactly size bytes, or an
	// OOM error when no free block fits.  size must be positive.
	Allocate(size int) ([]byte, error)

	// Release returns a buffer obtained from Allocate.  Passing any
	// other buffer, or the same buffer twice, panics.
	Release(buf []byte)

	FreeBytes() int64
	MinEverFreeBytes() int64
	Capacity() int64

	Close() error
}
