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

import (
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/google/btree"
	"github.com/matrixorigin/agrosense/pkg/common/moerr"
)

const (
	// each granted block carries its granted size in front of the
	// user bytes, so Release needs no lookup table
	headerSize = 8
	granule    = 8

	// a remainder smaller than this is granted along with the block
	// instead of being split off
	minSplit = headerSize + granule

	freeListDegree = 8

	// free ranges at least this large get their physical pages
	// returned to the OS
	discardThreshold = 64 * KB
)

var pageSize = int64(os.Getpagesize())

// fixedHeap is a first-fit allocator over a single anonymous-mmap
// arena of fixed capacity.  The free list is kept ordered by offset so
// released blocks coalesce with both neighbors.
type fixedHeap struct {
	mu     sync.Mutex
	arena  []byte
	base   uintptr
	blocks *btree.BTree

	capacity int64
	free     atomic.Int64
	minFree  atomic.Int64
}

type freeBlock struct {
	off  int64
	size int64
}

func (b freeBlock) Less(than btree.Item) bool {
	return b.off < than.(freeBlock).off
}

func NewFixedHeap(capacity int64) (*fixedHeap, error) {
	if capacity < minSplit {
		return nil, moerr.NewInvalidInput("heap capacity %d too small", capacity)
	}
	capacity = alignUp(capacity)
	arena, err := mmapArena(int(capacity))
	if err != nil {
		return nil, moerr.NewInternalError("mmap heap arena: %v", err)
	}
	h := &fixedHeap{
		arena:    arena,
		base:     uintptr(unsafe.Pointer(unsafe.SliceData(arena))),
		blocks:   btree.New(freeListDegree),
		capacity: capacity,
	}
	h.blocks.ReplaceOrInsert(freeBlock{off: 0, size: capacity})
	h.free.Store(capacity)
	h.minFree.Store(capacity)
	return h, nil
}

var _ Heap = new(fixedHeap)

func (h *fixedHeap) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, moerr.NewInvalidInput("alloc size %d", size)
	}
	need := headerSize + alignUp(int64(size))

	h.mu.Lock()
	var found freeBlock
	ok := false
	h.blocks.Ascend(func(i btree.Item) bool {
		b := i.(freeBlock)
		if b.size >= need {
			found, ok = b, true
			return false
		}
		return true
	})
	if !ok {
		h.mu.Unlock()
		return nil, moerr.NewOOM(size)
	}

	h.blocks.Delete(found)
	granted := need
	if found.size-need >= minSplit {
		h.blocks.ReplaceOrInsert(freeBlock{off: found.off + need, size: found.size - need})
	} else {
		granted = found.size
	}
	putBlockSize(h.arena[found.off:], granted)
	h.mu.Unlock()

	h.updateWatermark(h.free.Add(-granted))

	buf := h.arena[found.off+headerSize : found.off+headerSize+int64(size) : found.off+granted]
	clear(buf)
	return buf, nil
}

func (h *fixedHeap) Release(buf []byte) {
	if len(buf) == 0 {
		return
	}
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	if ptr < h.base+headerSize || ptr >= h.base+uintptr(h.capacity) {
		panic("release of buffer not owned by this heap")
	}
	off := int64(ptr-h.base) - headerSize
	granted := getBlockSize(h.arena[off:])
	if granted < headerSize+int64(len(buf)) || off+granted > h.capacity {
		panic("heap block header corrupted")
	}

	h.mu.Lock()
	merged := freeBlock{off: off, size: granted}

	// predecessor
	h.blocks.DescendLessOrEqual(freeBlock{off: off}, func(i btree.Item) bool {
		p := i.(freeBlock)
		if p.off+p.size > off {
			// release the lock so a recovered panic leaves the
			// heap closable rather than deadlocked
			h.mu.Unlock()
			panic("double free")
		}
		if p.off+p.size == off {
			h.blocks.Delete(p)
			merged.off = p.off
			merged.size += p.size
		}
		return false
	})

	// successor
	end := off + granted
	h.blocks.AscendGreaterOrEqual(freeBlock{off: end}, func(i btree.Item) bool {
		s := i.(freeBlock)
		if s.off == end {
			h.blocks.Delete(s)
			merged.size += s.size
		}
		return false
	})

	h.blocks.ReplaceOrInsert(merged)
	h.maybeDiscard(merged)
	h.mu.Unlock()

	h.free.Add(granted)
}

func (h *fixedHeap) FreeBytes() int64 {
	return h.free.Load()
}

func (h *fixedHeap) MinEverFreeBytes() int64 {
	return h.minFree.Load()
}

func (h *fixedHeap) Capacity() int64 {
	return h.capacity
}

func (h *fixedHeap) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.arena == nil {
		return nil
	}
	if err := munmapArena(h.arena); err != nil {
		return moerr.NewInternalError("munmap heap arena: %v", err)
	}
	h.arena = nil
	h.blocks.Clear(false)
	return nil
}

// updateWatermark keeps minFree monotonically non-increasing.
func (h *fixedHeap) updateWatermark(newFree int64) {
	for {
		cur := h.minFree.Load()
		if newFree >= cur {
			return
		}
		if h.minFree.CompareAndSwap(cur, newFree) {
			return
		}
	}
}

// maybeDiscard hands the page-aligned interior of a large free range
// back to the OS.  The block header is rewritten on the next grant, so
// losing it here is fine.
func (h *fixedHeap) maybeDiscard(b freeBlock) {
	if b.size < discardThreshold {
		return
	}
	lo := (b.off + pageSize - 1) &^ (pageSize - 1)
	hi := (b.off + b.size) &^ (pageSize - 1)
	if hi-lo < pageSize {
		return
	}
	if err := discardArena(h.arena[lo:hi]); err != nil {
		panic(err)
	}
}

func putBlockSize(dst []byte, size int64) {
	*(*int64)(unsafe.Pointer(unsafe.SliceData(dst))) = size
}

func getBlockSize(src []byte) int64 {
	return *(*int64)(unsafe.Pointer(unsafe.SliceData(src)))
}

func alignUp(n int64) int64 {
	return (n + granule - 1) &^ (granule - 1)
}
