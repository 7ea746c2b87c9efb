package raster

import (
	"sync"
	"sync/atomic"

	"skelmodel/internal/mathutil"
)

// DefaultBoneCapacity is the number of matrices one pipeline slot holds.
const DefaultBoneCapacity = 80000

// BoneBuffer is a frame-scoped bump allocator for bone matrices. Uploads
// may run concurrently; Clear must not overlap with them.
type BoneBuffer struct {
	slots     [][]mathutil.Mat4
	pos       int
	maxUpload int
	index     atomic.Int64
	mu        sync.RWMutex
}

// NewBoneBuffer creates a buffer with pipelines rotating slots of capacity
// matrices each. A single upload is cut to maxUpload matrices; zero means
// the whole capacity.
func NewBoneBuffer(pipelines, capacity, maxUpload int) *BoneBuffer {
	if pipelines < 1 {
		pipelines = 1
	}
	if maxUpload <= 0 || maxUpload > capacity {
		maxUpload = capacity
	}
	b := &BoneBuffer{maxUpload: maxUpload}
	for range pipelines {
		b.slots = append(b.slots, make([]mathutil.Mat4, capacity))
	}
	return b
}

// Clear starts a new frame on the next pipeline slot.
func (b *BoneBuffer) Clear() {
	b.mu.Lock()
	b.pos = (b.pos + 1) % len(b.slots)
	b.index.Store(0)
	b.mu.Unlock()
}

// Upload copies bones into the current slot and returns their first index,
// or -1 when there are no bones or the slot is full.
func (b *BoneBuffer) Upload(bones []mathutil.Mat4) int {
	n := min(len(bones), b.maxUpload)
	if n <= 0 {
		return -1
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	slot := b.slots[b.pos]
	start := b.index.Add(int64(n)) - int64(n)
	if start+int64(n) > int64(len(slot)) {
		return -1
	}
	copy(slot[start:], bones[:n])
	return int(start)
}

// Bones returns n matrices starting at index in the current slot.
func (b *BoneBuffer) Bones(index, n int) []mathutil.Mat4 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	slot := b.slots[b.pos]
	if index < 0 || n < 0 || index+n > len(slot) {
		return nil
	}
	return slot[index : index+n]
}

// Used reports how many matrices the current frame has claimed.
func (b *BoneBuffer) Used() int {
	return int(min(b.index.Load(), int64(len(b.slots[0]))))
}
