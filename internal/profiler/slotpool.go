package profiler

import (
	"github.com/d3d12vk/corevk/internal/rwspinlock"
)

// slotPool is a fixed-size pool of timestamp-pair slots guarded by a
// spinlock (reused here in exclusive-only mode, since both acquire and
// release mutate the free list), plus a per-slot refcount for
// multi-submit command lists.
type slotPool struct {
	lock     rwspinlock.RWSpinlock
	free     []uint32
	refcount []int32
}

func newSlotPool(size int) *slotPool {
	free := make([]uint32, size)
	for i := range free {
		free[i] = uint32(size - 1 - i)
	}
	return &slotPool{free: free, refcount: make([]int32, size)}
}

// acquire pops a vacant slot, or reports exhaustion: the pool is sized
// generously (262,144 default) precisely so this is rare.
func (p *slotPool) acquire() (uint32, bool) {
	p.lock.AcquireWrite()
	defer p.lock.ReleaseWrite()

	if len(p.free) == 0 {
		return 0, false
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.refcount[idx] = 0
	return idx, true
}

// addRef increments a slot's refcount on command-list submit:
// resubmission of the same recorded list must bump the refcount again
// rather than double-free the slot.
func (p *slotPool) addRef(idx uint32) {
	p.lock.AcquireWrite()
	defer p.lock.ReleaseWrite()
	p.refcount[idx]++
}

// release drops one reference and, once it reaches zero, returns the
// slot to the free list for reuse.
func (p *slotPool) release(idx uint32) {
	p.lock.AcquireWrite()
	defer p.lock.ReleaseWrite()

	p.refcount[idx]--
	if p.refcount[idx] <= 0 {
		p.free = append(p.free, idx)
	}
}

func (p *slotPool) size() int {
	return len(p.refcount)
}
