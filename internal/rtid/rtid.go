// Package rtid provides the device-global cookie counter, an atomic
// u64 counter wrapped in a dedicated module, plus a free-list
// allocator reused for sparse-resource owner slots.
package rtid

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// cookieCounter is the process-wide view/resource debug cookie source.
var cookieCounter atomic.Uint64

// NextCookie returns a fresh, process-unique cookie used to tag views
// and descriptor-QA instrumentation.
func NextCookie() uint64 {
	// Start at 1 so a zero cookie unambiguously means "untagged".
	return cookieCounter.Add(1)
}

// DebugName returns a stable, human-distinguishable name for a
// view/heap/resource that the application did not name itself,
// mirroring reliance on google/uuid for engine-object
// identity.
func DebugName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// SlotAllocator is a free-list allocator over a slice of owner handles,
// generalized from IdentifierAcquireNewID/IdentifierReleaseID. Used by
// the sparse-resource path to hand out compact "owner slot" indices
// without an ever-growing id space.
type SlotAllocator struct {
	mu     sync.Mutex
	owners []interface{}
}

// NewSlotAllocator returns an allocator pre-sized for `capacity` slots
// (grows on demand past that).
func NewSlotAllocator(capacity int) *SlotAllocator {
	if capacity <= 0 {
		capacity = 100
	}
	return &SlotAllocator{owners: make([]interface{}, capacity)}
}

// Acquire returns the first free slot index, recording owner as its
// occupant, growing the table if every slot is taken.
func (a *SlotAllocator) Acquire(owner interface{}) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.owners {
		if a.owners[i] == nil {
			a.owners[i] = owner
			return uint32(i)
		}
	}
	a.owners = append(a.owners, owner)
	return uint32(len(a.owners) - 1)
}

// Release frees a slot previously returned by Acquire.
func (a *SlotAllocator) Release(id uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(id) >= len(a.owners) {
		return fmt.Errorf("rtid: release of out-of-range slot %d (max=%d)", id, len(a.owners))
	}
	a.owners[id] = nil
	return nil
}

// Owner returns the current occupant of a slot, or nil if vacant or
// out of range.
func (a *SlotAllocator) Owner(id uint32) interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(id) >= len(a.owners) {
		return nil
	}
	return a.owners[id]
}
