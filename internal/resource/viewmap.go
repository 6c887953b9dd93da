// Package resource implements the Resource and ViewMap types: a
// resource owns either a buffer or image object plus a per-resource
// view map interning (ViewKey -> View) so repeated descriptor writes
// touching the same subresource/format don't leak Vulkan view objects.
package resource

import (
	"github.com/d3d12vk/corevk/internal/hashmap"
	"github.com/d3d12vk/corevk/internal/rtid"
	"github.com/d3d12vk/corevk/internal/rtlog"
	"github.com/d3d12vk/corevk/internal/rwspinlock"
	"github.com/d3d12vk/corevk/internal/view"
)

// warnEvery matches "every 1024 insertions" view-map growth
// warning threshold.
const warnEvery = 1024

// ViewMap interns (view.Key -> *view.View) for a single resource,
// guarded by a read/write spinlock tuned for a read-dominant steady
// state: repeated lookups take only the read path, and a
// writer's arrival never stalls an in-flight read.
type ViewMap struct {
	lock    rwspinlock.RWSpinlock
	entries *hashmap.HashMap[view.Key, *view.View]
	inserts uint32
}

// NewViewMap constructs an empty view map.
func NewViewMap() *ViewMap {
	return &ViewMap{
		entries: hashmap.New[view.Key, *view.View](view.KeyHash, view.KeyEqual),
	}
}

// CreateFunc builds the Vulkan view object for a cache miss. It runs
// outside any lock, matching step 2 of view_map_create_view.
type CreateFunc func() (*view.View, error)

// CreateView implements view_map_create_view:
//  1. take the read lock, probe the map; on a hit, bump the refcount
//     and return without ever taking the write lock.
//  2. on a miss, release the read lock and build the Vulkan view
//     outside any lock via create().
//  3. take the write lock and insert; if a racing thread already
//     inserted an equivalent key, destroy the view this call just
//     built and return the winner (with its refcount bumped) instead.
func (m *ViewMap) CreateView(key view.Key, create CreateFunc) (*view.View, error) {
	if v, ok := m.tryFind(key); ok {
		return v, nil
	}

	built, err := create()
	if err != nil {
		return nil, err
	}
	built.Cookie = rtid.NextCookie()

	m.lock.AcquireWrite()
	winner, inserted := m.entries.Insert(key, built)
	if inserted {
		m.inserts++
		if m.inserts%warnEvery == 0 {
			rtlog.Warn("resource: view map has interned %d views; buffer-view objects are relatively expensive on some drivers", m.inserts)
		}
	} else {
		// A racing thread beat us to it; the view we built is
		// discarded and the winner's refcount is bumped on our
		// behalf instead.
		winner.AddRef()
	}
	m.lock.ReleaseWrite()

	if !inserted {
		built.Release()
	}
	return winner, nil
}

func (m *ViewMap) tryFind(key view.Key) (*view.View, bool) {
	m.lock.AcquireRead()
	defer m.lock.ReleaseRead()

	v, ok := m.entries.Find(key)
	if ok {
		v.AddRef()
	}
	return v, ok
}

// Len reports the number of distinct interned views, for tests and
// diagnostics.
func (m *ViewMap) Len() int {
	return m.entries.Len()
}

// Clear destroys every interned view and empties the map. Called when
// a resource's public refcount reaches zero.
func (m *ViewMap) Clear() {
	m.lock.AcquireWrite()
	defer m.lock.ReleaseWrite()

	m.entries.Iter(func(_ view.Key, v *view.View) {
		// Force the view to its destroy path regardless of any
		// outstanding external refcount: once the owning resource
		// tears down, no lookup can observe this view map again.
		for v.RefCount() > 0 {
			v.Release()
		}
	})
	m.entries.Clear()
}
