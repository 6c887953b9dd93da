// Package hashmap implements an open-addressed generic hash map.
// Linear probing, grows before an insert once the load factor has
// reached 0.7, growth sequence
// new = old*2+5 (37 when empty).
package hashmap

// entry is the open-addressing slot: a occupied flag, the cached hash
// (so probing can skip the comparator on a hash mismatch), and the
// caller's key/value payload.
type entry[K any, V any] struct {
	hash     uint32
	occupied bool
	key      K
	value    V
}

// HashFunc computes the slot hash for a key. Must be deterministic.
type HashFunc[K any] func(key K) uint32

// EqFunc reports whether two keys are equal (used to disambiguate
// collisions sharing the same hash).
type EqFunc[K any] func(a, b K) bool

// HashMap is an open-addressed map with linear probing. The zero value
// is not ready for use; construct with New.
type HashMap[K any, V any] struct {
	hashFunc HashFunc[K]
	eqFunc   EqFunc[K]
	entries  []entry[K, V]
	used     uint32
}

// New constructs an empty HashMap. hashFunc and eqFunc must be
// deterministic and consistent with each other (equal keys must hash
// equal).
func New[K any, V any](hashFunc HashFunc[K], eqFunc EqFunc[K]) *HashMap[K, V] {
	return &HashMap[K, V]{hashFunc: hashFunc, eqFunc: eqFunc}
}

// nextSize yields a sequence of primes and numbers with two relatively
// large prime factors for any reasonable hash table size.
func nextSize(oldSize uint32) uint32 {
	if oldSize == 0 {
		return 37
	}
	return oldSize*2 + 5
}

func (m *HashMap[K, V]) entryIdx(hash uint32) uint32 {
	return hash % uint32(len(m.entries))
}

func nextIdx(idx, count uint32) uint32 {
	idx++
	if idx < count {
		return idx
	}
	return 0
}

// shouldGrow reports whether the current load factor (used/capacity)
// has reached or exceeded 0.7, checked before an insert.
func (m *HashMap[K, V]) shouldGrow() bool {
	return 10*m.used >= 7*uint32(len(m.entries))
}

// grow reallocates the backing array at the next size and relocates
// every occupied entry by re-probing from its cached hash. Never
// returns an error in Go (unlike the C allocator, make never fails
// synchronously); retained as a method returning nothing for symmetry
// with the original's allocation-failure path, which callers in Go
// don't need to check.
func (m *HashMap[K, V]) grow() {
	old := m.entries
	newCount := nextSize(uint32(len(old)))
	m.entries = make([]entry[K, V], newCount)

	for i := range old {
		if !old[i].occupied {
			continue
		}
		idx := m.entryIdx(old[i].hash)
		for m.entries[idx].occupied {
			idx = nextIdx(idx, newCount)
		}
		m.entries[idx] = old[i]
	}
}

// Find returns the stored value for key, or false if absent. Never
// blocks, never grows the table.
func (m *HashMap[K, V]) Find(key K) (V, bool) {
	var zero V
	if len(m.entries) == 0 {
		return zero, false
	}

	hash := m.hashFunc(key)
	idx := m.entryIdx(hash)

	// The table is never allowed to become fully occupied, so this
	// loop is guaranteed to terminate at a vacant slot.
	for {
		e := &m.entries[idx]
		if !e.occupied {
			return zero, false
		}
		if e.hash == hash && m.eqFunc(key, e.key) {
			return e.value, true
		}
		idx = nextIdx(idx, uint32(len(m.entries)))
	}
}

// Insert stores value under key, growing the table first if the load
// factor has already reached 0.7 (so the insert itself can take it
// just past 0.7 by one entry). If an entry with an equal key
// already exists, Insert leaves it untouched and returns the existing
// value with ok=false so the caller can discard the value it built
// speculatively (mirrors hash_map_insert's "caller cleans up the
// rejected new copy" contract).
func (m *HashMap[K, V]) Insert(key K, value V) (V, bool) {
	if m.shouldGrow() {
		m.grow()
	}

	hash := m.hashFunc(key)
	idx := m.entryIdx(hash)

	var target *entry[K, V]
	for target == nil {
		cur := &m.entries[idx]
		if !cur.occupied || (cur.hash == hash && m.eqFunc(key, cur.key)) {
			target = cur
		} else {
			idx = nextIdx(idx, uint32(len(m.entries)))
		}
	}

	if !target.occupied {
		m.used++
		target.occupied = true
		target.hash = hash
		target.key = key
		target.value = value
		return value, true
	}
	return target.value, false
}

// Iter visits every occupied entry in table order.
func (m *HashMap[K, V]) Iter(fn func(key K, value V)) {
	for i := range m.entries {
		if m.entries[i].occupied {
			fn(m.entries[i].key, m.entries[i].value)
		}
	}
}

// Len returns the number of occupied entries.
func (m *HashMap[K, V]) Len() int {
	return int(m.used)
}

// Cap returns the current backing-array size (not the number of
// occupied entries).
func (m *HashMap[K, V]) Cap() int {
	return len(m.entries)
}

// Clear resets every slot to vacant without releasing the backing
// array.
func (m *HashMap[K, V]) Clear() {
	for i := range m.entries {
		m.entries[i] = entry[K, V]{}
	}
	m.used = 0
}

// Free releases the backing array entirely, returning the map to its
// zero-capacity state.
func (m *HashMap[K, V]) Free() {
	m.entries = nil
	m.used = 0
}
