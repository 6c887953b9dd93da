// Package samplercache implements the sampler state cache from spec
// §2.8/§4.8: deduplicates static samplers into a device-global hash
// map, and owns pools of pre-allocated sampler descriptor sets sized
// per internal/rtconfig's tuning knobs.
package samplercache

import (
	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/hashmap"
	"github.com/d3d12vk/corevk/internal/rtconfig"
	"github.com/d3d12vk/corevk/internal/rtlog"
	"github.com/d3d12vk/corevk/internal/rwspinlock"
	"github.com/d3d12vk/corevk/internal/view"
)

// pool is one pre-allocated block of sampler descriptor sets; a new
// pool is created once the active one is exhausted, following a
// fixed-size-pool-plus-overflow pattern for descriptor allocation.
type pool struct {
	descriptorsUsed int
	setsUsed        int
	descriptorCap   int
	setCap          int
}

func newPool(tuning rtconfig.Tuning) *pool {
	return &pool{descriptorCap: tuning.SamplerPoolDescriptors, setCap: tuning.SamplerPoolSets}
}

func (p *pool) hasRoom(descriptors int) bool {
	return p.descriptorsUsed+descriptors <= p.descriptorCap && p.setsUsed+1 <= p.setCap
}

func (p *pool) reserve(descriptors int) {
	p.descriptorsUsed += descriptors
	p.setsUsed++
}

// Entry is one deduplicated sampler: the Vulkan sampler object plus
// its refcount view, shared across every caller that requests the
// same normalized SamplerKey.
type Entry struct {
	View *view.View
}

// CreateFunc builds the VkSampler for a cache miss.
type CreateFunc func(key view.SamplerKey) (vk.Sampler, error)

// DestroyFunc releases a VkSampler built by a CreateFunc.
type DestroyFunc func(vk.Sampler)

// Cache is the device-global sampler deduplication map guarded by a
// read/write spinlock (steady-state read-dominant, same contract as a
// resource's view map).
type Cache struct {
	lock    rwspinlock.RWSpinlock
	entries *hashmap.HashMap[view.SamplerKey, *Entry]

	create  CreateFunc
	destroy DestroyFunc

	pools []*pool
}

// New constructs an empty sampler cache. destroy releases the VkSampler
// a View's refcount drop to zero retires; every sampler create built
// so far must go to a View whose destroy closure actually tears it
// down, never a no-op, or VkSampler objects leak for the cache's
// lifetime.
func New(create CreateFunc, destroy DestroyFunc) *Cache {
	return &Cache{
		entries: hashmap.New[view.SamplerKey, *Entry](samplerKeyHash, samplerKeyEqual),
		create:  create,
		destroy: destroy,
		pools:   []*pool{newPool(rtconfig.Current().Tuning)},
	}
}

func samplerKeyHash(k view.SamplerKey) uint32 {
	return view.Key{Kind: view.KindSampler, Sampler: k}.Hash()
}

func samplerKeyEqual(a, b view.SamplerKey) bool {
	return a == b
}

// Intern deduplicates key into a cached sampler view, building a new
// VkSampler only on a cache miss, using the same read-then-write-on-miss
// contract as the resource view map.
func (c *Cache) Intern(key view.SamplerKey) (*Entry, error) {
	c.lock.AcquireRead()
	if e, ok := c.entries.Find(key); ok {
		e.View.AddRef()
		c.lock.ReleaseRead()
		return e, nil
	}
	c.lock.ReleaseRead()

	sampler, err := c.create(key)
	if err != nil {
		return nil, err
	}
	v := view.New(view.KindSampler, func() { c.destroy(sampler) })
	v.VkSampler = sampler
	built := &Entry{View: v}

	c.lock.AcquireWrite()
	winner, inserted := c.entries.Insert(key, built)
	if !inserted {
		winner.View.AddRef()
	} else {
		c.reserveSlot()
	}
	c.lock.ReleaseWrite()

	if !inserted {
		// A racing Intern won; destroy the sampler this call built.
		built.View.Release()
	}
	return winner, nil
}

// reserveSlot accounts one descriptor set allocation against the
// active pool, rolling over to a fresh pool once exhausted.
func (c *Cache) reserveSlot() {
	active := c.pools[len(c.pools)-1]
	if !active.hasRoom(1) {
		rtlog.Debug("samplercache: pool exhausted at %d/%d sets, allocating a new pool", active.setsUsed, active.setCap)
		active = newPool(rtconfig.Current().Tuning)
		c.pools = append(c.pools, active)
	}
	active.reserve(1)
}

// Len reports the number of distinct interned samplers.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// PoolCount reports how many descriptor-set pools have been allocated,
// for diagnostics.
func (c *Cache) PoolCount() int {
	return len(c.pools)
}
