package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyEqualityIgnoresUnreachableBorderColor(t *testing.T) {
	border := [4]float32{1, 2, 3, 4}
	// Neither key can reach the border (both use Wrap), so the
	// border-color argument must be discarded by NewSamplerKey.
	a := NewSamplerKey(0, 0, 0, AddressWrap, AddressWrap, AddressWrap, 0, 1, 0, 0, 1, border)
	b := NewSamplerKey(0, 0, 0, AddressWrap, AddressWrap, AddressWrap, 0, 1, 0, 0, 1, [4]float32{9, 9, 9, 9})

	assert.Equal(t, a, b)
	assert.Equal(t, a.hash(), b.hash())
}

func TestKeyEqualityHonorsReachableBorderColor(t *testing.T) {
	a := NewSamplerKey(0, 0, 0, AddressClampToBorder, AddressWrap, AddressWrap, 0, 1, 0, 0, 1, [4]float32{1, 0, 0, 1})
	b := NewSamplerKey(0, 0, 0, AddressClampToBorder, AddressWrap, AddressWrap, 0, 1, 0, 0, 1, [4]float32{0, 1, 0, 1})

	assert.NotEqual(t, a, b)
}

func TestViewRefcountingReleasesAtZero(t *testing.T) {
	destroyed := false
	v := New(KindImage, func() { destroyed = true })

	v.AddRef()
	assert.False(t, v.Release(), "refcount 1 remaining after release")
	assert.False(t, destroyed)

	assert.True(t, v.Release(), "refcount reaches zero")
	assert.True(t, destroyed)
}

func TestKeyHashDeterministic(t *testing.T) {
	k := Key{Kind: KindImage, Format: 1, Range: SubresourceRange{BaseMipLevel: 0, MipLevels: 4}}
	assert.Equal(t, k.Hash(), k.Hash())

	k2 := k
	k2.Range.MipLevels = 5
	assert.NotEqual(t, k.Hash(), k2.Hash())
}
