// Package view implements the reference-counted view handle and its
// interning key from /§4.4: buffer view, image view, sampler, or
// acceleration-structure reference, owned by a resource's view map (or
// the device-global sampler cache) and shared across lookups that
// produce an identical ViewKey.
package view

import (
	"math"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/hashutil"
)

// Kind discriminates the tagged union of view payloads.
type Kind uint8

const (
	KindBuffer Kind = iota
	KindImage
	KindSampler
	KindAccelerationStructure
)

// Swizzle mirrors the four-component remap a texture SRV/UAV can apply.
type Swizzle uint8

const (
	SwizzleIdentity Swizzle = iota
	SwizzleZero
	SwizzleOne
	SwizzleR
	SwizzleG
	SwizzleB
	SwizzleA
)

// AddressMode mirrors the three independently-settable sampler address
// modes; only AddressClampToBorder makes BorderColor reachable.
type AddressMode uint8

const (
	AddressWrap AddressMode = iota
	AddressMirror
	AddressClamp
	AddressClampToBorder
	AddressMirrorOnce
)

// SamplerKey is the normalized, fully-comparable description of a
// static sampler used both by view-map interning and by the
// device-global sampler cache. Two keys compare equal (via plain ==)
// iff the resulting VkSampler would be byte-identical.
type SamplerKey struct {
	MinFilter      uint32
	MagFilter      uint32
	MipmapMode     uint32
	AddressU       AddressMode
	AddressV       AddressMode
	AddressW       AddressMode
	MipLODBias     float32
	MaxAnisotropy  uint32
	ComparisonFunc uint32
	MinLOD         float32
	MaxLOD         float32
	// BorderColor is zeroed by NewSamplerKey when no address mode can
	// ever reach the border, so two samplers differing only in an
	// unreachable border color still hash and compare equal.
	BorderColor [4]float32
}

// NewSamplerKey builds a SamplerKey, normalizing away a border color
// that no address mode can reach.
func NewSamplerKey(minFilter, magFilter, mipmapMode uint32, addrU, addrV, addrW AddressMode,
	mipLODBias float32, maxAniso uint32, comparisonFunc uint32, minLOD, maxLOD float32, borderColor [4]float32) SamplerKey {
	k := SamplerKey{
		MinFilter: minFilter, MagFilter: magFilter, MipmapMode: mipmapMode,
		AddressU: addrU, AddressV: addrV, AddressW: addrW,
		MipLODBias: mipLODBias, MaxAnisotropy: maxAniso,
		ComparisonFunc: comparisonFunc, MinLOD: minLOD, MaxLOD: maxLOD,
	}
	if addrU == AddressClampToBorder || addrV == AddressClampToBorder || addrW == AddressClampToBorder {
		k.BorderColor = borderColor
	}
	return k
}

func (k SamplerKey) hash() uint32 {
	h := hashutil.Combine(0, k.MinFilter)
	h = hashutil.Combine(h, k.MagFilter)
	h = hashutil.Combine(h, k.MipmapMode)
	h = hashutil.Combine(h, uint32(k.AddressU)|uint32(k.AddressV)<<8|uint32(k.AddressW)<<16)
	h = hashutil.Combine(h, hashutil.Uint64(uint64(k.MaxAnisotropy))^k.ComparisonFunc)
	for _, c := range k.BorderColor {
		h = hashutil.Combine(h, float32Bits(c))
	}
	return h
}

func float32Bits(f float32) uint32 {
	return math.Float32bits(f)
}

// SubresourceRange mirrors a D3D12-style mip/array range for an image
// view.
type SubresourceRange struct {
	BaseMipLevel   uint32
	MipLevels      uint32
	BaseArrayLayer uint32
	LayerCount     uint32
	PlaneSlice     uint32
}

// Key is a tagged-union interning key: two keys hash equal iff the
// corresponding Vulkan object would be byte-identical. Comparable by
// plain == since every field is a scalar.
type Key struct {
	Kind   Kind
	Format formatcatalog.DXGIFormat

	// Buffer (raw/structured/typed)
	BufferOffset      uint64
	BufferSize        uint64
	BufferStride      uint32
	BufferIsStructured bool

	// Image
	ImageViewType   uint32 // vk.ImageViewType, kept numeric to stay comparable without importing cgo handles
	Range           SubresourceRange
	SwizzleR        Swizzle
	SwizzleG        Swizzle
	SwizzleB        Swizzle
	SwizzleA        Swizzle
	MinLODClamp     float32
	// WOffset/WSize address a sliced 3D view's W range.
	WOffset uint32
	WSize   uint32

	// Sampler
	Sampler SamplerKey
}

// Hash computes the key's hash for use as a hashmap.HashMap key.
func (k Key) Hash() uint32 {
	h := hashutil.Combine(0, uint32(k.Kind))
	h = hashutil.Combine(h, uint32(k.Format))
	switch k.Kind {
	case KindBuffer:
		h = hashutil.Combine(h, hashutil.Uint64(k.BufferOffset))
		h = hashutil.Combine(h, hashutil.Uint64(k.BufferSize))
		h = hashutil.Combine(h, k.BufferStride)
	case KindImage:
		h = hashutil.Combine(h, k.ImageViewType)
		h = hashutil.Combine(h, k.Range.BaseMipLevel|k.Range.MipLevels<<8)
		h = hashutil.Combine(h, k.Range.BaseArrayLayer|k.Range.LayerCount<<16)
		h = hashutil.Combine(h, k.Range.PlaneSlice)
		h = hashutil.Combine(h, uint32(k.SwizzleR)|uint32(k.SwizzleG)<<8|uint32(k.SwizzleB)<<16|uint32(k.SwizzleA)<<24)
		h = hashutil.Combine(h, float32Bits(k.MinLODClamp))
		h = hashutil.Combine(h, k.WOffset|k.WSize<<16)
	case KindSampler:
		h = hashutil.Combine(h, k.Sampler.hash())
	case KindAccelerationStructure:
		h = hashutil.Combine(h, hashutil.Uint64(k.BufferOffset))
	}
	return h
}

// KeyHash and KeyEqual adapt Key for use as a hashmap.HashMap[Key, *View]
// key (hashmap.HashFunc/EqFunc signatures).
func KeyHash(k Key) uint32        { return k.Hash() }
func KeyEqual(a, b Key) bool      { return a == b }

// View is a reference-counted handle owned by a view map (or the
// device-global sampler map); it can outlive its creating descriptor
// through sharing.
type View struct {
	Kind     Kind
	Cookie   uint64
	DebugName string
	Format   formatcatalog.DXGIFormat

	refcount int32

	// Buffer view payload.
	VkBufferView vk.BufferView
	BufferOffset uint64
	BufferSize   uint64

	// Image view payload.
	VkImageView vk.ImageView
	Range       SubresourceRange
	WOffset     uint32
	WSize       uint32

	// Sampler payload.
	VkSampler vk.Sampler

	// Acceleration-structure payload: no Vulkan descriptor is ever
	// written for this kind; only the GPU VA is recorded
	// into the heap's raw-VA aux buffer by the descriptor writer.
	AccelerationStructureVA uint64

	// destroy releases whatever Vulkan object(s) this view owns once
	// the refcount reaches zero. Supplied by the creator (resource or
	// sampler cache) so this package stays device-agnostic beyond the
	// handles it stores.
	destroy func()
}

// New wraps a freshly-created Vulkan object into a View with an initial
// refcount of 1.
func New(kind Kind, destroy func()) *View {
	return &View{Kind: kind, refcount: 1, destroy: destroy}
}

// AddRef increments the view's refcount. Must be called under the
// owning view map's lock (or sampler cache mutex) to avoid racing with
// a concurrent Release reaching zero.
func (v *View) AddRef() {
	v.refcount++
}

// Release decrements the view's refcount, invoking its destroy
// callback and returning true exactly once, when the count reaches
// zero.
func (v *View) Release() bool {
	v.refcount--
	if v.refcount == 0 {
		if v.destroy != nil {
			v.destroy()
		}
		return true
	}
	return false
}

// RefCount reports the current refcount, for tests and diagnostics.
func (v *View) RefCount() int32 {
	return v.refcount
}
