// Package formatcatalog holds the static DXGI-format -> Vulkan-format
// tables consumed by resource and view creation. Where
// gpudevice.DetectDepthFormat picks the first supported depth format
// from a fixed list, this package is a full DXGI-keyed catalog lookup.
package formatcatalog

import vk "github.com/goki/vulkan"

// DXGIFormat mirrors the handful of DXGI_FORMAT_* values this runtime
// needs to reason about; UNKNOWN is the buffer-resource sentinel
// ("a buffer has ... Format=UNKNOWN").
type DXGIFormat uint32

const (
	FormatUnknown DXGIFormat = iota
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8UnormSRGB
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8UnormSRGB
	FormatR32G32B32A32Float
	FormatR32G32Float
	FormatR32Float
	FormatR32Typeless
	FormatR32Uint
	FormatR32Sint
	FormatR16G16B16A16Float
	FormatD32Float
	FormatD32FloatS8X24Uint
	FormatD24UnormS8Uint
	FormatBC1UnormTypeless
	FormatBC7Unorm
	FormatR32G32Uint
	FormatR64Uint
)

// Aspect mirrors vk.ImageAspectFlags but kept as an independent type so
// the catalog doesn't leak a goki/vulkan dependency into callers that
// only want the byte layout (tests, the format-compatibility-list
// builder).
type Aspect uint32

const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

// Entry is one row of the catalog: everything resource/view creation
// needs to know about a DXGI format without re-deriving it from the
// Vulkan format every time.
type Entry struct {
	DXGI          DXGIFormat
	VkFormat      vk.Format
	Aspect        Aspect
	BlockWidth    uint8
	BlockHeight   uint8
	BytesPerBlock uint8
	// Typeless marks formats that only contribute to feature unions in
	// a format-compatibility list, never chosen as the
	// resource's base format directly.
	Typeless bool
	// BlockCompressed marks BCn/ASTC formats, consulted when deciding
	// whether BLOCK_TEXEL_VIEW_COMPATIBLE must be set for a castable
	// format list that mixes compressed and uncompressed views.
	BlockCompressed bool
}

var catalog = map[DXGIFormat]Entry{
	FormatR8G8B8A8Unorm:     {FormatR8G8B8A8Unorm, vk.FormatR8g8b8a8Unorm, AspectColor, 1, 1, 4, false, false},
	FormatR8G8B8A8UnormSRGB: {FormatR8G8B8A8UnormSRGB, vk.FormatR8g8b8a8Srgb, AspectColor, 1, 1, 4, false, false},
	FormatB8G8R8A8Unorm:     {FormatB8G8R8A8Unorm, vk.FormatB8g8r8a8Unorm, AspectColor, 1, 1, 4, false, false},
	FormatB8G8R8A8UnormSRGB: {FormatB8G8R8A8UnormSRGB, vk.FormatB8g8r8a8Srgb, AspectColor, 1, 1, 4, false, false},
	FormatR32G32B32A32Float: {FormatR32G32B32A32Float, vk.FormatR32g32b32a32Sfloat, AspectColor, 1, 1, 16, false, false},
	FormatR32G32Float:       {FormatR32G32Float, vk.FormatR32g32Sfloat, AspectColor, 1, 1, 8, false, false},
	FormatR32Float:          {FormatR32Float, vk.FormatR32Sfloat, AspectColor, 1, 1, 4, false, false},
	FormatR32Typeless:       {FormatR32Typeless, vk.FormatUndefined, AspectColor, 1, 1, 4, true, false},
	FormatR32Uint:           {FormatR32Uint, vk.FormatR32Uint, AspectColor, 1, 1, 4, false, false},
	FormatR32Sint:           {FormatR32Sint, vk.FormatR32Sint, AspectColor, 1, 1, 4, false, false},
	FormatR16G16B16A16Float: {FormatR16G16B16A16Float, vk.FormatR16g16b16a16Sfloat, AspectColor, 1, 1, 8, false, false},
	FormatD32Float:          {FormatD32Float, vk.FormatD32Sfloat, AspectDepth, 1, 1, 4, false, false},
	FormatD32FloatS8X24Uint: {FormatD32FloatS8X24Uint, vk.FormatD32SfloatS8Uint, AspectDepth | AspectStencil, 1, 1, 8, false, false},
	FormatD24UnormS8Uint:    {FormatD24UnormS8Uint, vk.FormatD24UnormS8Uint, AspectDepth | AspectStencil, 1, 1, 4, false, false},
	FormatBC1UnormTypeless:  {FormatBC1UnormTypeless, vk.FormatUndefined, AspectColor, 4, 4, 8, true, true},
	FormatBC7Unorm:          {FormatBC7Unorm, vk.FormatBc7UnormBlock, AspectColor, 4, 4, 16, false, true},
	FormatR32G32Uint:        {FormatR32G32Uint, vk.FormatR32g32Uint, AspectColor, 1, 1, 8, false, false},
	FormatR64Uint:           {FormatR64Uint, vk.FormatUndefined, AspectColor, 1, 1, 8, false, false},
}

// AllFormats returns every DXGI format the catalog knows about, for
// callers that need to search by Vulkan format rather than DXGI format
// (the format-compatibility-list builder's R32G32_UINT/R64_UINT check).
func AllFormats() []DXGIFormat {
	all := make([]DXGIFormat, 0, len(catalog))
	for f := range catalog {
		all = append(all, f)
	}
	return all
}

// Lookup returns the catalog row for a DXGI format, or false if the
// format is not covered (the core only needs the subset of DXGI
// actually exercised by resource/view creation; anything else is a
// caller bug, not a runtime condition to recover from).
func Lookup(f DXGIFormat) (Entry, bool) {
	e, ok := catalog[f]
	return e, ok
}

// BlockCount computes the number of format blocks covering extent,
// rounding up, matching how subresource footprint and sparse-tile math
// both need block-aligned coverage rather than raw texel
// counts.
func (e Entry) BlockCount(width, height uint32) (blocksWide, blocksHigh uint32) {
	bw, bh := uint32(e.BlockWidth), uint32(e.BlockHeight)
	return (width + bw - 1) / bw, (height + bh - 1) / bh
}

// RowPitch returns the byte pitch of one row of blocks for the given
// texel width.
func (e Entry) RowPitch(width uint32) uint64 {
	blocksWide, _ := e.BlockCount(width, 1)
	return uint64(blocksWide) * uint64(e.BytesPerBlock)
}

// CastCompatible reports whether `other` may appear alongside `e` in a
// resource's castable-format list: block size and
// byte-per-block must match; typeless entries are always compatible
// since they only contribute to feature unions.
func (e Entry) CastCompatible(other Entry) bool {
	if e.Typeless || other.Typeless {
		return true
	}
	return e.BlockWidth == other.BlockWidth &&
		e.BlockHeight == other.BlockHeight &&
		e.BytesPerBlock == other.BytesPerBlock
}
