package resource

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
)

func bufferDesc() Desc {
	return Desc{
		Dimension: DimensionBuffer,
		Width:     4096,
		Height:    1,
		DepthOrArrayLayers: 1,
		MipLevels: 1,
		Format:    formatcatalog.FormatUnknown,
		Layout:    LayoutRowMajor,
		HeapType:  HeapTypeDefault,
	}
}

func TestNewRejectsBufferWithNonUnitHeight(t *testing.T) {
	d := bufferDesc()
	d.Height = 2
	_, err := New(d, &gpudevice.Device{})
	assert.ErrorIs(t, err, rterror.ErrInvalidArgument)
}

func TestNewAcceptsValidBuffer(t *testing.T) {
	r, err := New(bufferDesc(), &gpudevice.Device{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.publicRefcount)
	assert.Equal(t, int32(1), r.internalRefcount)
	assert.NotZero(t, r.Cookie)
}

func TestNewRejectsSimultaneousAccessWithDepthStencil(t *testing.T) {
	d := Desc{
		Dimension: DimensionTexture2D, Width: 256, Height: 256, DepthOrArrayLayers: 1, MipLevels: 1,
		Format: formatcatalog.FormatD32Float,
		Flags:  FlagAllowSimultaneousAccess | FlagAllowDepthStencil,
	}
	_, err := New(d, &gpudevice.Device{})
	assert.ErrorIs(t, err, rterror.ErrInvalidArgument)
}

func TestNewRejectsSimultaneousAccessOnBuffer(t *testing.T) {
	d := bufferDesc()
	d.Flags = FlagAllowSimultaneousAccess
	_, err := New(d, &gpudevice.Device{})
	assert.ErrorIs(t, err, rterror.ErrInvalidArgument)
}

func TestNewRejectsMSAAWithoutRenderTargetOrDepthStencil(t *testing.T) {
	d := Desc{
		Dimension: DimensionTexture2D, Width: 256, Height: 256, DepthOrArrayLayers: 1, MipLevels: 1,
		Format: formatcatalog.FormatR8G8B8A8Unorm, SampleCount: 4,
	}
	_, err := New(d, &gpudevice.Device{})
	assert.ErrorIs(t, err, rterror.ErrInvalidArgument)
}

func TestNewRejectsBadAlignment(t *testing.T) {
	d := bufferDesc()
	d.Alignment = 123
	_, err := New(d, &gpudevice.Device{})
	assert.ErrorIs(t, err, rterror.ErrInvalidArgument)
}

func TestNewRejectsIncompatibleCastableFormat(t *testing.T) {
	d := Desc{
		Dimension: DimensionTexture2D, Width: 256, Height: 256, DepthOrArrayLayers: 1, MipLevels: 1,
		Format:          formatcatalog.FormatBC7Unorm,
		CastableFormats: []formatcatalog.DXGIFormat{formatcatalog.FormatR8G8B8A8Unorm},
	}
	_, err := New(d, &gpudevice.Device{})
	assert.ErrorIs(t, err, rterror.ErrInvalidArgument)
}

func TestSelectCommonLayoutDepthStencil(t *testing.T) {
	d := Desc{Dimension: DimensionTexture2D, Format: formatcatalog.FormatD32Float, Flags: FlagAllowDepthStencil}
	assert.Equal(t, vk.ImageLayoutDepthStencilReadOnlyOptimal, selectCommonLayout(d))

	d.Flags |= FlagDenyShaderResource
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, selectCommonLayout(d))
}

func TestBuildFormatCompatibilityListAddsR32VariantsForTypelessUAV(t *testing.T) {
	d := Desc{
		Dimension: DimensionTexture2D, Format: formatcatalog.FormatR32Typeless,
		Flags: FlagAllowUnorderedAccess,
	}
	list, mutable, _, err := buildFormatCompatibilityList(d, &gpudevice.Device{})
	require.NoError(t, err)
	assert.True(t, mutable)
	assert.Greater(t, len(list), 1)
}

func TestResourceRefcountLifecycle(t *testing.T) {
	r, err := New(bufferDesc(), &gpudevice.Device{})
	require.NoError(t, err)

	destroyed := false
	r.AddDestructionNotifier(func() { destroyed = true })

	r.AddRef()
	assert.False(t, r.Release())
	assert.False(t, destroyed)
	assert.True(t, r.Release())
	assert.True(t, destroyed)
}

func TestResourceInternalRefOutlivesPublicRelease(t *testing.T) {
	r, err := New(bufferDesc(), &gpudevice.Device{})
	require.NoError(t, err)

	destroyed := false
	r.AddDestructionNotifier(func() { destroyed = true })

	// A command list records the resource without taking a public
	// reference of its own.
	r.AddInternalRef()

	assert.False(t, r.Release())
	assert.False(t, destroyed, "Vulkan objects must survive while a command list still holds an internal reference")

	assert.True(t, r.ReleaseInternal())
	assert.True(t, destroyed)
}

func TestInitialLayoutTransitionFiresOnce(t *testing.T) {
	r, err := New(bufferDesc(), &gpudevice.Device{})
	require.NoError(t, err)
	assert.True(t, r.TransitionInitialLayout())
	assert.False(t, r.TransitionInitialLayout())
}
