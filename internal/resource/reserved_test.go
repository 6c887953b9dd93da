package resource

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/gpudevice"
)

type fakeSparseBinder struct {
	timeline uint64
	err      error
}

func (f *fakeSparseBinder) SubmitInitialUnbind(totalTileCount uint32) (uint64, error) {
	return f.timeline, f.err
}

func TestCreateReservedPopulatesVkImageUnbound(t *testing.T) {
	var seenAlloc *gpudevice.Allocation
	seenAllocSet := false
	createObject := func(desc Desc, alloc *gpudevice.Allocation) (vk.Buffer, vk.Image, error) {
		seenAlloc = alloc
		seenAllocSet = true
		return 0, vk.Image(1), nil
	}

	d := Desc{
		Dimension: DimensionTexture2D, Width: 65536, Height: 65536, DepthOrArrayLayers: 1, MipLevels: 10,
		Format: formatcatalog.FormatR8G8B8A8Unorm,
	}
	metaAlloc := &fakeAllocator{}
	binder := &fakeSparseBinder{timeline: 42}

	r, err := CreateReserved(d, &gpudevice.Device{}, metaAlloc, binder, true, createObject)
	require.NoError(t, err)
	assert.NotZero(t, r.VkImage)
	assert.True(t, seenAllocSet)
	assert.Nil(t, seenAlloc, "reserved resources must be created unbound; binding happens later through the sparse binder")
	assert.Equal(t, uint64(42), r.Sparse.InitialBindTimeline)
}

func TestCreateReservedPropagatesObjectCreationFailure(t *testing.T) {
	failing := func(desc Desc, alloc *gpudevice.Allocation) (vk.Buffer, vk.Image, error) {
		return 0, 0, errFakeObjectCreation
	}

	d := Desc{
		Dimension: DimensionTexture2D, Width: 256, Height: 256, DepthOrArrayLayers: 1, MipLevels: 1,
		Format: formatcatalog.FormatR8G8B8A8Unorm,
	}
	_, err := CreateReserved(d, &gpudevice.Device{}, &fakeAllocator{}, &fakeSparseBinder{}, false, failing)
	require.ErrorIs(t, err, errFakeObjectCreation)
}
