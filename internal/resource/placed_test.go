package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/gpudevice"
)

func TestCreatePlacedPopulatesVkBufferAtOffset(t *testing.T) {
	createObject, calls := fakeCreateObject()
	alloc := &fakeAllocator{}
	heap := Heap{Allocation: gpudevice.Allocation{Size: 1 << 20}}

	r, err := CreatePlaced(bufferDesc(), &gpudevice.Device{}, alloc, heap, 0, false, fixedRequirements(4096, 256), false, createObject)
	require.NoError(t, err)
	assert.NotZero(t, r.VkBuffer)
	assert.Equal(t, 1, *calls)
}

func TestCreatePlacedFallsBackToCommittedOnEmptyHeap(t *testing.T) {
	createObject, _ := fakeCreateObject()
	alloc := &fakeAllocator{}

	r, err := CreatePlaced(bufferDesc(), &gpudevice.Device{}, alloc, Heap{}, 0, false, fixedRequirements(4096, 256), false, createObject)
	require.NoError(t, err)
	assert.Equal(t, CreationCommitted, r.Kind)
	assert.NotZero(t, r.VkBuffer)
}

func TestCreatePlacedSkipsInitialTransitionForRTDS(t *testing.T) {
	createObject, _ := fakeCreateObject()
	alloc := &fakeAllocator{}
	heap := Heap{Allocation: gpudevice.Allocation{Size: 1 << 20}}

	d := Desc{
		Dimension: DimensionTexture2D, Width: 256, Height: 256, DepthOrArrayLayers: 1, MipLevels: 1,
		Format: formatcatalog.FormatR8G8B8A8Unorm, Flags: FlagAllowRenderTarget,
	}
	r, err := CreatePlaced(d, &gpudevice.Device{}, alloc, heap, 0, false, fixedRequirements(1<<16, 4096), false, createObject)
	require.NoError(t, err)
	assert.NotZero(t, r.VkImage)
	assert.False(t, r.TransitionInitialLayout())
}
