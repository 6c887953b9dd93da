package resource

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/gpudevice"
)

var errFakeObjectCreation = errors.New("fake object creation failure")

// fakeAllocator stands in for a live device allocator: every call
// succeeds and hands back a distinct, non-zero DeviceMemory handle so
// tests can tell allocations apart.
type fakeAllocator struct {
	nextMemory uint64
	freed      []gpudevice.Allocation
}

func (f *fakeAllocator) Allocate(req gpudevice.AllocationRequirements, _ gpudevice.MemoryProperty) (gpudevice.Allocation, error) {
	f.nextMemory++
	return gpudevice.Allocation{Memory: vk.DeviceMemory(f.nextMemory), Size: req.Size}, nil
}

func (f *fakeAllocator) Free(a gpudevice.Allocation) {
	f.freed = append(f.freed, a)
}

// fakeCreateObject stands in for DefaultCreateObject: it never touches
// a live device, but counts its calls and hands back distinguishable
// non-zero handles.
func fakeCreateObject() (CreateObjectFunc, *int) {
	calls := 0
	fn := func(desc Desc, alloc *gpudevice.Allocation) (vk.Buffer, vk.Image, error) {
		calls++
		if desc.Dimension == DimensionBuffer {
			return vk.Buffer(calls), 0, nil
		}
		return 0, vk.Image(calls), nil
	}
	return fn, &calls
}

func fixedRequirements(size, align uint64) QueryMemoryRequirements {
	return func(withVRS bool) MemoryRequirements {
		return MemoryRequirements{Size: size, Alignment: align, MemoryTypeBits: 0xFFFFFFFF}
	}
}

func TestCreateCommittedPopulatesVkBuffer(t *testing.T) {
	createObject, calls := fakeCreateObject()
	alloc := &fakeAllocator{}

	r, err := CreateCommitted(bufferDesc(), &gpudevice.Device{}, alloc, false, fixedRequirements(4096, 256), createObject)
	require.NoError(t, err)
	assert.NotZero(t, r.VkBuffer)
	assert.Zero(t, r.VkImage)
	assert.Equal(t, 1, *calls)
	assert.NotZero(t, r.Allocation.Memory)
}

func TestCreateCommittedPopulatesVkImage(t *testing.T) {
	createObject, _ := fakeCreateObject()
	alloc := &fakeAllocator{}

	d := Desc{
		Dimension: DimensionTexture2D, Width: 256, Height: 256, DepthOrArrayLayers: 1, MipLevels: 1,
		Format: formatcatalog.FormatR8G8B8A8Unorm,
	}
	r, err := CreateCommitted(d, &gpudevice.Device{}, alloc, false, fixedRequirements(1 << 20, 4096), createObject)
	require.NoError(t, err)
	assert.NotZero(t, r.VkImage)
	assert.Zero(t, r.VkBuffer)
}

func TestCreateCommittedFreesAllocationOnObjectCreationFailure(t *testing.T) {
	alloc := &fakeAllocator{}
	failing := func(desc Desc, a *gpudevice.Allocation) (vk.Buffer, vk.Image, error) {
		return 0, 0, errFakeObjectCreation
	}

	_, err := CreateCommitted(bufferDesc(), &gpudevice.Device{}, alloc, false, fixedRequirements(4096, 256), failing)
	require.Error(t, err)
	require.Len(t, alloc.freed, 1)
}
