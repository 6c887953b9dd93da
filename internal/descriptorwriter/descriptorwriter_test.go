package descriptorwriter

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/descriptorheap"
	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/resource"
	"github.com/d3d12vk/corevk/internal/samplercache"
	"github.com/d3d12vk/corevk/internal/view"
)

func newHeap(t *testing.T) *descriptorheap.Heap {
	t.Helper()
	createSet := func(vk.DescriptorType, uint32) (vk.DescriptorSet, func(), error) {
		return vk.DescriptorSet(1), func() {}, nil
	}
	h, err := descriptorheap.CreateWithSetFunc(descriptorheap.Desc{Type: descriptorheap.HeapTypeCBVSRVUAV, NumDescriptors: 16}, &gpudevice.Device{}, createSet)
	require.NoError(t, err)
	return h
}

// fakeCreateImageView stands in for DefaultCreateImageView: it never
// touches a live device, but hands back a distinct non-zero handle per
// call and counts how many views it actually built.
func fakeCreateImageView() (CreateImageViewFunc, *int) {
	calls := 0
	fn := func(img vk.Image, key view.Key) (vk.ImageView, func(), error) {
		calls++
		return vk.ImageView(calls), func() {}, nil
	}
	return fn, &calls
}

func fakeCreateBufferView() CreateBufferViewFunc {
	calls := 0
	return func(buf vk.Buffer, key view.Key) (vk.BufferView, func(), error) {
		calls++
		return vk.BufferView(calls), func() {}, nil
	}
}

func TestCreateCBVRejectsUnalignedSize(t *testing.T) {
	h := newHeap(t)
	err := CreateCBV(h, 0, CBVDesc{BufferLocation: 0x1000, SizeInBytes: 100})
	assert.Error(t, err)
}

func TestCreateCBVNullWritesNullTemplate(t *testing.T) {
	h := newHeap(t)
	err := CreateCBV(h, 3, CBVDesc{})
	require.NoError(t, err)
	assert.True(t, h.SlotIsNull(3))
}

func TestCreateCBVValidWrite(t *testing.T) {
	h := newHeap(t)
	err := CreateCBV(h, 3, CBVDesc{BufferLocation: 0x2000, SizeInBytes: 512})
	require.NoError(t, err)
	assert.False(t, h.SlotIsNull(3))
	assert.Equal(t, descriptorheap.DescriptorTypeUniformBuffer, h.SlotDescriptorType(3))
}

func TestCreateAccelerationStructureSRVWritesNoDescriptor(t *testing.T) {
	h := newHeap(t)
	CreateAccelerationStructureSRV(h, 2, 0xabc123)
	assert.Equal(t, uint64(0xabc123), h.RawVA(2))
}

func TestCreateSamplerInternsThroughCache(t *testing.T) {
	h := newHeap(t)
	cache := samplercache.New(func(key view.SamplerKey) (vk.Sampler, error) {
		return vk.Sampler(42), nil
	}, func(vk.Sampler) {})
	key := view.NewSamplerKey(0, 0, 0, view.AddressWrap, view.AddressWrap, view.AddressWrap, 0, 1, 0, 0, 1, [4]float32{})

	err := CreateSampler(h, 0, cache, key)
	require.NoError(t, err)
	assert.False(t, h.SlotIsNull(0))
	assert.Equal(t, 1, cache.Len())
}

func TestCreateTextureSRVInternsViewOnce(t *testing.T) {
	h := newHeap(t)
	res, err := resource.New(resource.Desc{
		Dimension: resource.DimensionTexture2D, Width: 64, Height: 64, DepthOrArrayLayers: 1, MipLevels: 1,
		Format: formatcatalog.FormatR8G8B8A8Unorm,
	}, &gpudevice.Device{})
	require.NoError(t, err)

	createView, calls := fakeCreateImageView()
	d := TextureSRVUAVDesc{Format: uint32(formatcatalog.FormatR8G8B8A8Unorm), Range: view.SubresourceRange{MipLevels: 1}}
	require.NoError(t, CreateTextureSRV(h, 0, res, d, createView))
	require.NoError(t, CreateTextureSRV(h, 1, res, d, createView))

	assert.Equal(t, 1, res.Views.Len())
	assert.Equal(t, 1, *calls, "the second write must hit the view map cache instead of building a second VkImageView")
}

func TestCreateBufferSRVBuildsRealView(t *testing.T) {
	h := newHeap(t)
	res, err := resource.New(resource.Desc{Dimension: resource.DimensionBuffer, Width: 4096, Height: 1, DepthOrArrayLayers: 1, MipLevels: 1, Layout: resource.LayoutRowMajor}, &gpudevice.Device{})
	require.NoError(t, err)

	d := BufferSRVUAVDesc{NumElements: 16, StructureByteStride: 16}
	_, err = CreateBufferSRV(h, 0, res, d, false, fakeCreateBufferView())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Views.Len())
}
