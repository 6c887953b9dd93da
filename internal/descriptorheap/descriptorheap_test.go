package descriptorheap

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/gpudevice"
)

// fakeCreateSet stands in for DefaultCreateDescriptorSet: it never
// touches a live device, but hands back a distinct non-zero set handle
// and records whether Destroy tore it down.
func fakeCreateSet() (CreateDescriptorSetFunc, *bool) {
	destroyed := false
	fn := func(t vk.DescriptorType, count uint32) (vk.DescriptorSet, func(), error) {
		return vk.DescriptorSet(1), func() { destroyed = true }, nil
	}
	return fn, &destroyed
}

func TestCreateEveryDescriptorStartsNull(t *testing.T) {
	createSet, _ := fakeCreateSet()
	h, err := CreateWithSetFunc(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 10}, &gpudevice.Device{}, createSet)
	require.NoError(t, err)

	for i := uint32(0); i < h.NumDescriptors(); i++ {
		assert.True(t, h.SlotIsNull(i))
	}
}

func TestCreateRoundsMetadataToPowerOfTwo(t *testing.T) {
	createSet, _ := fakeCreateSet()
	h, err := CreateWithSetFunc(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 10}, &gpudevice.Device{}, createSet)
	require.NoError(t, err)
	assert.Equal(t, 16, len(h.metadata))
}

func TestDestroyReleasesDescriptorSet(t *testing.T) {
	createSet, destroyed := fakeCreateSet()
	h, err := CreateWithSetFunc(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 4}, &gpudevice.Device{}, createSet)
	require.NoError(t, err)

	h.Destroy()
	assert.True(t, *destroyed)
}

func TestMarkWrittenThenNullRoundTrips(t *testing.T) {
	createSet, _ := fakeCreateSet()
	h, err := CreateWithSetFunc(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 4}, &gpudevice.Device{}, createSet)
	require.NoError(t, err)

	h.MarkWritten(1, DescriptorTypeSampledImage)
	assert.False(t, h.SlotIsNull(1))
	assert.Equal(t, DescriptorTypeSampledImage, h.SlotDescriptorType(1))

	h.WriteNullDescriptorTemplate(1, DescriptorTypeSampledImage)
	assert.True(t, h.SlotIsNull(1))
}

func TestEmbeddedLayoutChosenWhenDescriptorBufferSupported(t *testing.T) {
	dev := &gpudevice.Device{}
	dev.Features.DescriptorBuffer = true
	dev.DescriptorBufferOffsetAlignment = 16

	h, err := Create(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 8, ShaderVisible: true}, dev)
	require.NoError(t, err)
	assert.Equal(t, LayoutEmbeddedDescriptorBuffer, h.Layout)
}

func TestCopyDescriptorsSimpleEmbeddedFastPath(t *testing.T) {
	dev := &gpudevice.Device{}
	dev.Features.DescriptorBuffer = true
	dev.DescriptorBufferOffsetAlignment = 16

	src, err := Create(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 8, ShaderVisible: true}, dev)
	require.NoError(t, err)
	dst, err := Create(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 8, ShaderVisible: true}, dev)
	require.NoError(t, err)

	src.MarkWritten(0, DescriptorTypeStorageImage)
	src.SetRawVA(0, 0xdead)
	copy(src.descriptorBuffer[0:src.descriptorSize], []byte{1, 2, 3, 4})

	CopyDescriptorsSimple(dst, 2, src, 0, 1, nil)

	assert.False(t, dst.SlotIsNull(2))
	assert.Equal(t, DescriptorTypeStorageImage, dst.SlotDescriptorType(2))
	assert.Equal(t, uint64(0xdead), dst.RawVA(2))
}

func TestCopyDescriptorsSimpleNonEmbeddedIssuesVkCopy(t *testing.T) {
	createSet, _ := fakeCreateSet()
	src, err := CreateWithSetFunc(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 8}, &gpudevice.Device{}, createSet)
	require.NoError(t, err)
	dst, err := CreateWithSetFunc(Desc{Type: HeapTypeCBVSRVUAV, NumDescriptors: 8}, &gpudevice.Device{}, createSet)
	require.NoError(t, err)

	src.MarkWritten(0, DescriptorTypeStorageImage)
	src.SetRawVA(0, 0xbeef)

	var gotDst, gotSrc vk.DescriptorSet
	var gotDstIndex, gotSrcIndex uint32
	var gotType vk.DescriptorType
	calls := 0
	copySet := func(dstSet vk.DescriptorSet, dstIndex uint32, srcSet vk.DescriptorSet, srcIndex uint32, descriptorType vk.DescriptorType) {
		calls++
		gotDst, gotDstIndex, gotSrc, gotSrcIndex, gotType = dstSet, dstIndex, srcSet, srcIndex, descriptorType
	}

	CopyDescriptorsSimple(dst, 3, src, 0, 1, copySet)

	assert.Equal(t, 1, calls, "a non-embedded single-descriptor copy must issue exactly one VkCopyDescriptorSet")
	assert.Equal(t, dst.descriptorSets[0], gotDst)
	assert.Equal(t, src.descriptorSets[0], gotSrc)
	assert.Equal(t, uint32(3), gotDstIndex)
	assert.Equal(t, uint32(0), gotSrcIndex)
	assert.Equal(t, vk.DescriptorTypeStorageImage, gotType)
	assert.False(t, dst.SlotIsNull(3))
	assert.Equal(t, uint64(0xbeef), dst.RawVA(3))
}

func TestShaderVisibleHeapRejectsUnsupportedType(t *testing.T) {
	_, err := Create(Desc{Type: 99, NumDescriptors: 4, ShaderVisible: true}, &gpudevice.Device{})
	assert.Error(t, err)
}
