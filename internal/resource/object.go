package resource

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
)

// CreateObjectFunc creates the VkBuffer or VkImage backing desc. A nil
// alloc builds the object with sparse-binding/residency flags and
// leaves it unbound (the reserved path, whose tiles are bound later
// through a SparseBinder); a non-nil alloc binds the object to that
// allocation before returning, matching the committed/placed
// create-then-bind sequence.
type CreateObjectFunc func(desc Desc, alloc *gpudevice.Allocation) (vk.Buffer, vk.Image, error)

// DefaultCreateObject builds a CreateObjectFunc that issues real
// vk.CreateBuffer/vk.CreateImage and vk.BindBufferMemory/vk.BindImageMemory
// calls against dev.Logical, the same create-then-query-then-bind
// sequence the teacher's ImageCreate uses (build a CreateInfo, call
// Create*, then Bind* once memory is available).
func DefaultCreateObject(dev *gpudevice.Device) CreateObjectFunc {
	return func(desc Desc, alloc *gpudevice.Allocation) (vk.Buffer, vk.Image, error) {
		if desc.Dimension == DimensionBuffer {
			return createBuffer(dev, desc, alloc)
		}
		return createImage(dev, desc, alloc)
	}
}

func createBuffer(dev *gpudevice.Device, desc Desc, alloc *gpudevice.Allocation) (vk.Buffer, vk.Image, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Width),
		Usage:       bufferUsageFor(desc),
		SharingMode: vk.SharingModeExclusive,
	}
	if alloc == nil {
		info.Flags = vk.BufferCreateFlags(vk.BufferCreateSparseBindingBit) | vk.BufferCreateFlags(vk.BufferCreateSparseResidencyBit)
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(dev.Logical, &info, dev.Allocator, &handle); res != vk.Success {
		return 0, 0, fmt.Errorf("%w: vkCreateBuffer failed with result %d", rterror.ErrDeviceLost, res)
	}
	if alloc != nil {
		if res := vk.BindBufferMemory(dev.Logical, handle, alloc.Memory, alloc.Offset); res != vk.Success {
			return 0, 0, fmt.Errorf("%w: vkBindBufferMemory failed with result %d", rterror.ErrDeviceLost, res)
		}
	}
	return handle, 0, nil
}

func createImage(dev *gpudevice.Device, desc Desc, alloc *gpudevice.Allocation) (vk.Buffer, vk.Image, error) {
	entry, ok := formatcatalog.Lookup(desc.Format)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown format for image creation", rterror.ErrInvalidArgument)
	}

	tiling := vk.ImageTilingOptimal
	if desc.Layout == LayoutRowMajor {
		tiling = vk.ImageTilingLinear
	}

	var flags vk.ImageCreateFlags
	if alloc == nil {
		flags = vk.ImageCreateFlags(vk.ImageCreateSparseBindingBit) | vk.ImageCreateFlags(vk.ImageCreateSparseResidencyBit)
	}

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: imageTypeFor(desc.Dimension),
		Format:    entry.VkFormat,
		Extent: vk.Extent3D{
			Width:  uint32(desc.Width),
			Height: desc.Height,
			Depth:  depthFor(desc),
		},
		MipLevels:     uint32(desc.MipLevels),
		ArrayLayers:   arrayLayersFor(desc),
		Samples:       sampleCountFor(desc.SampleCount),
		Tiling:        tiling,
		Usage:         imageUsageFor(desc),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if res := vk.CreateImage(dev.Logical, &info, dev.Allocator, &handle); res != vk.Success {
		return 0, 0, fmt.Errorf("%w: vkCreateImage failed with result %d", rterror.ErrDeviceLost, res)
	}
	if alloc != nil {
		if res := vk.BindImageMemory(dev.Logical, handle, alloc.Memory, alloc.Offset); res != vk.Success {
			return 0, 0, fmt.Errorf("%w: vkBindImageMemory failed with result %d", rterror.ErrDeviceLost, res)
		}
	}
	return 0, handle, nil
}

func imageTypeFor(dim Dimension) vk.ImageType {
	switch dim {
	case DimensionTexture1D:
		return vk.ImageType1d
	case DimensionTexture3D:
		return vk.ImageType3d
	default:
		return vk.ImageType2d
	}
}

func depthFor(d Desc) uint32 {
	if d.Dimension == DimensionTexture3D {
		return d.DepthOrArrayLayers
	}
	return 1
}

func arrayLayersFor(d Desc) uint32 {
	if d.Dimension == DimensionTexture3D {
		return 1
	}
	return d.DepthOrArrayLayers
}

// sampleCountFor casts the resource's sample count directly into the
// matching VkSampleCountFlagBits: every legal D3D12 MSAA count (1, 2,
// 4, 8, 16, 32) is already numerically identical to its Vulkan flag
// bit, the same identity the teacher's sample-count conversions rely
// on rather than a lookup table.
func sampleCountFor(count uint32) vk.SampleCountFlagBits {
	if count == 0 {
		count = 1
	}
	return vk.SampleCountFlagBits(count)
}

// bufferUsageFor returns the permissive usage superset every buffer
// resource is created with: D3D12 buffers can be bound as a CBV, SRV,
// UAV, vertex buffer, index buffer, or indirect-argument buffer
// without a separate creation-time declaration, so the Vulkan object
// backing one must support all of them up front.
func bufferUsageFor(d Desc) vk.BufferUsageFlags {
	return vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) |
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) |
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageUniformTexelBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageStorageTexelBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit)
}
