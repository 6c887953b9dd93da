package resource

import (
	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
)

// MemoryRequirements is the subset of vk.MemoryRequirements2 output
// this layer needs; kept independent of the cgo struct so tests can
// construct one without a live device.
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// QueryMemoryRequirements abstracts vkGetBufferMemoryRequirements2 /
// vkGetImageMemoryRequirements2, supplied by the caller since it needs
// a live vk.Device and vk.Buffer/vk.Image the resource doesn't own yet
// at validation time.
type QueryMemoryRequirements func(withVRS bool) MemoryRequirements

// CreateCommitted implements committed entry point: for
// textures that qualify for implicit VRS, memory requirements are
// queried once with VRS usage included and once without, keeping the
// maximum of the two so the allocation is large enough regardless of
// whether the driver folds VRS metadata into the primary allocation.
// Once memory is allocated, createObject builds the real VkBuffer or
// VkImage and binds it to that allocation.
func CreateCommitted(desc Desc, dev *gpudevice.Device, alloc gpudevice.Allocator,
	qualifiesForImplicitVRS bool, query QueryMemoryRequirements, createObject CreateObjectFunc) (*Resource, error) {

	r, err := New(desc, dev)
	if err != nil {
		return nil, err
	}
	r.Kind = CreationCommitted

	req := query(false)
	if qualifiesForImplicitVRS && desc.Dimension != DimensionBuffer {
		vrsReq := query(true)
		req = maxRequirements(req, vrsReq)
	}

	props := gpudevice.MemoryPropertyDeviceLocal
	switch desc.HeapType {
	case HeapTypeUpload:
		props = gpudevice.MemoryPropertyHostVisible | gpudevice.MemoryPropertyHostCoherent
	case HeapTypeReadback:
		props = gpudevice.MemoryPropertyHostVisible | gpudevice.MemoryPropertyHostCoherent | gpudevice.MemoryPropertyHostCached
	}

	padded, reportedAlign := applyAllocationPadding(desc, req)

	a, err := alloc.Allocate(gpudevice.AllocationRequirements{
		Size:           padded,
		Alignment:      reportedAlign,
		MemoryTypeBits: req.MemoryTypeBits,
	}, props)
	if err != nil {
		return nil, rterror.ErrOutOfMemory
	}
	r.Allocation = a

	buf, img, err := createObject(desc, &a)
	if err != nil {
		alloc.Free(a)
		return nil, err
	}
	r.VkBuffer = buf
	r.VkImage = img
	return r, nil
}

func maxRequirements(a, b MemoryRequirements) MemoryRequirements {
	out := a
	if b.Size > out.Size {
		out.Size = b.Size
	}
	if b.Alignment > out.Alignment {
		out.Alignment = b.Alignment
	}
	out.MemoryTypeBits = a.MemoryTypeBits & b.MemoryTypeBits
	return out
}

// applyAllocationPadding implements allocation padding
// policy: when the Vulkan-required alignment exceeds the D3D12
// alignment the app asked for, pad the reported size by the
// difference and report the lower, D3D12-expected alignment instead
// of the larger Vulkan one -- unless a diagnostic flag forces
// rejection instead (modeled here as always padding, since the
// diagnostic flag is debug-instrumentation out of scope ).
func applyAllocationPadding(desc Desc, req MemoryRequirements) (size uint64, alignment uint64) {
	requested := desc.Alignment
	if requested == 0 {
		requested = req.Alignment
	}
	if req.Alignment > requested {
		return req.Size + (req.Alignment - requested), requested
	}
	return req.Size, req.Alignment
}

// imageUsageFor computes VkImageUsageFlags from the D3D12 resource
// flags this layer validates, shared by the committed/placed/reserved
// paths.
func imageUsageFor(d Desc) vk.ImageUsageFlags {
	usage := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) | vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	if d.Flags&FlagAllowRenderTarget != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if d.Flags&FlagAllowDepthStencil != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if d.Flags&FlagAllowUnorderedAccess != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	return usage
}
