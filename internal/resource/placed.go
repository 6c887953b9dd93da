package resource

import (
	"fmt"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
	"github.com/d3d12vk/corevk/internal/rtlog"
)

// Heap is the subset of a D3D12 heap this layer needs to slice a
// placed resource out of: the shared allocation and the deny-flags
// that exclude a resource category. Heap creation itself (and
// allocator internals) are out of scope; a Heap is always handed in
// by the caller.
type Heap struct {
	Allocation gpudevice.Allocation
	DenyBuffers bool
	DenyRTDSTextures bool
	DenyNonRTDSTextures bool
}

// denies reports whether h's deny-flags exclude desc's category, per
// placed-resource validation step.
func (h Heap) denies(d Desc) bool {
	if d.Dimension == DimensionBuffer {
		return h.DenyBuffers
	}
	if d.Flags&(FlagAllowRenderTarget|FlagAllowDepthStencil) != 0 {
		return h.DenyRTDSTextures
	}
	return h.DenyNonRTDSTextures
}

// CreatePlaced implements placed entry point: validates
// the heap's deny-flags, slices the heap's allocation at heapOffset
// aligned to the Vulkan requirement, and for RT/DSV resources skips
// the initial layout transition unless forceInitialTransition
// (the diagnostic override) is set -- clearing the compressed
// metadata of one aliased resource at this offset could otherwise
// clobber a different resource aliased at an overlapping offset.
//
// An empty heap (zero-size allocation) falls back transparently to a
// committed resource, per failure semantics.
func CreatePlaced(desc Desc, dev *gpudevice.Device, alloc gpudevice.Allocator, heap Heap, heapOffset uint64,
	qualifiesForImplicitVRS bool, query QueryMemoryRequirements, forceInitialTransition bool, createObject CreateObjectFunc) (*Resource, error) {

	if heap.denies(desc) {
		return nil, fmt.Errorf("%w: heap deny-flags exclude this resource category", rterror.ErrInvalidArgument)
	}

	if heap.Allocation.Size == 0 {
		rtlog.Warn("resource: placed resource requested on an empty heap, falling back to committed")
		return CreateCommitted(desc, dev, alloc, qualifiesForImplicitVRS, query, createObject)
	}

	r, err := New(desc, dev)
	if err != nil {
		return nil, err
	}
	r.Kind = CreationPlaced

	req := query(false)
	if qualifiesForImplicitVRS && desc.Dimension != DimensionBuffer {
		req = maxRequirements(req, query(true))
	}

	alignedOffset := alignUp(heapOffset, req.Alignment)
	if alignedOffset+req.Size > heap.Allocation.Size {
		return nil, fmt.Errorf("%w: placed resource does not fit in heap at the requested offset", rterror.ErrInvalidArgument)
	}

	r.Allocation = gpudevice.Allocation{
		Memory: heap.Allocation.Memory,
		Offset: heap.Allocation.Offset + alignedOffset,
		Size:   req.Size,
	}

	buf, img, err := createObject(desc, &r.Allocation)
	if err != nil {
		return nil, err
	}
	r.VkBuffer = buf
	r.VkImage = img

	isRTDS := desc.Flags&(FlagAllowRenderTarget|FlagAllowDepthStencil) != 0
	if isRTDS && !forceInitialTransition {
		r.SkipInitialLayoutTransition()
	}

	return r, nil
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
