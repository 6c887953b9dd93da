package resource

import (
	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rtlog"
)

// SparseBinder submits the initial "unbind everything" sparse bind on
// the internal sparse queue and reports the timeline value future
// submissions must wait on. Supplied by the caller since the actual
// vkQueueBindSparse call needs a live queue and command-submission
// bookkeeping outside this module's scope.
type SparseBinder interface {
	SubmitInitialUnbind(totalTileCount uint32) (timelineValue uint64, err error)
}

// CreateReserved implements reserved (sparse) entry point:
// creates a Vulkan buffer/image with sparse-binding flags, computes its
// tile layout from the fixed format/sample-count table in
// computeSparseTiling (the device's sparse memory requirements are not
// queried), allocates metadata memory if needed,
// optionally submits an initial unbind-everything sparse bind, and
// records the timeline value future submissions must wait on.
//
// A sparse bind failure renders the resource usable but only warns
//; it does not fail resource creation. Unlike committed/placed
// resources, the object is created without an immediate allocation --
// its tiles are bound lazily through binder, so createObject is always
// called with a nil allocation.
func CreateReserved(desc Desc, dev *gpudevice.Device, metadataAlloc gpudevice.Allocator,
	binder SparseBinder, submitInitialUnbind bool, createObject CreateObjectFunc) (*Resource, error) {

	r, err := New(desc, dev)
	if err != nil {
		return nil, err
	}
	r.Kind = CreationReserved

	buf, img, err := createObject(desc, nil)
	if err != nil {
		return nil, err
	}
	r.VkBuffer = buf
	r.VkImage = img

	tiling, err := computeSparseTiling(desc, dev.Features.SingleMipTail)
	if err != nil {
		return nil, err
	}

	if tiling.PackedMipTileCount > 0 {
		metaSize := uint64(tiling.PackedMipTileCount) * BufferTileSize
		a, err := metadataAlloc.Allocate(gpudevice.AllocationRequirements{
			Size:      metaSize,
			Alignment: BufferTileSize,
		}, gpudevice.MemoryPropertyDeviceLocal)
		if err != nil {
			rtlog.Warn("resource: sparse metadata allocation failed for %s, packed-mip tail left unbound", r.DebugName)
		} else {
			tiling.MetadataAllocation = a
		}
	}

	if submitInitialUnbind {
		timeline, err := binder.SubmitInitialUnbind(tiling.TotalTileCount)
		if err != nil {
			rtlog.Warn("resource: initial sparse unbind failed for %s, resource remains usable but its tiles are in an undefined bound state", r.DebugName)
		} else {
			tiling.InitialBindTimeline = timeline
		}
	}

	r.Sparse = tiling
	return r, nil
}
