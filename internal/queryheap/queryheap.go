// Package queryheap implements a thin wrapper over Vulkan query pools
// plus an inline variant backed by a storage buffer, used for D3D12
// occlusion/timestamp/pipeline-statistics query heaps.
package queryheap

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
)

// Type mirrors D3D12_QUERY_HEAP_TYPE.
type Type uint8

const (
	TypeOcclusion Type = iota
	TypeTimestamp
	TypePipelineStatistics
	TypeSOStatistics
)

func (t Type) vkQueryType() vk.QueryType {
	switch t {
	case TypeOcclusion:
		return vk.QueryTypeOcclusion
	case TypeTimestamp:
		return vk.QueryTypeTimestamp
	case TypePipelineStatistics:
		return vk.QueryTypePipelineStatistics
	default:
		return vk.QueryTypeOcclusion
	}
}

// CreatePoolFunc creates the VkQueryPool backing a Heap. Supplied by the
// caller so this package stays testable without a live vk.Device, the
// same external-collaborator boundary resource.CreateObjectFunc uses
// for buffer/image creation.
type CreatePoolFunc func(queryType vk.QueryType, count uint32) (vk.QueryPool, DestroyPoolFunc, error)

// DestroyPoolFunc releases a VkQueryPool created by a CreatePoolFunc.
type DestroyPoolFunc func(vk.QueryPool)

// DefaultCreatePool builds a CreatePoolFunc that issues real
// vk.CreateQueryPool/vk.DestroyQueryPool calls against dev.Logical.
func DefaultCreatePool(dev *gpudevice.Device) CreatePoolFunc {
	return func(queryType vk.QueryType, count uint32) (vk.QueryPool, DestroyPoolFunc, error) {
		info := vk.QueryPoolCreateInfo{
			SType:      vk.StructureTypeQueryPoolCreateInfo,
			QueryType:  queryType,
			QueryCount: count,
		}

		var pool vk.QueryPool
		if res := vk.CreateQueryPool(dev.Logical, &info, dev.Allocator, &pool); res != vk.Success {
			return 0, nil, fmt.Errorf("%w: vkCreateQueryPool failed with result %d", rterror.ErrDeviceLost, res)
		}

		destroy := func(p vk.QueryPool) {
			vk.DestroyQueryPool(dev.Logical, p, dev.Allocator)
		}
		return pool, destroy, nil
	}
}

// Heap wraps a single VkQueryPool sized to Count entries. D3D12 query
// heaps are always backed by a real Vulkan query pool in this design;
// the "inline" variant (backed by a storage buffer written directly
// by shader invocations, used when the app asks to resolve queries
// without a pool round-trip) is InlineHeap below.
type Heap struct {
	Type  Type
	Count uint32
	Pool  vk.QueryPool

	destroy DestroyPoolFunc

	// resultsAvailable tracks which indices have been written at least
	// once, since a fresh VkQueryPool's results are undefined until
	// the first vkCmdBeginQuery/vkCmdWriteTimestamp for that index.
	resultsAvailable []bool
}

// Create validates the heap type/count and allocates the backing
// VkQueryPool through createPool.
func Create(t Type, count uint32, createPool CreatePoolFunc) (*Heap, error) {
	if count == 0 {
		return nil, rterror.ErrInvalidArgument
	}

	pool, destroy, err := createPool(t.vkQueryType(), count)
	if err != nil {
		return nil, err
	}

	return &Heap{Type: t, Count: count, Pool: pool, destroy: destroy, resultsAvailable: make([]bool, count)}, nil
}

// Destroy releases the backing VkQueryPool.
func (h *Heap) Destroy() {
	if h.Pool != 0 && h.destroy != nil {
		h.destroy(h.Pool)
		h.Pool = 0
	}
}

// MarkWritten records that index now holds a valid result, consulted
// before a resolve so stale reads of a never-written slot are
// distinguishable from a zero result.
func (h *Heap) MarkWritten(index uint32) {
	h.resultsAvailable[index] = true
}

func (h *Heap) IsWritten(index uint32) bool {
	return h.resultsAvailable[index]
}

// InlineHeap is the storage-buffer-backed query variant: instead of a
// VkQueryPool, results are written directly into a mapped buffer by
// shader invocations, used for timestamp queries on implementations or
// API layers where a pool round-trip is undesirable on the hot path.
type InlineHeap struct {
	Type   Type
	Count  uint32
	Buffer gpudevice.Allocation
	stride uint64
}

// NewInline allocates the backing storage buffer for count entries of
// stride bytes each (8 for a single timestamp, 44 for the full
// pipeline-statistics struct).
func NewInline(t Type, count uint32, stride uint64, alloc gpudevice.Allocator) (*InlineHeap, error) {
	size := uint64(count) * stride
	a, err := alloc.Allocate(gpudevice.AllocationRequirements{Size: size, Alignment: 8}, gpudevice.MemoryPropertyHostVisible|gpudevice.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, rterror.ErrOutOfMemory
	}
	return &InlineHeap{Type: t, Count: count, Buffer: a, stride: stride}, nil
}

// ReadUint64 reads one little-endian uint64 result at index, used for
// timestamp entries.
func (h *InlineHeap) ReadUint64(index uint32) uint64 {
	off := uint64(index) * h.stride
	b := h.Buffer.Mapped[off : off+8]
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
