// Package descriptorheap implements a bindless descriptor heap: a
// contiguous array of descriptor slots visible to the GPU, chosen
// between three internal layouts depending on device capability, plus
// the parallel metadata arrays and null-descriptor templates that make
// every slot either fully null or fully written.
package descriptorheap

import (
	"fmt"
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
	"github.com/d3d12vk/corevk/internal/rtid"
)

// HeapType mirrors the two shader-visible D3D12 heap categories this
// layer supports; creation rejects anything else for shader-visible
// heaps.
type HeapType uint8

const (
	HeapTypeCBVSRVUAV HeapType = iota
	HeapTypeSampler
)

// Layout picks one of the three internal heap storage strategies.
type Layout uint8

const (
	// LayoutNonMutableMultiSet: null templates are recorded per
	// descriptor category; the Vulkan side is a single shared set (see
	// Heap.descriptorSets), not one set per category.
	LayoutNonMutableMultiSet Layout = iota
	// LayoutMutableSingleSet: one set holding any of
	// {UBO, SSBO, sampled image, storage image, texel buffer}.
	LayoutMutableSingleSet
	// LayoutEmbeddedDescriptorBuffer: a mapped byte range whose per-slot
	// offset is the CPU handle.
	LayoutEmbeddedDescriptorBuffer
)

// Desc is the creation-time description of a heap.
type Desc struct {
	Type           HeapType
	NumDescriptors uint32
	ShaderVisible  bool
}

// slotMetadata is the parallel (types, view) pair kept per descriptor
// slot for every layout, sized to the next power-of-two of
// NumDescriptors.
type slotMetadata struct {
	descriptorType uint32
	isNull         bool
}

// Heap is the runtime object from /§4.5.
type Heap struct {
	Type    HeapType
	Desc    Desc
	Layout  Layout
	Cookie  uint64

	// cpuBase/gpuBase are the synthetic handle bases: for non-embedded
	// layouts, the CPU handle encodes the heap pointer in the high bits
	// and the POT-log2 slot count in the low 5 bits, so the heap base
	// is recoverable without a table lookup.
	cpuBase uintptrHandle
	gpuBase uintptrHandle
	potLog2 uint32

	// descriptorSets holds a single VkDescriptorSet under key 0 for both
	// descriptor-set layouts; the non-mutable-multi-set layout does not
	// allocate a separate set per category.
	descriptorSets map[uint32]vk.DescriptorSet

	// destroySet tears down the pool/layout/set pair created for
	// descriptorSets, nil for the embedded-descriptor-buffer layout
	// which owns no VkDescriptorSet at all.
	destroySet func()

	// descriptorBuffer backs the embedded layout: a single mapped byte
	// range whose per-slot offset is the CPU handle.
	descriptorBuffer    []byte
	descriptorSize      uint64
	metadataRegionOffset uint64

	metadata []slotMetadata

	// rawVABuffer is the auxiliary buffer used for UAV counters and
	// RTAS GPU virtual addresses, parallel to the descriptor array.
	rawVABuffer []uint64

	// nullTemplates holds, per descriptor-set category, the canonical
	// null payload bytes recorded at heap creation.
	nullTemplates map[uint32][]byte

	destroyed atomic.Bool
}

// uintptrHandle is a handle-sized integer kept independent of
// unsafe.Pointer so the encode/decode math stays portable.
type uintptrHandle uint64

// Create implements heap creation: validates the heap
// category, picks a layout based on device capability, allocates the
// descriptor storage (pool or descriptor buffer), the parallel
// metadata array sized to the next power of two, and initializes every
// slot with its category's null payload.
func Create(desc Desc, dev *gpudevice.Device) (*Heap, error) {
	return CreateWithSetFunc(desc, dev, DefaultCreateDescriptorSet(dev))
}

// CreateWithSetFunc is Create with the descriptor-pool/set creation
// collaborator injected explicitly, letting tests exercise the heap's
// bookkeeping without a live vk.Device.
func CreateWithSetFunc(desc Desc, dev *gpudevice.Device, createSet CreateDescriptorSetFunc) (*Heap, error) {
	if desc.ShaderVisible {
		if desc.Type != HeapTypeCBVSRVUAV && desc.Type != HeapTypeSampler {
			return nil, fmt.Errorf("%w: shader-visible heaps must be CBV_SRV_UAV or Sampler", rterror.ErrInvalidArgument)
		}
	}

	h := &Heap{
		Type:          desc.Type,
		Desc:          desc,
		Cookie:        rtid.NextCookie(),
		metadata:      make([]slotMetadata, nextPowerOfTwo(desc.NumDescriptors)),
		rawVABuffer:   make([]uint64, desc.NumDescriptors),
		nullTemplates: make(map[uint32][]byte),
	}
	h.potLog2 = log2(nextPowerOfTwo(desc.NumDescriptors))

	switch {
	case dev.Features.DescriptorBuffer && desc.ShaderVisible:
		h.Layout = LayoutEmbeddedDescriptorBuffer
		if err := h.initEmbeddedDescriptorBuffer(dev); err != nil {
			return nil, err
		}
	case desc.Type == HeapTypeCBVSRVUAV:
		h.Layout = LayoutMutableSingleSet
		if err := h.allocateSet(desc, createSet); err != nil {
			return nil, err
		}
	default:
		h.Layout = LayoutNonMutableMultiSet
		if err := h.allocateSet(desc, createSet); err != nil {
			return nil, err
		}
	}

	h.initNullTemplates()
	for i := range h.metadata {
		h.metadata[i].isNull = true
	}
	return h, nil
}

// allocateSet builds the single VkDescriptorSet category 0 heaps keep
// outside the embedded-descriptor-buffer layout, sized to
// NumDescriptors slots of the heap type's representative descriptor
// type.
func (h *Heap) allocateSet(desc Desc, createSet CreateDescriptorSetFunc) error {
	count := desc.NumDescriptors
	if count == 0 {
		count = 1
	}
	set, destroy, err := createSet(descriptorTypeFor(desc.Type), count)
	if err != nil {
		return err
	}
	h.descriptorSets = map[uint32]vk.DescriptorSet{0: set}
	h.destroySet = destroy
	return nil
}

// initEmbeddedDescriptorBuffer computes the single linear allocation
// backing an embedded mutable descriptor buffer: the per-slot stride
// is aligned to the device's descriptorBufferOffsetAlignment, and the
// metadata region follows the descriptor region at an aligned offset
// kept in metadataRegionOffset (it is not encoded in the CPU handle).
func (h *Heap) initEmbeddedDescriptorBuffer(dev *gpudevice.Device) error {
	align := dev.DescriptorBufferOffsetAlignment
	if align == 0 {
		align = 16
	}
	h.descriptorSize = alignUp(32, align) // conservative per-slot stride until a real device query is wired in
	descriptorRegion := h.descriptorSize * uint64(len(h.metadata))
	h.metadataRegionOffset = alignUp(descriptorRegion, align)

	total := h.metadataRegionOffset + uint64(len(h.metadata))*uint64(len(slotMetadataNullBytes))
	h.descriptorBuffer = make([]byte, total)
	return nil
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func nextPowerOfTwo(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}

func log2(p uint32) uint32 {
	var n uint32
	for p > 1 {
		p >>= 1
		n++
	}
	return n
}

// EncodeCPUHandle synthesizes the CPU handle for slot index: the heap
// base in bits 5..31, the POT-log2 of the descriptor count in the low
// 5 bits and the slot index in the upper 32 bits, so DecodeCPUHandle
// can recover the heap base without a side table.
func (h *Heap) EncodeCPUHandle(index uint32) uint64 {
	base := uint64(h.cpuBase) & 0xffffffe0
	return base | uint64(h.potLog2)&0x1f | uint64(index)<<32
}

// DecodeCPUHandle recovers the heap base pointer and slot index from a
// CPU handle produced by EncodeCPUHandle.
func DecodeCPUHandle(handle uint64) (heapBase uint64, index uint32) {
	return handle & 0xffffffe0, uint32(handle >> 32)
}

// MarkWritten clears a slot's null flag and records its descriptor
// type; MarkNull re-baselines it to the null payload for that type.
func (h *Heap) MarkWritten(index uint32, descriptorType uint32) {
	h.metadata[index] = slotMetadata{descriptorType: descriptorType, isNull: false}
}

func (h *Heap) MarkNull(index uint32, descriptorType uint32) {
	h.metadata[index] = slotMetadata{descriptorType: descriptorType, isNull: true}
}

func (h *Heap) SlotIsNull(index uint32) bool {
	return h.metadata[index].isNull
}

func (h *Heap) SlotDescriptorType(index uint32) uint32 {
	return h.metadata[index].descriptorType
}

// SetRawVA records the auxiliary raw-VA aux-buffer entry for a slot
// (UAV counters, RTAS references).
func (h *Heap) SetRawVA(index uint32, va uint64) {
	h.rawVABuffer[index] = va
}

func (h *Heap) RawVA(index uint32) uint64 {
	return h.rawVABuffer[index]
}

// NumDescriptors returns the heap's descriptor count (not the
// POT-rounded metadata array size).
func (h *Heap) NumDescriptors() uint32 {
	return h.Desc.NumDescriptors
}

// Destroy releases the heap's descriptor storage. Safe to call once.
func (h *Heap) Destroy() {
	if h.destroyed.CompareAndSwap(false, true) && h.destroySet != nil {
		h.destroySet()
	}
}
