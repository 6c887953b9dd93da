package descriptorheap

import (
	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
)

// CopyDescriptorSetFunc issues the real VkCopyDescriptorSet for one
// slot, binding 0 of each heap's shared descriptor set (the layout
// allocateSet builds), array-element-indexed by slot. Supplied by the
// caller so this package's bookkeeping stays testable without a live
// vk.Device.
type CopyDescriptorSetFunc func(dstSet vk.DescriptorSet, dstIndex uint32, srcSet vk.DescriptorSet, srcIndex uint32, descriptorType vk.DescriptorType)

// DefaultCopyDescriptorSet builds a CopyDescriptorSetFunc that issues a
// real vk.UpdateDescriptorSets call with a single VkCopyDescriptorSet
// entry against dev.Logical.
func DefaultCopyDescriptorSet(dev *gpudevice.Device) CopyDescriptorSetFunc {
	return func(dstSet vk.DescriptorSet, dstIndex uint32, srcSet vk.DescriptorSet, srcIndex uint32, descriptorType vk.DescriptorType) {
		c := vk.CopyDescriptorSet{
			SType:           vk.StructureTypeCopyDescriptorSet,
			SrcSet:          srcSet,
			SrcBinding:      0,
			SrcArrayElement: srcIndex,
			DstSet:          dstSet,
			DstBinding:      0,
			DstArrayElement: dstIndex,
			DescriptorCount: 1,
		}
		vk.UpdateDescriptorSets(dev.Logical, 0, nil, 1, &c)
	}
}

// CopyDescriptorsSimple implements copy path:
//   - embedded mutable CBV_SRV_UAV gets a raw byte-range copy of
//     n*descriptorSize (the "non-temporal store to shader-visible
//     target" case collapses to a plain copy here; Go has no portable
//     non-temporal store intrinsic, and the copy's correctness doesn't
//     depend on one -- only a driver-level performance characteristic
//     this module can't express).
//   - otherwise, copy each slot's metadata (and, if present, the
//     descriptor-buffer bytes) one at a time, plus a real
//     VkCopyDescriptorSet through copySet for the descriptor-set
//     layouts. A single-descriptor source skips the per-set loop
//     entirely.
func CopyDescriptorsSimple(dst *Heap, dstStart uint32, src *Heap, srcStart uint32, n uint32, copySet CopyDescriptorSetFunc) {
	if n == 0 {
		return
	}

	if dst.Layout == LayoutEmbeddedDescriptorBuffer && src.Layout == LayoutEmbeddedDescriptorBuffer &&
		dst.Type == HeapTypeCBVSRVUAV && src.Type == HeapTypeCBVSRVUAV {
		copyEmbeddedFastPath(dst, dstStart, src, srcStart, n)
		return
	}

	if n == 1 {
		copySlot(dst, dstStart, src, srcStart, copySet)
		return
	}

	for i := uint32(0); i < n; i++ {
		copySlot(dst, dstStart+i, src, srcStart+i, copySet)
	}
}

func copyEmbeddedFastPath(dst *Heap, dstStart uint32, src *Heap, srcStart uint32, n uint32) {
	srcOff := uint64(srcStart) * src.descriptorSize
	dstOff := uint64(dstStart) * dst.descriptorSize
	length := uint64(n) * src.descriptorSize
	copy(dst.descriptorBuffer[dstOff:dstOff+length], src.descriptorBuffer[srcOff:srcOff+length])

	for i := uint32(0); i < n; i++ {
		dst.metadata[dstStart+i] = src.metadata[srcStart+i]
		dst.rawVABuffer[dstStart+i] = src.rawVABuffer[srcStart+i]
	}
}

func copySlot(dst *Heap, dstIndex uint32, src *Heap, srcIndex uint32, copySet CopyDescriptorSetFunc) {
	dst.metadata[dstIndex] = src.metadata[srcIndex]
	dst.rawVABuffer[dstIndex] = src.rawVABuffer[srcIndex]

	if dst.Layout == LayoutEmbeddedDescriptorBuffer && src.Layout == LayoutEmbeddedDescriptorBuffer {
		srcOff := uint64(srcIndex) * src.descriptorSize
		dstOff := uint64(dstIndex) * dst.descriptorSize
		copy(dst.descriptorBuffer[dstOff:dstOff+dst.descriptorSize], src.descriptorBuffer[srcOff:srcOff+src.descriptorSize])
		return
	}

	// Descriptor-set layouts without a direct-memory template go
	// through a real VkCopyDescriptorSet against each heap's shared
	// set, keyed by the descriptor type the source slot was last
	// written with.
	if copySet != nil && dst.descriptorSets != nil && src.descriptorSets != nil {
		dstSet := dst.descriptorSets[0]
		srcSet := src.descriptorSets[0]
		copySet(dstSet, dstIndex, srcSet, srcIndex, vkDescriptorTypeFor(src.metadata[srcIndex].descriptorType, src.Type))
	}
}
