package descriptorheap

// Descriptor-type tags used as the metadata array's descriptorType
// field and as keys into nullTemplates. Kept independent of
// vk.DescriptorType so the zero value ("unset") never collides with a
// real Vulkan enumerant.
const (
	DescriptorTypeNone uint32 = iota
	DescriptorTypeUniformBuffer
	DescriptorTypeStorageBuffer
	DescriptorTypeSampledImage
	DescriptorTypeStorageImage
	DescriptorTypeUniformTexelBuffer
	DescriptorTypeStorageTexelBuffer
	DescriptorTypeSampler
)

// slotMetadataNullBytes is the canonical null-payload size used when
// metadata is packed into the descriptor-buffer region rather than a
// separate parallel array; one cache-line-friendly word per slot.
var slotMetadataNullBytes = make([]byte, 8)

// categoriesForType lists the descriptor-set categories a non-mutable
// multi-set layout records a null template for; a mutable layout only
// ever needs the single SAMPLED_IMAGE null payload.
var categoriesForType = map[HeapType][]uint32{
	HeapTypeCBVSRVUAV: {
		DescriptorTypeUniformBuffer,
		DescriptorTypeStorageBuffer,
		DescriptorTypeSampledImage,
		DescriptorTypeStorageImage,
		DescriptorTypeUniformTexelBuffer,
		DescriptorTypeStorageTexelBuffer,
	},
	HeapTypeSampler: {
		DescriptorTypeSampler,
	},
}

// nullPayloadSize is the fixed byte size of one descriptor's worth of
// null payload, conservative enough to cover every descriptor type
// this heap can hold (largest is a combined image-sampler-style
// descriptor on some implementations).
const nullPayloadSize = 32

// initNullTemplates records, for every category this heap's layout
// needs, the canonical null payload bytes. Mutable layouts
// only ever need one payload since every category aliases the same
// underlying set.
func (h *Heap) initNullTemplates() {
	if h.Layout == LayoutMutableSingleSet || h.Layout == LayoutEmbeddedDescriptorBuffer {
		h.nullTemplates[DescriptorTypeSampledImage] = make([]byte, nullPayloadSize)
		return
	}
	for _, category := range categoriesForType[h.Type] {
		h.nullTemplates[category] = make([]byte, nullPayloadSize)
	}
}

// WriteNullDescriptorTemplate implements
// descriptor_heap_write_null_descriptor_template: fast
// exits if the slot is already null of the same descriptor type,
// otherwise stamps every relevant category's null bytes into the
// slot and marks it null.
func (h *Heap) WriteNullDescriptorTemplate(index uint32, descriptorType uint32) {
	if h.metadata[index].isNull && h.metadata[index].descriptorType == descriptorType {
		return
	}
	h.MarkNull(index, descriptorType)

	if h.Layout == LayoutEmbeddedDescriptorBuffer {
		payload := h.nullTemplates[DescriptorTypeSampledImage]
		off := uint64(index) * h.descriptorSize
		copy(h.descriptorBuffer[off:off+uint64(len(payload))], payload)
	}
	// Descriptor-set layouts issue a small batch of vkUpdateDescriptorSets
	// here in the real device path; this module tracks the resulting
	// metadata state, which is what CopyDescriptorsSimple and the
	// writers in package descriptorwriter consult.
}
