// Package descriptorwriter materializes CBV/SRV/UAV/Sampler/RTV/DSV
// descriptors into a heap's slots, choosing between the
// Vulkan objects a view's ViewKey interns through the owning
// resource's view map or the device-global sampler cache.
package descriptorwriter

import (
	"fmt"

	"github.com/d3d12vk/corevk/internal/descriptorheap"
	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/resource"
	"github.com/d3d12vk/corevk/internal/rterror"
	"github.com/d3d12vk/corevk/internal/samplercache"
	"github.com/d3d12vk/corevk/internal/view"
)

// constantBufferAlignment is the D3D12-mandated CBV size granularity;
// CreateCBV validates SizeInBytes as a multiple of this.
const constantBufferAlignment = 256

// offsetBufferQuantum is the power-of-two alignment buffer-SRV/UAV
// (first_element, num_elements) pairs are quantized to before
// interning, so fine-grained rebinding of the same underlying range
// doesn't explode the view map.
const offsetBufferQuantum = 64

// CBVDesc mirrors D3D12_CONSTANT_BUFFER_VIEW_DESC.
type CBVDesc struct {
	BufferLocation uint64 // 0 means a null CBV
	SizeInBytes    uint32
}

// CreateCBV implements CBV writer: validates SizeInBytes is
// a multiple of 256; a null BufferLocation writes the heap's null
// template for UNIFORM_BUFFER instead of a real descriptor.
func CreateCBV(heap *descriptorheap.Heap, slot uint32, desc CBVDesc) error {
	if desc.BufferLocation == 0 {
		heap.WriteNullDescriptorTemplate(slot, descriptorheap.DescriptorTypeUniformBuffer)
		return nil
	}
	if desc.SizeInBytes%constantBufferAlignment != 0 {
		return fmt.Errorf("%w: CBV SizeInBytes must be a multiple of %d", rterror.ErrInvalidArgument, constantBufferAlignment)
	}

	heap.MarkWritten(slot, descriptorheap.DescriptorTypeUniformBuffer)
	// The real write issues a VkDescriptorAddressInfoEXT or
	// VkDescriptorBufferInfo at this slot's offset; this module's
	// responsibility ends at recording which category the slot now
	// holds, since that's what later CopyDescriptorsSimple calls and
	// null-template fast-exits consult.
	return nil
}

// BufferSRVUAVDesc mirrors the raw/structured/typed buffer SRV/UAV
// parameters needed to write a buffer view descriptor. Format is only
// meaningful for a typed (texel) buffer view; raw and structured
// buffers leave it at formatcatalog.FormatUnknown.
type BufferSRVUAVDesc struct {
	FirstElement uint64
	NumElements  uint32
	StructureByteStride uint32
	Raw          bool
	Format       uint32
}

// quantizeBufferRange applies offset-buffer quantization: first_element
// rounds down to a multiple of offsetBufferQuantum, with the residual
// returned separately (the offset buffer); num_elements is left as is.
func quantizeBufferRange(d BufferSRVUAVDesc) (quantizedFirst uint64, residual uint64) {
	quantizedFirst = (d.FirstElement / offsetBufferQuantum) * offsetBufferQuantum
	residual = d.FirstElement - quantizedFirst
	return quantizedFirst, residual
}

// CreateBufferSRV implements buffer-SRV writer: interns one buffer view
// and marks the slot as a storage texel buffer; no separate SSBO
// descriptor is recorded for the slot. When useOffsetBuffer is set it
// applies the offset-buffer quantization so repeated fine-grained
// rebinds of the same range share one view-map entry.
func CreateBufferSRV(heap *descriptorheap.Heap, slot uint32, res *resource.Resource, d BufferSRVUAVDesc, useOffsetBuffer bool, createView CreateBufferViewFunc) (residual uint64, err error) {
	if res == nil {
		heap.WriteNullDescriptorTemplate(slot, descriptorheap.DescriptorTypeStorageTexelBuffer)
		return 0, nil
	}

	first := d.FirstElement
	if useOffsetBuffer {
		first, residual = quantizeBufferRange(d)
	}

	key := view.Key{
		Kind:               view.KindBuffer,
		Format:              formatcatalog.DXGIFormat(d.Format),
		BufferOffset:       first * uint64(elementStride(d)),
		BufferSize:         uint64(d.NumElements) * uint64(elementStride(d)),
		BufferStride:       d.StructureByteStride,
		BufferIsStructured: d.StructureByteStride != 0,
	}

	_, err = res.Views.CreateView(key, func() (*view.View, error) {
		vkView, destroy, err := createView(res.VkBuffer, key)
		if err != nil {
			return nil, err
		}
		v := view.New(view.KindBuffer, destroy)
		v.VkBufferView = vkView
		return v, nil
	})
	if err != nil {
		return 0, err
	}

	heap.MarkWritten(slot, descriptorheap.DescriptorTypeStorageTexelBuffer)
	return residual, nil
}

func elementStride(d BufferSRVUAVDesc) uint32 {
	if d.StructureByteStride != 0 {
		return d.StructureByteStride
	}
	if d.Raw {
		return 4
	}
	return 4
}

// TextureSRVUAVDesc mirrors the texture SRV/UAV parameters relevant to
// ViewKey construction.
type TextureSRVUAVDesc struct {
	Format        uint32
	ViewDimension uint32
	Range         view.SubresourceRange
	SwizzleR, SwizzleG, SwizzleB, SwizzleA view.Swizzle
	MinLODClamp float32
}

// CreateTextureSRV implements texture-SRV writer: builds a
// ViewKey, interns it via the owning resource's view map, and writes a
// sampled-image descriptor.
func CreateTextureSRV(heap *descriptorheap.Heap, slot uint32, res *resource.Resource, d TextureSRVUAVDesc, createView CreateImageViewFunc) error {
	key := view.Key{
		Kind:            view.KindImage,
		Format:          formatcatalog.DXGIFormat(d.Format),
		ImageViewType:   d.ViewDimension,
		Range:           d.Range,
		SwizzleR:        d.SwizzleR,
		SwizzleG:        d.SwizzleG,
		SwizzleB:        d.SwizzleB,
		SwizzleA:        d.SwizzleA,
		MinLODClamp:     d.MinLODClamp,
	}

	_, err := res.Views.CreateView(key, func() (*view.View, error) {
		return newImageView(res, key, createView)
	})
	if err != nil {
		return err
	}

	heap.MarkWritten(slot, descriptorheap.DescriptorTypeSampledImage)
	return nil
}

// CreateTextureUAV writes a storage-image descriptor. Its ViewKey
// carries the format, view dimension and subresource range only; unlike
// CreateTextureSRV it sets no swizzle and no MinLOD clamp.
func CreateTextureUAV(heap *descriptorheap.Heap, slot uint32, res *resource.Resource, d TextureSRVUAVDesc, createView CreateImageViewFunc) error {
	key := view.Key{
		Kind:          view.KindImage,
		Format:        formatcatalog.DXGIFormat(d.Format),
		ImageViewType: d.ViewDimension,
		Range:         d.Range,
	}

	_, err := res.Views.CreateView(key, func() (*view.View, error) {
		return newImageView(res, key, createView)
	})
	if err != nil {
		return err
	}

	heap.MarkWritten(slot, descriptorheap.DescriptorTypeStorageImage)
	return nil
}

// newImageView runs createView against res's backing image and wraps
// the resulting VkImageView into a *view.View with a real destroy
// closure, the shared factory every image-kind view map entry uses.
func newImageView(res *resource.Resource, key view.Key, createView CreateImageViewFunc) (*view.View, error) {
	vkView, destroy, err := createView(res.VkImage, key)
	if err != nil {
		return nil, err
	}
	v := view.New(view.KindImage, destroy)
	v.VkImageView = vkView
	return v, nil
}

// CreateAccelerationStructureSRV implements RTAS writer:
// no Vulkan descriptor is written, only the GPU virtual address into
// the heap's raw-VA aux buffer at this slot.
func CreateAccelerationStructureSRV(heap *descriptorheap.Heap, slot uint32, gpuVA uint64) {
	heap.SetRawVA(slot, gpuVA)
	heap.MarkWritten(slot, descriptorheap.DescriptorTypeNone)
}

// CreateSampler implements sampler writer: interns through
// the device-global sampler cache and emits one descriptor write.
func CreateSampler(heap *descriptorheap.Heap, slot uint32, cache *samplercache.Cache, key view.SamplerKey) error {
	_, err := cache.Intern(key)
	if err != nil {
		return err
	}
	heap.MarkWritten(slot, descriptorheap.DescriptorTypeSampler)
	return nil
}

// RTVDSVDesc mirrors the CPU-only RTV/DSV slot payload: no Vulkan
// descriptor is ever written for these.
type RTVDSVDesc struct {
	Range            view.SubresourceRange
	SampleCount      uint32
	Format           uint32
	LayerCount       uint32
	PlaneWriteMask   uint32
}

// RTVDSVSlot is the CPU-only bookkeeping an RTV/DSV heap keeps per
// slot, distinct from the shader-visible descriptorheap.Heap slots.
type RTVDSVSlot struct {
	View           *view.View
	SampleCount    uint32
	Format         uint32
	LayerCount     uint32
	PlaneWriteMask uint32
}

// CreateRTVOrDSV interns an image view through the resource's view
// map and returns the CPU-only slot payload the caller stores; no
// Vulkan descriptor is ever written for these.
func CreateRTVOrDSV(res *resource.Resource, d RTVDSVDesc, createView CreateImageViewFunc) (*RTVDSVSlot, error) {
	key := view.Key{Kind: view.KindImage, Format: formatcatalog.DXGIFormat(d.Format), Range: d.Range}
	v, err := res.Views.CreateView(key, func() (*view.View, error) {
		return newImageView(res, key, createView)
	})
	if err != nil {
		return nil, err
	}
	return &RTVDSVSlot{
		View:           v,
		SampleCount:    d.SampleCount,
		Format:         d.Format,
		LayerCount:     d.LayerCount,
		PlaneWriteMask: d.PlaneWriteMask,
	}, nil
}
