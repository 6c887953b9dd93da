package descriptorwriter

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
	"github.com/d3d12vk/corevk/internal/view"
)

// CreateBufferViewFunc creates the VkBufferView backing a typed/raw
// buffer SRV/UAV slot and returns a closure that tears it down again.
type CreateBufferViewFunc func(buf vk.Buffer, key view.Key) (vk.BufferView, func(), error)

// CreateImageViewFunc creates the VkImageView backing a texture
// SRV/UAV/RTV/DSV slot and returns a closure that tears it down again.
type CreateImageViewFunc func(img vk.Image, key view.Key) (vk.ImageView, func(), error)

// DefaultCreateBufferView builds a CreateBufferViewFunc that issues a
// real vk.CreateBufferView call against dev.Logical, the same
// create-then-destroy pairing the teacher's ImageViewCreate/ImageDestroy
// use for image views.
func DefaultCreateBufferView(dev *gpudevice.Device) CreateBufferViewFunc {
	return func(buf vk.Buffer, key view.Key) (vk.BufferView, func(), error) {
		entry, ok := formatcatalog.Lookup(key.Format)
		if !ok {
			return 0, nil, fmt.Errorf("%w: unknown format for buffer view creation", rterror.ErrInvalidArgument)
		}

		info := vk.BufferViewCreateInfo{
			SType:  vk.StructureTypeBufferViewCreateInfo,
			Buffer: buf,
			Format: entry.VkFormat,
			Offset: vk.DeviceSize(key.BufferOffset),
			Range:  vk.DeviceSize(key.BufferSize),
		}

		var handle vk.BufferView
		if res := vk.CreateBufferView(dev.Logical, &info, dev.Allocator, &handle); res != vk.Success {
			return 0, nil, fmt.Errorf("%w: vkCreateBufferView failed with result %d", rterror.ErrDeviceLost, res)
		}

		destroy := func() { vk.DestroyBufferView(dev.Logical, handle, dev.Allocator) }
		return handle, destroy, nil
	}
}

// DefaultCreateImageView builds a CreateImageViewFunc that issues a
// real vk.CreateImageView call against dev.Logical, grounded in the
// same view-type/subresource-range/component-mapping fields the
// teacher's ImageViewCreate populates.
func DefaultCreateImageView(dev *gpudevice.Device) CreateImageViewFunc {
	return func(img vk.Image, key view.Key) (vk.ImageView, func(), error) {
		entry, ok := formatcatalog.Lookup(key.Format)
		if !ok {
			return 0, nil, fmt.Errorf("%w: unknown format for image view creation", rterror.ErrInvalidArgument)
		}

		info := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType(key.ImageViewType),
			Format:   entry.VkFormat,
			Components: vk.ComponentMapping{
				R: swizzleFor(key.SwizzleR),
				G: swizzleFor(key.SwizzleG),
				B: swizzleFor(key.SwizzleB),
				A: swizzleFor(key.SwizzleA),
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     aspectMaskFor(entry),
				BaseMipLevel:   key.Range.BaseMipLevel,
				LevelCount:     key.Range.MipLevels,
				BaseArrayLayer: key.Range.BaseArrayLayer,
				LayerCount:     key.Range.LayerCount,
			},
		}

		var handle vk.ImageView
		if res := vk.CreateImageView(dev.Logical, &info, dev.Allocator, &handle); res != vk.Success {
			return 0, nil, fmt.Errorf("%w: vkCreateImageView failed with result %d", rterror.ErrDeviceLost, res)
		}

		destroy := func() { vk.DestroyImageView(dev.Logical, handle, dev.Allocator) }
		return handle, destroy, nil
	}
}

func swizzleFor(s view.Swizzle) vk.ComponentSwizzle {
	switch s {
	case view.SwizzleZero:
		return vk.ComponentSwizzleZero
	case view.SwizzleOne:
		return vk.ComponentSwizzleOne
	case view.SwizzleR:
		return vk.ComponentSwizzleR
	case view.SwizzleG:
		return vk.ComponentSwizzleG
	case view.SwizzleB:
		return vk.ComponentSwizzleB
	case view.SwizzleA:
		return vk.ComponentSwizzleA
	default:
		return vk.ComponentSwizzleIdentity
	}
}

// aspectMaskFor derives the subresource aspect from the format's
// catalog entry: the depth and/or stencil bits for depth formats, the
// color bit otherwise.
func aspectMaskFor(entry formatcatalog.Entry) vk.ImageAspectFlags {
	var mask vk.ImageAspectFlags
	if entry.Aspect&formatcatalog.AspectDepth != 0 {
		mask |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if entry.Aspect&formatcatalog.AspectStencil != 0 {
		mask |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	if mask == 0 {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	return mask
}
