package samplercache

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
	"github.com/d3d12vk/corevk/internal/view"
)

// DefaultCreate builds a CreateFunc that issues a real vk.CreateSampler
// call against dev.Logical from a normalized SamplerKey.
func DefaultCreate(dev *gpudevice.Device) CreateFunc {
	return func(key view.SamplerKey) (vk.Sampler, error) {
		info := vk.SamplerCreateInfo{
			SType:                   vk.StructureTypeSamplerCreateInfo,
			MagFilter:               vk.Filter(key.MagFilter),
			MinFilter:               vk.Filter(key.MinFilter),
			MipmapMode:              vk.SamplerMipmapMode(key.MipmapMode),
			AddressModeU:            addressModeFor(key.AddressU),
			AddressModeV:            addressModeFor(key.AddressV),
			AddressModeW:            addressModeFor(key.AddressW),
			MipLodBias:              key.MipLODBias,
			AnisotropyEnable:        anisotropyEnable(key.MaxAnisotropy),
			MaxAnisotropy:           float32(key.MaxAnisotropy),
			CompareEnable:           compareEnable(key.ComparisonFunc),
			CompareOp:               vk.CompareOp(key.ComparisonFunc),
			MinLod:                  key.MinLOD,
			MaxLod:                  key.MaxLOD,
			BorderColor:             borderColorFor(key.BorderColor),
			UnnormalizedCoordinates: vk.False,
		}

		var sampler vk.Sampler
		if res := vk.CreateSampler(dev.Logical, &info, dev.Allocator, &sampler); res != vk.Success {
			return 0, fmt.Errorf("%w: vkCreateSampler failed with result %d", rterror.ErrDeviceLost, res)
		}
		return sampler, nil
	}
}

// DefaultDestroy builds a DestroyFunc that issues a real
// vk.DestroySampler call against dev.Logical.
func DefaultDestroy(dev *gpudevice.Device) DestroyFunc {
	return func(sampler vk.Sampler) {
		vk.DestroySampler(dev.Logical, sampler, dev.Allocator)
	}
}

func addressModeFor(m view.AddressMode) vk.SamplerAddressMode {
	switch m {
	case view.AddressMirror:
		return vk.SamplerAddressModeMirroredRepeat
	case view.AddressClamp:
		return vk.SamplerAddressModeClampToEdge
	case view.AddressClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	case view.AddressMirrorOnce:
		return vk.SamplerAddressModeMirrorClampToEdge
	default:
		return vk.SamplerAddressModeRepeat
	}
}

// borderColorFor maps an explicit RGBA border color onto the nearest
// of Vulkan's fixed border-color enumerants: a sampler without opaque
// custom border color support can only select among transparent black,
// opaque black, and opaque white.
func borderColorFor(c [4]float32) vk.BorderColor {
	if c[3] == 0 {
		return vk.BorderColorFloatTransparentBlack
	}
	if c[0] >= 0.5 {
		return vk.BorderColorFloatOpaqueWhite
	}
	return vk.BorderColorFloatOpaqueBlack
}

func anisotropyEnable(maxAnisotropy uint32) vk.Bool32 {
	if maxAnisotropy > 1 {
		return vk.True
	}
	return vk.False
}

func compareEnable(comparisonFunc uint32) vk.Bool32 {
	if comparisonFunc != 0 {
		return vk.True
	}
	return vk.False
}
