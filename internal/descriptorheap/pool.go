package descriptorheap

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
)

// CreateDescriptorSetFunc builds the VkDescriptorPool, VkDescriptorSetLayout
// and single VkDescriptorSet backing one heap category (one binding,
// sized to count descriptors of descriptorType), and returns a closure
// that tears all three down together.
type CreateDescriptorSetFunc func(descriptorType vk.DescriptorType, count uint32) (vk.DescriptorSet, func(), error)

// DefaultCreateDescriptorSet builds a CreateDescriptorSetFunc that
// issues real vk.CreateDescriptorPool/vk.CreateDescriptorSetLayout/
// vk.AllocateDescriptorSets calls against dev.Logical, the same
// pool-then-layout-then-allocate sequence the pack's descriptor
// allocators use.
func DefaultCreateDescriptorSet(dev *gpudevice.Device) CreateDescriptorSetFunc {
	return func(descriptorType vk.DescriptorType, count uint32) (vk.DescriptorSet, func(), error) {
		poolSize := vk.DescriptorPoolSize{Type: descriptorType, DescriptorCount: count}
		poolInfo := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
			MaxSets:       1,
			PoolSizeCount: 1,
			PPoolSizes:    &poolSize,
		}

		var pool vk.DescriptorPool
		if res := vk.CreateDescriptorPool(dev.Logical, &poolInfo, dev.Allocator, &pool); res != vk.Success {
			return 0, nil, fmt.Errorf("%w: vkCreateDescriptorPool failed with result %d", rterror.ErrDeviceLost, res)
		}

		// Bindless slots are reachable from every stage a root signature
		// can bind to, so the binding's StageFlags is the OR of the
		// graphics and compute stage bits rather than a single-stage flag.
		stageFlags := vk.ShaderStageFlags(vk.ShaderStageVertexBit) |
			vk.ShaderStageFlags(vk.ShaderStageFragmentBit) |
			vk.ShaderStageFlags(vk.ShaderStageComputeBit)

		binding := vk.DescriptorSetLayoutBinding{
			Binding:         0,
			DescriptorType:  descriptorType,
			DescriptorCount: count,
			StageFlags:      stageFlags,
		}
		layoutInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: 1,
			PBindings:    &binding,
		}

		var layout vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(dev.Logical, &layoutInfo, dev.Allocator, &layout); res != vk.Success {
			vk.DestroyDescriptorPool(dev.Logical, pool, dev.Allocator)
			return 0, nil, fmt.Errorf("%w: vkCreateDescriptorSetLayout failed with result %d", rterror.ErrDeviceLost, res)
		}

		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: 1,
			PSetLayouts:        &layout,
		}

		var set vk.DescriptorSet
		if res := vk.AllocateDescriptorSets(dev.Logical, &allocInfo, &set); res != vk.Success {
			vk.DestroyDescriptorSetLayout(dev.Logical, layout, dev.Allocator)
			vk.DestroyDescriptorPool(dev.Logical, pool, dev.Allocator)
			return 0, nil, fmt.Errorf("%w: vkAllocateDescriptorSets failed with result %d", rterror.ErrDeviceLost, res)
		}

		destroy := func() {
			vk.DestroyDescriptorSetLayout(dev.Logical, layout, dev.Allocator)
			vk.DestroyDescriptorPool(dev.Logical, pool, dev.Allocator)
		}
		return set, destroy, nil
	}
}

// descriptorTypeFor maps a heap's category onto the single descriptor
// type its pool/layout/set are sized for. A bindless CBV_SRV_UAV heap
// holds several categories in practice; this layer sizes the shared
// set for the storage-buffer case, the most populous category in
// practice, and relies on VkMutableDescriptorTypeInfoEXT-style
// reinterpretation for the others -- out of scope here since goki/vulkan
// exposes no binding for that extension struct.
func descriptorTypeFor(t HeapType) vk.DescriptorType {
	if t == HeapTypeSampler {
		return vk.DescriptorTypeSampler
	}
	return vk.DescriptorTypeStorageBuffer
}

// vkDescriptorTypeFor maps a slot's internal DescriptorType tag onto
// the real vk.DescriptorType a VkCopyDescriptorSet needs, falling back
// to the shared set's own representative type for DescriptorTypeNone
// (an as-yet-unwritten slot).
func vkDescriptorTypeFor(t uint32, heapType HeapType) vk.DescriptorType {
	switch t {
	case DescriptorTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case DescriptorTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case DescriptorTypeSampledImage:
		return vk.DescriptorTypeSampledImage
	case DescriptorTypeStorageImage:
		return vk.DescriptorTypeStorageImage
	case DescriptorTypeUniformTexelBuffer:
		return vk.DescriptorTypeUniformTexelBuffer
	case DescriptorTypeStorageTexelBuffer:
		return vk.DescriptorTypeStorageTexelBuffer
	case DescriptorTypeSampler:
		return vk.DescriptorTypeSampler
	default:
		return descriptorTypeFor(heapType)
	}
}
