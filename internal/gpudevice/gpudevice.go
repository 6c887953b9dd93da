// Package gpudevice carries the subset of device state the core
// subsystems (resource, descriptor heap, swapchain) need to read.
// Device/adapter creation itself is out of scope: a Device here is
// always constructed by an external caller and handed in, treating
// device/adapter creation as an external collaborator referenced only
// through its result.
//
// FindMemoryIndex and DetectDepthFormat cover the two device queries
// that resource creation and swapchain depth-buffer setup exercise
// directly.
package gpudevice

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// AllocationRequirements is the input to the external allocator
// interface -> allocation interface").
// This module never allocates device memory itself; it only describes
// what it needs and records the handle it gets back.
type AllocationRequirements struct {
	Size                   uint64
	Alignment              uint64
	MemoryTypeBits         uint32
	DedicatedImage         vk.Image
	DedicatedBuffer        vk.Buffer
}

// MemoryProperty mirrors vk.MemoryPropertyFlagBits, kept as an
// independent type so callers describing a desired allocation don't
// need to import goki/vulkan just for the property bits.
type MemoryProperty uint32

const (
	MemoryPropertyDeviceLocal MemoryProperty = 1 << iota
	MemoryPropertyHostVisible
	MemoryPropertyHostCoherent
	MemoryPropertyHostCached
)

// Allocator is the external collaborator this module calls into for
// every memory allocation; device/adapter creation and allocator
// internals are out of scope.
type Allocator interface {
	Allocate(req AllocationRequirements, properties MemoryProperty) (Allocation, error)
	Free(a Allocation)
}

// Allocation is the opaque handle an Allocator hands back. Offset and
// Size let resource creation slice a placed resource out of a shared
// heap allocation without the allocator exposing its internals.
type Allocation struct {
	Memory vk.DeviceMemory
	Offset uint64
	Size   uint64
	// Mapped is non-nil for HOST_VISIBLE allocations the allocator has
	// persistently mapped.
	Mapped []byte
}

// Features captures the capability bits the core subsystems branch on.
// Populated by the caller from vkGetPhysicalDeviceFeatures2 chains that
// live outside this module's scope.
type Features struct {
	MSAAStorageImage      bool
	ShaderImage64Atomics  bool
	SparseBinding         bool
	SparseResidencyImage  bool
	SingleMipTail         bool
	DescriptorBuffer      bool
	SwapchainMaintenance1 bool
	PresentTimingEXT      bool
	PresentWait2          bool
	NVLowLatency2         bool
	AMDAntiLag            bool
	ReBAR                 bool
}

// Device is the read-only view of a logical device this module depends
// on. The zero value is not meaningful; always populated by the caller.
type Device struct {
	Physical  vk.PhysicalDevice
	Logical   vk.Device
	Allocator *vk.AllocationCallbacks

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
	Features   Features

	GraphicsQueue      vk.Queue
	PresentQueue       vk.Queue
	TransferQueue      vk.Queue
	SparseQueue        vk.Queue
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	// Surface is the presentation target the swapchain package's
	// SurfaceOps implementation queries and creates against; device
	// creation owns it, this module only reads it.
	Surface vk.Surface

	DescriptorBufferOffsetAlignment uint64
}

// FindMemoryIndex returns the index of a memory type whose bits are set
// in typeFilter and whose property flags are a superset of
// propertyFlags, or -1 if none match.
func (d *Device) FindMemoryIndex(typeFilter uint32, propertyFlags uint32) int32 {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		d.Memory.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 &&
			(uint32(d.Memory.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	return -1
}

// IsMemoryTypeDeviceLocal reports whether the heap backing a memory
// type is DEVICE_LOCAL, used by meminfo's UMA/ReBAR classification.
func (d *Device) IsMemoryTypeDeviceLocal(memoryTypeIndex uint32) bool {
	d.Memory.MemoryTypes[memoryTypeIndex].Deref()
	heapIndex := d.Memory.MemoryTypes[memoryTypeIndex].HeapIndex
	d.Memory.MemoryHeaps[heapIndex].Deref()
	return uint32(d.Memory.MemoryHeaps[heapIndex].Flags)&uint32(vk.MemoryHeapDeviceLocalBit) != 0
}

var depthFormatCandidates = []struct {
	format vk.Format
	size   uint8
}{
	{vk.FormatD32Sfloat, 4},
	{vk.FormatD32SfloatS8Uint, 4},
	{vk.FormatD24UnormS8Uint, 3},
}

// DetectDepthFormat picks the first candidate depth format whose
// tiling features (linear or optimal) support
// DEPTH_STENCIL_ATTACHMENT, matching fixed three-format
// preference order.
func (d *Device) DetectDepthFormat() (vk.Format, uint8, error) {
	flags := vk.FormatFeatureDepthStencilAttachmentBit
	for _, c := range depthFormatCandidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(d.Physical, c.format, &props)
		props.Deref()

		if uint32(props.LinearTilingFeatures)&uint32(flags) == uint32(flags) ||
			uint32(props.OptimalTilingFeatures)&uint32(flags) == uint32(flags) {
			return c.format, c.size, nil
		}
	}
	return vk.FormatUndefined, 0, fmt.Errorf("gpudevice: no supported depth format available")
}
