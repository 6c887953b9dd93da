// Package meminfo implements : introspects physical-device
// memory topology to classify heaps (UMA vs discrete, ReBAR budget)
// and chooses property masks for UPLOAD/READBACK/DESCRIPTOR
// allocations.
package meminfo

import (
	"github.com/d3d12vk/corevk/internal/gpudevice"
)

// Topology classifies how a device's memory heaps relate to the host.
type Topology uint8

const (
	// TopologyDiscrete: device-local and host-visible memory are
	// disjoint pools of meaningfully different size.
	TopologyDiscrete Topology = iota
	// TopologyUMA: device-local memory is also host-visible (a single
	// shared pool), typical of integrated GPUs.
	TopologyUMA
	// TopologyReBAR: discrete, but a large (>=256MiB) device-local heap
	// is also host-visible, so UPLOAD allocations can target VRAM
	// directly instead of staging through system memory.
	TopologyReBAR
)

// rebarThreshold is the minimum size of a DEVICE_LOCAL | HOST_VISIBLE
// heap before it's treated as a usable ReBAR aperture rather than a
// small debug/staging window some drivers expose regardless.
const rebarThreshold = 256 * 1024 * 1024

// Info is the classified view of a device's memory this layer hands
// back to resource/heap creation.
type Info struct {
	Topology        Topology
	ReBARHeapIndex  int32 // -1 if none
	ReBARHeapSize   uint64
}

// Classify walks the device's memory properties and determines its
// topology.
func Classify(dev *gpudevice.Device) Info {
	info := Info{Topology: TopologyDiscrete, ReBARHeapIndex: -1}

	allDeviceLocalAlsoHostVisible := true
	anyDeviceLocal := false

	for i := uint32(0); i < dev.Memory.MemoryTypeCount; i++ {
		dev.Memory.MemoryTypes[i].Deref()
		flags := uint32(dev.Memory.MemoryTypes[i].PropertyFlags)
		deviceLocal := dev.IsMemoryTypeDeviceLocal(i)
		hostVisible := flags&hostVisibleBit != 0

		if deviceLocal {
			anyDeviceLocal = true
			if !hostVisible {
				allDeviceLocalAlsoHostVisible = false
			} else {
				heapIndex := dev.Memory.MemoryTypes[i].HeapIndex
				dev.Memory.MemoryHeaps[heapIndex].Deref()
				size := uint64(dev.Memory.MemoryHeaps[heapIndex].Size)
				if size >= rebarThreshold && size > info.ReBARHeapSize {
					info.ReBARHeapIndex = int32(heapIndex)
					info.ReBARHeapSize = size
				}
			}
		}
	}

	switch {
	case anyDeviceLocal && allDeviceLocalAlsoHostVisible:
		info.Topology = TopologyUMA
	case info.ReBARHeapIndex >= 0:
		info.Topology = TopologyReBAR
	default:
		info.Topology = TopologyDiscrete
	}
	return info
}

const hostVisibleBit = 0x2

// PropertyMaskFor picks the Vulkan memory-property mask for a D3D12
// heap-type/usage combination, accounting for the device's topology
// (an UMA device never needs a staging copy, so UPLOAD heaps can be
// both DEVICE_LOCAL and HOST_VISIBLE there).
func PropertyMaskFor(info Info, usage Usage) gpudevice.MemoryProperty {
	switch usage {
	case UsageUpload:
		if info.Topology == TopologyUMA || info.Topology == TopologyReBAR {
			return gpudevice.MemoryPropertyDeviceLocal | gpudevice.MemoryPropertyHostVisible | gpudevice.MemoryPropertyHostCoherent
		}
		return gpudevice.MemoryPropertyHostVisible | gpudevice.MemoryPropertyHostCoherent
	case UsageReadback:
		return gpudevice.MemoryPropertyHostVisible | gpudevice.MemoryPropertyHostCoherent | gpudevice.MemoryPropertyHostCached
	case UsageDescriptor:
		return gpudevice.MemoryPropertyDeviceLocal | gpudevice.MemoryPropertyHostVisible | gpudevice.MemoryPropertyHostCoherent
	default:
		return gpudevice.MemoryPropertyDeviceLocal
	}
}

// Usage is the allocation category PropertyMaskFor branches on.
type Usage uint8

const (
	UsageDefault Usage = iota
	UsageUpload
	UsageReadback
	UsageDescriptor
)
