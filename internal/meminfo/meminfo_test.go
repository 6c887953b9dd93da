package meminfo

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"github.com/d3d12vk/corevk/internal/gpudevice"
)

func deviceWithHeaps(heaps []vk.MemoryHeap, types []vk.MemoryType) *gpudevice.Device {
	dev := &gpudevice.Device{}
	dev.Memory.MemoryHeapCount = uint32(len(heaps))
	dev.Memory.MemoryTypeCount = uint32(len(types))
	copy(dev.Memory.MemoryHeaps[:], heaps)
	copy(dev.Memory.MemoryTypes[:], types)
	return dev
}

func TestClassifyDiscrete(t *testing.T) {
	dev := deviceWithHeaps(
		[]vk.MemoryHeap{
			{Size: 8 << 30, Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit)},
			{Size: 16 << 30, Flags: 0},
		},
		[]vk.MemoryType{
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), HeapIndex: 0},
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit), HeapIndex: 1},
		},
	)

	info := Classify(dev)
	assert.Equal(t, TopologyDiscrete, info.Topology)
}

func TestClassifyUMA(t *testing.T) {
	dev := deviceWithHeaps(
		[]vk.MemoryHeap{{Size: 8 << 30, Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit)}},
		[]vk.MemoryType{
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit), HeapIndex: 0},
		},
	)

	info := Classify(dev)
	assert.Equal(t, TopologyUMA, info.Topology)
}

func TestClassifyReBAR(t *testing.T) {
	dev := deviceWithHeaps(
		[]vk.MemoryHeap{
			{Size: 8 << 30, Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit)},
			{Size: 512 << 20, Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit)},
		},
		[]vk.MemoryType{
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), HeapIndex: 0},
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit), HeapIndex: 1},
		},
	)

	info := Classify(dev)
	assert.Equal(t, TopologyReBAR, info.Topology)
	assert.EqualValues(t, 1, info.ReBARHeapIndex)
}
