package queryheap

import (
	"encoding/binary"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/gpudevice"
)

type fakeAllocator struct{}

func (fakeAllocator) Allocate(req gpudevice.AllocationRequirements, props gpudevice.MemoryProperty) (gpudevice.Allocation, error) {
	return gpudevice.Allocation{Size: req.Size, Mapped: make([]byte, req.Size)}, nil
}

func (fakeAllocator) Free(gpudevice.Allocation) {}

// fakeCreatePool stands in for DefaultCreatePool: it never touches a
// live device, but hands back a distinct non-zero pool handle and
// records whether Destroy was called on it.
func fakeCreatePool() (CreatePoolFunc, *bool) {
	destroyed := false
	fn := func(queryType vk.QueryType, count uint32) (vk.QueryPool, DestroyPoolFunc, error) {
		return vk.QueryPool(1), func(vk.QueryPool) { destroyed = true }, nil
	}
	return fn, &destroyed
}

func TestCreateRejectsZeroCount(t *testing.T) {
	createPool, _ := fakeCreatePool()
	_, err := Create(TypeTimestamp, 0, createPool)
	assert.Error(t, err)
}

func TestMarkWrittenTracksAvailability(t *testing.T) {
	createPool, _ := fakeCreatePool()
	h, err := Create(TypeTimestamp, 4, createPool)
	require.NoError(t, err)

	assert.False(t, h.IsWritten(2))
	h.MarkWritten(2)
	assert.True(t, h.IsWritten(2))
	assert.False(t, h.IsWritten(1))
}

func TestDestroyReleasesPool(t *testing.T) {
	createPool, destroyed := fakeCreatePool()
	h, err := Create(TypeTimestamp, 4, createPool)
	require.NoError(t, err)

	h.Destroy()
	assert.True(t, *destroyed)
	assert.Zero(t, h.Pool)
}

func TestInlineHeapReadUint64(t *testing.T) {
	h, err := NewInline(TypeTimestamp, 4, 8, fakeAllocator{})
	require.NoError(t, err)

	binary.LittleEndian.PutUint64(h.Buffer.Mapped[8:16], 0xfeedface)
	assert.Equal(t, uint64(0xfeedface), h.ReadUint64(1))
}
