package vkalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestCreateBufferAllocationBindsAndMaps(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)

	buf, err := CreateBufferAllocation(a, vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  512,
	}, vk.MemoryPropertyHostVisibleBit, 0, false)
	require.NoError(t, err)
	defer buf.Destroy()

	data, err := buf.Map()
	require.NoError(t, err)
	require.Len(t, data, 512)
	copy(data, []byte("payload"))

	require.NoError(t, buf.Flush())
	require.NoError(t, buf.Unmap())
}

func TestCreateBufferAllocationDedicated(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, func(cfg *AllocatorConfig) {
		cfg.Policy.AutomaticallyFreeUnused = true
	})

	buf, err := CreateBufferAllocation(a, vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  1024,
	}, vk.MemoryPropertyDeviceLocalBit, 0, true)
	require.NoError(t, err)

	assert.Equal(t, 1, a.PoolCount())
	assert.EqualValues(t, 1024, buf.Allocator().pools[0].Size())

	buf.Destroy()
	assert.Equal(t, 0, a.PoolCount(), "destroying the sole chunk of a dedicated pool frees it back automatically")
}

func TestCreateBufferAllocationUnwindsOnAllocationFailure(t *testing.T) {
	a, driver := newTestAllocator(t, 1<<20, nil)
	driver.FailAllocateTypes = map[uint32]bool{hostVisibleType: true}

	_, err := CreateBufferAllocation(a, vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  256,
	}, vk.MemoryPropertyHostVisibleBit, 0, false)
	assert.Error(t, err)
	assert.Empty(t, driver.bufSize, "buffer must be destroyed when the backing allocation fails")
}
