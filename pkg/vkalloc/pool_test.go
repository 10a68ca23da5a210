package vkalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func newTestPool(t *testing.T, a *Allocator, size vk.DeviceSize, typeIndex uint32) *Pool {
	t.Helper()
	pool, err := createPool(a, size, typeIndex)
	require.NoError(t, err)
	return pool
}

func TestPoolAllocateSingleSmallFit(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 4096, deviceLocalType)

	index, ok, err := pool.allocate(256, 0, DefaultHostAllocationCallbacks())
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0, pool.chunks[index].Offset)
	assert.True(t, pool.chunks[index].Used)
	assert.EqualValues(t, 4096, pool.coverage())
}

func TestPoolAllocateSplitsWhenLeftoverExceedsThreshold(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 4096, deviceLocalType)

	index, ok, err := pool.allocate(256, 0, DefaultHostAllocationCallbacks())
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, pool.chunks, 2, "a 4096-byte pool minus a 256-byte allocation leaves a splittable remainder")
	assert.True(t, pool.chunks[index].Used)
	assert.False(t, pool.chunks[1-index].Used)
	assert.EqualValues(t, 4096, pool.coverage())
}

func TestPoolAllocateExactFitDoesNotSplit(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 256, deviceLocalType)

	_, ok, err := pool.allocate(256, 0, DefaultHostAllocationCallbacks())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, pool.chunks, 1, "leftover below the split threshold must not be carved off")
}

func TestPoolDeallocateMergesBothNeighbors(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 4096, deviceLocalType)
	hostCB := DefaultHostAllocationCallbacks()

	i0, _, _ := pool.allocate(256, 0, hostCB)
	i1, _, _ := pool.allocate(256, 0, hostCB)
	i2, _, _ := pool.allocate(256, 0, hostCB)
	require.Len(t, pool.chunks, 4)

	require.NoError(t, pool.deallocate(i0))
	require.NoError(t, pool.deallocate(i2))
	require.NoError(t, pool.deallocate(i1))

	require.Len(t, pool.chunks, 1, "freeing every used chunk must coalesce back to one free chunk")
	assert.False(t, pool.chunks[0].Used)
	assert.EqualValues(t, 4096, pool.chunks[0].Size)
	assert.True(t, pool.isReleasable())
}

func TestPoolDeallocateOutOfRangeIsInternalError(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 4096, deviceLocalType)

	err := pool.deallocate(7)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestPoolAllocateHonorsAlignment(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 8192, deviceLocalType)
	hostCB := DefaultHostAllocationCallbacks()

	// Consume 100 bytes unaligned first so the next request needs padding.
	_, ok, err := pool.allocate(100, 0, hostCB)
	require.NoError(t, err)
	require.True(t, ok)

	index, ok, err := pool.allocate(256, 256, hostCB)
	require.NoError(t, err)
	require.True(t, ok)

	c := pool.chunks[index]
	bound := c.dataOffset()
	assert.Zero(t, uint64(bound)%256, "bound offset must satisfy the requested alignment")
}

func TestPoolMapUnmapRefcounting(t *testing.T) {
	a, driver := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 4096, hostVisibleType)
	hostCB := DefaultHostAllocationCallbacks()

	i0, _, _ := pool.allocate(256, 0, hostCB)
	i1, _, _ := pool.allocate(256, 0, hostCB)

	_, _, err := pool.map_(i0)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.mapCount)
	assert.NotNil(t, driver.mem[pool.memory])

	_, _, err = pool.map_(i1)
	require.NoError(t, err)
	assert.Equal(t, 2, pool.mapCount)

	_, _, err = pool.map_(i0)
	assert.ErrorIs(t, err, ErrMapFailed, "mapping an already-mapped chunk must fail")

	require.NoError(t, pool.unmap_(i0))
	assert.Equal(t, 1, pool.mapCount)

	require.NoError(t, pool.unmap_(i1))
	assert.Equal(t, 0, pool.mapCount)

	err = pool.unmap_(i1)
	assert.ErrorIs(t, err, ErrMapFailed, "unmapping an already-unmapped chunk must fail")
}

func TestPoolMapReturnsWritableHostSlice(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 4096, hostVisibleType)
	hostCB := DefaultHostAllocationCallbacks()

	index, _, err := pool.allocate(64, 0, hostCB)
	require.NoError(t, err)

	ptr, size, err := pool.map_(index)
	require.NoError(t, err)
	require.EqualValues(t, 64, size)

	data := ptrToSlice(ptr, size)
	data[0] = 0xAB
	data[63] = 0xCD
	assert.Equal(t, byte(0xAB), data[0])
	assert.Equal(t, byte(0xCD), data[63])
}
