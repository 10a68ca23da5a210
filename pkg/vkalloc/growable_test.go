package vkalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowChunkSlicePreservesElements(t *testing.T) {
	cur := []Chunk{{Offset: 0, Size: 10}, {Offset: 10, Size: 20}}
	grown, err := growChunkSlice(cur, 40, DefaultHostAllocationCallbacks())
	require.NoError(t, err)
	require.GreaterOrEqual(t, cap(grown), 40)
	assert.Equal(t, cur, grown[:2])
}

func TestGrowChunkSliceNoGrowthWhenCapacitySufficient(t *testing.T) {
	cur := make([]Chunk, 2, 32)
	grown, err := growChunkSlice(cur, 10, DefaultHostAllocationCallbacks())
	require.NoError(t, err)
	assert.Equal(t, cap(cur), cap(grown))
}

func TestGrowChunkSlicePropagatesHostAllocationFailure(t *testing.T) {
	failingCB := HostAllocationCallbacks{
		Allocate:   func(size int) []byte { return nil },
		Reallocate: func(old []byte, newSize int) []byte { return nil },
	}
	_, err := growChunkSlice(nil, 8, failingCB)
	assert.ErrorIs(t, err, ErrOutOfHostMemory)
}

func TestGrowChunkSlicePropagatesHostReallocationFailure(t *testing.T) {
	cur := []Chunk{{Offset: 0, Size: 10}}
	failingCB := HostAllocationCallbacks{
		Allocate:   func(size int) []byte { return make([]byte, size) },
		Reallocate: func(old []byte, newSize int) []byte { return nil },
	}
	_, err := growChunkSlice(cur, 40, failingCB)
	assert.ErrorIs(t, err, ErrOutOfHostMemory)
}

func TestGrowPoolSlicePreservesElements(t *testing.T) {
	p1, p2 := &Pool{memoryTypeIndex: 0}, &Pool{memoryTypeIndex: 1}
	cur := []*Pool{p1, p2}
	grown, err := growPoolSlice(cur, 20, DefaultHostAllocationCallbacks())
	require.NoError(t, err)
	require.GreaterOrEqual(t, cap(grown), 20)
	assert.Equal(t, cur, grown[:2])
}

func TestGrowPoolSlicePropagatesHostReallocationFailure(t *testing.T) {
	cur := []*Pool{{memoryTypeIndex: 0}}
	failingCB := HostAllocationCallbacks{
		Allocate:   func(size int) []byte { return make([]byte, size) },
		Reallocate: func(old []byte, newSize int) []byte { return nil },
	}
	_, err := growPoolSlice(cur, 20, failingCB)
	assert.ErrorIs(t, err, ErrOutOfHostMemory)
}

func TestInsertChunkAtShiftsTail(t *testing.T) {
	chunks := make([]Chunk, 2, 4)
	chunks[0] = Chunk{Offset: 0, Size: 10}
	chunks[1] = Chunk{Offset: 10, Size: 10}

	chunks = insertChunkAt(chunks, 1, Chunk{Offset: 5, Size: 5})

	require.Len(t, chunks, 3)
	assert.EqualValues(t, 0, chunks[0].Offset)
	assert.EqualValues(t, 5, chunks[1].Offset)
	assert.EqualValues(t, 10, chunks[2].Offset)
}

func TestPoolAllocateSplitFailsCleanlyWhenHostAllocationFails(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, nil)
	pool := newTestPool(t, a, 4096, deviceLocalType)

	// Pin the chunk array at its current capacity so the split path's
	// growChunkSlice call is forced to actually grow.
	pool.chunks = pool.chunks[:len(pool.chunks):len(pool.chunks)]
	require.Equal(t, len(pool.chunks), cap(pool.chunks))

	failingCB := HostAllocationCallbacks{
		Allocate:   func(size int) []byte { return nil },
		Reallocate: func(old []byte, newSize int) []byte { return nil },
	}

	_, ok, err := pool.allocate(64, 0, failingCB)
	assert.ErrorIs(t, err, ErrOutOfHostMemory)
	assert.False(t, ok)
	assert.False(t, pool.chunks[0].Used, "a failed split must leave the pre-split chunk untouched")
}
