package vkalloc

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Pool is one device-memory allocation dedicated to a single memory-
// type index, partitioned into Chunks that together cover the whole
// pool range.
type Pool struct {
	memoryTypeIndex uint32
	memoryTypeInfo  MemoryType
	memory          vk.DeviceMemory
	size            vk.DeviceSize

	chunks []Chunk

	mapCount int
	mapPtr   unsafe.Pointer

	device   vk.Device
	driver   Driver
	allocCBs *vk.AllocationCallbacks

	// minAllocSize mirrors the allocator's min_allocation_size policy
	// at the time this pool was created; the allocate split threshold
	// reads it from here so Pool.allocate does not need a back-
	// reference to the Allocator.
	minAllocSize vk.DeviceSize
}

// Size returns the pool's fixed total byte size.
func (p *Pool) Size() vk.DeviceSize { return p.size }

// MemoryTypeIndex returns the driver memory-type index this pool
// draws from.
func (p *Pool) MemoryTypeIndex() uint32 { return p.memoryTypeIndex }

// ChunkCount returns the number of chunks currently in the pool.
func (p *Pool) ChunkCount() int { return len(p.chunks) }

// createPool allocates a pool record, its chunk array, the single
// covering chunk, and requests device memory of the given size and
// type index from the driver. On any failure the
// partial state is unwound in reverse.
func createPool(a *Allocator, size vk.DeviceSize, typeIndex uint32) (*Pool, error) {
	chunks, err := growChunkSlice(nil, 32, a.hostCB)
	if err != nil {
		return nil, ErrOutOfHostMemory
	}

	pool := &Pool{
		memoryTypeIndex: typeIndex,
		memoryTypeInfo:  a.memProps.MemoryTypes[typeIndex],
		size:            size,
		chunks:          append(chunks, Chunk{Offset: 0, Size: size, Used: false}),
		device:          a.device,
		driver:          a.driver,
		allocCBs:        a.allocCBs,
		minAllocSize:    a.policy.MinAllocationSize,
	}

	mem, result := a.driver.AllocateMemory(a.device, vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	}, a.allocCBs)
	if result != vk.Success {
		return nil, wrapDriver(result, "vkAllocateMemory")
	}
	pool.memory = mem

	return pool, nil
}

// release frees the pool's device memory and clears its chunk state.
// It does not check the chunk list: Free and ReleaseUnused call it
// only on a pool holding exactly one unused chunk, while Destroy calls
// it on every pool. It does not touch the allocator's pool array;
// removePoolAt removes the pool from that array after releasing it.
func (p *Pool) release() {
	p.driver.FreeMemory(p.device, p.memory, p.allocCBs)
	p.memory = nil
	p.chunks = nil
	p.mapCount = 0
	p.mapPtr = nil
}

// isReleasable reports whether the pool is safe to release:
// pool holds exactly one chunk and that chunk is not used.
func (p *Pool) isReleasable() bool {
	return len(p.chunks) == 1 && !p.chunks[0].Used
}

// allocate is the first-fit-with-split algorithm. It
// returns the index of the chunk now marked used, or ok=false if no
// free chunk fits, or an error if internal book-keeping (the split
// path's array growth) ran out of host memory.
func (p *Pool) allocate(size, alignment vk.DeviceSize, hostCB HostAllocationCallbacks) (index int, ok bool, err error) {
	for i := range p.chunks {
		c := p.chunks[i]
		if c.Used {
			continue
		}

		padding := vk.DeviceSize(0)
		if alignment > 1 {
			padding = (alignment - (c.Offset & (alignment - 1))) & (alignment - 1)
		}
		if c.Size < padding+size {
			continue
		}

		leftover := c.Size - (padding + size)
		if leftover > p.minAllocSize {
			grown, growErr := growChunkSlice(p.chunks, len(p.chunks)+1, hostCB)
			if growErr != nil {
				// Pre-split chunk is unmarked; caller sees no effect.
				return 0, false, ErrOutOfHostMemory
			}
			p.chunks = grown

			newChunk := Chunk{
				Offset: c.Offset + padding + size,
				Size:   leftover,
				Used:   false,
			}
			p.chunks = insertChunkAt(p.chunks, i+1, newChunk)

			c.Size = padding + size
		}

		c.Padding = padding
		c.Used = true
		p.chunks[i] = c
		return i, true, nil
	}
	return 0, false, nil
}

// deallocate merges a freed chunk with its free neighbors. index must refer to
// a currently used chunk. Returns ErrInternal if index is out of
// range.
func (p *Pool) deallocate(index int) error {
	if index < 0 || index >= len(p.chunks) {
		return ErrInternal
	}

	p.chunks[index].Used = false
	p.chunks[index].Padding = 0

	// Merge with the right neighbor while it is free.
	for index+1 < len(p.chunks) && !p.chunks[index+1].Used {
		p.chunks[index].Size += p.chunks[index+1].Size
		p.chunks = append(p.chunks[:index+1], p.chunks[index+2:]...)
	}

	// Merge with the left neighbor while it is free, moving focus left.
	for index > 0 && !p.chunks[index-1].Used {
		p.chunks[index-1].Size += p.chunks[index].Size
		p.chunks = append(p.chunks[:index], p.chunks[index+1:]...)
		index--
	}

	return nil
}

// findChunkByOffset locates a chunk by its byte offset; used when a
// caller holds a ChunkRef whose index may have shifted due to merges
// elsewhere in the pool (deallocate is always called by ChunkRef,
// which re-resolves via index, but binder code revalidates via offset
// defensively before freeing — see buffer.go/image.go).
func (p *Pool) findChunkByOffset(offset vk.DeviceSize) (int, bool) {
	for i, c := range p.chunks {
		if c.Offset == offset {
			return i, true
		}
	}
	return 0, false
}

// map_ maps the whole pool on first reference (map_count 0->1) and
// returns the host pointer for chunk's data range. If
// this call did not itself trigger the driver map, the chunk's range
// is explicitly invalidated for cache coherence.
func (p *Pool) map_(index int) (unsafe.Pointer, vk.DeviceSize, error) {
	c := p.chunks[index]
	if c.Mapped {
		return nil, 0, ErrMapFailed
	}

	triggeredMap := false
	if p.mapCount == 0 {
		ptr, result := p.driver.MapMemory(p.device, p.memory, 0, p.size)
		if result != vk.Success {
			return nil, 0, wrapDriver(result, "vkMapMemory")
		}
		p.mapPtr = ptr
		triggeredMap = true
	}
	p.mapCount++

	c.Mapped = true
	p.chunks[index] = c

	hostPtr := unsafe.Add(p.mapPtr, c.dataOffset())
	size := c.usableSize()

	if !triggeredMap {
		if result := p.invalidateRange(c); result != vk.Success {
			return hostPtr, size, wrapDriver(result, "vkInvalidateMappedMemoryRanges")
		}
	}

	return hostPtr, size, nil
}

// unmap_ decrements the pool's map refcount, unmapping the pool on
// the transition to zero. If this call did not itself
// trigger the driver unmap, the chunk's range is explicitly flushed.
func (p *Pool) unmap_(index int) error {
	c := p.chunks[index]
	if !c.Mapped {
		return ErrMapFailed
	}
	if p.mapCount == 0 {
		return ErrInternal
	}

	p.mapCount--
	triggeredUnmap := false
	if p.mapCount == 0 {
		p.driver.UnmapMemory(p.device, p.memory)
		p.mapPtr = nil
		triggeredUnmap = true
	}

	c.Mapped = false
	p.chunks[index] = c

	if !triggeredUnmap {
		if result := p.flushRange(c); result != vk.Success {
			return wrapDriver(result, "vkFlushMappedMemoryRanges")
		}
	}

	return nil
}

// flushRange translates a chunk's range into one driver flush call
// over (pool.memory, chunk.offset, chunk.size).
func (p *Pool) flushRange(c Chunk) vk.Result {
	return p.driver.FlushMappedMemoryRanges(p.device, []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: p.memory,
		Offset: c.Offset,
		Size:   c.Size,
	}})
}

// invalidateRange translates a chunk's range into one driver
// invalidate call over (pool.memory, chunk.offset, chunk.size).
func (p *Pool) invalidateRange(c Chunk) vk.Result {
	return p.driver.InvalidateMappedMemoryRanges(p.device, []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: p.memory,
		Offset: c.Offset,
		Size:   c.Size,
	}})
}

// mappedChunkCount counts chunks with Mapped == true; in a consistent
// pool it equals mapCount.
func (p *Pool) mappedChunkCount() int {
	n := 0
	for _, c := range p.chunks {
		if c.Mapped {
			n++
		}
	}
	return n
}

// coverage sums chunk sizes, for tests that check full pool coverage.
func (p *Pool) coverage() vk.DeviceSize {
	var total vk.DeviceSize
	for _, c := range p.chunks {
		total += c.Size
	}
	return total
}
