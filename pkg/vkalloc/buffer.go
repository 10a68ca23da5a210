package vkalloc

import vk "github.com/vulkan-go/vulkan"

// BufferAllocation is a thin veneer over a driver buffer plus the
// Chunk backing it. It owns the driver buffer handle;
// the Chunk's storage is still owned by its Pool.
type BufferAllocation struct {
	allocator *Allocator
	buffer    vk.Buffer
	chunk     ChunkRef
}

// CreateBufferAllocation creates a driver buffer, queries its memory
// requirements, requests a chunk from the allocator, and binds the
// buffer to it. On any failure the partial state is
// unwound in reverse: chunk freed, then buffer destroyed.
func CreateBufferAllocation(a *Allocator, info vk.BufferCreateInfo, desired, undesired vk.MemoryPropertyFlagBits, dedicated bool) (*BufferAllocation, error) {
	buffer, result := a.driver.CreateBuffer(a.device, info, a.allocCBs)
	if result != vk.Success {
		return nil, wrapDriver(result, "vkCreateBuffer")
	}

	req := a.driver.GetBufferMemoryRequirements(a.device, buffer)

	ref, err := a.Allocate(AllocateRequest{
		Size:            req.Size,
		Alignment:       req.Alignment,
		AllowedTypeBits: req.MemoryTypeBits,
		Desired:         desired,
		Undesired:       undesired,
		Dedicated:       dedicated,
	})
	if err != nil {
		a.driver.DestroyBuffer(a.device, buffer, a.allocCBs)
		return nil, err
	}

	if result := a.driver.BindBufferMemory(a.device, buffer, ref.Memory(), ref.BindOffset()); result != vk.Success {
		_ = a.Free(ref)
		a.driver.DestroyBuffer(a.device, buffer, a.allocCBs)
		return nil, wrapDriver(result, "vkBindBufferMemory")
	}

	return &BufferAllocation{allocator: a, buffer: buffer, chunk: ref}, nil
}

// Destroy destroys the driver buffer, unmaps the chunk if still
// mapped (ignoring the result), and frees the chunk.
func (b *BufferAllocation) Destroy() {
	b.allocator.driver.DestroyBuffer(b.allocator.device, b.buffer, b.allocator.allocCBs)
	if b.chunk.Chunk().Mapped {
		_ = b.allocator.Unmap(b.chunk)
	}
	_ = b.allocator.Free(b.chunk)
}

// Handle returns the underlying driver buffer handle.
func (b *BufferAllocation) Handle() vk.Buffer { return b.buffer }

// Allocator returns the allocator that owns this allocation's chunk.
func (b *BufferAllocation) Allocator() *Allocator { return b.allocator }

// Map exposes the buffer's backing chunk to the host.
func (b *BufferAllocation) Map() ([]byte, error) { return b.allocator.Map(b.chunk) }

// Unmap releases the buffer's host exposure.
func (b *BufferAllocation) Unmap() error { return b.allocator.Unmap(b.chunk) }

// Flush issues a driver flush over the buffer's backing range.
func (b *BufferAllocation) Flush() error { return b.allocator.Flush(b.chunk) }

// Invalidate issues a driver invalidate over the buffer's backing
// range.
func (b *BufferAllocation) Invalidate() error { return b.allocator.Invalidate(b.chunk) }
