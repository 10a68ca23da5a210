package vkalloc

import vk "github.com/vulkan-go/vulkan"

// Chunk is one contiguous range inside a Pool. Chunks live in
// Pool.chunks by value; a Chunk is addressed from outside the pool by
// (pool, index) rather than by Go pointer, because the backing slice
// is reallocated on growth and any *Chunk into it would be
// invalidated. ChunkRef is that (pool, index) pair — see ref.go.
type Chunk struct {
	// Offset is the byte offset from the start of the pool's memory
	// object.
	Offset vk.DeviceSize
	// Size is the total bytes owned by this chunk, including
	// alignment padding.
	Size vk.DeviceSize
	// Padding is bytes at the start of the chunk reserved to satisfy
	// the bound resource's alignment. Reset to 0 when the chunk
	// becomes free.
	Padding vk.DeviceSize
	// Used reports whether a resource is bound to this chunk.
	Used bool
	// Mapped reports whether this chunk is currently exposed to the
	// host.
	Mapped bool
}

// dataOffset is the offset at which the bound resource's data starts:
// offset + padding.
func (c Chunk) dataOffset() vk.DeviceSize {
	return c.Offset + c.Padding
}

// usableSize is the size available to the bound resource once padding
// is excluded.
func (c Chunk) usableSize() vk.DeviceSize {
	return c.Size - c.Padding
}
