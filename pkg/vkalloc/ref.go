package vkalloc

import vk "github.com/vulkan-go/vulkan"

// ChunkRef is a non-owning reference to one Chunk: the pool it lives
// in, plus its index within that pool's chunk list. It is a weak
// back-reference — relation plus lookup, never ownership: the Pool
// exclusively owns its chunk storage, and a ChunkRef does not keep the
// chunk or the pool alive by itself.
//
// A plain *Chunk is unsafe to hold across calls because Pool.chunks
// is reallocated on growth (see growChunkSlice); ChunkRef re-resolves
// through the index on every access instead.
type ChunkRef struct {
	pool  *Pool
	index int
}

// Valid reports whether the reference points at a pool and an index
// currently within that pool's chunk list.
func (r ChunkRef) Valid() bool {
	return r.pool != nil && r.index >= 0 && r.index < len(r.pool.chunks)
}

// Chunk dereferences the reference to the current Chunk value.
func (r ChunkRef) Chunk() Chunk {
	return r.pool.chunks[r.index]
}

// Pool returns the pool this chunk belongs to.
func (r ChunkRef) Pool() *Pool {
	return r.pool
}

// Memory returns the driver memory object backing this chunk's pool.
func (r ChunkRef) Memory() vk.DeviceMemory {
	return r.pool.memory
}

// BindOffset returns offset + padding: the address a resource bound
// to this chunk must be bound at.
func (r ChunkRef) BindOffset() vk.DeviceSize {
	return r.Chunk().dataOffset()
}
