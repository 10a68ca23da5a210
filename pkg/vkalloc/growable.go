package vkalloc

import "unsafe"

// growCapacity doubles cur, starting from floor when cur is zero, as
// required by the geometric-growth design note: no other growth
// policy matches the O(1)-amortized insert / O(n) splice-out pattern
// the pool and allocator arrays use.
func growCapacity(cur, floor int) int {
	if cur == 0 {
		return floor
	}
	return cur * 2
}

// growRaw grows a byte buffer to newSize through the host-allocation
// capability: Reallocate when a previous buffer exists (old is
// preserved into the returned buffer), Allocate for the first grow. A
// nil result from either callback signals out-of-host-memory.
func growRaw(old []byte, newSize int, hostCB HostAllocationCallbacks) ([]byte, error) {
	var raw []byte
	if old == nil {
		raw = hostCB.Allocate(newSize)
	} else {
		raw = hostCB.Reallocate(old, newSize)
	}
	if raw == nil {
		return nil, ErrOutOfHostMemory
	}
	return raw, nil
}

// poolBytes views cur's existing backing array as bytes, for handing
// to growRaw as the "old" buffer. Returns nil when cur has no backing
// array yet, which growRaw reads as "first allocation."
func poolBytes(cur []*Pool) []byte {
	if cap(cur) == 0 {
		return nil
	}
	elemSize := int(unsafe.Sizeof((*Pool)(nil)))
	return unsafe.Slice((*byte)(unsafe.Pointer(&cur[:1][0])), cap(cur)*elemSize)
}

func chunkBytes(cur []Chunk) []byte {
	if cap(cur) == 0 {
		return nil
	}
	elemSize := int(unsafe.Sizeof(Chunk{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&cur[:1][0])), cap(cur)*elemSize)
}

// growPoolSlice grows the allocator's pool list to hold at least
// minCap entries, routed through the host-allocation capability so
// out-of-host-memory can be injected and observed by callers. The
// returned slice's backing array is the buffer growRaw produced, not a
// throwaway make; existing elements and their order are preserved.
func growPoolSlice(cur []*Pool, minCap int, hostCB HostAllocationCallbacks) ([]*Pool, error) {
	if cap(cur) >= minCap {
		return cur, nil
	}
	newCap := growCapacity(cap(cur), 8)
	for newCap < minCap {
		newCap *= 2
	}

	elemSize := int(unsafe.Sizeof((*Pool)(nil)))
	raw, err := growRaw(poolBytes(cur), newCap*elemSize, hostCB)
	if err != nil {
		return nil, err
	}

	next := unsafe.Slice((**Pool)(unsafe.Pointer(&raw[0])), newCap)
	return next[:len(cur)], nil
}

// growChunkSlice grows a pool's chunk list to hold at least minCap
// entries through the same host-allocation seam.
func growChunkSlice(cur []Chunk, minCap int, hostCB HostAllocationCallbacks) ([]Chunk, error) {
	if cap(cur) >= minCap {
		return cur, nil
	}
	newCap := growCapacity(cap(cur), 32)
	for newCap < minCap {
		newCap *= 2
	}

	elemSize := int(unsafe.Sizeof(Chunk{}))
	raw, err := growRaw(chunkBytes(cur), newCap*elemSize, hostCB)
	if err != nil {
		return nil, err
	}

	next := unsafe.Slice((*Chunk)(unsafe.Pointer(&raw[0])), newCap)
	return next[:len(cur)], nil
}

// insertChunkAt inserts c at index i in chunks, shifting the tail
// right by one. Capacity must already be sufficient (callers grow via
// growChunkSlice first).
func insertChunkAt(chunks []Chunk, i int, c Chunk) []Chunk {
	chunks = append(chunks, Chunk{})
	copy(chunks[i+1:], chunks[i:len(chunks)-1])
	chunks[i] = c
	return chunks
}
