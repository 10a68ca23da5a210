package vkalloc

import (
	vk "github.com/vulkan-go/vulkan"
)

// MemoryProperties is the allocator's snapshot of the physical
// device's memory types and heaps, queried once at allocator creation
// time (vkGetPhysicalDeviceMemoryProperties).
type MemoryProperties struct {
	MemoryTypes []MemoryType
	MemoryHeaps []MemoryHeap
}

// MemoryType is one driver-advertised (property flags, heap index)
// pair.
type MemoryType struct {
	PropertyFlags vk.MemoryPropertyFlagBits
	HeapIndex     uint32
}

// MemoryHeap is one driver-advertised heap.
type MemoryHeap struct {
	Size  vk.DeviceSize
	Flags vk.MemoryHeapFlagBits
}

// snapshotMemoryProperties converts the driver's raw memory
// properties into MemoryProperties, trimming to MemoryTypeCount /
// MemoryHeapCount entries.
func snapshotMemoryProperties(raw vk.PhysicalDeviceMemoryProperties) MemoryProperties {
	raw.Deref()
	props := MemoryProperties{
		MemoryTypes: make([]MemoryType, raw.MemoryTypeCount),
		MemoryHeaps: make([]MemoryHeap, raw.MemoryHeapCount),
	}
	for i := uint32(0); i < raw.MemoryTypeCount; i++ {
		raw.MemoryTypes[i].Deref()
		props.MemoryTypes[i] = MemoryType{
			PropertyFlags: vk.MemoryPropertyFlagBits(raw.MemoryTypes[i].PropertyFlags),
			HeapIndex:     raw.MemoryTypes[i].HeapIndex,
		}
	}
	for i := uint32(0); i < raw.MemoryHeapCount; i++ {
		raw.MemoryHeaps[i].Deref()
		props.MemoryHeaps[i] = MemoryHeap{
			Size:  raw.MemoryHeaps[i].Size,
			Flags: vk.MemoryHeapFlagBits(raw.MemoryHeaps[i].Flags),
		}
	}
	return props
}

// findMemoryType scores every candidate memory type and returns the
// best match. allowedTypeBits has bit i set iff the driver accepts
// memory type i for this resource. desired and undesired are
// property-flag sets.
//
// Both the dedicated and non-dedicated callers route through this one
// implementation: every type's score starts at 0, and only a type that
// survives the undesired/type-mask/desired-flags gates earns a
// positive score (heap size, used to break ties toward the larger
// heap), so "best score is zero" is always a correct "no suitable
// type" test.
func (p *MemoryProperties) findMemoryType(allowedTypeBits uint32, desired, undesired vk.MemoryPropertyFlagBits) (uint32, bool) {
	bestIndex := uint32(0)
	bestScore := uint64(0)

	for i, mt := range p.MemoryTypes {
		if allowedTypeBits&(1<<uint(i)) == 0 {
			continue
		}
		if mt.PropertyFlags&undesired != 0 {
			continue
		}
		if mt.PropertyFlags&desired != desired {
			continue
		}

		heapSize := uint64(0)
		if int(mt.HeapIndex) < len(p.MemoryHeaps) {
			heapSize = uint64(p.MemoryHeaps[mt.HeapIndex].Size)
		}
		score := (heapSize >> 10) + 1

		if score > bestScore {
			bestScore = score
			bestIndex = uint32(i)
		}
	}

	if bestScore == 0 {
		return 0, false
	}
	return bestIndex, true
}

// isHostVisible reports whether the memory type at index can be
// mapped into the caller's address space.
func (p *MemoryProperties) isHostVisible(index uint32) bool {
	if int(index) >= len(p.MemoryTypes) {
		return false
	}
	return p.MemoryTypes[index].PropertyFlags&vk.MemoryPropertyHostVisibleBit != 0
}
