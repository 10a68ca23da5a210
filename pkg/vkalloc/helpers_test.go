package vkalloc

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

// newTestAllocator builds an Allocator over a FakeDriver with one
// DEVICE_LOCAL type and one HOST_VISIBLE|HOST_COHERENT type, each
// backed by a heap of heapSize bytes.
func newTestAllocator(t *testing.T, heapSize vk.DeviceSize, cfg func(*AllocatorConfig)) (*Allocator, *FakeDriver) {
	t.Helper()
	driver := NewFakeDriver(heapSize,
		vk.MemoryPropertyDeviceLocalBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
	)

	acfg := AllocatorConfig{
		Driver: driver,
		Policy: Policy{
			MinPoolSize:       4096,
			MinAllocationSize: 256,
			MinMapAlignment:   64,
		},
	}
	if cfg != nil {
		cfg(&acfg)
	}
	return NewAllocator(acfg), driver
}

const (
	deviceLocalType = uint32(0)
	hostVisibleType = uint32(1)
)

func deviceLocalRequest(size vk.DeviceSize) AllocateRequest {
	return AllocateRequest{
		Size:            size,
		AllowedTypeBits: 1 << deviceLocalType,
		Desired:         vk.MemoryPropertyDeviceLocalBit,
	}
}

func hostVisibleRequest(size vk.DeviceSize) AllocateRequest {
	return AllocateRequest{
		Size:            size,
		AllowedTypeBits: 1 << hostVisibleType,
		Desired:         vk.MemoryPropertyHostVisibleBit,
	}
}
