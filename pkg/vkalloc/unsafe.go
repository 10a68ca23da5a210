package vkalloc

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// ptrToSlice views a driver-mapped host pointer as a byte slice of
// the given length, without copying. The slice is only valid while
// the owning pool remains mapped.
func ptrToSlice(ptr unsafe.Pointer, size vk.DeviceSize) []byte {
	if ptr == nil || size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), int(size))
}
