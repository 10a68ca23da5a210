package vkalloc

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Driver is the narrow seam over the Vulkan driver calls this
// allocator depends on: physical-device properties and memory-
// properties query, memory allocate/free, memory map/unmap,
// flush/invalidate mapped ranges, buffer/image create/destroy,
// buffer/image memory-requirements query, and buffer/image
// bind-memory — the complete driver-side contract this
// package depends on.
//
// Production code drives a real GPU through RealDriver, which wraps
// github.com/vulkan-go/vulkan. Tests drive an in-memory fake that
// never touches a GPU. The allocator core (Pool, Allocator, the
// scorer) depends only on this interface, never on the vulkan-go
// package's cgo-shaped call conventions directly, beyond the handle
// and flag types it re-exports.
type Driver interface {
	GetPhysicalDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties
	GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties

	AllocateMemory(device vk.Device, info vk.MemoryAllocateInfo, cb *vk.AllocationCallbacks) (vk.DeviceMemory, vk.Result)
	FreeMemory(device vk.Device, mem vk.DeviceMemory, cb *vk.AllocationCallbacks)

	MapMemory(device vk.Device, mem vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result)
	UnmapMemory(device vk.Device, mem vk.DeviceMemory)
	FlushMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result
	InvalidateMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result

	CreateBuffer(device vk.Device, info vk.BufferCreateInfo, cb *vk.AllocationCallbacks) (vk.Buffer, vk.Result)
	DestroyBuffer(device vk.Device, buffer vk.Buffer, cb *vk.AllocationCallbacks)
	GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(device vk.Device, buffer vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) vk.Result

	CreateImage(device vk.Device, info vk.ImageCreateInfo, cb *vk.AllocationCallbacks) (vk.Image, vk.Result)
	DestroyImage(device vk.Device, image vk.Image, cb *vk.AllocationCallbacks)
	GetImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements
	BindImageMemory(device vk.Device, image vk.Image, mem vk.DeviceMemory, offset vk.DeviceSize) vk.Result
}

// RealDriver implements Driver against github.com/vulkan-go/vulkan,
// following the same call shape cogentcore's vgpu.Memory.AllocMem /
// MakeBuffer use: Deref the returned structs, pass nil allocation
// callbacks unless the caller supplied VkAllocationCallbacks.
type RealDriver struct{}

func (RealDriver) GetPhysicalDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &props)
	props.Deref()
	return props
}

func (RealDriver) GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	props.Limits.Deref()
	return props
}

func (RealDriver) AllocateMemory(device vk.Device, info vk.MemoryAllocateInfo, cb *vk.AllocationCallbacks) (vk.DeviceMemory, vk.Result) {
	var mem vk.DeviceMemory
	result := vk.AllocateMemory(device, &info, cb, &mem)
	return mem, result
}

func (RealDriver) FreeMemory(device vk.Device, mem vk.DeviceMemory, cb *vk.AllocationCallbacks) {
	vk.FreeMemory(device, mem, cb)
}

func (RealDriver) MapMemory(device vk.Device, mem vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	var ptr unsafe.Pointer
	result := vk.MapMemory(device, mem, offset, size, 0, &ptr)
	return ptr, result
}

func (RealDriver) UnmapMemory(device vk.Device, mem vk.DeviceMemory) {
	vk.UnmapMemory(device, mem)
}

func (RealDriver) FlushMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result {
	return vk.FlushMappedMemoryRanges(device, uint32(len(ranges)), ranges)
}

func (RealDriver) InvalidateMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result {
	return vk.InvalidateMappedMemoryRanges(device, uint32(len(ranges)), ranges)
}

func (RealDriver) CreateBuffer(device vk.Device, info vk.BufferCreateInfo, cb *vk.AllocationCallbacks) (vk.Buffer, vk.Result) {
	var buffer vk.Buffer
	result := vk.CreateBuffer(device, &info, cb, &buffer)
	return buffer, result
}

func (RealDriver) DestroyBuffer(device vk.Device, buffer vk.Buffer, cb *vk.AllocationCallbacks) {
	vk.DestroyBuffer(device, buffer, cb)
}

func (RealDriver) GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer, &req)
	req.Deref()
	return req
}

func (RealDriver) BindBufferMemory(device vk.Device, buffer vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindBufferMemory(device, buffer, mem, offset)
}

func (RealDriver) CreateImage(device vk.Device, info vk.ImageCreateInfo, cb *vk.AllocationCallbacks) (vk.Image, vk.Result) {
	var image vk.Image
	result := vk.CreateImage(device, &info, cb, &image)
	return image, result
}

func (RealDriver) DestroyImage(device vk.Device, image vk.Image, cb *vk.AllocationCallbacks) {
	vk.DestroyImage(device, image, cb)
}

func (RealDriver) GetImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &req)
	req.Deref()
	return req
}

func (RealDriver) BindImageMemory(device vk.Device, image vk.Image, mem vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindImageMemory(device, image, mem, offset)
}
