package vkalloc

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// FakeDriver is an in-memory Driver with no GPU behind it. It backs
// every "device" allocation with a plain Go byte slice, so mapping,
// flushing and binding all operate on real, inspectable memory. It
// exists for tests and for cmd/vkallocstat, where driving the real
// vulkan-go package would require a physical device and an instance.
//
// FakeDriver reports whatever memory layout its MemoryProperties
// field holds; callers construct that field to exercise particular
// scorer decisions (DEVICE_LOCAL-only heaps, HOST_VISIBLE|HOST_COHERENT
// heaps, and so on).
type FakeDriver struct {
	MemoryProperties vk.PhysicalDeviceMemoryProperties
	DeviceProperties vk.PhysicalDeviceProperties

	// FailAllocateTypes, when non-nil, causes AllocateMemory to report
	// vk.ErrorOutOfDeviceMemory for the listed memory type indices.
	FailAllocateTypes map[uint32]bool

	nextHandle uint64
	mem        map[vk.DeviceMemory][]byte
	bufSize    map[vk.Buffer]vk.DeviceSize
	imgSize    map[vk.Image]vk.DeviceSize
}

// NewFakeDriver builds a FakeDriver with one memory type per entry in
// typeFlags, each in its own heap of heapSize bytes.
func NewFakeDriver(heapSize vk.DeviceSize, typeFlags ...vk.MemoryPropertyFlagBits) *FakeDriver {
	d := &FakeDriver{
		mem:     make(map[vk.DeviceMemory][]byte),
		bufSize: make(map[vk.Buffer]vk.DeviceSize),
		imgSize: make(map[vk.Image]vk.DeviceSize),
	}
	d.MemoryProperties.MemoryHeapCount = uint32(len(typeFlags))
	d.MemoryProperties.MemoryTypeCount = uint32(len(typeFlags))
	for i, flags := range typeFlags {
		d.MemoryProperties.MemoryHeaps[i].Size = heapSize
		d.MemoryProperties.MemoryTypes[i].PropertyFlags = flags
		d.MemoryProperties.MemoryTypes[i].HeapIndex = uint32(i)
	}
	d.DeviceProperties.Limits.NonCoherentAtomSize = 256
	d.DeviceProperties.Limits.MinMemoryMapAlignment = 64
	return d
}

func (d *FakeDriver) allocHandle() uint64 {
	d.nextHandle++
	return d.nextHandle
}

func (d *FakeDriver) GetPhysicalDeviceMemoryProperties(vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	return d.MemoryProperties
}

func (d *FakeDriver) GetPhysicalDeviceProperties(vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	return d.DeviceProperties
}

func (d *FakeDriver) AllocateMemory(device vk.Device, info vk.MemoryAllocateInfo, cb *vk.AllocationCallbacks) (vk.DeviceMemory, vk.Result) {
	if d.FailAllocateTypes[info.MemoryTypeIndex] {
		return vk.NullHandle, vk.ErrorOutOfDeviceMemory
	}
	mem := vk.DeviceMemory(d.allocHandle())
	d.mem[mem] = make([]byte, info.AllocationSize)
	return mem, vk.Success
}

func (d *FakeDriver) FreeMemory(device vk.Device, mem vk.DeviceMemory, cb *vk.AllocationCallbacks) {
	delete(d.mem, mem)
}

func (d *FakeDriver) MapMemory(device vk.Device, mem vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	backing, ok := d.mem[mem]
	if !ok {
		return nil, vk.ErrorMemoryMapFailed
	}
	if size == vk.WholeSize {
		size = vk.DeviceSize(len(backing)) - offset
	}
	if offset+size > vk.DeviceSize(len(backing)) {
		return nil, vk.ErrorMemoryMapFailed
	}
	return unsafe.Pointer(&backing[offset]), vk.Success
}

func (d *FakeDriver) UnmapMemory(device vk.Device, mem vk.DeviceMemory) {}

func (d *FakeDriver) FlushMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result {
	return vk.Success
}

func (d *FakeDriver) InvalidateMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result {
	return vk.Success
}

func (d *FakeDriver) CreateBuffer(device vk.Device, info vk.BufferCreateInfo, cb *vk.AllocationCallbacks) (vk.Buffer, vk.Result) {
	buf := vk.Buffer(d.allocHandle())
	d.bufSize[buf] = info.Size
	return buf, vk.Success
}

func (d *FakeDriver) DestroyBuffer(device vk.Device, buffer vk.Buffer, cb *vk.AllocationCallbacks) {
	delete(d.bufSize, buffer)
}

func (d *FakeDriver) GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	size := d.bufSize[buffer]
	return vk.MemoryRequirements{
		Size:           size,
		Alignment:      16,
		MemoryTypeBits: (1 << d.MemoryProperties.MemoryTypeCount) - 1,
	}
}

func (d *FakeDriver) BindBufferMemory(device vk.Device, buffer vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	if _, ok := d.mem[mem]; !ok {
		return vk.ErrorInitializationFailed
	}
	return vk.Success
}

func (d *FakeDriver) CreateImage(device vk.Device, info vk.ImageCreateInfo, cb *vk.AllocationCallbacks) (vk.Image, vk.Result) {
	img := vk.Image(d.allocHandle())
	extent := info.Extent
	pixels := vk.DeviceSize(extent.Width) * vk.DeviceSize(extent.Height) * vk.DeviceSize(extent.Depth)
	if pixels == 0 {
		pixels = 1
	}
	d.imgSize[img] = pixels * 4
	return img, vk.Success
}

func (d *FakeDriver) DestroyImage(device vk.Device, image vk.Image, cb *vk.AllocationCallbacks) {
	delete(d.imgSize, image)
}

func (d *FakeDriver) GetImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements {
	size := d.imgSize[image]
	if size == 0 {
		size = 65536
	}
	return vk.MemoryRequirements{
		Size:           size,
		Alignment:      256,
		MemoryTypeBits: (1 << d.MemoryProperties.MemoryTypeCount) - 1,
	}
}

func (d *FakeDriver) BindImageMemory(device vk.Device, image vk.Image, mem vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	if _, ok := d.mem[mem]; !ok {
		return vk.ErrorInitializationFailed
	}
	return vk.Success
}
