package vkalloc

import vk "github.com/vulkan-go/vulkan"

// ImageAllocation is the image counterpart of BufferAllocation:
// identical six operations, applied to a driver image instead of a
// buffer.
type ImageAllocation struct {
	allocator *Allocator
	image     vk.Image
	chunk     ChunkRef
}

// CreateImageAllocation creates a driver image, queries its memory
// requirements, requests a chunk from the allocator, and binds the
// image to it. On any failure the partial state is unwound in
// reverse: chunk freed, then image destroyed.
func CreateImageAllocation(a *Allocator, info vk.ImageCreateInfo, desired, undesired vk.MemoryPropertyFlagBits, dedicated bool) (*ImageAllocation, error) {
	image, result := a.driver.CreateImage(a.device, info, a.allocCBs)
	if result != vk.Success {
		return nil, wrapDriver(result, "vkCreateImage")
	}

	req := a.driver.GetImageMemoryRequirements(a.device, image)

	ref, err := a.Allocate(AllocateRequest{
		Size:            req.Size,
		Alignment:       req.Alignment,
		AllowedTypeBits: req.MemoryTypeBits,
		Desired:         desired,
		Undesired:       undesired,
		Dedicated:       dedicated,
	})
	if err != nil {
		a.driver.DestroyImage(a.device, image, a.allocCBs)
		return nil, err
	}

	if result := a.driver.BindImageMemory(a.device, image, ref.Memory(), ref.BindOffset()); result != vk.Success {
		_ = a.Free(ref)
		a.driver.DestroyImage(a.device, image, a.allocCBs)
		return nil, wrapDriver(result, "vkBindImageMemory")
	}

	return &ImageAllocation{allocator: a, image: image, chunk: ref}, nil
}

// Destroy destroys the driver image, unmaps the chunk if still mapped
// (ignoring the result), and frees the chunk.
func (img *ImageAllocation) Destroy() {
	img.allocator.driver.DestroyImage(img.allocator.device, img.image, img.allocator.allocCBs)
	if img.chunk.Chunk().Mapped {
		_ = img.allocator.Unmap(img.chunk)
	}
	_ = img.allocator.Free(img.chunk)
}

// Handle returns the underlying driver image handle.
func (img *ImageAllocation) Handle() vk.Image { return img.image }

// Allocator returns the allocator that owns this allocation's chunk.
func (img *ImageAllocation) Allocator() *Allocator { return img.allocator }

// Map exposes the image's backing chunk to the host.
func (img *ImageAllocation) Map() ([]byte, error) { return img.allocator.Map(img.chunk) }

// Unmap releases the image's host exposure.
func (img *ImageAllocation) Unmap() error { return img.allocator.Unmap(img.chunk) }

// Flush issues a driver flush over the image's backing range.
func (img *ImageAllocation) Flush() error { return img.allocator.Flush(img.chunk) }

// Invalidate issues a driver invalidate over the image's backing
// range.
func (img *ImageAllocation) Invalidate() error { return img.allocator.Invalidate(img.chunk) }
