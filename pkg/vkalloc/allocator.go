package vkalloc

import (
	vk "github.com/vulkan-go/vulkan"
)

const defaultMinPoolSize = 4 * 1024 * 1024 // 4 MiB

// Policy bundles the allocator's global tuning knobs.
type Policy struct {
	// MinPoolSize is the smallest device-memory allocation the
	// allocator will request when creating a new pool. Defaults to
	// 4 MiB when zero.
	MinPoolSize vk.DeviceSize
	// MinAllocationSize is both the floor every requested size is
	// normalized up to, and the leftover-vs-split threshold in
	// Pool.allocate. Defaults to the driver's nonCoherentAtomSize.
	MinAllocationSize vk.DeviceSize
	// MinMapAlignment is the driver's minimum map alignment; host-
	// visible allocations have their requested alignment bumped up to
	// at least this.
	MinMapAlignment vk.DeviceSize
	// AutomaticallyFreeUnused, when set, releases a pool back to the
	// driver as soon as a free leaves it holding a single unused
	// chunk, instead of requiring an explicit ReleaseUnused sweep.
	AutomaticallyFreeUnused bool
}

// AllocatorConfig is the capability-injection configuration accepted
// by NewAllocator.
type AllocatorConfig struct {
	Device         vk.Device
	PhysicalDevice vk.PhysicalDevice
	Driver         Driver

	Policy Policy

	HostAllocationCallbacks HostAllocationCallbacks
	ErrorReportCallbacks    ErrorReportCallbacks

	// AllocationCallbacks, if non-nil, is passed to every driver
	// memory/resource call this allocator makes. Nil means "use the
	// driver's default."
	AllocationCallbacks *vk.AllocationCallbacks

	// DebugAllocationTracking enables the teardown check for
	// still-used chunks, and, together with AutomaticallyFreeUnused,
	// the ReleaseUnused check for pools that auto-free missed.
	DebugAllocationTracking bool
}

// Allocator is the root entity: it owns a dynamic list of
// pools, holds memory-type tables, host-allocation and error
// callbacks, and global policy. It is the entry point for every
// allocate/free/map/unmap operation in this package.
//
// Allocator is externally synchronized: no operation may be invoked
// concurrently with any other operation on the same allocator, or on
// any Pool/Chunk/BufferAllocation/ImageAllocation reachable from it.
type Allocator struct {
	device         vk.Device
	physicalDevice vk.PhysicalDevice
	driver         Driver

	memProps MemoryProperties
	policy   Policy

	hostCB   HostAllocationCallbacks
	errorCB  ErrorReportCallbacks
	allocCBs *vk.AllocationCallbacks

	debugAllocationTracking bool

	pools []*Pool
}

// NewAllocator creates an allocator for one logical device, filling in
// zero-valued config fields with documented defaults.
func NewAllocator(cfg AllocatorConfig) *Allocator {
	if cfg.Driver == nil {
		cfg.Driver = RealDriver{}
	}
	if cfg.HostAllocationCallbacks.Allocate == nil {
		cfg.HostAllocationCallbacks = DefaultHostAllocationCallbacks()
	}
	if cfg.ErrorReportCallbacks.Report == nil {
		cfg.ErrorReportCallbacks = DefaultErrorReportCallbacks()
	}

	limits := cfg.Driver.GetPhysicalDeviceProperties(cfg.PhysicalDevice).Limits

	policy := cfg.Policy
	if policy.MinPoolSize == 0 {
		policy.MinPoolSize = defaultMinPoolSize
	}
	if policy.MinAllocationSize == 0 {
		policy.MinAllocationSize = limits.NonCoherentAtomSize
	}
	if policy.MinMapAlignment == 0 {
		policy.MinMapAlignment = limits.MinMemoryMapAlignment
	}

	rawMemProps := cfg.Driver.GetPhysicalDeviceMemoryProperties(cfg.PhysicalDevice)

	return &Allocator{
		device:                  cfg.Device,
		physicalDevice:          cfg.PhysicalDevice,
		driver:                  cfg.Driver,
		memProps:                snapshotMemoryProperties(rawMemProps),
		policy:                  policy,
		hostCB:                  cfg.HostAllocationCallbacks,
		errorCB:                 cfg.ErrorReportCallbacks,
		allocCBs:                cfg.AllocationCallbacks,
		debugAllocationTracking: cfg.DebugAllocationTracking,
	}
}

// PoolCount returns the number of pools currently owned by the
// allocator.
func (a *Allocator) PoolCount() int { return len(a.pools) }

// normalizeSize raises size to at least MinAllocationSize, then to at
// least alignment.
func (a *Allocator) normalizeSize(size, alignment vk.DeviceSize) vk.DeviceSize {
	if size < a.policy.MinAllocationSize {
		size = a.policy.MinAllocationSize
	}
	if alignment > 0 && size < alignment {
		size = alignUp(size, alignment)
	}
	return size
}

func alignUp(size, alignment vk.DeviceSize) vk.DeviceSize {
	if alignment <= 1 {
		return size
	}
	return (size + alignment - 1) &^ (alignment - 1)
}

// AllocateRequest bundles the inputs to Allocate.
type AllocateRequest struct {
	Size            vk.DeviceSize
	Alignment       vk.DeviceSize
	AllowedTypeBits uint32
	Desired         vk.MemoryPropertyFlagBits
	Undesired       vk.MemoryPropertyFlagBits
	Dedicated       bool
}

// Allocate is the high-level entry point: it scores
// memory types, then either carves from an existing pool or creates a
// new one (non-dedicated), or always creates a new pool sized exactly
// for the request (dedicated).
func (a *Allocator) Allocate(req AllocateRequest) (ChunkRef, error) {
	typeIndex, ok := a.memProps.findMemoryType(req.AllowedTypeBits, req.Desired, req.Undesired)
	if !ok {
		reportf(a.errorCB, 2, "no suitable memory type for allowed=%#x desired=%#x undesired=%#x",
			req.AllowedTypeBits, req.Desired, req.Undesired)
		return ChunkRef{}, ErrOutOfDeviceMemory
	}

	alignment := req.Alignment
	if a.memProps.isHostVisible(typeIndex) {
		if alignment < a.policy.MinMapAlignment {
			alignment = a.policy.MinMapAlignment
		}
	}

	size := a.normalizeSize(req.Size, alignment)

	if req.Dedicated {
		return a.allocateDedicated(size, alignment, typeIndex)
	}
	return a.allocateShared(size, alignment, typeIndex)
}

func (a *Allocator) allocateShared(size, alignment vk.DeviceSize, typeIndex uint32) (ChunkRef, error) {
	for _, pool := range a.pools {
		if pool.memoryTypeIndex != typeIndex {
			continue
		}
		index, ok, err := pool.allocate(size, alignment, a.hostCB)
		if err != nil {
			reportf(a.errorCB, 2, "out of host memory splitting pool (type %d)", typeIndex)
			return ChunkRef{}, err
		}
		if ok {
			recordAllocSite(pool, uint64(pool.chunks[index].Offset), 2)
			return ChunkRef{pool: pool, index: index}, nil
		}
	}

	poolSize := a.policy.MinPoolSize
	if size > poolSize {
		poolSize = size
	}
	pool, err := createPool(a, poolSize, typeIndex)
	if err != nil {
		reportf(a.errorCB, 2, "failed to create pool of size %d type %d: %v", poolSize, typeIndex, err)
		return ChunkRef{}, err
	}
	a.pools, err = growPoolSlice(a.pools, len(a.pools)+1, a.hostCB)
	if err != nil {
		pool.release()
		reportf(a.errorCB, 2, "out of host memory growing pool list")
		return ChunkRef{}, err
	}
	a.pools = append(a.pools, pool)

	// Guaranteed to succeed: the pool is one free chunk >= requested.
	index, ok, err := pool.allocate(size, alignment, a.hostCB)
	if err != nil || !ok {
		reportf(a.errorCB, 2, "newly created pool failed to satisfy its own request")
		return ChunkRef{}, ErrInternal
	}
	recordAllocSite(pool, uint64(pool.chunks[index].Offset), 2)
	return ChunkRef{pool: pool, index: index}, nil
}

func (a *Allocator) allocateDedicated(size, alignment vk.DeviceSize, typeIndex uint32) (ChunkRef, error) {
	pool, err := createPool(a, size, typeIndex)
	if err != nil {
		reportf(a.errorCB, 2, "failed to create dedicated pool of size %d type %d: %v", size, typeIndex, err)
		return ChunkRef{}, err
	}
	a.pools, err = growPoolSlice(a.pools, len(a.pools)+1, a.hostCB)
	if err != nil {
		pool.release()
		reportf(a.errorCB, 2, "out of host memory growing pool list")
		return ChunkRef{}, err
	}
	a.pools = append(a.pools, pool)

	index, ok, err := pool.allocate(size, alignment, a.hostCB)
	if err != nil || !ok {
		reportf(a.errorCB, 2, "dedicated pool failed to satisfy its own request")
		return ChunkRef{}, ErrInternal
	}
	recordAllocSite(pool, uint64(pool.chunks[index].Offset), 2)
	return ChunkRef{pool: pool, index: index}, nil
}

// Free deallocates the chunk referenced by ref, merging
// with free neighbors, and releases the owning pool if it is now a
// single free chunk and AutomaticallyFreeUnused is set.
func (a *Allocator) Free(ref ChunkRef) error {
	pool, ok := a.findPool(ref.pool)
	if !ok {
		reportf(a.errorCB, 2, "pool not found in allocator")
		return ErrInternal
	}

	offset := uint64(ref.Chunk().Offset)

	if err := pool.deallocate(ref.index); err != nil {
		reportf(a.errorCB, 2, "chunk not found in its declared pool")
		return err
	}
	clearAllocSite(pool, offset)

	if a.policy.AutomaticallyFreeUnused && pool.isReleasable() {
		a.removePool(pool)
	}

	return nil
}

// Map exposes the chunk's data range to the host.
func (a *Allocator) Map(ref ChunkRef) ([]byte, error) {
	ptr, size, err := ref.pool.map_(ref.index)
	if err != nil {
		reportf(a.errorCB, 2, "map failed: %v", err)
		return nil, err
	}
	return ptrToSlice(ptr, size), nil
}

// Unmap releases the chunk's host exposure.
func (a *Allocator) Unmap(ref ChunkRef) error {
	if err := ref.pool.unmap_(ref.index); err != nil {
		reportf(a.errorCB, 2, "unmap failed: %v", err)
		return err
	}
	return nil
}

// Flush issues a driver flush over the chunk's range. Callers are
// responsible for calling Flush/Invalidate around non-coherent host
// access; Map/Unmap only invoke them automatically on the piggyback
// path.
func (a *Allocator) Flush(ref ChunkRef) error {
	if result := ref.pool.flushRange(ref.Chunk()); result != vk.Success {
		return wrapDriver(result, "vkFlushMappedMemoryRanges")
	}
	return nil
}

// Invalidate issues a driver invalidate over the chunk's range.
func (a *Allocator) Invalidate(ref ChunkRef) error {
	if result := ref.pool.invalidateRange(ref.Chunk()); result != vk.Success {
		return wrapDriver(result, "vkInvalidateMappedMemoryRanges")
	}
	return nil
}

// ReleaseUnused walks every pool and releases those matching the
// release precondition. When DebugAllocationTracking and
// AutomaticallyFreeUnused are both set, finding a releasable pool here is
// itself reported as an error: the eager auto-free invariant should
// have already released it.
func (a *Allocator) ReleaseUnused() {
	for i := 0; i < len(a.pools); {
		pool := a.pools[i]
		if pool.isReleasable() {
			if a.debugAllocationTracking && a.policy.AutomaticallyFreeUnused {
				reportf(a.errorCB, 2, "auto-free invariant violated: releasable pool survived to sweep")
			}
			a.removePoolAt(i)
			continue
		}
		i++
	}
}

// Destroy unconditionally releases every pool, regardless of
// outstanding chunks. Before releasing, it reports every pool with
// more than one chunk, and — when debug allocation tracking is
// enabled — every chunk still used, as errors.
func (a *Allocator) Destroy() {
	for _, pool := range a.pools {
		if len(pool.chunks) > 1 {
			reportf(a.errorCB, 2, "pool (type %d) destroyed with %d chunks still present", pool.memoryTypeIndex, len(pool.chunks))
		}
		if a.debugAllocationTracking {
			for _, c := range pool.chunks {
				if c.Used {
					if file, line, ok := lookupAllocSite(pool, uint64(c.Offset)); ok {
						reportf(a.errorCB, 2, "pool (type %d) destroyed with a chunk allocated at %s:%d still in use (offset %d, size %d)", pool.memoryTypeIndex, file, line, c.Offset, c.Size)
					} else {
						reportf(a.errorCB, 2, "pool (type %d) destroyed with a chunk still in use (offset %d, size %d)", pool.memoryTypeIndex, c.Offset, c.Size)
					}
				}
			}
		}
		pool.release()
		forgetPool(pool)
	}
	a.pools = nil
}

func (a *Allocator) findPool(p *Pool) (*Pool, bool) {
	for _, pool := range a.pools {
		if pool == p {
			return pool, true
		}
	}
	return nil, false
}

func (a *Allocator) removePool(p *Pool) {
	for i, pool := range a.pools {
		if pool == p {
			a.removePoolAt(i)
			return
		}
	}
}

// removePoolAt releases and removes the pool at index i by
// compaction, preserving the relative order of the remaining pools.
func (a *Allocator) removePoolAt(i int) {
	a.pools[i].release()
	forgetPool(a.pools[i])
	a.pools = append(a.pools[:i], a.pools[i+1:]...)
}
