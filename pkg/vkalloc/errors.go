package vkalloc

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Sentinel errors forming the return-code taxonomy of the allocator.
// They are aligned to vk.Result and extend it only through reuse.
var (
	// ErrOutOfHostMemory means an internal host allocation or
	// reallocation failed (growing a pool's chunk list, the
	// allocator's pool list, or a new Pool/Chunk record).
	ErrOutOfHostMemory = errors.New("vkalloc: out of host memory")

	// ErrOutOfDeviceMemory means no memory type satisfied the
	// desired/undesired/type-mask constraints. A driver refusal to
	// allocate device memory is returned as a DriverError instead.
	ErrOutOfDeviceMemory = errors.New("vkalloc: out of device memory")

	// ErrMapFailed means the chunk was already mapped on Map, or not
	// mapped on Unmap.
	ErrMapFailed = errors.New("vkalloc: map failed")

	// ErrInternal means an internal consistency check failed: a
	// chunk was not found in its declared pool, a pool was not found
	// in its declared allocator, or an unmap was attempted on a pool
	// with zero map references.
	ErrInternal = errors.New("vkalloc: internal consistency error")
)

// wrapDriver surfaces a non-success vk.Result verbatim, tagged with
// the operation that produced it.
func wrapDriver(result vk.Result, operation string) error {
	if result == vk.Success {
		return nil
	}
	return errors.Wrapf(driverError(result), "vkalloc: %s", operation)
}

// driverError turns a raw vk.Result into an error value, preserving
// the result code so callers can recover it with errors.Cause.
func driverError(result vk.Result) error {
	return &DriverError{Result: result}
}

// DriverError wraps a non-success vk.Result returned by the driver.
// Driver failures bubble up unchanged per the propagation policy:
// the allocator does not reinterpret them as one of the sentinel
// errors above.
type DriverError struct {
	Result vk.Result
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("vulkan driver error: %s", resultString(e.Result))
}

func resultString(r vk.Result) string {
	switch r {
	case vk.Success:
		return "VK_SUCCESS"
	case vk.NotReady:
		return "VK_NOT_READY"
	case vk.Timeout:
		return "VK_TIMEOUT"
	case vk.EventSet:
		return "VK_EVENT_SET"
	case vk.EventReset:
		return "VK_EVENT_RESET"
	case vk.Incomplete:
		return "VK_INCOMPLETE"
	case vk.ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case vk.ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case vk.ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case vk.ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vk.ErrorMemoryMapFailed:
		return "VK_ERROR_MEMORY_MAP_FAILED"
	case vk.ErrorTooManyObjects:
		return "VK_ERROR_TOO_MANY_OBJECTS"
	case vk.ErrorFormatNotSupported:
		return "VK_ERROR_FORMAT_NOT_SUPPORTED"
	case vk.ErrorFragmentedPool:
		return "VK_ERROR_FRAGMENTED_POOL"
	default:
		return fmt.Sprintf("VkResult(%d)", int32(r))
	}
}

// IsDriverError reports whether err wraps a non-success vk.Result, and
// returns it if so.
func IsDriverError(err error) (vk.Result, bool) {
	var de *DriverError
	if errors.As(err, &de) {
		return de.Result, true
	}
	return vk.Success, false
}
