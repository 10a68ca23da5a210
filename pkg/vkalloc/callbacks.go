package vkalloc

import (
	"fmt"
	"os"
	"runtime"
)

// HostAllocationCallbacks is the injected host-allocation capability
// used for the allocator's own book-keeping (the pool list and each
// pool's chunk list), distinct from the driver-side VkAllocationCallbacks
// threaded through to Vulkan calls. Allocate and Reallocate returning
// nil signals out-of-memory, mirroring malloc/realloc semantics.
type HostAllocationCallbacks struct {
	Allocate   func(size int) []byte
	Reallocate func(old []byte, newSize int) []byte
	Free       func(buf []byte)
}

// DefaultHostAllocationCallbacks wraps Go's runtime allocator and never
// fails. Tests that exercise the out-of-host-memory paths of pool and
// chunk array growth supply a HostAllocationCallbacks whose Allocate
// and Reallocate return nil instead.
func DefaultHostAllocationCallbacks() HostAllocationCallbacks {
	return HostAllocationCallbacks{
		Allocate: func(size int) []byte {
			return make([]byte, size)
		},
		Reallocate: func(old []byte, newSize int) []byte {
			buf := make([]byte, newSize)
			copy(buf, old)
			return buf
		},
		Free: func(buf []byte) {},
	}
}

// ErrorReportCallbacks is the injected error-report side channel. It
// is advisory: reporting never changes a return code. Report is given
// the call site (file, line, function) of the diagnostic.
type ErrorReportCallbacks struct {
	Report func(message, file string, line int, function string)
}

// DefaultErrorReportCallbacks formats diagnostics to stderr as
// "file:line - function: message".
func DefaultErrorReportCallbacks() ErrorReportCallbacks {
	return ErrorReportCallbacks{
		Report: func(message, file string, line int, function string) {
			fmt.Fprintf(os.Stderr, "%s:%d - %s: %s\n", file, line, function, message)
		},
	}
}

// reportf captures the caller's (file, line, function) at depth
// (1 = direct caller of reportf) and invokes the error-report callback
// with a formatted message. Every detectable misuse and every failure
// funnels through this single call site.
func reportf(cb ErrorReportCallbacks, depth int, format string, args ...any) {
	if cb.Report == nil {
		return
	}
	pc, file, line, ok := runtime.Caller(depth)
	function := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()
		}
	} else {
		file = "unknown"
	}
	cb.Report(fmt.Sprintf(format, args...), file, line, function)
}
