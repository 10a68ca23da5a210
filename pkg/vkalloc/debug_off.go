//go:build !vkallocdebug

package vkalloc

// recordAllocSite, clearAllocSite, lookupAllocSite and forgetPool are
// no-ops outside vkallocdebug builds; see debug.go for the
// instrumented versions.
func recordAllocSite(pool *Pool, offset uint64, skip int) {}
func clearAllocSite(pool *Pool, offset uint64)            {}
func forgetPool(pool *Pool)                               {}

func lookupAllocSite(pool *Pool, offset uint64) (file string, line int, ok bool) {
	return "", 0, false
}
