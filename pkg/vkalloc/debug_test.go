//go:build vkallocdebug

package vkalloc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocSiteRoundTrip(t *testing.T) {
	pool := &Pool{}
	recordAllocSite(pool, 128, 0)

	file, line, ok := lookupAllocSite(pool, 128)
	require.True(t, ok)
	require.NotEmpty(t, file)
	require.Positive(t, line)

	clearAllocSite(pool, 128)
	_, _, ok = lookupAllocSite(pool, 128)
	require.False(t, ok)
}

func TestAllocSiteForgetPoolDropsAllOffsets(t *testing.T) {
	pool := &Pool{}
	recordAllocSite(pool, 0, 0)
	recordAllocSite(pool, 64, 0)

	forgetPool(pool)

	_, _, ok := lookupAllocSite(pool, 0)
	assert.False(t, ok)
	_, _, ok = lookupAllocSite(pool, 64)
	assert.False(t, ok)
}

func TestDestroyReportsAllocSiteForLeakedChunk(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20, func(cfg *AllocatorConfig) {
		cfg.DebugAllocationTracking = true
	})

	var messages []string
	a.errorCB.Report = func(message, file string, line int, function string) {
		messages = append(messages, message)
	}

	_, err := a.Allocate(deviceLocalRequest(256))
	require.NoError(t, err)

	a.Destroy()

	found := false
	for _, m := range messages {
		if strings.Contains(m, "still in use") && strings.Contains(m, ".go:") {
			found = true
		}
	}
	assert.True(t, found, "Destroy should report the call site of a still-used chunk: %v", messages)
}
