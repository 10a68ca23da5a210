package vkalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func twoTypeProps() MemoryProperties {
	return MemoryProperties{
		MemoryTypes: []MemoryType{
			{PropertyFlags: vk.MemoryPropertyDeviceLocalBit, HeapIndex: 0},
			{PropertyFlags: vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit, HeapIndex: 1},
		},
		MemoryHeaps: []MemoryHeap{
			{Size: 256 << 20},
			{Size: 64 << 20},
		},
	}
}

func TestFindMemoryTypePrefersRequestedFlags(t *testing.T) {
	props := twoTypeProps()

	index, ok := props.findMemoryType(0b11, vk.MemoryPropertyHostVisibleBit, 0)
	require.True(t, ok)
	assert.EqualValues(t, 1, index)
}

func TestFindMemoryTypeRequiresAllDesiredFlags(t *testing.T) {
	props := twoTypeProps()

	_, ok := props.findMemoryType(0b01, vk.MemoryPropertyHostVisibleBit, 0)
	assert.False(t, ok, "type 0 lacks HOST_VISIBLE and must not be selected")
}

func TestFindMemoryTypeRespectsAllowedTypeBits(t *testing.T) {
	props := twoTypeProps()

	index, ok := props.findMemoryType(0b10, 0, 0)
	require.True(t, ok)
	assert.EqualValues(t, 1, index)
}

func TestFindMemoryTypeNoCandidates(t *testing.T) {
	props := twoTypeProps()

	_, ok := props.findMemoryType(0, 0, 0)
	assert.False(t, ok)
}

func TestFindMemoryTypeBreaksTiesTowardLargerHeap(t *testing.T) {
	props := MemoryProperties{
		MemoryTypes: []MemoryType{
			{PropertyFlags: vk.MemoryPropertyDeviceLocalBit, HeapIndex: 0},
			{PropertyFlags: vk.MemoryPropertyDeviceLocalBit, HeapIndex: 1},
		},
		MemoryHeaps: []MemoryHeap{
			{Size: 1 << 20},
			{Size: 8 << 20},
		},
	}

	index, ok := props.findMemoryType(0b11, vk.MemoryPropertyDeviceLocalBit, 0)
	require.True(t, ok)
	assert.EqualValues(t, 1, index)
}

func TestIsHostVisible(t *testing.T) {
	props := twoTypeProps()

	assert.False(t, props.isHostVisible(0))
	assert.True(t, props.isHostVisible(1))
	assert.False(t, props.isHostVisible(99))
}
