// Package main provides the vkallocstat CLI entry point.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	vk "github.com/vulkan-go/vulkan"

	"github.com/vulkanmem/vkalloc/pkg/vkalloc"
)

var (
	heapMiB     int
	poolMiB     int
	allocations int
	minSize     int
	maxSize     int
	seed        int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vkallocstat",
		Short: "Exercise the vkalloc sub-allocator against an in-memory driver",
		Long: `vkallocstat drives a vkalloc.Allocator against FakeDriver, a
GPU-free stand-in, and reports pool and chunk occupancy. It exists to
demonstrate allocator behavior without a physical Vulkan device.`,
		RunE: runStat,
	}

	rootCmd.Flags().IntVar(&heapMiB, "heap-mib", 64, "size of the simulated device-local heap, in MiB")
	rootCmd.Flags().IntVar(&poolMiB, "pool-mib", 4, "minimum pool size, in MiB")
	rootCmd.Flags().IntVar(&allocations, "allocations", 64, "number of allocate/free cycles to simulate")
	rootCmd.Flags().IntVar(&minSize, "min-size", 1<<10, "minimum allocation size, in bytes")
	rootCmd.Flags().IntVar(&maxSize, "max-size", 1<<18, "maximum allocation size, in bytes")
	rootCmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed for the allocation/free pattern")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStat(cmd *cobra.Command, args []string) error {
	driver := vkalloc.NewFakeDriver(
		vk.DeviceSize(heapMiB)<<20,
		vk.MemoryPropertyDeviceLocalBit,
	)

	allocator := vkalloc.NewAllocator(vkalloc.AllocatorConfig{
		Driver: driver,
		Policy: vkalloc.Policy{
			MinPoolSize: vk.DeviceSize(poolMiB) << 20,
		},
		ErrorReportCallbacks: vkalloc.ErrorReportCallbacks{
			Report: func(message, file string, line int, function string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "vkalloc: %s (%s:%d)\n", message, file, line)
			},
		},
	})
	defer allocator.Destroy()

	rng := rand.New(rand.NewSource(seed))
	var live []vkalloc.ChunkRef

	for i := 0; i < allocations; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			if err := allocator.Free(live[idx]); err != nil {
				return fmt.Errorf("free: %w", err)
			}
			live = append(live[:idx], live[idx+1:]...)
			continue
		}

		size := minSize + rng.Intn(maxSize-minSize+1)
		ref, err := allocator.Allocate(vkalloc.AllocateRequest{
			Size:            vk.DeviceSize(size),
			AllowedTypeBits: 1,
			Desired:         vk.MemoryPropertyDeviceLocalBit,
		})
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "allocation of %d bytes failed: %v\n", size, err)
			continue
		}
		live = append(live, ref)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pools: %d\n", allocator.PoolCount())
	fmt.Fprintf(cmd.OutOrStdout(), "live allocations: %d\n", len(live))

	allocator.ReleaseUnused()
	fmt.Fprintf(cmd.OutOrStdout(), "pools after release sweep: %d\n", allocator.PoolCount())

	return nil
}
