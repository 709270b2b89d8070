package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainer-ci/devmem/memhook"
	"github.com/chainer-ci/devmem/memhook/hooks"
	"github.com/chainer-ci/devmem/pool"
)

var (
	runCount   int
	runMinSize int64
	runMaxSize int64
	runSeed    int64
	runDebug   bool
	runProfile bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic allocation workload under memory hooks",
		Long: `The run command allocates and frees random-sized blocks from an
instrumented pool. With --profile it prints a per-site allocation profile
afterwards; with --debug it traces every pool operation as it happens.

Example:
  memtrace run --count 1000 --max-size 65536 --profile`,
		RunE: runRun,
	}
	cmd.Flags().IntVar(&runCount, "count", 1000, "Number of allocations")
	cmd.Flags().Int64Var(&runMinSize, "min-size", 64, "Minimum allocation size in bytes")
	cmd.Flags().Int64Var(&runMaxSize, "max-size", 16384, "Maximum allocation size in bytes")
	cmd.Flags().Int64Var(&runSeed, "seed", 1, "Workload random seed")
	cmd.Flags().BoolVar(&runDebug, "debug", false, "Log every hook callback")
	cmd.Flags().BoolVar(&runProfile, "profile", true, "Print the per-site allocation profile")
	rootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runMinSize <= 0 || runMaxSize < runMinSize {
		return fmt.Errorf("invalid size range [%d, %d]", runMinSize, runMaxSize)
	}

	dev, err := pool.NewDevicePool(deviceID, capacity)
	if err != nil {
		return err
	}
	defer dev.Close()
	p := pool.NewHookedPool(deviceID, dev)

	profile := hooks.NewLineProfileHook()
	workload := func() error {
		mallocs, frees, err := runWorkload(p, runCount, runMinSize, runMaxSize,
			rand.New(rand.NewSource(runSeed)))
		if err != nil {
			return err
		}
		fmt.Printf("workload done: %d mallocs, %d frees\n", mallocs, frees)
		return nil
	}

	if runDebug {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		inner := workload
		workload = func() error {
			return memhook.With(hooks.NewDebugPrintHook(logger), inner)
		}
	}
	if err := memhook.With(profile, workload); err != nil {
		return err
	}

	if runProfile {
		fmt.Println()
		profile.Report(os.Stdout)
	}
	fmt.Printf("pool: used %d B, cached %d B, held %d B of %d B\n",
		dev.UsedBytes(), dev.FreeBytes(), dev.TotalBytes(), dev.Capacity())
	return nil
}

// runWorkload performs count acquires of random sizes in [minSize,
// maxSize], releasing a random live block after roughly every other
// acquire, and releases everything at the end. It reports how many
// acquires and releases it performed.
func runWorkload(p *pool.HookedPool, count int, minSize, maxSize int64, rng *rand.Rand) (mallocs, frees int, err error) {
	live := make([]*pool.PooledMemory, 0, count)
	for i := 0; i < count; i++ {
		size := minSize + rng.Int63n(maxSize-minSize+1)
		pm, err := p.Malloc(size)
		if err != nil {
			return mallocs, frees, fmt.Errorf("malloc %d bytes: %w", size, err)
		}
		mallocs++
		live = append(live, pm)

		if len(live) > 1 && rng.Intn(2) == 0 {
			j := rng.Intn(len(live))
			if err := p.Free(live[j]); err != nil {
				return mallocs, frees, err
			}
			frees++
			live = append(live[:j], live[j+1:]...)
		}
	}
	for _, pm := range live {
		if err := p.Free(pm); err != nil {
			return mallocs, frees, err
		}
		frees++
	}
	return mallocs, frees, nil
}
