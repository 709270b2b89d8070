package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/chainer-ci/devmem/pool"
)

func init() {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show host memory and pool geometry",
		RunE:  runInfo,
	}
	rootCmd.AddCommand(cmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("read host memory: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append("Host memory total", fmt.Sprintf("%d B", vm.Total))
	table.Append("Host memory available", fmt.Sprintf("%d B", vm.Available))
	table.Append("Host memory used", fmt.Sprintf("%.1f%%", vm.UsedPercent))
	table.Append("Pool device", strconv.Itoa(deviceID))
	table.Append("Pool capacity", fmt.Sprintf("%d B", capacity))
	table.Append("Allocation unit", fmt.Sprintf("%d B", pool.AllocationUnit))
	table.Render()
	return nil
}
