package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global flags
	cfgFile  string
	deviceID int
	capacity int64
)

var rootCmd = &cobra.Command{
	Use:   "memtrace",
	Short: "Trace and profile device-memory pool allocations",
	Long: `memtrace runs allocation workloads against an instrumented device-memory
pool and reports what the registered memory hooks observed: per-site
allocation profiles, debug traces of every pool operation, and Prometheus
metrics.

The pool is a simulated device: sizes are rounded to a 512-byte unit,
released blocks are cached on free lists, and cache hits bypass the
device entirely.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.memtrace.yaml)")
	rootCmd.PersistentFlags().IntVar(&deviceID, "device", 0,
		"device ID the pool serves")
	rootCmd.PersistentFlags().Int64Var(&capacity, "capacity", 64<<20,
		"device capacity in bytes")
}

// initConfig reads defaults from the config file and DEVMEM_* environment
// variables. Explicit flags always win.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".memtrace")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetEnvPrefix("DEVMEM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if !rootCmd.PersistentFlags().Changed("device") && viper.IsSet("device") {
			deviceID = viper.GetInt("device")
		}
		if !rootCmd.PersistentFlags().Changed("capacity") && viper.IsSet("capacity") {
			capacity = viper.GetInt64("capacity")
		}
	}
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
