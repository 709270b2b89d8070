package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/chainer-ci/devmem/memhook"
	"github.com/chainer-ci/devmem/memhook/hooks"
	"github.com/chainer-ci/devmem/pool"
)

var (
	serveListen   string
	serveInterval time.Duration
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose pool metrics while running a continuous workload",
		Long: `The serve command repeats the synthetic workload until interrupted and
serves the metrics hook's counters on /metrics.

Example:
  memtrace serve --listen :9109 --interval 2s`,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveListen, "listen", ":9109", "Metrics listen address")
	cmd.Flags().DurationVar(&serveInterval, "interval", 2*time.Second,
		"Pause between workload rounds")
	rootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dev, err := pool.NewDevicePool(deviceID, capacity)
	if err != nil {
		return err
	}
	defer dev.Close()
	p := pool.NewHookedPool(deviceID, dev)

	registry := prometheus.NewRegistry()
	metrics := hooks.NewMetricsHook(registry)

	// Hooks are goroutine-scoped, so the workload goroutine registers the
	// metrics hook on itself for as long as it runs.
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- memhook.With(metrics, func() error {
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			for {
				if _, _, err := runWorkload(p, 200, 64, 16384, rng); err != nil {
					return err
				}
				dev.FreeAllBlocks()
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(serveInterval):
				}
			}
		})
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: serveListen, Handler: mux}

	srvDone := make(chan error, 1)
	go func() { srvDone <- srv.ListenAndServe() }()
	fmt.Printf("serving metrics on %s/metrics\n", serveListen)

	select {
	case err := <-srvDone:
		stop()
		<-loopDone
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return <-loopDone
}
