package hooks

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chainer-ci/devmem/memhook"
)

// MetricsHook exports pool traffic as Prometheus metrics, labeled by
// device. Counters only move on postprocess callbacks with a non-zero
// pointer, so failed acquires surface in devmem_malloc_failures_total
// rather than inflating the byte counters.
type MetricsHook struct {
	memhook.BaseHook

	mallocs        *prometheus.CounterVec
	mallocFailures *prometheus.CounterVec
	frees          *prometheus.CounterVec
	deviceAllocs   *prometheus.CounterVec
	allocatedBytes *prometheus.CounterVec
	deviceBytes    *prometheus.CounterVec
	inUseBytes     *prometheus.GaugeVec
}

// NewMetricsHook creates the hook and registers its collectors on reg
// (prometheus.DefaultRegisterer when nil). Registering two MetricsHooks
// on the same registerer panics, as usual for duplicate collectors.
func NewMetricsHook(reg prometheus.Registerer) *MetricsHook {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"device_id"}
	h := &MetricsHook{
		mallocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devmem_mallocs_total",
			Help: "Pool acquires that returned memory",
		}, labels),
		mallocFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devmem_malloc_failures_total",
			Help: "Pool acquires that failed",
		}, labels),
		frees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devmem_frees_total",
			Help: "Pool releases",
		}, labels),
		deviceAllocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devmem_device_allocs_total",
			Help: "True device allocations (pool cache misses)",
		}, labels),
		allocatedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devmem_allocated_bytes_total",
			Help: "Rounded bytes acquired from the pool",
		}, labels),
		deviceBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devmem_device_bytes_total",
			Help: "Rounded bytes reserved from the device",
		}, labels),
		inUseBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "devmem_in_use_bytes",
			Help: "Bytes acquired and not yet released",
		}, labels),
	}
	reg.MustRegister(h.mallocs, h.mallocFailures, h.frees, h.deviceAllocs,
		h.allocatedBytes, h.deviceBytes, h.inUseBytes)
	return h
}

// Name implements memhook.Hook.
func (h *MetricsHook) Name() string { return "metrics" }

func device(id int) string { return strconv.Itoa(id) }

func (h *MetricsHook) AllocPostprocess(ev memhook.AllocEvent) error {
	if ev.Ptr != 0 {
		d := device(ev.DeviceID)
		h.deviceAllocs.WithLabelValues(d).Inc()
		h.deviceBytes.WithLabelValues(d).Add(float64(ev.Rounded))
	}
	return nil
}

func (h *MetricsHook) MallocPostprocess(ev memhook.MallocEvent) error {
	d := device(ev.DeviceID)
	if ev.Ptr == 0 {
		h.mallocFailures.WithLabelValues(d).Inc()
		return nil
	}
	h.mallocs.WithLabelValues(d).Inc()
	h.allocatedBytes.WithLabelValues(d).Add(float64(ev.Rounded))
	h.inUseBytes.WithLabelValues(d).Add(float64(ev.Rounded))
	return nil
}

func (h *MetricsHook) FreePostprocess(ev memhook.FreeEvent) error {
	d := device(ev.DeviceID)
	h.frees.WithLabelValues(d).Inc()
	h.inUseBytes.WithLabelValues(d).Sub(float64(ev.Size))
	return nil
}
