package hooks

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/chainer-ci/devmem/memhook"
)

// instrumentationPackages are skipped when resolving the allocation site:
// the interesting frame is the first one outside the hook and pool
// machinery.
var instrumentationPackages = map[string]bool{
	"github.com/chainer-ci/devmem/memhook":       true,
	"github.com/chainer-ci/devmem/memhook/hooks": true,
	"github.com/chainer-ci/devmem/pool":          true,
}

// LineProfileHook aggregates pool traffic per allocation call site. For
// every acquire it records the first caller frame outside the allocator
// machinery and accumulates the rounded byte size there, along with the
// bytes that had to come from the device. It also tracks the in-use
// high-water mark across the profiled scope.
//
// The hook is safe to register on several goroutines at once; the
// aggregate then covers all of them.
type LineProfileHook struct {
	memhook.BaseHook

	mu      sync.Mutex
	sites   map[string]*siteStats
	current *siteStats // site of the acquire currently in flight
	inUse   int64
	peak    int64
}

type siteStats struct {
	site        string
	mallocs     int64
	bytes       int64
	deviceBytes int64
}

// NewLineProfileHook creates an empty profile.
func NewLineProfileHook() *LineProfileHook {
	return &LineProfileHook{sites: make(map[string]*siteStats)}
}

// Name implements memhook.Hook.
func (h *LineProfileHook) Name() string { return "line-profile" }

func (h *LineProfileHook) MallocPreprocess(ev memhook.MallocEvent) error {
	site := callerSite()
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.sites[site]
	if s == nil {
		s = &siteStats{site: site}
		h.sites[site] = s
	}
	s.mallocs++
	s.bytes += ev.Rounded
	h.current = s
	return nil
}

func (h *LineProfileHook) AllocPostprocess(ev memhook.AllocEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Ptr != 0 && h.current != nil {
		h.current.deviceBytes += ev.Rounded
	}
	return nil
}

func (h *LineProfileHook) MallocPostprocess(ev memhook.MallocEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
	if ev.Ptr == 0 {
		return nil
	}
	h.inUse += ev.Rounded
	if h.inUse > h.peak {
		h.peak = h.inUse
	}
	return nil
}

func (h *LineProfileHook) FreePostprocess(ev memhook.FreeEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inUse -= ev.Size
	return nil
}

// PeakBytes returns the in-use high-water mark observed so far.
func (h *LineProfileHook) PeakBytes() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peak
}

// SiteProfile is the aggregated traffic of one allocation call site.
type SiteProfile struct {
	// Site is the "file:line" of the pool call.
	Site string

	// Mallocs counts pool acquires issued from the site.
	Mallocs int64

	// Bytes is the rounded byte total requested from the site.
	Bytes int64

	// DeviceBytes is the portion of Bytes that missed the cache and was
	// reserved from the device.
	DeviceBytes int64
}

// Snapshot returns the per-site aggregates, largest byte total first.
func (h *LineProfileHook) Snapshot() []SiteProfile {
	h.mu.Lock()
	out := make([]SiteProfile, 0, len(h.sites))
	for _, s := range h.sites {
		out = append(out, SiteProfile{
			Site:        s.site,
			Mallocs:     s.mallocs,
			Bytes:       s.bytes,
			DeviceBytes: s.deviceBytes,
		})
	}
	h.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Site < out[j].Site
	})
	return out
}

// Report writes a table of per-site traffic to w, largest byte total
// first, followed by the peak in-use size.
func (h *LineProfileHook) Report(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.Header("Site", "Mallocs", "Bytes", "Device Bytes")
	for _, s := range h.Snapshot() {
		table.Append(
			s.Site,
			strconv.FormatInt(s.Mallocs, 10),
			humanBytes(s.Bytes),
			humanBytes(s.DeviceBytes),
		)
	}
	table.Render()
	fmt.Fprintf(w, "Peak in-use: %s\n", humanBytes(h.PeakBytes()))
}

// callerSite walks up the stack and returns "file:line" of the first
// frame that is not part of the allocator or hook packages.
func callerSite() string {
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !instrumentationPackages[packagePath(frame.Function)] {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			return "unknown"
		}
	}
}

// packagePath extracts the import path from a fully qualified function
// name like "example.com/pkg.(*T).Method".
func packagePath(fn string) string {
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return fn
	}
	return fn[:slash+1+dot]
}

func humanBytes(n int64) string {
	val := float64(n)
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for val >= 1024 && i < len(units)-1 {
		val /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f %s", val, units[i])
}
