package hooks

import (
	"log/slog"

	"github.com/chainer-ci/devmem/memhook"
)

// DebugPrintHook logs one line per hook callback with the event's
// attributes as structured fields. Pointers and handle IDs are logged
// as-is, so a 0 value marks a failed allocation.
type DebugPrintHook struct {
	memhook.BaseHook
	log *slog.Logger
}

// NewDebugPrintHook creates a hook logging to logger, or to slog.Default()
// when logger is nil.
func NewDebugPrintHook(logger *slog.Logger) *DebugPrintHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugPrintHook{log: logger}
}

// Name implements memhook.Hook.
func (h *DebugPrintHook) Name() string { return "debug-print" }

func (h *DebugPrintHook) AllocPreprocess(ev memhook.AllocEvent) error {
	h.log.Info("alloc_preprocess",
		"device_id", ev.DeviceID, "mem_size", ev.Rounded)
	return nil
}

func (h *DebugPrintHook) AllocPostprocess(ev memhook.AllocEvent) error {
	h.log.Info("alloc_postprocess",
		"device_id", ev.DeviceID, "mem_size", ev.Rounded, "mem_ptr", ev.Ptr)
	return nil
}

func (h *DebugPrintHook) MallocPreprocess(ev memhook.MallocEvent) error {
	h.log.Info("malloc_preprocess",
		"device_id", ev.DeviceID, "size", ev.Size, "mem_size", ev.Rounded)
	return nil
}

func (h *DebugPrintHook) MallocPostprocess(ev memhook.MallocEvent) error {
	h.log.Info("malloc_postprocess",
		"device_id", ev.DeviceID, "size", ev.Size, "mem_size", ev.Rounded,
		"mem_ptr", ev.Ptr, "pmem_id", ev.PooledID)
	return nil
}

func (h *DebugPrintHook) FreePreprocess(ev memhook.FreeEvent) error {
	h.log.Info("free_preprocess",
		"device_id", ev.DeviceID, "mem_size", ev.Size,
		"mem_ptr", ev.Ptr, "pmem_id", ev.PooledID)
	return nil
}

func (h *DebugPrintHook) FreePostprocess(ev memhook.FreeEvent) error {
	h.log.Info("free_postprocess",
		"device_id", ev.DeviceID, "mem_size", ev.Size,
		"mem_ptr", ev.Ptr, "pmem_id", ev.PooledID)
	return nil
}
