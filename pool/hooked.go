package pool

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/chainer-ci/devmem/memhook"
)

// HookedPool wraps an Allocator with the memhook notification protocol.
// See the package documentation for the callback ordering it guarantees.
type HookedPool struct {
	device int
	mem    Allocator
	lastID atomic.Uint64
}

// NewHookedPool returns a facade over mem for the given device.
func NewHookedPool(deviceID int, mem Allocator) *HookedPool {
	return &HookedPool{device: deviceID, mem: mem}
}

// DeviceID returns the device this pool serves.
func (p *HookedPool) DeviceID() int { return p.device }

// hookErr wraps a callback failure with the hook's identity and the phase
// it failed in. The hook's own error stays visible to errors.Is/As.
func hookErr(h memhook.Hook, phase string, err error) error {
	return fmt.Errorf("pool: hook %q: %s: %w", h.Name(), phase, err)
}

// snapshot returns the calling goroutine's hooks for one fan-out phase.
// Each phase takes its own snapshot, so registry mutations made by a
// callback affect the next phase, never the one in flight.
func snapshot() []memhook.Hook {
	return memhook.CurrentRegistry().Hooks()
}

// Malloc acquires rounded-up memory from the pool, fanning out hook
// callbacks around each step.
//
// The callback sequence on a cache miss is MallocPreprocess,
// AllocPreprocess, AllocPostprocess, MallocPostprocess; on a cache hit the
// two device callbacks are skipped. If the device is exhausted, the
// postprocess callbacks still run with zero sentinel pointer and handle
// values, and the device's error is returned afterwards.
//
// A callback error aborts the remaining fan-out and the operation; if a
// pre-callback fails, the underlying allocator is never invoked.
func (p *HookedPool) Malloc(size int64) (*PooledMemory, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	rounded := p.mem.RoundSize(size)

	mev := memhook.MallocEvent{DeviceID: p.device, Size: size, Rounded: rounded}
	for _, h := range snapshot() {
		if err := h.MallocPreprocess(mev); err != nil {
			return nil, hookErr(h, "malloc preprocess", err)
		}
	}

	blk, cached := p.mem.FindCachedBlock(rounded)
	var devErr error
	if !cached {
		aev := memhook.AllocEvent{DeviceID: p.device, Rounded: rounded}
		for _, h := range snapshot() {
			if err := h.AllocPreprocess(aev); err != nil {
				return nil, hookErr(h, "alloc preprocess", err)
			}
		}
		ptr, err := p.mem.AllocateFromDevice(p.device, rounded)
		if err != nil {
			devErr = err
			ptr = 0
		}
		aev.Ptr = ptr
		for _, h := range snapshot() {
			if herr := h.AllocPostprocess(aev); herr != nil {
				return nil, errors.Join(hookErr(h, "alloc postprocess", herr), devErr)
			}
		}
		blk = Block{Ptr: ptr, Size: rounded}
	}

	if devErr != nil {
		// Report the failure to the malloc postprocess callbacks with
		// sentinel attributes, then surface the device error.
		for _, h := range snapshot() {
			if herr := h.MallocPostprocess(mev); herr != nil {
				return nil, errors.Join(hookErr(h, "malloc postprocess", herr), devErr)
			}
		}
		return nil, devErr
	}

	pm := &PooledMemory{
		ID:       p.lastID.Add(1),
		DeviceID: p.device,
		Size:     size,
		Rounded:  rounded,
		Ptr:      blk.Ptr,
	}
	mev.Ptr = pm.Ptr
	mev.PooledID = pm.ID
	for _, h := range snapshot() {
		if err := h.MallocPostprocess(mev); err != nil {
			return nil, hookErr(h, "malloc postprocess", err)
		}
	}
	return pm, nil
}

// Free releases pm back to the pool cache, fanning out FreePreprocess and
// FreePostprocess around the release. Freeing a handle that was already
// freed is a no-op and invokes no hooks. A FreePreprocess error aborts the
// release; the handle stays live.
func (p *HookedPool) Free(pm *PooledMemory) error {
	if pm == nil || pm.Ptr == 0 {
		return nil
	}
	fev := memhook.FreeEvent{
		DeviceID: pm.DeviceID,
		Size:     pm.Rounded,
		Ptr:      pm.Ptr,
		PooledID: pm.ID,
	}
	for _, h := range snapshot() {
		if err := h.FreePreprocess(fev); err != nil {
			return hookErr(h, "free preprocess", err)
		}
	}
	p.mem.ReleaseBlockToPool(Block{Ptr: pm.Ptr, Size: pm.Rounded})
	pm.Ptr = 0
	for _, h := range snapshot() {
		if err := h.FreePostprocess(fev); err != nil {
			return hookErr(h, "free postprocess", err)
		}
	}
	return nil
}
