// Package pool provides a cached device-memory pool and the hook-invoking
// facade that instruments it.
//
// # Overview
//
// The package has two halves:
//
// HookedPool wraps any Allocator with the memhook notification protocol.
// Every acquire and release made through it fans out pre- and
// post-callbacks to the hooks registered on the calling goroutine, in
// registration order. The facade holds no memory of its own; it only
// brackets the allocator's work with notifications.
//
// DevicePool is a reference Allocator for a simulated device. It rounds
// sizes to a 512-byte allocation unit, caches released blocks on
// size-keyed free lists, and hands out real addresses backed by an
// anonymous memory mapping, so callers can read and write the blocks they
// acquire.
//
// # Usage
//
//	dev, err := pool.NewDevicePool(0, 64<<20)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	p := pool.NewHookedPool(0, dev)
//	pm, err := p.Malloc(4096)
//	if err != nil {
//	    return err
//	}
//	// use dev.Slice(pool.Block{Ptr: pm.Ptr, Size: pm.Rounded}) ...
//	err = p.Free(pm)
//
// # Cache-hit asymmetry
//
// On an acquire that is satisfied from the free-list cache, only the
// malloc callbacks fire. The device callbacks (AllocPreprocess,
// AllocPostprocess) fire exactly when the pool had to reserve new memory
// from the device. This asymmetry is part of the observable contract:
// hooks can distinguish cache hits from true device traffic.
//
// # Thread safety
//
// DevicePool is safe for concurrent use. HookedPool is stateless apart
// from a handle counter and may be shared freely; the hooks it invokes are
// always those of the calling goroutine.
package pool
