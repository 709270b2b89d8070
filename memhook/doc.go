// Package memhook provides observation hooks for device-memory pool
// allocators.
//
// # Overview
//
// A Hook is a named observer that is invoked before and after memory is
// allocated from a device, acquired from a memory pool, and released back
// to a memory pool. Hooks do not allocate memory themselves and cannot
// alter the allocation; they only observe it. Typical hooks log allocation
// traffic, profile allocation sites, or export pool metrics.
//
// # Hook contract
//
// A Hook exposes six callbacks. Embedding BaseHook gives no-op defaults,
// so a concrete hook only overrides the callbacks it cares about:
//
//   - AllocPreprocess / AllocPostprocess: around a true device allocation
//   - MallocPreprocess / MallocPostprocess: around a pool acquire
//   - FreePreprocess / FreePostprocess: around a pool release
//
// The pool-facing side of this contract lives in the pool package. Its
// acquire path works like this (note that the device callbacks are skipped
// entirely when a cached block satisfies the request):
//
//	func Malloc(size):
//	    call MallocPreprocess of every registered hook
//	    look for a cached free block in the pool
//	    if no cached block was found:
//	        call AllocPreprocess of every registered hook
//	        allocate from the device
//	        call AllocPostprocess of every registered hook
//	    call MallocPostprocess of every registered hook
//
//	func Free(handle):
//	    call FreePreprocess of every registered hook
//	    push the block back onto the pool free list
//	    call FreePostprocess of every registered hook
//
// # Registration
//
// Hooks are registered per goroutine. Each goroutine owns one Registry,
// created lazily by CurrentRegistry, and allocator calls made on that
// goroutine fan out to the hooks in that registry only, in registration
// order. Hooks registered on one goroutine are invisible to every other
// goroutine; no locking is needed to use a registry.
//
// The supported registration form is scoped:
//
//	hook := hooks.NewDebugPrintHook(logger)
//	err := memhook.With(hook, func() error {
//	    // every pool operation on this goroutine is observed by hook
//	    return doWork(pool)
//	})
//
// With guarantees the hook is unregistered on every exit path, including a
// panic inside the block. Register and Unregister are also available for
// callers that manage scope themselves.
//
// # Failure semantics
//
// Hooks are trusted instrumentation, not sandboxed plugins. An error
// returned by a callback is not swallowed: it aborts the remaining fan-out
// and the enclosing pool operation, and propagates to the caller.
package memhook
