package pool

// Block is a contiguous span of device memory as the allocator sees it:
// a raw pointer and the rounded size it was reserved with.
type Block struct {
	Ptr  uintptr
	Size int64
}

// PooledMemory is the handle returned by HookedPool.Malloc. Ptr is zeroed
// when the handle is released, which is what makes a second Free a no-op.
type PooledMemory struct {
	// ID uniquely identifies this handle within its pool. IDs start at 1;
	// 0 is the sentinel reported to hooks when an acquire fails.
	ID uint64

	// DeviceID is the device the memory lives on.
	DeviceID int

	// Size is the byte size originally requested.
	Size int64

	// Rounded is the byte size actually reserved, after rounding.
	Rounded int64

	// Ptr is the block's raw pointer, 0 once the handle has been freed.
	Ptr uintptr
}

// Allocator is the collaborator contract HookedPool wraps. It is the
// uninstrumented pool: it decides rounding, caching, and device access,
// and knows nothing about hooks.
//
// DevicePool is the reference implementation.
type Allocator interface {
	// RoundSize applies the allocator's rounding policy to a requested
	// byte size. Rounding must be idempotent.
	RoundSize(requested int64) int64

	// FindCachedBlock returns a cached free block of exactly the rounded
	// size, or ok=false if the cache has none.
	FindCachedBlock(rounded int64) (blk Block, ok bool)

	// AllocateFromDevice reserves rounded bytes directly from the device.
	// It fails with an error wrapping ErrOutOfMemory on exhaustion.
	AllocateFromDevice(deviceID int, rounded int64) (uintptr, error)

	// ReleaseBlockToPool pushes a block back onto the cache free list.
	ReleaseBlockToPool(blk Block)
}
