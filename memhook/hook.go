package memhook

// AllocEvent describes a true device allocation, one that bypasses the
// pool cache and reserves memory directly from the device.
type AllocEvent struct {
	// DeviceID is the device the memory is reserved on.
	DeviceID int

	// Rounded is the allocation size in bytes after the allocator's
	// rounding policy has been applied.
	Rounded int64

	// Ptr is the raw pointer returned by the device. It is only set on
	// the postprocess callback, and is 0 if the allocation failed.
	Ptr uintptr
}

// MallocEvent describes a pool acquire.
type MallocEvent struct {
	// DeviceID is the device the pool serves.
	DeviceID int

	// Size is the byte size originally requested by the caller.
	Size int64

	// Rounded is the byte size after the allocator's rounding policy.
	Rounded int64

	// Ptr is the pointer of the acquired block. Only set on the
	// postprocess callback; 0 if the acquire failed.
	Ptr uintptr

	// PooledID identifies the pooled-memory handle. Only set on the
	// postprocess callback; 0 if the acquire failed.
	PooledID uint64
}

// FreeEvent describes a pool release.
type FreeEvent struct {
	// DeviceID is the device the pool serves.
	DeviceID int

	// Size is the rounded byte size of the block being released.
	Size int64

	// Ptr is the pointer being released.
	Ptr uintptr

	// PooledID identifies the pooled-memory handle being released.
	PooledID uint64
}

// Hook is a named allocation observer.
//
// Name is the hook's identity within a registry: two hooks with the same
// name cannot be active on the same goroutine at the same time.
//
// Each callback may return an error. Errors are not recovered by the
// allocator facade; see the package documentation for the abort semantics.
type Hook interface {
	// Name returns the hook's registration identity.
	Name() string

	// AllocPreprocess is invoked before memory is allocated from the device.
	AllocPreprocess(ev AllocEvent) error

	// AllocPostprocess is invoked after memory is allocated from the device.
	AllocPostprocess(ev AllocEvent) error

	// MallocPreprocess is invoked before memory is acquired from the pool.
	MallocPreprocess(ev MallocEvent) error

	// MallocPostprocess is invoked after memory is acquired from the pool.
	MallocPostprocess(ev MallocEvent) error

	// FreePreprocess is invoked before memory is released to the pool.
	FreePreprocess(ev FreeEvent) error

	// FreePostprocess is invoked after memory is released to the pool.
	FreePostprocess(ev FreeEvent) error
}

// BaseHook provides no-op implementations of every Hook callback except
// Name. Embed it so a concrete hook only has to implement Name and the
// callbacks it actually observes.
type BaseHook struct{}

func (BaseHook) AllocPreprocess(AllocEvent) error    { return nil }
func (BaseHook) AllocPostprocess(AllocEvent) error   { return nil }
func (BaseHook) MallocPreprocess(MallocEvent) error  { return nil }
func (BaseHook) MallocPostprocess(MallocEvent) error { return nil }
func (BaseHook) FreePreprocess(FreeEvent) error      { return nil }
func (BaseHook) FreePostprocess(FreeEvent) error     { return nil }
