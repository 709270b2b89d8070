package pool

import "errors"

var (
	// ErrOutOfMemory indicates the device cannot satisfy the allocation.
	ErrOutOfMemory = errors.New("pool: out of device memory")

	// ErrInvalidSize indicates a non-positive allocation size.
	ErrInvalidSize = errors.New("pool: allocation size must be positive")

	// ErrInvalidCapacity indicates a non-positive device capacity.
	ErrInvalidCapacity = errors.New("pool: device capacity must be positive")
)
