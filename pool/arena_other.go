//go:build !unix

package pool

import "unsafe"

// arena falls back to a plain heap slice on platforms without anonymous
// mmap. The arena struct keeps the slice reachable, so the addresses stay
// valid for the pool's lifetime.
type arena struct {
	data []byte
}

func newArena(size int64) (*arena, error) {
	return &arena{data: make([]byte, size)}, nil
}

func (a *arena) release() error {
	a.data = nil
	return nil
}

func (a *arena) base() uintptr {
	return uintptr(unsafe.Pointer(&a.data[0]))
}

func (a *arena) ptr(off int64) uintptr {
	return uintptr(unsafe.Pointer(&a.data[off]))
}

func (a *arena) slice(ptr uintptr, size int64) []byte {
	off := int64(ptr - a.base())
	return a.data[off : off+size : off+size]
}
