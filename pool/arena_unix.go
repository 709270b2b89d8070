//go:build unix

package pool

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// arena is a fixed-size anonymous mapping standing in for device memory.
// Mapping instead of allocating on the Go heap keeps the arena out of the
// garbage collector's way and gives blocks stable addresses.
type arena struct {
	data []byte
}

func newArena(size int64) (*arena, error) {
	data, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &arena{data: data}, nil
}

func (a *arena) release() error {
	if a.data == nil {
		return nil
	}
	err := unix.Munmap(a.data)
	a.data = nil
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as a no-op for callers.
		return nil
	}
	return err
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
