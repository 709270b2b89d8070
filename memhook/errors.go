package memhook

import "errors"

var (
	// ErrDuplicateHook indicates a hook with the same name is already
	// registered on the current goroutine.
	ErrDuplicateHook = errors.New("memhook: hook already registered")

	// ErrHookNotFound indicates no hook with the given name is registered
	// on the current goroutine.
	ErrHookNotFound = errors.New("memhook: hook not registered")
)
