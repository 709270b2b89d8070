package memhook

import (
	"fmt"
	"sync"
)

// Registry holds the hooks active on one goroutine, in registration order.
//
// A Registry is owned by the goroutine it was created on. All methods must
// be called from that goroutine; because no other goroutine can see the
// registry, the methods take no locks. The process-wide table mapping
// goroutine IDs to registries is the only shared state, and it is only
// touched by CurrentRegistry.
type Registry struct {
	hooks []Hook
}

var (
	registriesMu sync.Mutex
	registries   = make(map[int64]*Registry)
)

// CurrentRegistry returns the calling goroutine's hook registry, creating
// an empty one on first call. The registry persists for the life of the
// process, mirroring a thread-local: a goroutine that registered hooks
// once keeps its (usually empty) registry afterwards.
func CurrentRegistry() *Registry {
	id := goid()
	registriesMu.Lock()
	defer registriesMu.Unlock()
	r := registries[id]
	if r == nil {
		r = &Registry{}
		registries[id] = r
	}
	return r
}

// Register adds h under its name and returns h for chaining. It fails
// with ErrDuplicateHook if a hook with the same name is already active,
// leaving the registry unchanged.
func (r *Registry) Register(h Hook) (Hook, error) {
	name := h.Name()
	for _, g := range r.hooks {
		if g.Name() == name {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateHook, name)
		}
	}
	r.hooks = append(r.hooks, h)
	return h, nil
}

// Unregister removes the hook registered under name. It fails with
// ErrHookNotFound if no such hook is active, leaving the registry
// unchanged.
func (r *Registry) Unregister(name string) error {
	for i, g := range r.hooks {
		if g.Name() == name {
			r.hooks = append(r.hooks[:i], r.hooks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrHookNotFound, name)
}

// Hooks returns the active hooks in registration order. The returned
// slice is a snapshot: a hook that registers or unregisters hooks from
// inside a callback changes later fan-outs, never one already in flight.
func (r *Registry) Hooks() []Hook {
	if len(r.hooks) == 0 {
		return nil
	}
	out := make([]Hook, len(r.hooks))
	copy(out, r.hooks)
	return out
}

// Len returns the number of active hooks.
func (r *Registry) Len() int { return len(r.hooks) }

// Register adds h to the calling goroutine's registry.
func Register(h Hook) (Hook, error) {
	return CurrentRegistry().Register(h)
}

// Unregister removes the named hook from the calling goroutine's registry.
func Unregister(name string) error {
	return CurrentRegistry().Unregister(name)
}

// With registers h on the calling goroutine, runs fn, and unregisters h
// again on every exit path, including a panic inside fn. It returns fn's
// error, or the registration error if h could not be registered.
func With(h Hook, fn func() error) (err error) {
	r := CurrentRegistry()
	if _, err = r.Register(h); err != nil {
		return err
	}
	defer func() {
		uerr := r.Unregister(h.Name())
		if err == nil {
			err = uerr
		}
	}()
	return fn()
}
