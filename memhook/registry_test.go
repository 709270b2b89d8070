package memhook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// namedHook is a minimal no-op hook with a fixed name.
type namedHook struct {
	BaseHook
	name string
}

func (h *namedHook) Name() string { return h.name }

// drain empties the current goroutine's registry so tests that share a
// goroutine start clean.
func drain(t *testing.T) {
	t.Helper()
	r := CurrentRegistry()
	for _, h := range r.Hooks() {
		require.NoError(t, r.Unregister(h.Name()))
	}
}

func Test_CurrentRegistryLazyInit(t *testing.T) {
	drain(t)

	r := CurrentRegistry()
	require.NotNil(t, r)
	require.Zero(t, r.Len(), "fresh registry should be empty")

	// Same goroutine gets the same registry back.
	require.Same(t, r, CurrentRegistry())
}

func Test_RegisterReturnsHookForChaining(t *testing.T) {
	drain(t)

	h := &namedHook{name: "logger"}
	got, err := Register(h)
	require.NoError(t, err)
	require.Same(t, h, got)
	require.NoError(t, Unregister("logger"))
}

func Test_RegisterDuplicateName(t *testing.T) {
	drain(t)

	first := &namedHook{name: "logger"}
	_, err := Register(first)
	require.NoError(t, err)

	_, err = Register(&namedHook{name: "logger"})
	require.ErrorIs(t, err, ErrDuplicateHook)

	// The first registration stays active and unaffected.
	hooks := CurrentRegistry().Hooks()
	require.Len(t, hooks, 1)
	require.Same(t, first, hooks[0])

	require.NoError(t, Unregister("logger"))
}

func Test_UnregisterMissingName(t *testing.T) {
	drain(t)

	h := &namedHook{name: "present"}
	_, err := Register(h)
	require.NoError(t, err)

	err = Unregister("absent")
	require.ErrorIs(t, err, ErrHookNotFound)

	// Registry unchanged by the failed unregister.
	hooks := CurrentRegistry().Hooks()
	require.Len(t, hooks, 1)
	require.Same(t, h, hooks[0])

	require.NoError(t, Unregister("present"))
}

func Test_HooksSnapshotOrder(t *testing.T) {
	drain(t)

	names := []string{"first", "second", "third"}
	for _, n := range names {
		_, err := Register(&namedHook{name: n})
		require.NoError(t, err)
	}

	hooks := CurrentRegistry().Hooks()
	require.Len(t, hooks, len(names))
	for i, h := range hooks {
		require.Equal(t, names[i], h.Name(), "fan-out order must match registration order")
	}

	// Removing the middle entry keeps the remaining order.
	require.NoError(t, Unregister("second"))
	hooks = CurrentRegistry().Hooks()
	require.Len(t, hooks, 2)
	require.Equal(t, "first", hooks[0].Name())
	require.Equal(t, "third", hooks[1].Name())

	drain(t)
}

func Test_HooksSnapshotIsolatedFromMutation(t *testing.T) {
	drain(t)

	_, err := Register(&namedHook{name: "a"})
	require.NoError(t, err)

	snap := CurrentRegistry().Hooks()
	_, err = Register(&namedHook{name: "b"})
	require.NoError(t, err)

	require.Len(t, snap, 1, "snapshot must not see later registrations")
	require.Equal(t, 2, CurrentRegistry().Len())

	drain(t)
}

func Test_WithScopedRegistration(t *testing.T) {
	drain(t)

	h := &namedHook{name: "scoped"}
	err := With(h, func() error {
		hooks := CurrentRegistry().Hooks()
		require.Len(t, hooks, 1)
		require.Same(t, h, hooks[0])
		return nil
	})
	require.NoError(t, err)
	require.Zero(t, CurrentRegistry().Len(), "hook must be gone after the scope")
}

func Test_WithUnregistersOnError(t *testing.T) {
	drain(t)

	boom := errors.New("workload failed")
	err := With(&namedHook{name: "scoped"}, func() error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, CurrentRegistry().Len(), "hook must be gone after a failing scope")
}

func Test_WithUnregistersOnPanic(t *testing.T) {
	drain(t)

	require.PanicsWithValue(t, "workload panicked", func() {
		_ = With(&namedHook{name: "scoped"}, func() error {
			panic("workload panicked")
		})
	})
	require.Zero(t, CurrentRegistry().Len(), "hook must be gone after a panicking scope")
}

func Test_WithRejectsDuplicate(t *testing.T) {
	drain(t)

	outer := &namedHook{name: "same"}
	err := With(outer, func() error {
		inner := With(&namedHook{name: "same"}, func() error {
			t.Fatal("inner scope must not run")
			return nil
		})
		require.ErrorIs(t, inner, ErrDuplicateHook)

		// Outer hook still active after the failed inner registration.
		hooks := CurrentRegistry().Hooks()
		require.Len(t, hooks, 1)
		require.Same(t, outer, hooks[0])
		return nil
	})
	require.NoError(t, err)
	require.Zero(t, CurrentRegistry().Len())
}

func Test_GoroutineIsolation(t *testing.T) {
	drain(t)

	_, err := Register(&namedHook{name: "local"})
	require.NoError(t, err)
	defer func() { require.NoError(t, Unregister("local")) }()

	type result struct {
		sawLocal bool
		ownLen   int
	}
	done := make(chan result)
	go func() {
		r := CurrentRegistry()
		saw := false
		for _, h := range r.Hooks() {
			if h.Name() == "local" {
				saw = true
			}
		}
		// Register something of our own; it must not leak back.
		_, _ = r.Register(&namedHook{name: "remote"})
		done <- result{sawLocal: saw, ownLen: r.Len()}
	}()
	res := <-done

	require.False(t, res.sawLocal, "hooks must be invisible across goroutines")
	require.Equal(t, 1, res.ownLen)

	// The other goroutine's hook is invisible here.
	hooks := CurrentRegistry().Hooks()
	require.Len(t, hooks, 1)
	require.Equal(t, "local", hooks[0].Name())
}
