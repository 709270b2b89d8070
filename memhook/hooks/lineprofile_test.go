package hooks_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainer-ci/devmem/memhook"
	"github.com/chainer-ci/devmem/memhook/hooks"
	"github.com/chainer-ci/devmem/pool"
)

func newTestPool(t *testing.T) *pool.HookedPool {
	t.Helper()
	dev, err := pool.NewDevicePool(0, 1<<20)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, dev.Close()) })
	return pool.NewHookedPool(0, dev)
}

func Test_LineProfileAggregation(t *testing.T) {
	p := newTestPool(t)
	profile := hooks.NewLineProfileHook()

	err := memhook.With(profile, func() error {
		var pms []*pool.PooledMemory
		for i := 0; i < 3; i++ {
			pm, err := p.Malloc(1000) // one site, three acquires
			require.NoError(t, err)
			pms = append(pms, pm)
		}
		require.NoError(t, p.Free(pms[0]))

		pm, err := p.Malloc(1000) // separate site, served from cache
		require.NoError(t, err)
		require.NotNil(t, pm)
		return nil
	})
	require.NoError(t, err)

	sites := profile.Snapshot()
	require.Len(t, sites, 2)

	// Largest byte total first: the loop site.
	loop := sites[0]
	require.Contains(t, loop.Site, "lineprofile_test.go")
	require.Equal(t, int64(3), loop.Mallocs)
	require.Equal(t, int64(3*1024), loop.Bytes)
	require.Equal(t, int64(3*1024), loop.DeviceBytes, "all three loop acquires missed the cache")

	hit := sites[1]
	require.Equal(t, int64(1), hit.Mallocs)
	require.Equal(t, int64(1024), hit.Bytes)
	require.Zero(t, hit.DeviceBytes, "the cache hit reserved nothing from the device")

	// 3 live after the loop, one freed, one reacquired from cache.
	require.Equal(t, int64(3*1024), profile.PeakBytes())
}

func Test_LineProfileSkipsFailedAcquire(t *testing.T) {
	dev, err := pool.NewDevicePool(0, 1024)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, dev.Close()) })
	p := pool.NewHookedPool(0, dev)

	profile := hooks.NewLineProfileHook()
	err = memhook.With(profile, func() error {
		_, err := p.Malloc(4096)
		require.ErrorIs(t, err, pool.ErrOutOfMemory)
		return nil
	})
	require.NoError(t, err)

	sites := profile.Snapshot()
	require.Len(t, sites, 1, "the attempt itself is recorded")
	require.Zero(t, sites[0].DeviceBytes, "a failed device alloc adds no device bytes")
	require.Zero(t, profile.PeakBytes(), "nothing was ever in use")
}

func Test_LineProfileReport(t *testing.T) {
	p := newTestPool(t)
	profile := hooks.NewLineProfileHook()

	err := memhook.With(profile, func() error {
		pm, err := p.Malloc(2048)
		require.NoError(t, err)
		return p.Free(pm)
	})
	require.NoError(t, err)

	var out strings.Builder
	profile.Report(&out)
	report := out.String()

	require.Contains(t, report, "Mallocs")
	require.Contains(t, report, "2.00 KB")
	require.Contains(t, report, "Peak in-use: 2.00 KB")
}
