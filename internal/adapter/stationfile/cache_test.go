package stationfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/couchcryptid/airq-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingLoader struct {
	calls int
}

func (m *countingLoader) Load(_ string, _ domain.StationColumns) (domain.StationDirectory, error) {
	m.calls++
	return domain.StationDirectory{"A": {ID: "A"}}, nil
}

func writeStations(t *testing.T, path, data string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// --- CachedLoader tests ---

func TestCachedLoader_Hit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	writeStations(t, path, "id,latitude,longitude\n", time.Unix(1000, 0))

	inner := &countingLoader{}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedLoader(inner, 4, metrics)

	_, err := cached.Load(path, domain.StationColumns{})
	require.NoError(t, err)
	_, err = cached.Load(path, domain.StationColumns{})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationCache.WithLabelValues("miss")))
}

func TestCachedLoader_ReloadsModifiedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	writeStations(t, path, "id,latitude,longitude\n", time.Unix(1000, 0))

	inner := &countingLoader{}
	cached := NewCachedLoader(inner, 4, observability.NewMetricsForTesting())

	_, _ = cached.Load(path, domain.StationColumns{})
	writeStations(t, path, "id,latitude,longitude\nA,1,2\n", time.Unix(2000, 0))
	_, _ = cached.Load(path, domain.StationColumns{})

	assert.Equal(t, 2, inner.calls)
}

func TestCachedLoader_MissingFile(t *testing.T) {
	cached := NewCachedLoader(&countingLoader{}, 4, observability.NewMetricsForTesting())
	_, err := cached.Load(filepath.Join(t.TempDir(), "nope.csv"), domain.StationColumns{})
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestCachedLoader_EvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	c := filepath.Join(dir, "c.csv")
	for _, p := range []string{a, b, c} {
		writeStations(t, p, "id,latitude,longitude\n", time.Unix(1000, 0))
	}

	inner := &countingLoader{}
	cached := NewCachedLoader(inner, 2, observability.NewMetricsForTesting())
	load := func(path string) {
		t.Helper()
		_, err := cached.Load(path, domain.StationColumns{})
		require.NoError(t, err)
	}

	load(a)
	load(b)
	load(a) // a is now more recent than b
	load(c) // evicts b
	assert.Equal(t, 3, inner.calls)

	load(a)
	assert.Equal(t, 3, inner.calls, "a should still be cached")
	load(b)
	assert.Equal(t, 4, inner.calls, "b should have been evicted")
}

func TestCachedLoader_ZeroSizeStillCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	writeStations(t, path, "id,latitude,longitude\n", time.Unix(1000, 0))

	inner := &countingLoader{}
	cached := NewCachedLoader(inner, 0, observability.NewMetricsForTesting())
	_, _ = cached.Load(path, domain.StationColumns{})
	_, _ = cached.Load(path, domain.StationColumns{})

	assert.Equal(t, 1, inner.calls)
}
