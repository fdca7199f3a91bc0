package stationfile

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/couchcryptid/airq-etl/internal/observability"
)

// DirectoryLoader loads a station directory from a file.
type DirectoryLoader interface {
	Load(path string, cols domain.StationColumns) (domain.StationDirectory, error)
}

// CachedLoader wraps a DirectoryLoader with an in-memory LRU cache. Entries
// are keyed by path, size and modification time, so an edited file is
// reloaded on the next run.
type CachedLoader struct {
	inner   DirectoryLoader
	cache   *lru.Cache[string, domain.StationDirectory]
	metrics *observability.Metrics
}

// NewCachedLoader creates a cache decorator around a loader holding at most
// maxEntries directories. Sizes below one are raised to one.
func NewCachedLoader(inner DirectoryLoader, maxEntries int, metrics *observability.Metrics) *CachedLoader {
	// lru.New fails only for a non-positive size.
	cache, _ := lru.New[string, domain.StationDirectory](max(maxEntries, 1))
	return &CachedLoader{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}
}

func (c *CachedLoader) Load(path string, cols domain.StationColumns) (domain.StationDirectory, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat station file: %v", domain.ErrIO, err)
	}
	key := fmt.Sprintf("%s|%d|%d|%v", path, info.Size(), info.ModTime().UnixNano(), cols.WithDefaults())
	if dir, ok := c.cache.Get(key); ok {
		c.metrics.StationCache.WithLabelValues("hit").Inc()
		return dir, nil
	}
	c.metrics.StationCache.WithLabelValues("miss").Inc()

	dir, err := c.inner.Load(path, cols)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, dir)
	return dir, nil
}
