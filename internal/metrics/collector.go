package metrics

import (
	"context"
	"time"

	"github.com/onnwee/paperscape-layout/internal/cache"
	"github.com/onnwee/paperscape-layout/internal/logger"
)

// CacheStatsSource is satisfied by internal/cache's LRUCache and MockCache.
type CacheStatsSource interface {
	Stats() cache.Stats
}

// EnvStatsSource is satisfied by internal/mapenv's MapEnv.
type EnvStatsSource interface {
	GetNumPapers() int
	NumCoarserLayouts() int
	NumFinerLayouts() int
}

// Collector periodically samples the snapshot cache and the
// active MapEnv to update gauge metrics that aren't naturally updated on
// every request (cache size, hierarchy depth).
type Collector struct {
	cache    CacheStatsSource
	env      EnvStatsSource
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector. Either source may be nil,
// in which case that group of metrics is skipped.
func NewCollector(cache CacheStatsSource, env EnvStatsSource, interval time.Duration) *Collector {
	return &Collector{
		cache:    cache,
		env:      env,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collectMetrics()

	for {
		select {
		case <-ticker.C:
			c.collectMetrics()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector.
func (c *Collector) Stop() {
	close(c.stop)
}

func (c *Collector) collectMetrics() {
	c.collectCacheStats()
	c.collectEnvStats()
}

func (c *Collector) collectCacheStats() {
	if c.cache == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			CollectionErrors.WithLabelValues("cache").Inc()
			logger.Get().Error("panic collecting cache stats", "panic", r)
		}
	}()

	stats := c.cache.Stats()
	CacheItems.Set(float64(stats.Items))
	CacheSizeBytes.Set(float64(stats.Size))
}

func (c *Collector) collectEnvStats() {
	if c.env == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			CollectionErrors.WithLabelValues("env").Inc()
			logger.Get().Error("panic collecting env stats", "panic", r)
		}
	}()

	ConditionedPapers.Set(float64(c.env.GetNumPapers()))
	HierarchyLevels.Set(float64(c.env.NumCoarserLayouts() + c.env.NumFinerLayouts() + 1))
}
