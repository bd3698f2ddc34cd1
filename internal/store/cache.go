// file: internal/store/cache.go

package store

import (
	"sync"

	"macro-resolver/internal/logger"
	"macro-resolver/internal/metrics"
)

// LocalKVCache keeps raw KV documents in memory across resolution calls.
// Resolution never writes to it except to populate misses; it is emptied by
// the scheduled flush job.
type LocalKVCache struct {
	cache   map[string]map[string][]byte // bucket -> key -> raw document
	mu      sync.RWMutex
	logger  *logger.Logger
	metrics *metrics.Metrics
	enabled bool
}

// NewLocalKVCache creates a new local KV cache instance
func NewLocalKVCache(log *logger.Logger, m *metrics.Metrics, enabled bool) *LocalKVCache {
	c := &LocalKVCache{
		cache:   make(map[string]map[string][]byte),
		logger:  log,
		metrics: m,
		enabled: enabled,
	}
	log.Info("local KV cache initialized", "enabled", enabled)
	return c
}

// Get returns a cached document and whether it was present
func (c *LocalKVCache) Get(bucket, key string) ([]byte, bool) {
	if c == nil || !c.IsEnabled() {
		return nil, false
	}

	c.mu.RLock()
	value, ok := c.cache[bucket][key]
	c.mu.RUnlock()

	if ok {
		c.metrics.IncKVCacheHits()
	} else {
		c.metrics.IncKVCacheMisses()
	}
	return value, ok
}

// Set stores a document after a successful lazy load
func (c *LocalKVCache) Set(bucket, key string, value []byte) {
	if c == nil || !c.IsEnabled() {
		return
	}

	c.mu.Lock()
	if c.cache[bucket] == nil {
		c.cache[bucket] = make(map[string][]byte)
	}
	c.cache[bucket][key] = value
	size := c.sizeLocked()
	c.mu.Unlock()

	c.metrics.SetKVCacheSize(float64(size))
}

// Delete removes a single document
func (c *LocalKVCache) Delete(bucket, key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.cache[bucket], key)
	size := c.sizeLocked()
	c.mu.Unlock()

	c.metrics.SetKVCacheSize(float64(size))
}

func (c *LocalKVCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = enabled
	c.logger.Info("local cache enabled status changed", "enabled", enabled)
}

func (c *LocalKVCache) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Flush removes all entries. Run by the scheduler.
func (c *LocalKVCache) Flush() {
	c.mu.Lock()
	previous := c.sizeLocked()
	c.cache = make(map[string]map[string][]byte)
	c.mu.Unlock()

	c.metrics.SetKVCacheSize(0)
	c.logger.Debug("local KV cache flushed", "previousEntries", previous)
}

// Size returns the number of cached documents
func (c *LocalKVCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sizeLocked()
}

func (c *LocalKVCache) sizeLocked() int {
	n := 0
	for _, keys := range c.cache {
		n += len(keys)
	}
	return n
}
