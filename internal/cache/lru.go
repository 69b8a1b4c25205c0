// Package cache provides the bounded LRU used for filesystem existence checks.
package cache

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crxkit/crxkit/internal/domain"
)

const defaultMaxSize = 4096

type entry[V any] struct {
	key        string
	value      V
	prev, next *entry[V]
}

// LRU is a size-bounded least-recently-used cache keyed by string.
type LRU[V any] struct {
	maxSize int

	// sentinels; head.next is the most recently used entry
	head *entry[V]
	tail *entry[V]

	items map[string]*entry[V]
	mutex sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an LRU holding at most maxSize entries.
func New[V any](maxSize int) *LRU[V] {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	head, tail := &entry[V]{}, &entry[V]{}
	head.next = tail
	tail.prev = head
	return &LRU[V]{
		maxSize: maxSize,
		head:    head,
		tail:    tail,
		items:   make(map[string]*entry[V]),
	}
}

// StatCache caches existence checks for source paths.
type StatCache = LRU[domain.FileStat]

// NewStatCache creates the stat cache used by the resolver.
func NewStatCache(maxSize int) *StatCache {
	return New[domain.FileStat](maxSize)
}

var _ domain.StatCache = (*StatCache)(nil)

// Get returns the cached value and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.unlink(e)
	c.pushFront(e)
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *LRU[V]) Set(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		c.unlink(e)
		c.pushFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.pushFront(e)
	c.items[key] = e

	if len(c.items) > c.maxSize {
		oldest := c.tail.prev
		c.unlink(oldest)
		delete(c.items, oldest.key)
	}
}

// Invalidate drops key.
func (c *LRU[V]) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.items[key]; ok {
		c.unlink(e)
		delete(c.items, key)
	}
}

// InvalidatePrefix drops key and every key below it as a path prefix.
// It returns the number of dropped entries.
func (c *LRU[V]) InvalidatePrefix(prefix string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dropped := 0
	dir := strings.TrimSuffix(prefix, string(filepath.Separator)) + string(filepath.Separator)
	for key, e := range c.items {
		if key == prefix || strings.HasPrefix(key, dir) {
			c.unlink(e)
			delete(c.items, key)
			dropped++
		}
	}
	return dropped
}

// Clear empties the cache and resets the counters.
func (c *LRU[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.items = make(map[string]*entry[V])
	c.hits.Store(0)
	c.misses.Store(0)
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}

// Stats returns current cache statistics
func (c *LRU[V]) Stats() domain.CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	stats := domain.CacheStats{
		Hits:    hits,
		Misses:  misses,
		Size:    c.Len(),
		MaxSize: c.maxSize,
	}
	if total := hits + misses; total > 0 {
		stats.HitRatio = float64(hits) / float64(total)
	}
	return stats
}

// HealthCheck reports degraded when the cache is nearly full or rarely hit.
func (c *LRU[V]) HealthCheck(ctx context.Context) domain.HealthStatus {
	stats := c.Stats()

	status := domain.HealthStatusHealthy
	message := "Cache is operating normally"
	details := map[string]any{
		"size":      stats.Size,
		"max_size":  stats.MaxSize,
		"hit_ratio": stats.HitRatio,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
	}

	if stats.Size >= stats.MaxSize*9/10 {
		status = domain.HealthStatusDegraded
		message = "Cache is near capacity"
		details["warning"] = "Cache utilization above 90%"
	}

	if stats.HitRatio < 0.5 && stats.Hits+stats.Misses > 100 {
		if status == domain.HealthStatusHealthy {
			status = domain.HealthStatusDegraded
			message = "Low cache hit ratio"
		}
		details["hit_ratio_warning"] = "Hit ratio below 50%"
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

func (c *LRU[V]) pushFront(e *entry[V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[V]) unlink(e *entry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
}
