package cache

import (
	"sync"
	"time"
)

// entry is a single cached value with its absolute expiry
type entry[V any] struct {
	value     V
	expiresAt time.Time
	source    string
}

// TTLCache is an unbounded in-process key/value store with per-entry expiry.
// Expired entries are evicted when read or on Clear; there is no capacity limit.
type TTLCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a TTLCache
type Option[V any] func(*TTLCache[V])

// WithClock replaces the time source, used by tests to simulate elapsed time
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTLCache[V]) {
		c.now = now
	}
}

// New creates a cache whose Set calls fall back to defaultTTL when given a non-positive ttl
func New[V any](defaultTTL time.Duration, opts ...Option[V]) *TTLCache[V] {
	c := &TTLCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if it has not expired. An expired entry is removed.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any existing entry. expiry = now + ttl.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.SetWithSource(key, value, ttl, "")
}

// SetWithSource is Set with a source tag kept alongside the entry
func (c *TTLCache[V]) SetWithSource(key string, value V, ttl time.Duration, source string) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
		source:    source,
	}
}

// Source returns the source tag of a live entry
func (c *TTLCache[V]) Source(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return "", false
	}
	return e.source, true
}

// Delete removes key if present
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, including ones that expired but were not read yet
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// DefaultTTL returns the ttl used when Set is given a non-positive duration
func (c *TTLCache[V]) DefaultTTL() time.Duration {
	return c.ttl
}
