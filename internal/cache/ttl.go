// Package cache provides the in-process TTL caches that sit in front of
// retrieval and translation.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats reports cache effectiveness.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

type options struct {
	now        func() time.Time
	observer   func(hit bool)
	maxEntries int
}

// Option configures a TTLCache.
type Option func(*options)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithObserver registers a callback invoked on every Get with its outcome.
func WithObserver(fn func(hit bool)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithMaxEntries bounds the cache. When full, expired entries are dropped
// first, then the oldest one.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache is a string-keyed map whose entries are valid while
// now - storedAt < ttl. Expired entries are removed lazily on access; there is
// no background sweep. Writes replace a whole entry, so a reader never sees a
// partial value.
type TTLCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	opts    options
	entries map[string]entry[V]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache with the given TTL. A non-positive ttl disables caching:
// every Get misses and Set is a no-op.
func New[V any](ttl time.Duration, opts ...Option) *TTLCache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[V]{
		ttl:     ttl,
		opts:    o,
		entries: make(map[string]entry[V]),
	}
}

// Now reads the cache clock.
func (c *TTLCache[V]) Now() time.Time {
	return c.opts.now()
}

// TTL returns the configured time to live.
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.storedAt) >= c.ttl
}

// Get returns the live value for key.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	value, _, ok := c.lookup(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.opts.observer != nil {
		c.opts.observer(ok)
	}
	return value, ok
}

// Peek is Get without hit/miss accounting; it also returns when the entry was
// stored.
func (c *TTLCache[V]) Peek(key string) (V, time.Time, bool) {
	return c.lookup(key)
}

func (c *TTLCache[V]) lookup(key string) (V, time.Time, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, time.Time{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, time.Time{}, false
	}
	if c.expired(e, c.opts.now()) {
		delete(c.entries, key)
		return zero, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

// Set stores value under key, stamped with the current time. Last writer wins.
func (c *TTLCache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.now()
	if _, exists := c.entries[key]; !exists && c.opts.maxEntries > 0 && len(c.entries) >= c.opts.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = entry[V]{value: value, storedAt: now}
}

func (c *TTLCache[V]) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	if len(c.entries) >= c.opts.maxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Delete removes key.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry. Hit and miss counters are kept.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of stored entries, expired ones included until they
// are next touched.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit/miss counters and the current size.
func (c *TTLCache[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}
