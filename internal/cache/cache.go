// Package cache provides the time-bounded single-value caches used for the
// current session and the current business profile.
package cache

import (
	"sync"
	"time"
)

// TTL values fixed by the application: sessions stay fresh for 30 seconds,
// profiles for 60.
const (
	SessionTTL = 30 * time.Second
	ProfileTTL = 60 * time.Second
)

// TTLCache holds one value and the instant it was last refreshed. A value is
// served only while younger than the TTL; staleness forces the caller back to
// the remote service. A nil/zero value written via Set is itself cacheable: a
// validated "known absence" is as fresh as a known presence.
type TTLCache[T any] struct {
	mu          sync.Mutex
	value       T
	refreshedAt time.Time
	ttl         time.Duration
	now         func() time.Time
}

// Option configures a TTLCache.
type Option[T any] func(*TTLCache[T])

// WithClock injects the time source, used by tests to step through TTL
// boundaries deterministically.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *TTLCache[T]) { c.now = now }
}

// New constructs a cache whose entries expire after ttl.
func New[T any](ttl time.Duration, opts ...Option[T]) *TTLCache[T] {
	c := &TTLCache[T]{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value and true while the entry is valid. After the
// TTL elapses, or before any Set, it returns the zero value and false.
func (c *TTLCache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validLocked() {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set overwrites the cached value and resets the refresh timestamp,
// including when value is the zero value.
func (c *TTLCache[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	c.refreshedAt = c.now()
	c.mu.Unlock()
}

// Clear forcibly resets the cache, bypassing the TTL. Used on sign-out.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.refreshedAt = time.Time{}
	c.mu.Unlock()
}

// Valid reports whether the current entry is within its TTL.
func (c *TTLCache[T]) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked()
}

func (c *TTLCache[T]) validLocked() bool {
	if c.refreshedAt.IsZero() {
		return false
	}
	return c.now().Sub(c.refreshedAt) < c.ttl
}
