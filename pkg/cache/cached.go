// Package cache provides a lazily refreshed value with a time-to-live.
package cache

import (
	"context"
	"sync"
	"time"
)

// Loader fetches a fresh value.
type Loader[T any] func(ctx context.Context) (T, error)

// Option configures a Cached value.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Cached holds a value and the time it was last loaded. Get reloads the value
// when nothing is cached or when more than the refresh interval has elapsed
// since the last load.
type Cached[T any] struct {
	mu        sync.Mutex
	load      Loader[T]
	refresh   time.Duration
	now       func() time.Time
	value     T
	fetchedAt time.Time
	valid     bool
}

// New creates an empty Cached value backed by load.
func New[T any](refresh time.Duration, load Loader[T], opts ...Option) *Cached[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cached[T]{
		load:    load,
		refresh: refresh,
		now:     o.now,
	}
}

// Get returns the cached value, loading it first if it is missing or stale.
// A failed load leaves the previous value and timestamp untouched.
func (c *Cached[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && !c.stale() {
		return c.value, nil
	}

	v, err := c.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.store(v)
	return v, nil
}

// Set replaces the cached value and marks it fresh.
func (c *Cached[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(v)
}

// Peek returns the cached value without loading, and whether one is present.
func (c *Cached[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.valid
}

// Invalidate drops the cached value so the next Get reloads.
func (c *Cached[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.valid = false
}

// FetchedAt returns when the value was last stored, or the zero time.
func (c *Cached[T]) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}

func (c *Cached[T]) stale() bool {
	return c.now().Sub(c.fetchedAt) > c.refresh
}

func (c *Cached[T]) store(v T) {
	c.value = v
	c.fetchedAt = c.now()
	c.valid = true
}
