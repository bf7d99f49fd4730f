package query

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Forever marks an entry that never goes stale.
const Forever = time.Duration(math.MaxInt64)

const (
	// ListStaleTime applies to paginated lists.
	ListStaleTime = 30 * time.Second
	// UserStaleTime applies to the current-user lookup.
	UserStaleTime = 5 * time.Minute
)

// Options tune a single fetch. A zero StaleTime always refetches, though
// concurrent callers still share one request.
type Options struct {
	StaleTime time.Duration
}

// Observer is told about hits and misses.
type Observer interface {
	ObserveCache(ctx context.Context, root string, hit bool)
}

type entry struct {
	value     any
	fetchedAt time.Time
}

func (e entry) fresh(now time.Time, staleTime time.Duration) bool {
	if staleTime <= 0 {
		return false
	}
	if staleTime == Forever {
		return true
	}
	return now.Sub(e.fetchedAt) < staleTime
}

type flight struct {
	key   Key
	stale bool
}

// Cache is the server-state cache. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	keys     map[string]Key
	inflight map[string]*flight
	group    singleflight.Group
	now      func() time.Time
	observer Observer
	logger   logrus.FieldLogger
}

type CacheOption func(*Cache)

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func WithObserver(o Observer) CacheOption {
	return func(c *Cache) { c.observer = o }
}

func WithLogger(l logrus.FieldLogger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:  make(map[string]entry),
		keys:     make(map[string]Key),
		inflight: make(map[string]*flight),
		now:      time.Now,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "Cache")
	return c
}

// Fetch returns the cached value for key when fresh, otherwise runs fn.
// Concurrent callers for the same key share one fn call. ctx bounds only
// this caller's wait; the shared call runs detached from any one caller's
// cancellation.
func Fetch[T any](ctx context.Context, c *Cache, key Key, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	id := key.String()

	c.mu.Lock()
	if e, ok := c.entries[id]; ok && e.fresh(c.now(), opts.StaleTime) {
		c.mu.Unlock()
		c.observe(ctx, key, true)
		if v, ok := e.value.(T); ok {
			return v, nil
		}
		return zero, fmt.Errorf("cache entry %s holds %T", id, e.value)
	}
	c.mu.Unlock()
	c.observe(ctx, key, false)

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		f := &flight{key: key}
		c.mu.Lock()
		c.inflight[id] = f
		c.mu.Unlock()

		v, err := fn(detached)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.inflight[id] == f {
			delete(c.inflight, id)
		}
		if err == nil && !f.stale {
			c.entries[id] = entry{value: v, fetchedAt: c.now()}
			c.keys[id] = key
		}
		return v, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.logger.WithField("key", id).Debug("deduplicated fetch")
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cache fetch %s returned %T", id, res.Val)
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Cache) observe(ctx context.Context, key Key, hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(ctx, key.Root(), hit)
	}
}

// Get returns the stored value regardless of freshness.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	return e.value, ok
}

// Set seeds key with value, as if just fetched.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := key.String()
	c.entries[id] = entry{value: value, fetchedAt: c.now()}
	c.keys[id] = key
}

// Invalidate drops every entry under prefix. Fetches for those keys that
// are still running will not store their results, and later callers start
// a new fetch instead of joining them.
func (c *Cache) Invalidate(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for id, key := range c.keys {
		if key.HasPrefix(prefix) {
			delete(c.entries, id)
			delete(c.keys, id)
			dropped++
		}
	}
	for id, f := range c.inflight {
		if f.key.HasPrefix(prefix) {
			f.stale = true
			delete(c.inflight, id)
			c.group.Forget(id)
		}
	}
	c.logger.WithFields(logrus.Fields{"prefix": prefix.String(), "dropped": dropped}).Debug("invalidated")
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.Invalidate(Key{})
}

// Len is the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
