package resource

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/internal/store"
)

// Cache memoizes another loader. Concurrent loads of the same resource share
// one call to the underlying loader. Cached values are shared between callers
// and must be treated as read-only.
type Cache struct {
	next  Loader
	store *store.Bounded[any]
	group singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// WithMaxEntries bounds the number of cached resources.
func WithMaxEntries(n int) CacheOption {
	return func(c *cacheConfig) {
		c.maxEntries = n
	}
}

// WithTTL expires cached resources after ttl.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *cacheConfig) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *cacheConfig) {
		c.now = now
	}
}

// NewCache wraps next with an LRU cache.
func NewCache(next Loader, opts ...CacheOption) *Cache {
	cfg := cacheConfig{maxEntries: 512}
	for _, opt := range opts {
		opt(&cfg)
	}

	storeOpts := []store.Option{
		store.WithMaxEntries(cfg.maxEntries),
		store.WithEvictionPolicy(store.LRU),
	}
	if cfg.ttl > 0 {
		storeOpts = append(storeOpts, store.WithTTL(cfg.ttl))
	}
	if cfg.now != nil {
		storeOpts = append(storeOpts, store.WithClock(cfg.now))
	}

	return &Cache{
		next:  next,
		store: store.NewBounded[any](storeOpts...),
	}
}

// Load returns the cached value or loads it once.
func (c *Cache) Load(ctx context.Context, root, name string) (any, error) {
	key := root + "\x00" + name
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		v, err := c.next.Load(ctx, root, name)
		if err != nil {
			return nil, err
		}
		c.store.Set(key, v)
		return v, nil
	})
	return v, err
}

// List delegates to the wrapped loader when it can enumerate resources.
func (c *Cache) List(ctx context.Context, root string) ([]string, error) {
	if lister, ok := c.next.(Lister); ok {
		return lister.List(ctx, root)
	}
	return nil, nil
}

// Resolve canonicalizes name the way the wrapped loader does.
func (c *Cache) Resolve(name string) (pocket.Identifier, error) {
	if r, ok := c.next.(Resolver); ok {
		return r.Resolve(name)
	}
	return pocket.ParseIdentifierIn(name, DefaultNamespace)
}

// Invalidate drops one cached resource.
func (c *Cache) Invalidate(root, name string) {
	c.store.Delete(root + "\x00" + name)
}

// Purge drops every cached resource.
func (c *Cache) Purge() {
	c.store.Purge()
}

// Stats reports cache usage.
func (c *Cache) Stats() store.Stats {
	return c.store.Stats()
}
