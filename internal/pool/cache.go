// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pool

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"askdb/cli/internal/dsn"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/logging"
)

// Factory constructs a pool for a canonical URL. It is the only place drivers are touched.
type Factory func(ctx context.Context, url string, p Params) (Pool, error)

// Cache is a process-wide multiton of pools keyed by URL and options.
type Cache struct {
	mu      sync.Locker
	pools   map[cacheKey]Pool
	flights singleflight.Group
	factory Factory
	log     *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithFactory replaces the driver-backed factory.
func WithFactory(f Factory) Option {
	return func(c *Cache) { c.factory = f }
}

// WithLocker injects the lock guarding the pool map.
func WithLocker(l sync.Locker) Option {
	return func(c *Cache) { c.mu = l }
}

// WithLogger sets the logger. URLs are masked before they are logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// NewCache creates an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		mu:      &sync.Mutex{},
		pools:   make(map[cacheKey]Pool),
		factory: DefaultFactory,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.OrNop(c.log)
	return c
}

// Get returns the pool for url and options, constructing it on first use.
// Concurrent first callers for one key share a single construction; if it fails,
// every one of them gets the error and nothing is stored. The construction does not
// inherit any caller's cancellation; a caller whose ctx ends stops waiting for it.
func (c *Cache) Get(ctx context.Context, url string, o dsn.PoolOptions) (Pool, error) {
	key := newKey(url, o)
	if p, ok := c.lookup(key); ok {
		return p, nil
	}

	buildCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key.String(), func() (any, error) {
		if p, ok := c.lookup(key); ok {
			return p, nil
		}
		c.log.Debug("constructing pool", zap.String("url", logging.Mask(url)), zap.String("options", key.options))
		p, err := c.factory(buildCtx, url, NewParams(o))
		if err != nil {
			c.log.Warn("pool construction failed", zap.String("url", logging.Mask(url)), zap.Error(err))
			return nil, apperrors.Wrap(apperrors.PoolConstruction, logging.Mask(err.Error()), err)
		}
		c.mu.Lock()
		c.pools[key] = p
		c.mu.Unlock()
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Pool), nil
	}
}

// Open resolves a descriptor and returns its pool. A descriptor that does not resolve
// never reaches the factory.
func (c *Cache) Open(ctx context.Context, d dsn.Descriptor) (Pool, error) {
	url, err := dsn.Resolve(d)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, url, d.Pool)
}

// Len returns the number of cached pools.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pools)
}

// Close closes and forgets every cached pool.
func (c *Cache) Close() {
	c.mu.Lock()
	pools := c.pools
	c.pools = make(map[cacheKey]Pool)
	c.mu.Unlock()

	for _, p := range pools {
		p.Close()
	}
}

func (c *Cache) lookup(key cacheKey) (Pool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[key]
	return p, ok
}
