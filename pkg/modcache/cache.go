// Package modcache caches script modules fetched by URL. A Cache is owned
// by whoever evaluates scripts and passed to the engine explicitly; there is
// no process-wide instance. Entries older than MaxAge are revalidated with a
// conditional fetch before reuse.
package modcache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults.
const (
	DefaultSize   = 64
	DefaultMaxAge = 5 * time.Minute
)

// Entry is a cached module.
type Entry struct {
	URL          string
	Body         string
	ETag         string
	LastModified string
	FetchedAt    time.Time // last time the origin confirmed Body
}

// Stats counts how loads were served.
type Stats struct {
	Hits        uint64 // fresh entry, no fetch
	Revalidated uint64 // stale entry confirmed by 304
	Fetched     uint64 // body transferred (miss or changed)
	Stale       uint64 // fetch failed, stale entry served
}

// Cache is an LRU of modules keyed by URL. It is safe for concurrent use;
// concurrent loads of one URL share a single fetch.
type Cache struct {
	entries *lru.Cache[string, Entry]
	fetcher Fetcher
	maxAge  time.Duration
	now     func() time.Time
	log     *zap.Logger
	flight  singleflight.Group

	hits, revalidated, fetched, stale atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithFetcher replaces the default HTTP fetcher.
func WithFetcher(f Fetcher) Option { return func(c *Cache) { c.fetcher = f } }

// WithMaxAge sets how long an entry is used without revalidation. Zero
// revalidates on every load.
func WithMaxAge(d time.Duration) Option { return func(c *Cache) { c.maxAge = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// New creates a cache holding at most size modules. A non-positive size
// means DefaultSize.
func New(size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("modcache: %w", err)
	}
	c := &Cache{
		entries: entries,
		fetcher: &HTTPFetcher{},
		maxAge:  DefaultMaxAge,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Load returns the module text for url, fetching or revalidating as needed.
// When revalidation fails and a stale copy exists, the stale copy is served.
func (c *Cache) Load(ctx context.Context, url string) (string, error) {
	if e, ok := c.entries.Get(url); ok && c.now().Sub(e.FetchedAt) < c.maxAge {
		c.hits.Add(1)
		c.log.Debug("module cache hit", zap.String("url", url))
		return e.Body, nil
	}

	v, err, _ := c.flight.Do(url, func() (any, error) {
		return c.refresh(ctx, url)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) refresh(ctx context.Context, url string) (string, error) {
	cached, ok := c.entries.Peek(url)
	req := Request{URL: url}
	if ok {
		req.ETag, req.LastModified = cached.ETag, cached.LastModified
	}

	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		if ok {
			c.stale.Add(1)
			c.log.Warn("module revalidation failed, serving stale copy",
				zap.String("url", url), zap.Error(err))
			return cached.Body, nil
		}
		return "", err
	}

	now := c.now()
	if resp.NotModified {
		if !ok {
			return "", fmt.Errorf("modcache: %s: not modified, but nothing is cached", url)
		}
		cached.FetchedAt = now
		if resp.ETag != "" {
			cached.ETag = resp.ETag
		}
		if resp.LastModified != "" {
			cached.LastModified = resp.LastModified
		}
		c.entries.Add(url, cached)
		c.revalidated.Add(1)
		c.log.Debug("module revalidated", zap.String("url", url))
		return cached.Body, nil
	}

	c.entries.Add(url, Entry{
		URL:          url,
		Body:         resp.Body,
		ETag:         resp.ETag,
		LastModified: resp.LastModified,
		FetchedAt:    now,
	})
	c.fetched.Add(1)
	c.log.Debug("module fetched", zap.String("url", url), zap.Int("bytes", len(resp.Body)))
	return resp.Body, nil
}

// Peek returns the cached entry for url without touching recency or
// revalidating.
func (c *Cache) Peek(url string) (Entry, bool) {
	return c.entries.Peek(url)
}

// Invalidate drops url from the cache.
func (c *Cache) Invalidate(url string) {
	c.entries.Remove(url)
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns load counters since creation.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Revalidated: c.revalidated.Load(),
		Fetched:     c.fetched.Load(),
		Stale:       c.stale.Load(),
	}
}
