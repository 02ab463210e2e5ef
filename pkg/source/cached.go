package source

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/cache"
	"github.com/matzehuels/astview/pkg/observability"
)

// Cached memoizes another source's collection for TTL, which defaults to
// [cache.TTLCollection]. Remote sources (HTTP, MongoDB) are worth caching;
// files are not.
type Cached struct {
	Source Source
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewCached wraps src. A nil keyer uses the default.
func NewCached(src Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Cached {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{Source: src, Cache: c, Keyer: keyer, Logger: logger, TTL: cache.TTLCollection}
}

// Load returns the cached collection or loads and stores it.
func (c *Cached) Load(ctx context.Context) (ast.Collection, error) {
	key := c.Keyer.CollectionKey(c.Source.String())
	hooks := observability.Cache()

	if data, hit, err := c.Cache.Get(ctx, key); err == nil && hit {
		if coll, err := ast.ReadCollection(bytes.NewReader(data)); err == nil && len(coll) > 0 {
			hooks.OnCacheHit(ctx, "collection")
			c.Logger.Debug("collection cache hit", "source", c.Source)
			return coll, nil
		}
	}
	hooks.OnCacheMiss(ctx, "collection")

	coll, err := c.Source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := coll.MarshalJSON(); err == nil {
		ttl := c.TTL
		if ttl <= 0 {
			ttl = cache.TTLCollection
		}
		if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
			c.Logger.Warn("cache collection", "source", c.Source, "error", err)
		} else {
			hooks.OnCacheSet(ctx, "collection", len(data))
		}
	}
	return coll, nil
}

func (c *Cached) String() string { return c.Source.String() }
