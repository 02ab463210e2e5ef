// Package cache stores pipeline results so repeated renders of the same tree
// are instant.
//
// # Overview
//
// A [Cache] is a byte-oriented key/value store with per-entry TTLs. Four
// backends are provided:
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for servers
//   - [MemoryCache]: in-process, for tests and single-process servers
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so every entry point (CLI, HTTP server, terminal
// viewer) derives identical keys for identical work. Keys hash the display
// tree and every option that affects the output.
//
//	c, _ := cache.NewFileCache(dir)
//	runner := pipeline.NewRunner(c, nil, logger)
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
// Get reports a miss as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry lifetimes. Layouts and artifacts are pure functions of their key, so
// they live long; fetched collections go stale quickly.
const (
	TTLLayout     = 7 * 24 * time.Hour
	TTLArtifact   = 7 * 24 * time.Hour
	TTLCollection = time.Hour
)
