package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/cache"
	"github.com/matzehuels/astview/pkg/display"
	"github.com/matzehuels/astview/pkg/layout"
	"github.com/matzehuels/astview/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs normalize → layout → center → render for one AST.
func (r *Runner) Execute(ctx context.Context, v ast.Value, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	hooks := observability.Pipeline()
	result := &Result{}

	// Stage 1: Normalize
	start := time.Now()
	tree := display.Normalize(v)
	result.Tree = tree
	result.Stats.NormalizeTime = time.Since(start)
	result.Stats.NodeCount = display.Count(tree)
	result.Stats.Height = display.Height(tree)
	hooks.OnNormalizeComplete(ctx, result.Stats.NodeCount, result.Stats.NormalizeTime)

	treeHash, err := cache.HashJSON(tree)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	result.TreeHash = treeHash

	// Stage 2: Layout
	start = time.Now()
	raw, layoutKey, hit, err := r.LayoutWithCacheInfo(ctx, tree, treeHash, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Stats.LayoutTime = time.Since(start)
	result.CacheInfo.LayoutHit = hit

	// Stage 3: Center
	result.Layout = layout.Center(raw, opts.Extent())

	r.Logger.Debug("computed layout",
		"engine", opts.Engine,
		"nodes", result.Stats.NodeCount,
		"offset", result.Layout.Offset,
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	// Stage 4: Render
	start = time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, result.Tree, result.Layout, layoutKey, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutWithCacheInfo computes the raw layout of tree, consulting the cache
// first. It returns the layout, its cache key and whether it was a cache hit.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, tree *display.Node, treeHash string, opts Options) (layout.Hierarchy, string, bool, error) {
	key := r.Keyer.LayoutKey(treeHash, opts.LayoutKeyOpts())
	cacheHooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var h layout.Hierarchy
			if err := json.Unmarshal(data, &h); err == nil {
				cacheHooks.OnCacheHit(ctx, "layout")
				return h, key, true, nil
			}
			// Fall through and recompute a corrupt entry.
		}
		cacheHooks.OnCacheMiss(ctx, "layout")
	}

	h, err := ComputeLayout(ctx, tree, opts)
	if err != nil {
		return layout.Hierarchy{}, key, false, err
	}

	if data, err := json.Marshal(h); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err == nil {
			cacheHooks.OnCacheSet(ctx, "layout", len(data))
		}
	}
	return h, key, false, nil
}

// ComputeLayout runs the configured engine without caching.
func ComputeLayout(ctx context.Context, tree *display.Node, opts Options) (layout.Hierarchy, error) {
	engine, err := layout.New(opts.Engine)
	if err != nil {
		return layout.Hierarchy{}, err
	}
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, engine.Name(), display.Count(tree))
	start := time.Now()
	h, err := engine.Layout(tree, opts.Box())
	hooks.OnLayoutComplete(ctx, engine.Name(), time.Since(start), err)
	return h, err
}

// RenderWithCacheInfo produces every requested format, consulting the cache
// per format. The bool is true only if every artifact was cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, tree *display.Node, h layout.Hierarchy, layoutKey string, opts Options) (map[string][]byte, bool, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	cacheHooks := observability.Cache()
	var missing []string

	for _, format := range opts.Formats {
		if opts.Refresh {
			missing = append(missing, format)
			continue
		}
		key := r.Keyer.ArtifactKey(layoutKey, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			cacheHooks.OnCacheHit(ctx, "artifact")
			artifacts[format] = data
			continue
		}
		cacheHooks.OnCacheMiss(ctx, "artifact")
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	sub := opts
	sub.Formats = missing
	rendered, err := Render(ctx, tree, h, sub)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(layoutKey, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			cacheHooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

// RenderAll executes the pipeline for every AST in coll, running up to
// concurrency trees at once. Results are in collection order.
func (r *Runner) RenderAll(ctx context.Context, coll ast.Collection, opts Options, concurrency int) ([]*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*Result, coll.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range coll {
		g.Go(func() error {
			res, err := r.Execute(ctx, coll.At(i), opts)
			if err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	return r.Cache.Close()
}
