package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/astview/pkg/ast"
	apperrors "github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/pipeline"
	"github.com/matzehuels/astview/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	renderFlags
	output      string // output file path, or directory with --all
	index       int    // zero-based tree index
	all         bool   // render every tree in the collection
	concurrency int    // parallel renders with --all
}

// renderCommand creates the render command for writing tree diagrams to files.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{concurrency: defaultConcurrency}

	cmd := &cobra.Command{
		Use:   "render [source]",
		Short: "Render ASTs to SVG, JSON, DOT, PDF or PNG",
		Long: `Render one tree (--index) or every tree (--all) of an AST collection.

The source is a .json or .jsonl file, an http(s) URL, a mongodb:// URI or a
sqlite:// URI. Without an argument the source from the config file is used.`,
		Example: `  astview render trees.json -f svg,png
  astview render trees.jsonl --index 3 --labels -o tree.svg
  astview render http://localhost:8000/ast --all -o out/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			popts := c.options(cmd.Flags(), &opts.renderFlags)
			return c.runRender(ctx, args, popts, opts)
		},
	}

	c.bindRenderFlags(cmd.Flags(), &opts.renderFlags, true)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single tree) or directory (--all)")
	cmd.Flags().IntVarP(&opts.index, "index", "i", 0, "tree index to render")
	cmd.Flags().BoolVar(&opts.all, "all", false, "render every tree in the collection")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", defaultConcurrency, "parallel renders with --all")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, args []string, popts pipeline.Options, opts renderOpts) error {
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if needsConverter(popts.Formats) && !render.ConverterAvailable() {
		return fmt.Errorf("pdf and png output need rsvg-convert on PATH")
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	coll, name, err := c.loadCollection(ctx, args, runner)
	if err != nil {
		return err
	}

	if opts.all {
		return c.renderAll(ctx, runner, coll, name, popts, opts)
	}

	if err := apperrors.ValidateIndex(opts.index, coll.Len()); err != nil {
		return err
	}
	prog := newProgress(loggerFromContext(ctx))
	res, err := runner.Execute(ctx, coll.At(opts.index), popts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered tree %d of %d", opts.index+1, coll.Len()))

	base := opts.output
	if base == "" {
		base = fmt.Sprintf("%s-%d", sourceBase(name), opts.index)
	}
	paths, err := writeArtifacts(res, base, popts.Formats)
	if err != nil {
		return err
	}

	printSuccess("Rendered tree %d of %d", opts.index+1, coll.Len())
	printStats(res.Stats.NodeCount, res.Stats.Height, res.CacheInfo.RenderHit)
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

func (c *CLI) renderAll(ctx context.Context, runner *pipeline.Runner, coll ast.Collection, name string, popts pipeline.Options, opts renderOpts) error {
	dir := opts.output
	if dir == "" {
		dir = sourceBase(name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %d trees...", coll.Len()))
	spinner.Start()
	prog := newProgress(loggerFromContext(ctx))
	results, err := runner.RenderAll(ctx, coll, popts, opts.concurrency)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}

	var files, cached int
	for i, res := range results {
		spinner.Update("Writing %d/%d", i+1, len(results))
		paths, err := writeArtifacts(res, filepath.Join(dir, fmt.Sprintf("tree-%04d", i)), popts.Formats)
		if err != nil {
			spinner.StopWithError("Write failed")
			return err
		}
		files += len(paths)
		if res.CacheInfo.RenderHit {
			cached++
		}
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Rendered %d trees", len(results)))

	printSuccess("Rendered %d trees (%d files)", len(results), files)
	if cached > 0 {
		printDetail("%d served from cache", cached)
	}
	printFile(dir)
	return nil
}

// writeArtifacts writes one file per format. With a single format, base may
// already carry the extension.
func writeArtifacts(res *pipeline.Result, base string, formats []string) ([]string, error) {
	if len(formats) == 1 && strings.EqualFold(filepath.Ext(base), "."+formats[0]) {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	var paths []string
	for _, f := range formats {
		data, ok := res.Artifacts[f]
		if !ok {
			continue
		}
		path := base + "." + f
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return paths, fmt.Errorf("create output directory: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func needsConverter(formats []string) bool {
	for _, f := range formats {
		if f == pipeline.FormatPDF || f == pipeline.FormatPNG {
			return true
		}
	}
	return false
}

// sourceBase derives a file name stem from a source description.
func sourceBase(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "ast"
	}
	return base
}
