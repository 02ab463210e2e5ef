// Package cli implements the astview command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/buildinfo"
	"github.com/matzehuels/astview/pkg/cache"
	"github.com/matzehuels/astview/pkg/observability"
	"github.com/matzehuels/astview/pkg/pipeline"
	"github.com/matzehuels/astview/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "astview"

	// defaultConcurrency bounds batch rendering with --all.
	defaultConcurrency = 4
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any subcommand runs.
	Config     Config
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level. Debug level also routes pipeline,
// cache and viewer events to the logger.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		observability.NewLogHooks(c.Logger).Install()
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "astview",
		Short:        "astview renders abstract syntax trees as interactive tree diagrams",
		Long:         `astview loads collections of schema-free ASTs from files, HTTP endpoints, MongoDB or SQLite, lays each one out as a tidy tree and lets you step through them in the browser or the terminal.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/astview/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.extractCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	path := c.configPath
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(dir, configFile)
	}
	cfg, err := LoadConfig(path, explicit)
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// =============================================================================
// Runner and Source Factories
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config.Cache.cacheConfig()
	if noCache {
		cfg.Backend = cache.BackendNone
	}
	if cfg.Backend == cache.BackendFile || cfg.Backend == "" {
		if cfg.Dir == "" {
			dir, err := cacheDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
			cfg.Dir = dir
		}
	}
	return cache.Open(ctx, cfg)
}

// openSource resolves the source argument, falling back to the configured
// source, and wraps remote sources in the collection cache.
func (c *CLI) openSource(args []string, ch cache.Cache) (source.Source, error) {
	uri := c.Config.Source
	if len(args) > 0 {
		uri = args[0]
	}
	if uri == "" {
		return nil, errNoSource
	}
	src, err := source.Open(uri)
	if err != nil {
		return nil, err
	}
	if _, local := src.(*source.File); local || ch == nil {
		return src, nil
	}
	cached := source.NewCached(src, ch, nil, c.Logger)
	if ttl := c.Config.Cache.TTL.Duration; ttl > 0 {
		cached.TTL = ttl
	}
	return cached, nil
}

// loadCollection opens and loads the source named by args while a spinner
// runs. The returned name identifies the source in output paths.
func (c *CLI) loadCollection(ctx context.Context, args []string, runner *pipeline.Runner) (ast.Collection, string, error) {
	src, err := c.openSource(args, runner.Cache)
	if err != nil {
		return nil, "", err
	}
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Loading %s...", src))
	spinner.Start()
	coll, err := src.Load(ctx)
	spinner.Stop()
	if err != nil {
		return nil, "", err
	}
	c.Logger.Debug("loaded collection", "source", src, "trees", coll.Len())
	return coll, src.String(), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/astview/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/astview/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// stateDir returns the state directory using XDG standard
// (~/.local/state/astview/). File sessions live here, outside the cache.
func stateDir() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
