package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/matzehuels/astview/pkg/cache"
	"github.com/matzehuels/astview/pkg/pipeline"
	"github.com/matzehuels/astview/pkg/render"
)

const configFile = "config.toml"

// Session backends accepted by [ServerConfig].
const (
	sessionsMemory = "memory"
	sessionsFile   = "file"
	sessionsRedis  = "redis"
)

var errNoSource = errors.New("no AST source given (pass one as an argument or set source in the config file)")

// Config is the on-disk configuration. Command-line flags override it.
//
//	source = "trees.json"
//
//	[render]
//	width = 960
//	height = 600
//	engine = "tidy"
//
//	[render.margin]
//	top = 60
//	right = 120
//	bottom = 20
//	left = 120
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[server]
//	addr = "127.0.0.1:8080"
//	sessions = "file"
//	watch = true
type Config struct {
	Source string       `toml:"source"`
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// RenderConfig holds pipeline defaults.
type RenderConfig struct {
	Width  float64        `toml:"width"`
	Height float64        `toml:"height"`
	Margin *render.Margin `toml:"margin"`
	Engine string         `toml:"engine"`
	Labels bool           `toml:"labels"`
	Scale  float64        `toml:"scale"`
}

// CacheConfig selects the artifact and collection cache.
type CacheConfig struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	Prefix    string   `toml:"prefix"`
	TTL       duration `toml:"ttl"`
}

// ServerConfig configures "astview serve".
type ServerConfig struct {
	Addr       string   `toml:"addr"`
	Sessions   string   `toml:"sessions"`
	SessionDir string   `toml:"session_dir"`
	RedisAddr  string   `toml:"redis_addr"`
	SessionTTL duration `toml:"session_ttl"`
	Watch      bool     `toml:"watch"`
}

// duration decodes TOML strings such as "30m".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			Width:  pipeline.DefaultWidth,
			Height: pipeline.DefaultHeight,
			Engine: pipeline.DefaultEngine,
			Scale:  pipeline.DefaultScale,
		},
		Cache: CacheConfig{Backend: cache.BackendFile},
		Server: ServerConfig{
			Addr:     "127.0.0.1:8080",
			Sessions: sessionsMemory,
		},
	}
}

// LoadConfig reads path on top of [DefaultConfig]. A missing file is an
// error only when required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

func (c CacheConfig) cacheConfig() cache.Config {
	return cache.Config{
		Backend:   c.Backend,
		Dir:       c.Dir,
		RedisAddr: c.RedisAddr,
		Prefix:    c.Prefix,
	}
}

// renderFlags binds the shared rendering flags to a set of options whose
// values come from the config file.
type renderFlags struct {
	opts    pipeline.Options
	formats string
	noCache bool
}

func (c *CLI) bindRenderFlags(flags *pflag.FlagSet, rf *renderFlags, withFormats bool) {
	flags.Float64Var(&rf.opts.Width, "width", 0, "frame width in pixels (default from config or 960)")
	flags.Float64Var(&rf.opts.Height, "height", 0, "frame height in pixels (default from config or 600)")
	flags.StringVar(&rf.opts.Engine, "engine", "", "layout engine: tidy, graphviz")
	flags.BoolVar(&rf.opts.Labels, "labels", false, "draw node labels")
	flags.BoolVar(&rf.noCache, "no-cache", false, "disable caching")
	flags.BoolVar(&rf.opts.Refresh, "refresh", false, "ignore cached results and recompute")
	if withFormats {
		flags.StringVarP(&rf.formats, "format", "f", "", "output formats: svg,json,dot,pdf,png (comma-separated)")
		flags.Float64Var(&rf.opts.Scale, "scale", 0, "PNG resolution multiplier")
	}
}

// options merges flag values over the config file.
func (c *CLI) options(flags *pflag.FlagSet, rf *renderFlags) pipeline.Options {
	cfg := c.Config.Render
	opts := rf.opts
	if !flags.Changed("width") {
		opts.Width = cfg.Width
	}
	if !flags.Changed("height") {
		opts.Height = cfg.Height
	}
	if !flags.Changed("engine") {
		opts.Engine = cfg.Engine
	}
	if !flags.Changed("labels") {
		opts.Labels = cfg.Labels
	}
	if flags.Lookup("scale") == nil || !flags.Changed("scale") {
		opts.Scale = cfg.Scale
	}
	if cfg.Margin != nil {
		m := *cfg.Margin
		opts.Margin = &m
	}
	opts.Formats = parseFormats(rf.formats)
	opts.Logger = c.Logger
	return opts
}
