package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/astview/internal/server"
	"github.com/matzehuels/astview/pkg/cache"
	"github.com/matzehuels/astview/pkg/session"
	"github.com/matzehuels/astview/pkg/source"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	renderFlags
	addr       string
	sessions   string
	sessionDir string
	redisAddr  string
	sessionTTL time.Duration
	watch      bool
}

// serveCommand creates the serve command, which runs the HTTP viewer.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [source]",
		Short: "Step through an AST collection in the browser",
		Long: `Serve the HTTP viewer for an AST collection.

The page shows one tree at a time with previous/next buttons, pan and zoom.
The raw collection is available at /ast and rendered trees at
/api/trees/{index}. With --watch, a file source is reloaded whenever it
changes on disk.`,
		Example: `  astview serve trees.json --watch
  astview serve mongodb://localhost:27017/code?collection=asts --sessions redis`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			c.applyServerConfig(cmd, &opts)
			return c.runServe(ctx, args, cmd, opts)
		},
	}

	c.bindRenderFlags(cmd.Flags(), &opts.renderFlags, false)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default 127.0.0.1:8080)")
	cmd.Flags().StringVar(&opts.sessions, "sessions", "", "session backend: memory, file, redis")
	cmd.Flags().StringVar(&opts.sessionDir, "session-dir", "", "directory for the file session backend")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "redis address for the redis session backend")
	cmd.Flags().DurationVar(&opts.sessionTTL, "session-ttl", 0, "idle session lifetime (default 24h)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the source file when it changes")

	return cmd
}

// applyServerConfig fills unset flags from the [server] config section.
func (c *CLI) applyServerConfig(cmd *cobra.Command, opts *serveOpts) {
	cfg := c.Config.Server
	flags := cmd.Flags()
	if !flags.Changed("addr") {
		opts.addr = cfg.Addr
	}
	if !flags.Changed("sessions") {
		opts.sessions = cfg.Sessions
	}
	if !flags.Changed("session-dir") {
		opts.sessionDir = cfg.SessionDir
	}
	if !flags.Changed("redis") {
		opts.redisAddr = cfg.RedisAddr
	}
	if !flags.Changed("session-ttl") {
		opts.sessionTTL = cfg.SessionTTL.Duration
	}
	if !flags.Changed("watch") {
		opts.watch = cfg.Watch
	}
	if opts.addr == "" {
		opts.addr = server.DefaultAddr
	}
}

func (c *CLI) runServe(ctx context.Context, args []string, cmd *cobra.Command, opts serveOpts) error {
	popts := c.options(cmd.Flags(), &opts.renderFlags)
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	src, err := c.openSource(args, runner.Cache)
	if err != nil {
		return err
	}

	store, err := newSessionStore(ctx, opts)
	if err != nil {
		return err
	}

	srvOpts := []server.Option{
		server.WithLogger(c.Logger),
		server.WithSessionStore(store),
		server.WithRenderOptions(popts),
	}
	if opts.sessionTTL > 0 {
		srvOpts = append(srvOpts, server.WithSessionTTL(opts.sessionTTL))
	}
	srv := server.New(src, runner, srvOpts...)
	defer srv.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Loading %s...", src))
	spinner.Start()
	err = srv.Reload(ctx)
	spinner.Stop()
	if err != nil {
		return err
	}

	if opts.watch {
		c.startWatch(ctx, src, srv)
	}

	printSuccess("Serving %s", StyleHighlight.Render(src.String()))
	printKeyValue("Viewer", StyleLink.Render("http://"+opts.addr+"/"))
	printKeyValue("Sessions", opts.sessions)
	printNextStep("Stop with", "Ctrl+C")

	return srv.ListenAndServe(ctx, opts.addr)
}

// startWatch reloads srv whenever the file behind src changes.
func (c *CLI) startWatch(ctx context.Context, src source.Source, srv *server.Server) {
	file, ok := src.(*source.File)
	if !ok {
		printWarning("--watch only applies to file sources; %s will not be reloaded", src)
		return
	}
	logger := c.Logger
	go func() {
		err := source.Watch(ctx, file.Path, func() {
			if err := srv.Reload(ctx); err != nil {
				logger.Warn("reload failed, keeping previous collection", "path", file.Path, "error", err)
			}
		}, source.WithOnError(func(err error) {
			logger.Warn("watch", "path", file.Path, "error", err)
		}))
		if err != nil && ctx.Err() == nil {
			logger.Error("watch stopped", "path", file.Path, "error", err)
		}
	}()
	printInfo("Watching %s for changes", file.Path)
}

// newSessionStore opens the configured session backend.
func newSessionStore(ctx context.Context, opts serveOpts) (session.Store, error) {
	switch opts.sessions {
	case sessionsMemory, "":
		return session.NewMemoryStore(), nil
	case sessionsFile:
		dir := opts.sessionDir
		if dir == "" {
			base, err := stateDir()
			if err != nil {
				return nil, fmt.Errorf("session directory: %w", err)
			}
			dir = filepath.Join(base, "sessions")
		}
		return session.NewFileStore(dir)
	case sessionsRedis:
		client, err := cache.NewRedisClient(opts.redisAddr)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis sessions: %w", err)
		}
		return session.NewRedisStore(client, appName+":"), nil
	default:
		return nil, fmt.Errorf("unknown session backend: %q (must be one of: %s, %s, %s)", opts.sessions, sessionsMemory, sessionsFile, sessionsRedis)
	}
}
