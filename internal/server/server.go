// Package server is the HTTP viewer: a browser page plus a JSON API over one
// AST collection.
//
// The collection is loaded once at startup (and again on [Server.Reload]).
// Browsers create a viewer session and step through it with previous/next;
// session state lives in a [session.Store] so it survives reloads. Requests
// for the same session are serialized.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/astview/pkg/ast"
	apperrors "github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/pipeline"
	"github.com/matzehuels/astview/pkg/session"
	"github.com/matzehuels/astview/pkg/source"
)

//go:embed static/*
var staticFS embed.FS

// Defaults for server options.
const (
	DefaultAddr            = "127.0.0.1:8080"
	DefaultCleanupInterval = 10 * time.Minute

	// keepGenerations bounds how many reloaded collections stay reachable
	// for existing sessions.
	keepGenerations = 4
)

// generation is one loaded version of the collection.
type generation struct {
	id   string
	coll ast.Collection
}

// Server serves one collection.
type Server struct {
	src      source.Source
	runner   *pipeline.Runner
	sessions session.Store
	opts     pipeline.Options
	ttl      time.Duration
	logger   *log.Logger

	mu      sync.RWMutex
	gens    []generation // oldest first
	counter int

	locks keyedMutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSessionStore sets the session backend. The default is in memory.
func WithSessionStore(store session.Store) Option {
	return func(s *Server) { s.sessions = store }
}

// WithSessionTTL sets how long idle sessions live.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) { s.ttl = ttl }
}

// WithRenderOptions sets the pipeline options for every render.
func WithRenderOptions(opts pipeline.Options) Option {
	return func(s *Server) { s.opts = opts }
}

// New creates a server for src. Call [Server.Reload] before serving.
func New(src source.Source, runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		src:      src,
		runner:   runner,
		sessions: session.NewMemoryStore(),
		ttl:      session.DefaultTTL,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload fetches the collection again. New sessions see the new version;
// existing sessions keep theirs until it ages out. A failed reload keeps
// the current collection.
func (s *Server) Reload(ctx context.Context) error {
	coll, err := s.src.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	s.gens = append(s.gens, generation{
		id:   fmt.Sprintf("%s#%d", s.src, s.counter),
		coll: coll,
	})
	if len(s.gens) > keepGenerations {
		s.gens = s.gens[len(s.gens)-keepGenerations:]
	}
	s.logger.Info("loaded collection", "source", s.src, "trees", coll.Len(), "generation", s.counter)
	return nil
}

// current returns the newest generation.
func (s *Server) current() (generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.gens) == 0 {
		return generation{}, apperrors.New(apperrors.ErrCodeEmptyCollection, source.MsgEmpty)
	}
	return s.gens[len(s.gens)-1], nil
}

// lookup finds a generation by id.
func (s *Server) lookup(id string) (generation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.gens {
		if g.id == id {
			return g, true
		}
	}
	return generation{}, false
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.cleanupLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving viewer", "url", "http://"+addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) cleanupLoop(ctx context.Context) {
	t := time.NewTicker(DefaultCleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup", "error", err)
			}
		}
	}
}

// Close releases the session store.
func (s *Server) Close() error {
	return s.sessions.Close()
}
