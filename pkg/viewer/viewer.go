// Package viewer drives an interactive walk through an AST collection.
//
// A [Session] owns the loaded collection, a wrap-around cursor and the
// current [Frame]. Each transition re-runs the pipeline (normalize, layout,
// center, render) for the tree under the cursor, resets pan/zoom, and
// refreshes the metadata panel. A transition whose render fails is rolled
// back: the cursor returns to its previous index and the prior frame stays
// current.
//
// The lifecycle has two phases. [Start] loads the collection (the only
// blocking step) and renders the first frame; afterwards every operation is
// synchronous.
//
//	s, err := viewer.Start(ctx, src, runner)
//	if err != nil {
//	    return err // load errors are fatal to the view
//	}
//	s.OnFrame(func(f *viewer.Frame) { draw(f.SVG, f.Meta) })
//	s.Next(ctx)
//
// A Session is not safe for concurrent use; callers serving several clients
// must serialize access.
package viewer

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/display"
	"github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/layout"
	"github.com/matzehuels/astview/pkg/nav"
	"github.com/matzehuels/astview/pkg/observability"
	"github.com/matzehuels/astview/pkg/pipeline"
	"github.com/matzehuels/astview/pkg/render"
	"github.com/matzehuels/astview/pkg/source"
)

// Placeholder is shown for any metadata field that is absent.
const Placeholder = "-"

// MetaView is the metadata panel of the current tree.
type MetaView struct {
	FilePath    string `json:"file_path"`
	Lines       string `json:"lines"`
	NodeType    string `json:"node_type"`
	Counter     string `json:"counter"`
	PrevEnabled bool   `json:"prev_enabled"`
	NextEnabled bool   `json:"next_enabled"`
}

// NewMetaView builds the panel for a tree at state.
func NewMetaView(v ast.Value, state nav.State) MetaView {
	m := v.Metadata()
	return MetaView{
		FilePath:    field(m.FilePath),
		Lines:       lines(m.StartLine, m.EndLine),
		NodeType:    field(m.Type),
		Counter:     state.Counter(),
		PrevEnabled: state.CanStep(),
		NextEnabled: state.CanStep(),
	}
}

func field(v ast.Value) string {
	if !v.Truthy() {
		return Placeholder
	}
	return v.Display()
}

// lines formats "<start>-<end>" when start is truthy. A missing end shows
// the start line alone.
func lines(start, end ast.Value) string {
	if !start.Truthy() {
		return Placeholder
	}
	if end.IsNull() {
		return start.Display()
	}
	return start.Display() + "-" + end.Display()
}

// Frame is one rendered view of the collection.
type Frame struct {
	State  nav.State        `json:"state"`
	Meta   MetaView         `json:"meta"`
	View   render.Transform `json:"view"`
	Tree   *display.Node    `json:"tree"`
	Layout layout.Hierarchy `json:"layout"`
	SVG    []byte           `json:"-"`

	// Result holds every artifact the pipeline produced for this frame.
	Result *pipeline.Result `json:"-"`
}

// =============================================================================
// Options
// =============================================================================

// Option configures a Session.
type Option func(*config)

type config struct {
	logger   *log.Logger
	opts     pipeline.Options
	index    int
	view     render.Transform
	deferred bool
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRenderOptions sets the pipeline options used for every frame. SVG is
// always rendered in addition to the listed formats.
func WithRenderOptions(opts pipeline.Options) Option {
	return func(c *config) { c.opts = opts }
}

// WithIndex starts the session at index instead of 0.
func WithIndex(index int) Option {
	return func(c *config) { c.index = index }
}

// WithView starts the first frame with a pan/zoom transform, for restoring
// a saved session.
func WithView(t render.Transform) Option {
	return func(c *config) { c.view = t }
}

// WithDeferredRender makes [Open] skip rendering the first frame. Use it
// when a transition follows immediately; [Session.Ensure] renders the frame
// if none happens.
func WithDeferredRender() Option {
	return func(c *config) { c.deferred = true }
}

// =============================================================================
// Session
// =============================================================================

// Session is a loaded collection with a cursor and the current frame.
type Session struct {
	source     string
	collection ast.Collection
	cursor     *nav.Cursor
	runner     *pipeline.Runner
	opts       pipeline.Options
	logger     *log.Logger

	frame     *Frame
	pending   bool
	listeners []func(*Frame)
}

// Start loads src and renders the first tree. Load failures and empty
// collections are returned as load errors and no session is created.
func Start(ctx context.Context, src source.Source, runner *pipeline.Runner, opts ...Option) (*Session, error) {
	start := time.Now()
	coll, err := src.Load(ctx)
	observability.Viewer().OnLoad(ctx, src.String(), coll.Len(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return Open(ctx, src.String(), coll, runner, opts...)
}

// Open starts a session over an already loaded collection.
func Open(ctx context.Context, name string, coll ast.Collection, runner *pipeline.Runner, opts ...Option) (*Session, error) {
	if coll.Len() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyCollection, source.MsgEmpty)
	}
	cfg := config{logger: log.New(io.Discard), view: render.Identity}
	for _, opt := range opts {
		opt(&cfg)
	}

	ropts := cfg.opts
	ropts.Formats = slices.Clone(ropts.Formats)
	if !slices.Contains(ropts.Formats, pipeline.FormatSVG) {
		ropts.Formats = append(ropts.Formats, pipeline.FormatSVG)
	}
	if err := ropts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	s := &Session{
		source:     name,
		collection: coll,
		cursor:     nav.New(coll.Len()),
		runner:     runner,
		opts:       ropts,
		logger:     cfg.logger,
	}
	if err := s.cursor.Seek(cfg.index); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIndexOutOfRange, err, "cannot open tree %d", cfg.index)
	}

	if cfg.deferred {
		state := s.cursor.State()
		s.frame = &Frame{State: state, Meta: NewMetaView(coll.At(state.Index), state), View: cfg.view}
		s.pending = true
		return s, nil
	}

	frame, err := s.render(ctx, cfg.view)
	if err != nil {
		return nil, err
	}
	s.frame = frame
	s.logger.Debug("session started", "source", name, "trees", coll.Len(), "index", cfg.index)
	return s, nil
}

// Frame returns the current frame. After a deferred [Open] it carries state,
// metadata and view but no render output until [Session.Ensure] runs.
func (s *Session) Frame() *Frame { return s.frame }

// Ensure renders the current frame if it is still pending.
func (s *Session) Ensure(ctx context.Context) (*Frame, error) {
	if !s.pending {
		return s.frame, nil
	}
	frame, err := s.render(ctx, s.frame.View)
	if err != nil {
		return nil, err
	}
	s.frame, s.pending = frame, false
	return frame, nil
}

// State returns the cursor position.
func (s *Session) State() nav.State { return s.cursor.State() }

// Collection returns the loaded collection.
func (s *Session) Collection() ast.Collection { return s.collection }

// Source names where the collection came from.
func (s *Session) Source() string { return s.source }

// OnFrame registers fn to run after every successful transition.
func (s *Session) OnFrame(fn func(*Frame)) {
	s.listeners = append(s.listeners, fn)
}

// Next moves to the following tree, wrapping to the first. It reports
// whether the cursor moved.
func (s *Session) Next(ctx context.Context) (bool, error) {
	return s.step(ctx, s.cursor.Next)
}

// Previous moves to the preceding tree, wrapping to the last.
func (s *Session) Previous(ctx context.Context) (bool, error) {
	return s.step(ctx, s.cursor.Previous)
}

// Seek jumps to index.
func (s *Session) Seek(ctx context.Context, index int) error {
	if err := errors.ValidateIndex(index, s.cursor.Count()); err != nil {
		return err
	}
	_, err := s.step(ctx, func() bool {
		from := s.cursor.Index()
		_ = s.cursor.Seek(index)
		return from != index
	})
	return err
}

func (s *Session) step(ctx context.Context, move func() bool) (bool, error) {
	from := s.cursor.Index()
	if !move() {
		return false, nil
	}
	frame, err := s.render(ctx, render.Identity)
	if err != nil {
		_ = s.cursor.Seek(from)
		s.logger.Warn("render failed, keeping previous tree", "index", from, "error", err)
		return false, err
	}
	observability.Viewer().OnNavigate(ctx, from, frame.State.Index, frame.State.Count)
	s.commit(frame)
	return true, nil
}

// Pan shifts the current view.
func (s *Session) Pan(ctx context.Context, dx, dy float64) (*Frame, error) {
	return s.SetView(ctx, s.frame.View.Pan(dx, dy))
}

// Zoom scales the current view by factor, clamped to the allowed range.
func (s *Session) Zoom(ctx context.Context, factor float64) (*Frame, error) {
	return s.SetView(ctx, s.frame.View.Zoom(factor))
}

// ResetView returns to the identity transform.
func (s *Session) ResetView(ctx context.Context) (*Frame, error) {
	return s.SetView(ctx, render.Identity)
}

// SetView re-renders the current tree under t. The cursor does not move and
// listeners are not notified.
func (s *Session) SetView(ctx context.Context, t render.Transform) (*Frame, error) {
	if t.K == 0 {
		t.K = 1
	}
	t.K = render.ClampScale(t.K)
	frame, err := s.render(ctx, t)
	if err != nil {
		return s.frame, err
	}
	s.frame, s.pending = frame, false
	return frame, nil
}

func (s *Session) commit(f *Frame) {
	s.frame, s.pending = f, false
	for _, fn := range s.listeners {
		fn(f)
	}
}

func (s *Session) render(ctx context.Context, view render.Transform) (*Frame, error) {
	state := s.cursor.State()
	tree := s.collection.At(state.Index)

	opts := s.opts
	opts.View = view
	res, err := s.runner.Execute(ctx, tree, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render tree %d", state.Index+1)
	}
	s.logger.Debug("rendered tree",
		"index", state.Index,
		"nodes", res.Stats.NodeCount,
		"layout_cached", res.CacheInfo.LayoutHit)

	return &Frame{
		State:  state,
		Meta:   NewMetaView(tree, state),
		View:   view,
		Tree:   res.Tree,
		Layout: res.Layout,
		SVG:    res.Artifacts[pipeline.FormatSVG],
		Result: res,
	}, nil
}

// String describes the session for logs.
func (s *Session) String() string {
	return fmt.Sprintf("%s [%s]", s.source, s.cursor.Counter())
}
