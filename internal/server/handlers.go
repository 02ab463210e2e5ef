package server

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/astview/pkg/buildinfo"
	apperrors "github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/nav"
	"github.com/matzehuels/astview/pkg/pipeline"
	"github.com/matzehuels/astview/pkg/render"
	"github.com/matzehuels/astview/pkg/session"
	"github.com/matzehuels/astview/pkg/viewer"
)

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	static, _ := fs.Sub(staticFS, "static")
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "index.html")
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Get("/healthz", s.handleHealth)
	r.Get("/ast", s.handleCollection)

	r.Route("/api", func(r chi.Router) {
		r.Get("/trees", s.handleTrees)
		r.Get("/trees/{index}", s.handleTree)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/next", s.handleStep(true))
			r.Post("/previous", s.handleStep(false))
			r.Put("/view", s.handleSetView)
			r.Post("/view/reset", s.handleResetView)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// =============================================================================
// Responses
// =============================================================================

// FrameResponse is the JSON form of a rendered viewer frame.
type FrameResponse struct {
	Session string           `json:"session,omitempty"`
	State   nav.State        `json:"state"`
	Meta    viewer.MetaView  `json:"meta"`
	View    render.Transform `json:"view"`
	SVG     string           `json:"svg"`
}

func frameResponse(id string, f *viewer.Frame) FrameResponse {
	return FrameResponse{Session: id, State: f.State, Meta: f.Meta, View: f.View, SVG: string(f.SVG)}
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string         `json:"error"`
	Code  apperrors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: apperrors.UserMessage(err), Code: apperrors.GetCode(err)})
}

// =============================================================================
// Collection
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

// handleCollection serves the raw collection as a JSON array.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	gen, err := s.current()
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := gen.coll.MarshalJSON()
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "encode collection"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// TreeSummary describes one tree in the listing.
type TreeSummary struct {
	Index int             `json:"index"`
	Meta  viewer.MetaView `json:"meta"`
}

func (s *Server) handleTrees(w http.ResponseWriter, r *http.Request) {
	gen, err := s.current()
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]TreeSummary, gen.coll.Len())
	for i, v := range gen.coll {
		out[i] = TreeSummary{Index: i, Meta: viewer.NewMetaView(v, nav.State{Index: i, Count: gen.coll.Len()})}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "trees": out})
}

// handleTree renders one tree statelessly. ?format selects an artifact
// (svg, json, dot, pdf, png); ?x, ?y, ?k set the view; ?labels=1 draws names.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	gen, err := s.current()
	if err != nil {
		s.writeError(w, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "index must be an integer"))
		return
	}
	if err := apperrors.ValidateIndex(index, gen.coll.Len()); err != nil {
		s.writeError(w, err)
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	opts := s.opts
	opts.Formats = []string{format}
	opts.Labels = opts.Labels || q.Get("labels") == "1"
	view, err := parseView(q.Get("x"), q.Get("y"), q.Get("k"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts.View = view

	res, err := s.runner.Execute(r.Context(), gen.coll.At(index), opts)
	if err != nil {
		if apperrors.GetCode(err) == "" {
			err = apperrors.Wrap(apperrors.ErrCodeRender, err, "render tree %d", index+1)
		}
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentType(format))
	_, _ = w.Write(res.Artifacts[format])
}

func parseView(x, y, k string) (render.Transform, error) {
	t := render.Identity
	for _, p := range []struct {
		raw string
		dst *float64
	}{{x, &t.X}, {y, &t.Y}, {k, &t.K}} {
		if p.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(p.raw, 64)
		if err != nil {
			return t, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid view value %q", p.raw)
		}
		*p.dst = v
	}
	if t.K == 0 {
		t.K = 1
	}
	t.K = render.ClampScale(t.K)
	return t, nil
}

// =============================================================================
// Sessions
// =============================================================================

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	gen, err := s.current()
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := viewer.Open(r.Context(), gen.id, gen.coll, s.runner, s.viewerOptions()...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := session.New(gen.id, gen.coll.Len(), s.ttl)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "create session"))
		return
	}
	if err := s.save(r, sess, v); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, frameResponse(sess.ID, v.Frame()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session, v *viewer.Session) error { return nil })
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := session.ValidateID(id); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid session id"))
		return
	}
	unlock := s.locks.Lock(id)
	defer unlock()
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "delete session"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStep(forward bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withSession(w, r, func(sess *session.Session, v *viewer.Session) error {
			var err error
			if forward {
				_, err = v.Next(r.Context())
			} else {
				_, err = v.Previous(r.Context())
			}
			return err
		})
	}
}

// ViewRequest is the body of PUT /api/sessions/{id}/view.
type ViewRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid view"))
		return
	}
	s.withSession(w, r, func(sess *session.Session, v *viewer.Session) error {
		_, err := v.SetView(r.Context(), render.Transform{X: req.X, Y: req.Y, K: req.K})
		return err
	})
}

func (s *Server) handleResetView(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session, v *viewer.Session) error {
		_, err := v.ResetView(r.Context())
		return err
	})
}

// withSession restores a session, applies fn, saves the new state and
// responds with the current frame. A failing fn leaves the stored state
// untouched.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session, *viewer.Session) error) {
	id := chi.URLParam(r, "id")
	if err := session.ValidateID(id); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid session id"))
		return
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	ctx := r.Context()
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "load session"))
		return
	}
	if sess == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeSessionNotFound, "session %s not found", id))
		return
	}
	gen, ok := s.lookup(sess.Collection)
	if !ok || gen.coll.Len() != sess.State.Count {
		s.writeError(w, apperrors.New(apperrors.ErrCodeSessionExpired, "the collection was reloaded; start a new session"))
		return
	}

	opts := append(s.viewerOptions(),
		viewer.WithIndex(sess.State.Index),
		viewer.WithView(sess.View),
		viewer.WithDeferredRender(),
	)
	v, err := viewer.Open(ctx, gen.id, gen.coll, s.runner, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := fn(sess, v); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := v.Ensure(ctx); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.save(r, sess, v); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frameResponse(sess.ID, v.Frame()))
}

func (s *Server) save(r *http.Request, sess *session.Session, v *viewer.Session) error {
	f := v.Frame()
	sess.State = f.State
	sess.View = f.View
	sess.Touch(s.ttl)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "save session")
	}
	return nil
}

func (s *Server) viewerOptions() []viewer.Option {
	return []viewer.Option{
		viewer.WithLogger(s.logger),
		viewer.WithRenderOptions(s.opts),
	}
}
