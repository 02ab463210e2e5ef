package viewer

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/cache"
	"github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/nav"
	"github.com/matzehuels/astview/pkg/pipeline"
	"github.com/matzehuels/astview/pkg/render"
	"github.com/matzehuels/astview/pkg/source"
)

func collection(t *testing.T, docs ...string) ast.Collection {
	t.Helper()
	out := make(ast.Collection, len(docs))
	for i, d := range docs {
		v, err := ast.Parse([]byte(d))
		if err != nil {
			t.Fatalf("Parse(%s): %v", d, err)
		}
		out[i] = v
	}
	return out
}

func threeTrees(t *testing.T) ast.Collection {
	return collection(t,
		`{"type":"Module","body":[{"type":"Expr"}],"metadata":{"file_path":"a.py","start_line":1,"end_line":3,"type":"module"}}`,
		`{"type":"FunctionDef","name":"f","metadata":{"file_path":"b.py","start_line":0,"end_line":9}}`,
		`{"type":"ClassDef","name":"C","metadata":{"file_path":"c.py","start_line":10,"end_line":20,"type":"class"}}`,
	)
}

func newRunner() *pipeline.Runner {
	return pipeline.NewRunner(cache.NewMemoryCache(), nil, log.New(io.Discard))
}

func start(t *testing.T, coll ast.Collection, opts ...Option) *Session {
	t.Helper()
	s, err := Start(context.Background(), source.NewStatic(coll), newRunner(), opts...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func TestStartRendersFirstTree(t *testing.T) {
	s := start(t, threeTrees(t))
	f := s.Frame()
	if f.State != (nav.State{Index: 0, Count: 3}) {
		t.Errorf("state = %+v", f.State)
	}
	if f.Tree.Name != "Module" {
		t.Errorf("tree = %q", f.Tree.Name)
	}
	if !strings.HasPrefix(string(f.SVG), "<svg") {
		t.Error("missing svg")
	}
	want := MetaView{FilePath: "a.py", Lines: "1-3", NodeType: "module", Counter: "1 of 3", PrevEnabled: true, NextEnabled: true}
	if f.Meta != want {
		t.Errorf("meta = %+v, want %+v", f.Meta, want)
	}
	if !f.View.IsIdentity() {
		t.Errorf("view = %+v", f.View)
	}
}

func TestStartLoadErrors(t *testing.T) {
	_, err := Start(context.Background(), source.NewStatic(nil), newRunner())
	if !errors.Is(err, errors.ErrCodeEmptyCollection) {
		t.Errorf("empty: %v", err)
	}
	if errors.UserMessage(err) != "No AST data available" {
		t.Errorf("message = %q", errors.UserMessage(err))
	}

	_, err = Start(context.Background(), source.NewFile("/does/not/exist.json"), newRunner())
	if !errors.Is(err, errors.ErrCodeLoad) {
		t.Errorf("missing file: %v", err)
	}
}

func TestThreeTreeWalkthrough(t *testing.T) {
	ctx := context.Background()
	s := start(t, threeTrees(t))

	var frames []*Frame
	s.OnFrame(func(f *Frame) { frames = append(frames, f) })

	moved, err := s.Previous(ctx)
	if err != nil || !moved {
		t.Fatalf("Previous = %v, %v", moved, err)
	}
	if got := s.Frame().Meta.Counter; got != "3 of 3" {
		t.Errorf("after previous: %q, want 3 of 3", got)
	}
	if s.Frame().Tree.Name != "ClassDef" {
		t.Errorf("tree = %q", s.Frame().Tree.Name)
	}

	if _, err := s.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if got := s.Frame().Meta.Counter; got != "1 of 3" {
		t.Errorf("after wrap: %q, want 1 of 3", got)
	}
	if len(frames) != 2 {
		t.Errorf("listener calls = %d, want 2", len(frames))
	}
}

func TestMetadataPlaceholders(t *testing.T) {
	ctx := context.Background()
	s := start(t, threeTrees(t))

	if _, err := s.Next(ctx); err != nil {
		t.Fatal(err)
	}
	// start_line 0 is falsy, type is absent.
	want := MetaView{FilePath: "b.py", Lines: "-", NodeType: "-", Counter: "2 of 3", PrevEnabled: true, NextEnabled: true}
	if got := s.Frame().Meta; got != want {
		t.Errorf("meta = %+v, want %+v", got, want)
	}
}

func TestNewMetaView(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want MetaView
	}{
		{
			name: "NoMetadata",
			doc:  `{"type":"X"}`,
			want: MetaView{FilePath: "-", Lines: "-", NodeType: "-", Counter: "1 of 1"},
		},
		{
			name: "MetadataNotObject",
			doc:  `{"type":"X","metadata":"oops"}`,
			want: MetaView{FilePath: "-", Lines: "-", NodeType: "-", Counter: "1 of 1"},
		},
		{
			name: "MissingEndShowsStartOnly",
			doc:  `{"metadata":{"start_line":7}}`,
			want: MetaView{FilePath: "-", Lines: "7", NodeType: "-", Counter: "1 of 1"},
		},
		{
			name: "NullEndShowsStartOnly",
			doc:  `{"metadata":{"start_line":7,"end_line":null}}`,
			want: MetaView{FilePath: "-", Lines: "7", NodeType: "-", Counter: "1 of 1"},
		},
		{
			name: "EmptyPath",
			doc:  `{"metadata":{"file_path":"","start_line":2,"end_line":4,"type":"fn"}}`,
			want: MetaView{FilePath: "-", Lines: "2-4", NodeType: "fn", Counter: "1 of 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := collection(t, tt.doc)[0]
			if got := NewMetaView(v, nav.State{Index: 0, Count: 1}); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSingleTreeNavigationDisabled(t *testing.T) {
	ctx := context.Background()
	s := start(t, collection(t, `{"type":"Only"}`))
	calls := 0
	s.OnFrame(func(*Frame) { calls++ })

	for _, step := range []func(context.Context) (bool, error){s.Next, s.Previous} {
		moved, err := step(ctx)
		if err != nil || moved {
			t.Errorf("step = %v, %v", moved, err)
		}
	}
	if calls != 0 {
		t.Errorf("listener called %d times", calls)
	}
	m := s.Frame().Meta
	if m.PrevEnabled || m.NextEnabled || m.Counter != "1 of 1" {
		t.Errorf("meta = %+v", m)
	}
}

func TestFailedRenderKeepsPreviousFrame(t *testing.T) {
	s := start(t, threeTrees(t))
	before := s.Frame()
	calls := 0
	s.OnFrame(func(*Frame) { calls++ })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	moved, err := s.Next(ctx)
	if err == nil || moved {
		t.Fatalf("Next on cancelled context = %v, %v", moved, err)
	}
	if !errors.Is(err, errors.ErrCodeRender) {
		t.Errorf("err = %v", err)
	}
	if s.State().Index != 0 {
		t.Errorf("cursor not reverted: %+v", s.State())
	}
	if s.Frame() != before {
		t.Error("frame replaced after failed render")
	}
	if calls != 0 {
		t.Errorf("listener called %d times", calls)
	}
}

func TestViewTransform(t *testing.T) {
	ctx := context.Background()
	s := start(t, threeTrees(t))

	f, err := s.Zoom(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if f.View.K != render.MaxScale {
		t.Errorf("zoom not clamped: %v", f.View.K)
	}
	f, _ = s.Pan(ctx, 10, -4)
	if f.View.X != 10 || f.View.Y != -4 {
		t.Errorf("pan = %+v", f.View)
	}
	if !strings.Contains(string(f.SVG), `transform="translate(10,-4) scale(4)"`) {
		t.Error("svg does not carry the view transform")
	}
	if s.State().Index != 0 {
		t.Error("view change moved the cursor")
	}

	// Transitions reset the view.
	if _, err := s.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.Frame().View.IsIdentity() {
		t.Errorf("view after transition = %+v", s.Frame().View)
	}

	_, _ = s.Zoom(ctx, 0.5)
	f, _ = s.ResetView(ctx)
	if !f.View.IsIdentity() {
		t.Errorf("reset = %+v", f.View)
	}
}

func TestOpenAtIndex(t *testing.T) {
	ctx := context.Background()
	coll := threeTrees(t)
	s, err := Open(ctx, "saved", coll, newRunner(), WithIndex(2), WithView(render.Identity.Zoom(2)))
	if err != nil {
		t.Fatal(err)
	}
	if s.Frame().Meta.Counter != "3 of 3" || s.Frame().View.K != 2 {
		t.Errorf("frame = %+v", s.Frame().Meta)
	}

	if _, err := Open(ctx, "saved", coll, newRunner(), WithIndex(5)); !errors.Is(err, errors.ErrCodeIndexOutOfRange) {
		t.Errorf("out of range: %v", err)
	}
}

func TestSeek(t *testing.T) {
	ctx := context.Background()
	s := start(t, threeTrees(t))
	if err := s.Seek(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if s.Frame().Tree.Name != "FunctionDef" {
		t.Errorf("tree = %q", s.Frame().Tree.Name)
	}
	if err := s.Seek(ctx, 3); !errors.Is(err, errors.ErrCodeIndexOutOfRange) {
		t.Errorf("err = %v", err)
	}
}

func TestOpenDeferredRender(t *testing.T) {
	ctx := context.Background()
	coll := threeTrees(t)
	s, err := Open(ctx, "trees", coll, newRunner(), WithIndex(2), WithView(render.Transform{X: 5, K: 2}), WithDeferredRender())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f := s.Frame()
	if f.SVG != nil || f.Tree != nil {
		t.Error("deferred open should not render")
	}
	if f.Meta.Counter != "3 of 3" || f.Meta.FilePath != "c.py" || f.View.K != 2 {
		t.Errorf("pending frame = %+v", f)
	}

	f, err = s.Ensure(ctx)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !strings.HasPrefix(string(f.SVG), "<svg") || f.Tree.Name != "ClassDef" || f.View.X != 5 {
		t.Errorf("ensured frame = %+v", f)
	}
	if again, _ := s.Ensure(ctx); again != f {
		t.Error("Ensure should not render twice")
	}

	s, _ = Open(ctx, "trees", coll, newRunner(), WithDeferredRender())
	if _, err := s.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f := s.Frame(); f.Tree == nil || f.Tree.Name != "FunctionDef" {
		t.Errorf("frame after Next = %+v", f)
	}
}
