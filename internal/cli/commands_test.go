package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/display"
	apperrors "github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/session"
	"github.com/matzehuels/astview/pkg/source"
)

const threeTrees = `[
  {"type":"Module","body":[{"type":"Expr"}],"metadata":{"file_path":"a.py","start_line":1,"end_line":3,"type":"module"}},
  {"type":"FunctionDef","name":"f","metadata":{"file_path":"b.py","start_line":4,"end_line":9,"type":"function"}},
  {"type":"ClassDef","name":"C","body":[{"type":"Pass"}],"metadata":{"file_path":"c.py","start_line":10}}
]`

// isolate points every XDG directory at a fresh temporary directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
}

func writeTrees(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trees.json")
	if err := os.WriteFile(path, []byte(threeTrees), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, out io.Writer, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	if out == nil {
		out = io.Discard
	}
	root.SetOut(out)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRenderCommand(t *testing.T) {
	isolate(t)
	src := writeTrees(t)
	base := filepath.Join(t.TempDir(), "out", "tree")

	if err := execute(t, nil, "render", src, "-i", "1", "-f", "svg,json,dot", "-o", base, "--no-cache"); err != nil {
		t.Fatalf("render: %v", err)
	}

	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Errorf("svg output is not an SVG document")
	}

	data, err := os.ReadFile(base + ".json")
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Tree *display.Node `json:"tree"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("json artifact: %v", err)
	}
	if doc.Tree == nil || doc.Tree.Name != "FunctionDef" {
		t.Errorf("json tree = %+v, want FunctionDef", doc.Tree)
	}

	if _, err := os.Stat(base + ".dot"); err != nil {
		t.Errorf("dot output missing: %v", err)
	}
}

func TestRenderCommandOutputExtension(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "first.svg")

	if err := execute(t, nil, "render", writeTrees(t), "-o", out); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected %s: %v", out, err)
	}
	if _, err := os.Stat(out + ".svg"); err == nil {
		t.Error("extension should not be doubled")
	}
}

func TestRenderCommandAll(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "all")

	if err := execute(t, nil, "render", writeTrees(t), "--all", "-o", dir, "--concurrency", "2"); err != nil {
		t.Fatalf("render --all: %v", err)
	}
	for _, name := range []string{"tree-0000.svg", "tree-0001.svg", "tree-0002.svg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRenderCommandErrors(t *testing.T) {
	isolate(t)
	src := writeTrees(t)

	err := execute(t, nil, "render", src, "-i", "3", "-o", filepath.Join(t.TempDir(), "x"))
	if apperrors.GetCode(err) != apperrors.ErrCodeIndexOutOfRange {
		t.Errorf("index 3 of 3: got %v, want INDEX_OUT_OF_RANGE", err)
	}

	err = execute(t, nil, "render", src, "--engine", "radial")
	if apperrors.GetCode(err) != apperrors.ErrCodeInvalidEngine {
		t.Errorf("unknown engine: got %v", err)
	}

	if err := execute(t, nil, "render"); !errors.Is(err, errNoSource) {
		t.Errorf("no source: got %v, want errNoSource", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = execute(t, nil, "render", empty)
	if apperrors.GetCode(err) != apperrors.ErrCodeEmptyCollection {
		t.Errorf("empty collection: got %v", err)
	}
}

func TestRenderCommandUsesConfigSource(t *testing.T) {
	isolate(t)
	src := writeTrees(t)
	cfg := writeConfig(t, "source = "+strconvQuote(src)+"\n\n[render]\nwidth = 500\n")
	out := filepath.Join(t.TempDir(), "cfg.svg")

	if err := execute(t, nil, "--config", cfg, "render", "-o", out); err != nil {
		t.Fatalf("render: %v", err)
	}
	svg, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte(`width="500"`)) {
		t.Errorf("config width not applied: %s", svg[:min(len(svg), 200)])
	}
}

func strconvQuote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func TestInspectTreeJSON(t *testing.T) {
	coll, err := ast.ReadCollection(strings.NewReader(threeTrees))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := inspectTree(&buf, coll, inspectOpts{index: 2, asJSON: true}); err != nil {
		t.Fatalf("inspectTree: %v", err)
	}
	want, _ := json.MarshalIndent(display.Normalize(coll.At(2)), "", "  ")
	if strings.TrimSpace(buf.String()) != string(want) {
		t.Errorf("inspect --json =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestInspectTreeText(t *testing.T) {
	coll, err := ast.ReadCollection(strings.NewReader(threeTrees))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := inspectTree(&buf, coll, inspectOpts{index: 0}); err != nil {
		t.Fatalf("inspectTree: %v", err)
	}
	want := "Module\n└── body [1]\n    └── Expr\n"
	if !strings.HasSuffix(buf.String(), want) {
		t.Errorf("inspect =\n%s\nwant suffix\n%s", buf.String(), want)
	}
}

func TestExtractCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	code := "def add(a, b):\n    return a + b\n\n\nclass Point:\n    pass\n"
	if err := os.WriteFile(filepath.Join(dir, "geo.py"), []byte(code), 0o644); err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()

	jsonl := filepath.Join(out, "trees.jsonl")
	if err := execute(t, nil, "extract", dir, "-o", jsonl); err != nil {
		t.Fatalf("extract jsonl: %v", err)
	}
	coll, err := ast.ReadFile(jsonl)
	if err != nil {
		t.Fatalf("read jsonl: %v", err)
	}
	if coll.Len() != 2 {
		t.Fatalf("extracted %d trees, want 2", coll.Len())
	}
	if m := coll.At(0).Metadata(); m.FilePath.Str() != "geo.py" {
		t.Errorf("first tree metadata = %+v", m)
	}

	db := filepath.Join(out, "trees.db")
	if err := execute(t, nil, "extract", dir, "-o", db); err != nil {
		t.Fatalf("extract sqlite: %v", err)
	}
	s, err := source.NewSQLite(db, "", "")
	if err != nil {
		t.Fatal(err)
	}
	fromDB, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load sqlite: %v", err)
	}
	if fromDB.Len() != coll.Len() {
		t.Errorf("sqlite holds %d trees, want %d", fromDB.Len(), coll.Len())
	}
}

func TestSourceURI(t *testing.T) {
	if got := sourceURI("trees.json"); got != "trees.json" {
		t.Errorf("sourceURI(trees.json) = %q", got)
	}
	if got := sourceURI("sqlite:///tmp/t.db"); got != "sqlite:///tmp/t.db" {
		t.Errorf("sqlite URI changed: %q", got)
	}
	if got := sourceURI("t.db"); !strings.HasPrefix(got, "sqlite:///") {
		t.Errorf("sourceURI(t.db) = %q, want an absolute sqlite URI", got)
	}
}

func TestSourceBase(t *testing.T) {
	tests := map[string]string{
		"trees.json":                          "trees",
		"/data/asts.jsonl":                    "asts",
		"http://localhost:8000/ast":           "ast",
		"sqlite:///tmp/trees.db?table=asts":   "trees",
		"mongodb://localhost/code#collection": "code",
		"/":                                   "ast",
	}
	for in, want := range tests {
		if got := sourceBase(in); got != want {
			t.Errorf("sourceBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewSessionStore(t *testing.T) {
	ctx := context.Background()

	store, err := newSessionStore(ctx, serveOpts{sessions: sessionsMemory})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*session.MemoryStore); !ok {
		t.Errorf("memory backend = %T", store)
	}

	dir := filepath.Join(t.TempDir(), "sessions")
	store, err = newSessionStore(ctx, serveOpts{sessions: sessionsFile, sessionDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if fs, ok := store.(*session.FileStore); !ok || fs.Path() != dir {
		t.Errorf("file backend = %T", store)
	}

	if _, err := newSessionStore(ctx, serveOpts{sessions: "etcd"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestCacheCommands(t *testing.T) {
	isolate(t)

	var buf bytes.Buffer
	if err := execute(t, &buf, "cache", "path"); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName)
	if strings.TrimSpace(buf.String()) != want {
		t.Errorf("cache path = %q, want %q", buf.String(), want)
	}

	if err := execute(t, nil, "render", writeTrees(t), "-o", filepath.Join(t.TempDir(), "t")); err != nil {
		t.Fatalf("render: %v", err)
	}
	if entries := countFiles(t, want); entries == 0 {
		t.Fatal("render should populate the file cache")
	}

	if err := execute(t, nil, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if entries := countFiles(t, want); entries != 0 {
		t.Errorf("%d cache files left after clear", entries)
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestCompletionCommand(t *testing.T) {
	isolate(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		var buf bytes.Buffer
		if err := execute(t, &buf, "completion", shell); err != nil {
			t.Fatalf("completion %s: %v", shell, err)
		}
		if !strings.Contains(buf.String(), "astview") {
			t.Errorf("completion %s does not mention astview", shell)
		}
	}
	if err := execute(t, nil, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}
