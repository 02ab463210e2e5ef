// Package extract builds AST collections from source code.
//
// Files are parsed with tree-sitter. Every function, method, class and type
// definition becomes one tree in the collection, carrying metadata that the
// viewers display:
//
//	{"type": "function_definition", "name": {...}, "body": {...},
//	 "metadata": {"file_path": "pkg/a.py", "start_line": 3, "end_line": 9,
//	              "type": "function_definition"}}
//
// Trees mirror the concrete syntax tree: each named node becomes an object
// whose "type" is the node kind, children are keyed by their grammar field
// name (or "children" when they have none) and leaves carry their source text
// under "text".
//
// [Extractor.ExtractDir] walks a directory, honouring the root .gitignore,
// and returns definitions in path order then source order.
package extract

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	ignore "github.com/sabhiram/go-gitignore"
	sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/astview/pkg/ast"
)

// Limits applied while extracting.
const (
	DefaultMaxFileSize = 1 << 20
	MaxTextLength      = 80
)

// Directories never descended into.
var skipDirs = []string{".git", "node_modules", "vendor", "__pycache__", ".venv", "dist", "build"}

// Extractor turns source files into definition ASTs.
type Extractor struct {
	MaxFileSize int64
	Workers     int
	Logger      *log.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFileSize skips files larger than n bytes.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) { e.MaxFileSize = n }
}

// WithWorkers sets the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(e *Extractor) { e.Workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Extractor) { e.Logger = l }
}

// New returns an extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		MaxFileSize: DefaultMaxFileSize,
		Workers:     runtime.NumCPU(),
		Logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractDir extracts every supported file under root.
func (e *Extractor) ExtractDir(ctx context.Context, root string) (ast.Collection, error) {
	files, err := e.listFiles(root)
	if err != nil {
		return nil, err
	}

	perFile := make([]ast.Collection, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Workers, 1))
	for i, rel := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(filepath.Join(root, rel))
			if err != nil {
				return err
			}
			coll, err := e.ExtractFile(filepath.ToSlash(rel), src)
			if err != nil {
				e.Logger.Warn("skipping file", "path", rel, "error", err)
				return nil
			}
			perFile[i] = coll
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out ast.Collection
	for _, c := range perFile {
		out = append(out, c...)
	}
	e.Logger.Debug("extracted definitions", "files", len(files), "definitions", len(out))
	return out, nil
}

func (e *Extractor) listFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		gi = ignore.CompileIgnoreLines()
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}
		slash := filepath.ToSlash(rel)
		if d.IsDir() {
			if slices.Contains(skipDirs, d.Name()) || gi.MatchesPath(slash+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if gi.MatchesPath(slash) {
			return nil
		}
		if _, ok := LanguageFor(path); !ok {
			return nil
		}
		if fi, err := d.Info(); err == nil && e.MaxFileSize > 0 && fi.Size() > e.MaxFileSize {
			e.Logger.Debug("skipping large file", "path", slash, "size", fi.Size())
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}

// ExtractFile extracts the definitions in src. path picks the grammar and
// is recorded as metadata file_path.
func (e *Extractor) ExtractFile(path string, src []byte) (ast.Collection, error) {
	lang, ok := LanguageFor(path)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
	language := lang.Sitter()

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang.Name, err)
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse %s failed", path)
	}
	defer tree.Close()

	query, qerr := sitter.NewQuery(language, lang.Query)
	if qerr != nil {
		return nil, fmt.Errorf("query %s: %s", lang.Name, qerr.Message)
	}
	defer query.Close()

	defIdx, ok := query.CaptureIndexForName("def")
	if !ok {
		return nil, fmt.Errorf("query %s has no @def capture", lang.Name)
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var defs []sitter.Node
	seen := make(map[[2]uint]bool)
	matches := cursor.Matches(query, tree.RootNode(), src)
	for m := matches.Next(); m != nil; m = matches.Next() {
		for _, c := range m.Captures {
			if uint(c.Index) != defIdx {
				continue
			}
			span := [2]uint{c.Node.StartByte(), c.Node.EndByte()}
			if !seen[span] {
				seen[span] = true
				defs = append(defs, c.Node)
			}
		}
	}
	slices.SortStableFunc(defs, func(a, b sitter.Node) int {
		return int(a.StartByte()) - int(b.StartByte())
	})

	out := make(ast.Collection, 0, len(defs))
	for i := range defs {
		out = append(out, definition(&defs[i], src, path))
	}
	return out, nil
}

// definition converts a definition node and attaches metadata.
func definition(n *sitter.Node, src []byte, path string) ast.Value {
	root := convert(n, src)
	meta := ast.NewMetadata(path,
		int(n.StartPosition().Row)+1,
		int(n.EndPosition().Row)+1,
		n.Kind())
	return ast.Object(ast.NewNode(append(root.Node().Fields(), ast.F(ast.KeyMetadata, meta))...))
}

// convert maps a named syntax node to an AST object.
func convert(n *sitter.Node, src []byte) ast.Value {
	fields := []ast.Field{ast.F(ast.KeyType, ast.String(n.Kind()))}

	var keys []string
	groups := make(map[string][]ast.Value)
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil || !child.IsNamed() || child.IsExtra() {
			continue
		}
		key := n.FieldNameForChild(uint32(i))
		if key == "" || key == ast.KeyType || key == ast.KeyMetadata {
			key = "children"
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], convert(child, src))
	}

	if len(keys) == 0 {
		fields = append(fields, ast.F("text", ast.String(truncate(n.Utf8Text(src)))))
	}
	for _, k := range keys {
		vs := groups[k]
		if len(vs) == 1 && k != "children" {
			fields = append(fields, ast.F(k, vs[0]))
		} else {
			fields = append(fields, ast.F(k, ast.Array(vs...)))
		}
	}
	return ast.Object(ast.NewNode(fields...))
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > MaxTextLength {
		return string(r[:MaxTextLength-1]) + "…"
	}
	return s
}
