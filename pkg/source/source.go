// Package source retrieves AST collections.
//
// A [Source] yields an ordered [ast.Collection]. Implementations exist for
// local files, HTTP endpoints, MongoDB collections and SQLite tables; [Open]
// picks one from a URI:
//
//	trees.json, trees.jsonl, file:///abs/trees.json  → [File]
//	http://host/ast, https://host/ast                → [HTTP]
//	mongodb://host/db?collection=asts                → [Mongo]
//	sqlite:///path/trees.db?table=asts&column=ast     → [SQLite]
//
// Every failure, and an empty collection, is reported as a load error
// ([errors.ErrCodeLoad] or [errors.ErrCodeEmptyCollection]) so callers can
// treat "no data" uniformly.
package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/errors"
)

// Messages shown when a collection cannot be obtained.
const (
	MsgLoadFailed = "Failed to load AST data"
	MsgEmpty      = "No AST data available"
)

// Source yields an AST collection.
type Source interface {
	// Load fetches the collection. The result is never empty on success.
	Load(ctx context.Context) (ast.Collection, error)
	// String identifies the source in logs and cache keys.
	String() string
}

// Open returns the source addressed by uri.
func Open(uri string) (Source, error) {
	if err := errors.ValidateSourceURI(uri); err != nil {
		return nil, err
	}

	scheme := ""
	if i := strings.Index(uri, "://"); i > 0 {
		scheme = strings.ToLower(uri[:i])
	}

	switch scheme {
	case "http", "https":
		if err := errors.ValidateURL(uri); err != nil {
			return nil, err
		}
		return NewHTTP(uri, nil), nil
	case "mongodb", "mongodb+srv":
		return ParseMongoURI(uri)
	case "sqlite":
		return ParseSQLiteURI(uri)
	case "file":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSource, err, "invalid file URI %q", uri)
		}
		return NewFile(u.Path), nil
	case "":
		return NewFile(uri), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidSource, "unsupported source scheme %q", scheme)
	}
}

// result normalizes a load outcome: failures become load errors and an
// empty collection becomes an empty-collection error.
func result(coll ast.Collection, err error) (ast.Collection, error) {
	if err != nil {
		if errors.IsLoad(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeLoad, err, MsgLoadFailed)
	}
	if len(coll) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyCollection, MsgEmpty)
	}
	return coll, nil
}

// =============================================================================
// Static
// =============================================================================

// Static is an in-memory collection.
type Static struct {
	Name       string
	Collection ast.Collection
}

// NewStatic wraps coll as a source.
func NewStatic(coll ast.Collection) *Static {
	return &Static{Name: "static", Collection: coll}
}

// Load returns the wrapped collection.
func (s *Static) Load(ctx context.Context) (ast.Collection, error) {
	if err := ctx.Err(); err != nil {
		return result(nil, err)
	}
	return result(s.Collection, nil)
}

func (s *Static) String() string { return s.Name }

var (
	_ Source = (*Static)(nil)
	_ Source = (*File)(nil)
	_ Source = (*HTTP)(nil)
	_ Source = (*Mongo)(nil)
	_ Source = (*SQLite)(nil)
	_ Source = (*Cached)(nil)
)
