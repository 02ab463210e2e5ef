package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/errors"
)

// Defaults for SQLite sources.
const (
	DefaultSQLiteTable  = "asts"
	DefaultSQLiteColumn = "ast"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite reads one JSON tree per row of a table, in rowid order.
type SQLite struct {
	Path   string
	Table  string
	Column string
}

// NewSQLite returns a SQLite source reading table.column.
func NewSQLite(path, table, column string) (*SQLite, error) {
	if table == "" {
		table = DefaultSQLiteTable
	}
	if column == "" {
		column = DefaultSQLiteColumn
	}
	for _, id := range []string{table, column} {
		if !identRe.MatchString(id) {
			return nil, errors.New(errors.ErrCodeInvalidSource, "invalid SQLite identifier %q", id)
		}
	}
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidSource, "SQLite source needs a database path")
	}
	return &SQLite{Path: path, Table: table, Column: column}, nil
}

// ParseSQLiteURI parses sqlite:///path/to.db?table=t&column=c.
func ParseSQLiteURI(uri string) (*SQLite, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSource, err, "invalid SQLite URI")
	}
	path := u.Host + u.Path
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidSource, "SQLite URI must name a database file")
	}
	q := u.Query()
	return NewSQLite(path, q.Get("table"), q.Get("column"))
}

// Load reads every row. NULL cells are skipped.
func (s *SQLite) Load(ctx context.Context) (ast.Collection, error) {
	// Opening a missing file would create an empty database.
	if _, err := os.Stat(s.Path); err != nil {
		return result(nil, err)
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return result(nil, err)
	}
	defer db.Close()
	return result(s.read(ctx, db))
}

func (s *SQLite) read(ctx context.Context, db *sql.DB) (ast.Collection, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY rowid", s.Column, s.Table, s.Column)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	var out ast.Collection
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		v, err := ast.Parse([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(out)+1, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLite) String() string {
	return fmt.Sprintf("sqlite:%s#%s.%s", s.Path, s.Table, s.Column)
}

// WriteSQLite stores coll in table.column of the database at path, creating
// the table if needed. It is the inverse of [SQLite.Load].
func WriteSQLite(ctx context.Context, path, table, column string, coll ast.Collection) error {
	s, err := NewSQLite(path, table, column)
	if err != nil {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, %s TEXT)", s.Table, s.Column)
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", s.Table, s.Column)
	for i, v := range coll {
		data, err := v.MarshalJSON()
		if err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, insert, string(data)); err != nil {
			return fmt.Errorf("insert tree %d: %w", i, err)
		}
	}
	return tx.Commit()
}
