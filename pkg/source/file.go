package source

import (
	"context"

	"github.com/matzehuels/astview/pkg/ast"
)

// File reads a .json array or a .jsonl/.ndjson file.
type File struct {
	Path string
}

// NewFile returns a file source.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Load reads and decodes the file.
func (f *File) Load(ctx context.Context) (ast.Collection, error) {
	if err := ctx.Err(); err != nil {
		return result(nil, err)
	}
	return result(ast.ReadFile(f.Path))
}

func (f *File) String() string { return f.Path }
