package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/extract"
	"github.com/matzehuels/astview/pkg/source"
)

// extractOpts holds the command-line flags for the extract command.
type extractOpts struct {
	output      string
	workers     int
	maxFileSize int64
}

// extractCommand creates the extract command, which builds an AST
// collection from a source tree.
func (c *CLI) extractCommand() *cobra.Command {
	var opts extractOpts

	cmd := &cobra.Command{
		Use:   "extract <dir>",
		Short: "Extract function, class and type ASTs from source code",
		Long: fmt.Sprintf(`Walk a directory (honouring .gitignore), parse every supported file with
tree-sitter and emit one AST per definition. Each AST carries metadata with
its file path, line range and definition type.

Supported languages: %s

The output format follows the file extension: .json writes an array, .jsonl
one tree per line, and a sqlite:// URI (or .db file) writes a table that
"astview serve sqlite://..." can read back.`, strings.Join(extract.LanguageNames(), ", ")),
		Example: `  astview extract ./src -o trees.json
  astview extract . -o trees.jsonl
  astview extract . -o sqlite:///tmp/trees.db?table=asts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runExtract(ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file or sqlite:// URI (default stdout)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel parsers (default: number of CPUs)")
	cmd.Flags().Int64Var(&opts.maxFileSize, "max-file-size", extract.DefaultMaxFileSize, "skip files larger than this many bytes")

	return cmd
}

func (c *CLI) runExtract(ctx context.Context, dir string, opts extractOpts) error {
	exOpts := []extract.Option{
		extract.WithLogger(c.Logger),
		extract.WithMaxFileSize(opts.maxFileSize),
	}
	if opts.workers > 0 {
		exOpts = append(exOpts, extract.WithWorkers(opts.workers))
	}
	ex := extract.New(exOpts...)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Parsing %s...", dir))
	spinner.Start()
	prog := newProgress(loggerFromContext(ctx))
	coll, err := ex.ExtractDir(ctx, dir)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Extracted %d definitions", coll.Len()))

	if opts.output == "" {
		return ast.WriteCollection(os.Stdout, coll)
	}
	if err := writeCollection(ctx, opts.output, coll); err != nil {
		return err
	}

	printSuccess("Extracted %d definitions", coll.Len())
	printFile(opts.output)
	printNextStep("View them with", "astview serve "+sourceURI(opts.output))
	return nil
}

// sourceURI turns an output path into an argument other commands accept.
func sourceURI(output string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".db", ".sqlite", ".sqlite3":
		if !strings.HasPrefix(output, "sqlite://") {
			if abs, err := filepath.Abs(output); err == nil {
				return "sqlite://" + abs
			}
		}
	}
	return output
}

// writeCollection writes coll to a file or SQLite table chosen by output.
func writeCollection(ctx context.Context, output string, coll ast.Collection) error {
	if strings.HasPrefix(output, "sqlite://") {
		db, err := source.ParseSQLiteURI(output)
		if err != nil {
			return err
		}
		return source.WriteSQLite(ctx, db.Path, db.Table, db.Column, coll)
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".db", ".sqlite", ".sqlite3":
		return source.WriteSQLite(ctx, output, "", "", coll)
	case ".jsonl", ".ndjson":
		return writeFile(output, func(w io.Writer) error { return writeJSONL(w, coll) })
	default:
		return writeFile(output, func(w io.Writer) error { return ast.WriteCollection(w, coll) })
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// writeJSONL writes one compact tree per line.
func writeJSONL(w io.Writer, coll ast.Collection) error {
	for _, v := range coll {
		data, err := v.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}
