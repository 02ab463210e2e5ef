package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/display"
	apperrors "github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/nav"
	"github.com/matzehuels/astview/pkg/viewer"
)

// inspectOpts holds the command-line flags for the inspect command.
type inspectOpts struct {
	index   int
	asJSON  bool
	summary bool
	noCache bool
}

// inspectCommand creates the inspect command, which prints display trees
// as indented text.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect [source]",
		Short: "Print the display tree of an AST",
		Long: `Print the normalized display tree of one AST as indented text, together
with its metadata. With --summary, list every tree of the collection instead.`,
		Example: `  astview inspect trees.json --index 2
  astview inspect trees.json --json
  astview inspect trees.jsonl --summary`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			runner, err := c.newRunner(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			coll, name, err := c.loadCollection(ctx, args, runner)
			if err != nil {
				return err
			}
			if opts.summary {
				printSummary(name, coll)
				return nil
			}
			if err := apperrors.ValidateIndex(opts.index, coll.Len()); err != nil {
				return err
			}
			return inspectTree(os.Stdout, coll, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.index, "index", "i", 0, "tree index to inspect")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the display tree as JSON")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "list every tree with its metadata")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the collection cache")

	return cmd
}

func inspectTree(w io.Writer, coll ast.Collection, opts inspectOpts) error {
	v := coll.At(opts.index)
	tree := display.Normalize(v)

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	}

	meta := viewer.NewMetaView(v, nav.State{Index: opts.index, Count: coll.Len()})
	printMeta(meta)
	printStats(display.Count(tree), display.Height(tree), false)
	fmt.Fprintln(w)
	return display.Format(w, tree)
}

func printSummary(name string, coll ast.Collection) {
	fmt.Println(StyleTitle.Render(name) + " " + StyleDim.Render(fmt.Sprintf("(%d trees)", coll.Len())))
	fmt.Println(summaryTable(coll))
}
