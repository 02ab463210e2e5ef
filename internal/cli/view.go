package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/astview/pkg/viewer"
)

// viewCommand creates the view command, an interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		rf    renderFlags
		index int
	)

	cmd := &cobra.Command{
		Use:   "view [source]",
		Short: "Step through an AST collection in the terminal",
		Long: `Load an AST collection and show one tree at a time with its file path,
line range and node type. Use the arrow keys to move between trees; the
counter wraps around at both ends. Press s to save the current tree as SVG.`,
		Example: `  astview view trees.json
  astview view http://localhost:8000/ast --index 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			opts := c.options(cmd.Flags(), &rf)
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, rf.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			src, err := c.openSource(args, runner.Cache)
			if err != nil {
				return err
			}

			model := NewViewerModel(ctx, src, runner,
				viewer.WithLogger(c.Logger),
				viewer.WithRenderOptions(opts),
				viewer.WithIndex(index),
			)
			final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if err != nil {
				return fmt.Errorf("run viewer: %w", err)
			}
			if m, ok := final.(ViewerModel); ok && m.Err != nil {
				return m.Err
			}
			return nil
		},
	}

	c.bindRenderFlags(cmd.Flags(), &rf, false)
	cmd.Flags().IntVarP(&index, "index", "i", 0, "tree to show first")

	return cmd
}
