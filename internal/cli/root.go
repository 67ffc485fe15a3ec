// Package cli implements the brickgrid command-line interface.
//
// Commands:
//   - simulate: run a YAML placement scenario against the engine, writing
//     audit and tick logs and the SQLite index under the data directory
//   - catalog: validate the block catalog and print its digests
//   - history: print the indexed audit trail of one object
//   - replay: re-run a scenario and check each tick digest against its log
//
// All commands take --verbose (-v) for debug logging. The logger travels in
// the command context.
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "brickgrid",
		Short:        "brickgrid snaps bricks to a baseplate grid and tracks what holds them up",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newSimulateCmd())
	root.AddCommand(newCatalogCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newReplayCmd())
	return root
}

// Execute runs the CLI with ctx.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	root.SetErr(os.Stderr)
	return root.ExecuteContext(ctx)
}
