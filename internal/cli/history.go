package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"brickgrid.ai/internal/persistence/indexdb"
)

func newHistoryCmd() *cobra.Command {
	var dataDir, run string
	cmd := &cobra.Command{
		Use:   "history <object-id>",
		Short: "Print the indexed audit trail of one object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := indexPath(dataDir)
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("index: %w", err)
			}
			idx, err := indexdb.OpenSQLite(path, indexdb.Options{Logger: loggerFromContext(cmd.Context())})
			if err != nil {
				return err
			}
			defer idx.Close()
			rows, err := idx.History(cmd.Context(), run, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range rows {
				fmt.Fprintf(out, "%-12s %6d.%-3d %-11s pos=%v", r.Run, r.Tick, r.Seq, r.Action, r.Pos)
				if r.Dir != "" {
					fmt.Fprintf(out, " dir=%s", r.Dir)
				}
				if r.Reason != "" {
					fmt.Fprintf(out, " reason=%s", r.Reason)
				}
				fmt.Fprintln(out)
			}
			if len(rows) == 0 {
				loggerFromContext(cmd.Context()).Info("no audit entries", "object", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", "./data", "runtime data directory")
	cmd.Flags().StringVar(&run, "run", "", "only show entries of this run (scenario name)")
	return cmd
}
