package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"brickgrid.ai/internal/sim/catalogs"
)

func newCatalogCmd() *cobra.Command {
	var configDir string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate the block catalog and print its digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := catalogs.Load(configDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "blocks=%d palette_digest=%s defs_digest=%s\n",
				len(cats.Blocks.Palette), cats.Blocks.PaletteDigest, cats.Blocks.DefsDigest)
			for _, id := range cats.Blocks.Palette {
				t := cats.Blocks.Defs[id]
				fmt.Fprintf(out, "  %-11s %dx%d cells=%d\n", id, t.Width, t.Depth, len(t.Cells()))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "configs", "./configs", "config directory")
	return cmd
}
