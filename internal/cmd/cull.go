package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bioneural/spill/internal/query"
	"github.com/bioneural/spill/internal/store"
)

var cullCmd = &cobra.Command{
	Use:   "cull",
	Short: "Delete the oldest half of stored records",
	Long: `Delete the oldest half of rows from the sqlite log store and reclaim
the freed space. This is destructive: the deleted history is gone.
Sqlite backend only; use 'spill rotate' for the file backend.`,
	RunE: runCull,
}

func init() {
	rootCmd.AddCommand(cullCmd)
}

func runCull(cmd *cobra.Command, args []string) error {
	st, cfg := openStore()
	defer st.Close()

	if !store.IsIndexed(cfg.Dest) {
		return fmt.Errorf("cull applies to the sqlite backend; use 'spill rotate' for %s", cfg.Dest)
	}

	if err := query.Compact(st, cfg.Bounds()); err != nil {
		return fmt.Errorf("failed to cull log store: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Culled oldest records from %s\n", cfg.Dest)
	return nil
}
