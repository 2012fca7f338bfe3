package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bioneural/spill/internal/query"
	"github.com/bioneural/spill/internal/store"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Force an immediate rotation of the live log file",
	Long: `Rename the live log file to a timestamp-named generation regardless
of its size, then prune generations beyond the retention count. The
next write starts a fresh file. File backend only; use 'spill cull'
for the sqlite backend.`,
	RunE: runRotate,
}

var rotateKeep int

func init() {
	rootCmd.AddCommand(rotateCmd)

	rotateCmd.Flags().IntVar(&rotateKeep, "keep", -1, "Rotated generations to retain (default: configured value)")
}

func runRotate(cmd *cobra.Command, args []string) error {
	st, cfg := openStore()
	defer st.Close()

	if store.IsIndexed(cfg.Dest) {
		return fmt.Errorf("rotate applies to the file backend; use 'spill cull' for %s", cfg.Dest)
	}

	bounds := cfg.Bounds()
	if rotateKeep >= 0 {
		bounds.Keep = rotateKeep
	}

	if err := query.Compact(st, bounds); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rotated %s (keeping %d generations)\n", cfg.Dest, bounds.Keep)
	return nil
}
