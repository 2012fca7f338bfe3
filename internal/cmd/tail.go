package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bioneural/spill/internal/query"
	"github.com/bioneural/spill/internal/record"
	"github.com/bioneural/spill/internal/store"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recent log records",
	Long: `Show the last N records from the log store, oldest first, with
level-colorized output when stdout is a terminal.

Examples:
  # Show the last 20 records
  spill tail

  # Show the last 100 records
  spill tail --lines 100

  # Stream new records as they arrive (file backend only)
  spill tail -f`,
	RunE: runTail,
}

var (
	tailLines  int
	tailFollow bool
)

func init() {
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().IntVarP(&tailLines, "lines", "n", 20, "Number of records to show")
	tailCmd.Flags().BoolVarP(&tailFollow, "follow", "f", false, "Follow the live file (like tail -f)")
}

func runTail(cmd *cobra.Command, args []string) error {
	st, cfg := openStore()
	defer st.Close()

	color := colorEnabled()

	recs, err := query.Tail(st, tailLines)
	if err != nil {
		return fmt.Errorf("failed to read log store: %w", err)
	}
	for _, rec := range recs {
		fmt.Fprintln(cmd.OutOrStdout(), formatRecord(rec, color))
	}

	if !tailFollow {
		return nil
	}
	if store.IsIndexed(cfg.Dest) {
		return fmt.Errorf("--follow is only supported by the file backend")
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Following logs... (Ctrl+C to stop)")
	return query.Follow(cmd.Context(), cfg.Dest, func(rec record.Record) error {
		fmt.Fprintln(cmd.OutOrStdout(), formatRecord(rec, color))
		return nil
	})
}
