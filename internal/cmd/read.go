package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bioneural/spill/internal/query"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Dump every record as raw JSON lines",
	Long: `Stream the raw record stream to stdout, one JSON object per line,
for downstream piping. No filtering or reformatting is applied.`,
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	st, _ := openStore()
	defer st.Close()

	if err := query.Dump(st, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to dump log store: %w", err)
	}
	return nil
}
