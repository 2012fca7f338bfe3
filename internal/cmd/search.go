package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bioneural/spill/internal/query"
	"github.com/bioneural/spill/internal/record"
	"github.com/bioneural/spill/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search log records by tool, level, time and message",
	Long: `Search the log store. Filters are optional and conjunctive: every
supplied filter must match.

Examples:
  # All errors from one tool
  spill search --tool crib --level error

  # Records from the last hour mentioning sqlite3
  spill search --since 1h --msg sqlite3`,
	RunE: runSearch,
}

var (
	searchTool  string
	searchLevel string
	searchSince string
	searchMsg   string
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchTool, "tool", "", "Filter by tool name (exact match)")
	searchCmd.Flags().StringVar(&searchLevel, "level", "", "Filter by level (debug/info/warn/error)")
	searchCmd.Flags().StringVar(&searchSince, "since", "", "Records at or after this time (timestamp, RFC3339 or duration ago like 1h)")
	searchCmd.Flags().StringVar(&searchMsg, "msg", "", "Filter by message substring (case-sensitive)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	f := store.Filter{
		Tool:        searchTool,
		MsgContains: searchMsg,
	}

	if searchLevel != "" {
		level := strings.ToLower(searchLevel)
		if !record.ValidLevel(level) {
			return fmt.Errorf("invalid level %q (valid: %s)",
				searchLevel, strings.Join(record.ValidLevels(), ", "))
		}
		f.Level = level
	}

	if searchSince != "" {
		since, err := parseSince(searchSince)
		if err != nil {
			return err
		}
		f.Since = since
	}

	st, _ := openStore()
	defer st.Close()

	recs, err := query.Search(st, f)
	if err != nil {
		return fmt.Errorf("failed to search log store: %w", err)
	}

	color := colorEnabled()
	for _, rec := range recs {
		fmt.Fprintln(cmd.OutOrStdout(), formatRecord(rec, color))
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No matching records found.")
	}
	return nil
}

// parseSince accepts the record timestamp layout, RFC3339, or a
// duration ago (e.g. 1h, 30m).
func parseSince(s string) (time.Time, error) {
	if t, err := record.ParseTS(s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().UTC().Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("invalid --since value %q", s)
}
