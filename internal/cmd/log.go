package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bioneural/spill/internal/config"
	"github.com/bioneural/spill/internal/logger"
	"github.com/bioneural/spill/internal/record"
)

var logCmd = &cobra.Command{
	Use:   "log <level> <message>",
	Short: "Emit one log record from the command line",
	Long: `Emit a diagnostic message through the write path: the "{tool}: {message}"
line goes to stderr, and a structured record is persisted best-effort.
This is how shell tools without an embedded integration write to the
shared store.

Examples:
  spill log info "stored entry #42" --tool crib --ctx entry_id=42
  spill log error "sqlite3 error: locked" --tool crib --ctx command=sqlite3`,
	Args: cobra.ExactArgs(2),
	RunE: runLog,
}

var logCtx []string

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().String("tool", "", "Tool identity (default: $SPILL_TOOL or 'unknown')")
	_ = viper.BindPFlag("tool", logCmd.Flags().Lookup("tool"))
	logCmd.Flags().StringArrayVar(&logCtx, "ctx", nil, "Context field as key=value (repeatable)")
}

func runLog(cmd *cobra.Command, args []string) error {
	level := strings.ToLower(args[0])
	if !record.ValidLevel(level) {
		return fmt.Errorf("invalid level %q (valid: %s)",
			args[0], strings.Join(record.ValidLevels(), ", "))
	}

	ctx, err := parseCtx(logCtx)
	if err != nil {
		return err
	}

	cfg := config.Get()
	l := logger.New(logger.Options{
		Tool:   cfg.Tool,
		Dest:   cfg.Dest,
		Bounds: cfg.Bounds(),
		Stderr: cmd.ErrOrStderr(),
	})
	defer l.Close()

	l.Emit(level, args[1], ctx)
	return nil
}

// parseCtx turns repeated key=value flags into a context map. Values
// that parse as JSON keep their type (42 stays a number, true a bool);
// anything else is a string.
func parseCtx(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	ctx := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --ctx value %q (want key=value)", pair)
		}

		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		ctx[key] = v
	}
	return ctx, nil
}
