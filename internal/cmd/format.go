package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/bioneural/spill/internal/record"
)

var (
	tsStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	ctxStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// levelStyle returns the display style for a log level.
func levelStyle(level string) lipgloss.Style {
	switch level {
	case record.LevelDebug:
		return debugStyle
	case record.LevelInfo:
		return infoStyle
	case record.LevelWarn:
		return warnStyle
	case record.LevelError:
		return errorStyle
	default:
		return lipgloss.NewStyle()
	}
}

// colorEnabled reports whether stdout is a terminal that should get
// colorized output.
func colorEnabled() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// formatRecord renders one record for terminal display.
func formatRecord(rec record.Record, color bool) string {
	var sb strings.Builder

	ts := "[" + record.FormatTS(rec.TS) + "]"
	level := "[" + strings.ToUpper(rec.Level) + "]"
	if color {
		ts = tsStyle.Render(ts)
		level = levelStyle(rec.Level).Render(level)
	}

	sb.WriteString(ts)
	sb.WriteString(" ")
	sb.WriteString(level)
	sb.WriteString(" ")
	sb.WriteString(rec.Tool)
	sb.WriteString(": ")
	sb.WriteString(rec.Msg)

	// Context fields in deterministic order
	keys := make([]string, 0, len(rec.Ctx))
	for k := range rec.Ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field := fmt.Sprintf("%s=", k)
		if color {
			field = ctxStyle.Render(field)
		}
		sb.WriteString(" ")
		sb.WriteString(field)
		sb.WriteString(fmt.Sprintf("%v", rec.Ctx[k]))
	}

	return sb.String()
}
