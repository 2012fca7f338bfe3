// Package logger is the write-path entry point shared by the tool
// processes that emit diagnostics. Every emit writes one plain
// "{tool}: {message}" line to standard error first and unconditionally;
// the structured record that follows is persisted best-effort and its
// failures never reach the caller.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bioneural/spill/internal/record"
	"github.com/bioneural/spill/internal/store"
)

// DefaultTool is the tool identity used when none was configured.
const DefaultTool = "unknown"

// Options configures a Logger. It is resolved once per process,
// typically by internal/config, and held by the caller; there is no
// package-level state.
type Options struct {
	// Tool is the short identity of the emitting process's owner.
	// Empty defaults to DefaultTool.
	Tool string

	// Dest is the durable destination path. Empty disables durable
	// persistence entirely; emits then only write to stderr.
	Dest string

	// Bounds controls size-triggered compaction of the destination.
	Bounds store.BoundConfig

	// Stderr overrides the required text output stream. Nil means
	// os.Stderr. Exposed for tests.
	Stderr io.Writer
}

// Logger is a process-scoped handle created once by New. It is safe
// for concurrent use: the store performs a complete open/write/close
// cycle per append and holds no shared mutable state.
type Logger struct {
	tool   string
	stderr io.Writer
	st     store.Store
	bounds store.BoundConfig
}

// New creates a Logger from resolved options. It never touches the
// destination; creation happens lazily on first emit.
func New(opts Options) *Logger {
	tool := opts.Tool
	if tool == "" {
		tool = DefaultTool
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	l := &Logger{
		tool:   tool,
		stderr: stderr,
		bounds: opts.Bounds,
	}
	if opts.Dest != "" {
		l.st = store.Open(opts.Dest)
	}
	return l
}

// Tool returns the configured tool identity.
func (l *Logger) Tool() string {
	return l.tool
}

// Emit writes the diagnostic line to stderr, then attempts the durable
// record. The stderr write is the caller's only required side effect;
// everything after it is best-effort and deliberately discarded on
// failure so that a broken destination never alters caller control
// flow.
func (l *Logger) Emit(level, msg string, ctx map[string]any) {
	fmt.Fprintf(l.stderr, "%s: %s\n", l.tool, msg)

	if l.st == nil {
		return
	}

	rec := record.Record{
		TS:    time.Now().UTC(),
		Tool:  l.tool,
		Level: record.ParseLevel(level),
		Msg:   msg,
		PID:   os.Getpid(),
	}
	if len(ctx) > 0 {
		rec.Ctx = ctx
	}

	// Fail-open: persistence and bound enforcement errors are
	// intentionally dropped here, not bubbled up.
	_ = l.st.InitIfAbsent()
	_ = l.st.Append(rec)
	_ = l.st.Enforce(l.bounds)
}

// Debug emits at debug level.
func (l *Logger) Debug(msg string, ctx map[string]any) {
	l.Emit(record.LevelDebug, msg, ctx)
}

// Info emits at info level.
func (l *Logger) Info(msg string, ctx map[string]any) {
	l.Emit(record.LevelInfo, msg, ctx)
}

// Warn emits at warn level.
func (l *Logger) Warn(msg string, ctx map[string]any) {
	l.Emit(record.LevelWarn, msg, ctx)
}

// Error emits at error level.
func (l *Logger) Error(msg string, ctx map[string]any) {
	l.Emit(record.LevelError, msg, ctx)
}

// Close releases the underlying store handle, if any.
func (l *Logger) Close() error {
	if l.st == nil {
		return nil
	}
	return l.st.Close()
}
