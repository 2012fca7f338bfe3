package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bioneural/spill/internal/record"
	"github.com/bioneural/spill/internal/store"
)

func readRecords(t *testing.T, path string) []record.Record {
	t.Helper()
	var out []record.Record
	st := store.Open(path)
	defer st.Close()
	if err := st.Scan(store.Filter{}, func(rec record.Record) error {
		out = append(out, rec)
		return nil
	}); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return out
}

func TestEmitWritesStderrFirst(t *testing.T) {
	var stderr bytes.Buffer
	l := New(Options{Tool: "crib", Stderr: &stderr})

	l.Info("stored entry #42", nil)

	if got := stderr.String(); got != "crib: stored entry #42\n" {
		t.Errorf("stderr = %q, want %q", got, "crib: stored entry #42\n")
	}
}

func TestEmitWithoutDestination(t *testing.T) {
	var stderr bytes.Buffer
	l := New(Options{Tool: "crib", Stderr: &stderr})

	l.Error("boom", map[string]any{"k": "v"})

	if !strings.Contains(stderr.String(), "crib: boom") {
		t.Errorf("stderr = %q", stderr.String())
	}
	// Nothing else to assert: no destination means no durable write.
}

func TestEmitPersistsRecord(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "spill.log")
	var stderr bytes.Buffer
	l := New(Options{Tool: "crib", Dest: dest, Stderr: &stderr})

	l.Info("stored entry #42", map[string]any{"entry_id": 42})
	l.Error("sqlite3 error: x", map[string]any{"command": "sqlite3"})

	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	if len(lines) != 2 || lines[0] != "crib: stored entry #42" || lines[1] != "crib: sqlite3 error: x" {
		t.Errorf("stderr lines = %v", lines)
	}

	recs := readRecords(t, dest)
	if len(recs) != 2 {
		t.Fatalf("got %d persisted records, want 2", len(recs))
	}
	if recs[0].Level != record.LevelInfo || recs[0].Ctx["entry_id"] != float64(42) {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].Level != record.LevelError || recs[1].Ctx["command"] != "sqlite3" {
		t.Errorf("second record = %+v", recs[1])
	}
	for _, rec := range recs {
		if rec.Tool != "crib" {
			t.Errorf("Tool = %q, want crib", rec.Tool)
		}
		if rec.PID != os.Getpid() {
			t.Errorf("PID = %d, want %d", rec.PID, os.Getpid())
		}
		if rec.TS.IsZero() {
			t.Error("TS not assigned")
		}
	}
}

func TestEmitOmitsEmptyContext(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "spill.log")
	l := New(Options{Tool: "crib", Dest: dest, Stderr: &bytes.Buffer{}})

	l.Info("no ctx", nil)
	l.Info("empty ctx", map[string]any{})

	recs := readRecords(t, dest)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.Ctx != nil {
			t.Errorf("Ctx = %v, want nil for %q", rec.Ctx, rec.Msg)
		}
	}
}

func TestEmitFailOpen(t *testing.T) {
	t.Run("unwritable destination directory", func(t *testing.T) {
		// A path under a regular file cannot be created.
		blocker := filepath.Join(t.TempDir(), "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create blocker: %v", err)
		}

		var stderr bytes.Buffer
		l := New(Options{Tool: "crib", Dest: filepath.Join(blocker, "spill.log"), Stderr: &stderr})

		// Must not panic or surface an error; the stderr line is the
		// only required effect.
		l.Warn("still fine", nil)

		if got := stderr.String(); got != "crib: still fine\n" {
			t.Errorf("stderr = %q", got)
		}
	})

	t.Run("defaults tool to unknown", func(t *testing.T) {
		var stderr bytes.Buffer
		l := New(Options{Stderr: &stderr})

		l.Debug("anonymous", nil)

		if got := stderr.String(); got != "unknown: anonymous\n" {
			t.Errorf("stderr = %q", got)
		}
	})
}

func TestEmitTriggersEnforcement(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "spill.log")
	l := New(Options{
		Tool:   "crib",
		Dest:   dest,
		Bounds: store.BoundConfig{MaxBytes: 1, Keep: 2},
		Stderr: &bytes.Buffer{},
	})

	// Every emit exceeds the one-byte bound, so each write rotates.
	l.Info("first", nil)

	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("live file not rotated after crossing the bound")
	}

	// The rotated generation holds the record.
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(dest), "spill-*"))
	if len(matches) != 1 {
		t.Errorf("got %d rotated generations, want 1", len(matches))
	}
}

func TestLevelWrappers(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "spill.log")
	l := New(Options{Tool: "crib", Dest: dest, Stderr: &bytes.Buffer{}})

	l.Debug("d", nil)
	l.Info("i", nil)
	l.Warn("w", nil)
	l.Error("e", nil)

	recs := readRecords(t, dest)
	if len(recs) != 4 {
		t.Fatalf("got %d records, want 4", len(recs))
	}
	want := []string{record.LevelDebug, record.LevelInfo, record.LevelWarn, record.LevelError}
	for i, rec := range recs {
		if rec.Level != want[i] {
			t.Errorf("record %d level = %q, want %q", i, rec.Level, want[i])
		}
	}
}

func TestEmitToSQLiteDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "spill.db")
	l := New(Options{Tool: "crib", Dest: dest, Stderr: &bytes.Buffer{}})
	defer l.Close()

	l.Info("row one", map[string]any{"n": 1})

	recs := readRecords(t, dest)
	if len(recs) != 1 || recs[0].Msg != "row one" {
		t.Errorf("records = %v", recs)
	}
}
