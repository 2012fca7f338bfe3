package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bioneural/spill/internal/record"
)

func TestFileStoreEnforce(t *testing.T) {
	t.Run("rotates when size reaches the bound", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "spill.log")
		st := NewFileStore(path)

		if err := st.Append(testRecord("crib", record.LevelInfo, "hello", 0)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := st.Enforce(BoundConfig{MaxBytes: 1, Keep: 3}); err != nil {
			t.Fatalf("Enforce failed: %v", err)
		}

		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("live file still present after rotation")
		}
		gens, err := st.generations()
		if err != nil {
			t.Fatalf("generations failed: %v", err)
		}
		if len(gens) != 1 {
			t.Fatalf("got %d generations, want 1", len(gens))
		}
		if !strings.HasSuffix(gens[0], ".log") {
			t.Errorf("generation %q does not keep the extension", gens[0])
		}
	})

	t.Run("zero bound disables enforcement", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "spill.log")
		st := NewFileStore(path)

		if err := st.Append(testRecord("crib", record.LevelInfo, "hello", 0)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := st.Enforce(BoundConfig{MaxBytes: 0}); err != nil {
			t.Fatalf("Enforce failed: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Error("live file rotated despite zero bound")
		}
	})

	t.Run("below the bound is a no-op", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "spill.log")
		st := NewFileStore(path)

		if err := st.Append(testRecord("crib", record.LevelInfo, "hello", 0)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := st.Enforce(BoundConfig{MaxBytes: 1 << 20, Keep: 3}); err != nil {
			t.Fatalf("Enforce failed: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Error("live file rotated below the bound")
		}
	})

	t.Run("no record is lost across rotation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "spill.log")
		st := NewFileStore(path)

		if err := st.Append(testRecord("crib", record.LevelInfo, "old", 0)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := st.Enforce(BoundConfig{MaxBytes: 1, Keep: 3}); err != nil {
			t.Fatalf("Enforce failed: %v", err)
		}
		if err := st.Append(testRecord("crib", record.LevelInfo, "new", time.Second)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		gens, _ := st.generations()
		if len(gens) != 1 {
			t.Fatalf("got %d generations, want 1", len(gens))
		}
		old, err := os.ReadFile(gens[0])
		if err != nil {
			t.Fatalf("failed to read generation: %v", err)
		}
		if !strings.Contains(string(old), `"old"`) {
			t.Error("rotated generation lost the pre-rotation record")
		}

		live := collect(t, st, Filter{})
		if len(live) != 1 || live[0].Msg != "new" {
			t.Errorf("live file = %v, want single 'new' record", live)
		}
	})
}

func TestFileStoreCompact(t *testing.T) {
	t.Run("rotates regardless of size", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "spill.log")
		st := NewFileStore(path)

		if err := st.Append(testRecord("crib", record.LevelInfo, "tiny", 0)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := st.Compact(BoundConfig{MaxBytes: 1 << 30, Keep: 3}); err != nil {
			t.Fatalf("Compact failed: %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("live file still present after forced rotation")
		}
	})

	t.Run("missing file is a no-op", func(t *testing.T) {
		st := NewFileStore(filepath.Join(t.TempDir(), "absent.log"))
		if err := st.Compact(BoundConfig{Keep: 3}); err != nil {
			t.Errorf("Compact on missing file = %v, want nil (lost-race semantics)", err)
		}
	})
}

func TestPruneGenerations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spill.log")
	st := NewFileStore(path)

	// Fabricate five generations with increasing capture stamps.
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("spill-2026082%d-000000.log", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0644); err != nil {
			t.Fatalf("failed to seed generation: %v", err)
		}
	}

	if err := st.pruneGenerations(2); err != nil {
		t.Fatalf("pruneGenerations failed: %v", err)
	}

	gens, err := st.generations()
	if err != nil {
		t.Fatalf("generations failed: %v", err)
	}
	if len(gens) != 2 {
		t.Fatalf("got %d generations after prune, want 2", len(gens))
	}
	// The newest two survive.
	for _, g := range gens {
		if !strings.Contains(g, "20260823") && !strings.Contains(g, "20260824") {
			t.Errorf("unexpected survivor %q", g)
		}
	}
}

func TestRotateCompress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spill.log")
	st := NewFileStore(path)

	if err := st.Append(testRecord("crib", record.LevelInfo, "compress me", 0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := st.Compact(BoundConfig{Keep: 3, Compress: true}); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	gens, err := st.generations()
	if err != nil {
		t.Fatalf("generations failed: %v", err)
	}
	if len(gens) != 1 {
		t.Fatalf("got %d generations, want 1", len(gens))
	}
	if !strings.HasSuffix(gens[0], ".gz") {
		t.Errorf("generation %q not compressed", gens[0])
	}
}

func TestGenerationPath(t *testing.T) {
	st := NewFileStore("/var/log/spill.log")
	ts := time.Date(2026, 8, 25, 15, 30, 0, 0, time.UTC)

	got := st.generationPath(ts)
	if got != "/var/log/spill-20260825-153000.log" {
		t.Errorf("generationPath = %q", got)
	}
}
