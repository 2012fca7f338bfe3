// Package store provides the durable destinations for log records: an
// append-only file of JSON lines and a sqlite table, behind one flat
// interface. Both are written to by many uncoordinated OS processes at
// once, so every operation is a complete, independent cycle against the
// destination with no handle held across calls and no lock file.
//
// The package also enforces the destination's size bound: rotation for
// the file backend, culling for the sqlite backend.
package store

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bioneural/spill/internal/record"
)

// ErrCorrupted indicates the destination exists but cannot be read.
// A missing or empty destination is never an error.
var ErrCorrupted = errors.New("log destination is corrupted")

// Filter selects records on the read side. All fields are optional and
// conjunctive: a zero field matches everything.
type Filter struct {
	// Tool matches the tool field exactly.
	Tool string
	// Level matches the level field exactly.
	Level string
	// Since matches records with timestamp >= Since.
	Since time.Time
	// MsgContains matches messages containing this substring,
	// case-sensitively.
	MsgContains string
}

// matches reports whether rec passes every set field of the filter.
func (f Filter) matches(rec record.Record) bool {
	if f.Tool != "" && rec.Tool != f.Tool {
		return false
	}
	if f.Level != "" && rec.Level != f.Level {
		return false
	}
	if !f.Since.IsZero() && rec.TS.Before(f.Since) {
		return false
	}
	if f.MsgContains != "" && !strings.Contains(rec.Msg, f.MsgContains) {
		return false
	}
	return true
}

// BoundConfig controls how the destination's footprint is bounded.
type BoundConfig struct {
	// MaxBytes is the on-disk size at which compaction triggers.
	// Zero disables bound enforcement entirely.
	MaxBytes int64
	// Keep is the number of rotated generations to retain (file
	// backend only). Older generations are deleted first.
	Keep int
	// Compress gzips rotated generations (file backend only).
	Compress bool
}

// Store is the capability contract shared by both backends.
//
// Append, Size and InitIfAbsent form the write side and must be safe
// under concurrent use from multiple processes with no external
// coordination. Scan and Dump form the read side and must tolerate an
// absent destination by producing nothing.
type Store interface {
	// Append durably persists one record.
	Append(rec record.Record) error

	// Size returns the destination's current on-disk footprint in
	// bytes, or 0 if it does not exist.
	Size() (int64, error)

	// InitIfAbsent creates the destination and any required structure
	// if missing. Safe under concurrent first-use races.
	InitIfAbsent() error

	// Scan streams records matching the filter, in storage order,
	// to fn. fn returning an error stops the scan and propagates it.
	Scan(f Filter, fn func(rec record.Record) error) error

	// Dump streams every stored record to w, one JSON line per
	// record, without filtering.
	Dump(w io.Writer) error

	// Enforce compacts the destination if its size has reached
	// cfg.MaxBytes. A zero MaxBytes is a no-op.
	Enforce(cfg BoundConfig) error

	// Compact forces an immediate compaction regardless of size:
	// rotation for the file backend, culling for the sqlite backend.
	Compact(cfg BoundConfig) error

	// Close releases any resources held by the store value itself.
	// The destination is unaffected.
	Close() error
}

// IsIndexed reports whether path selects the sqlite backend.
// Selection is by extension; everything else is the file backend.
func IsIndexed(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Open returns the backend matching the destination path.
func Open(path string) Store {
	if IsIndexed(path) {
		return NewSQLiteStore(path)
	}
	return NewFileStore(path)
}
