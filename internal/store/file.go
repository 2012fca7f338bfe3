package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/valyala/fastjson"

	"github.com/bioneural/spill/internal/record"
)

// maxLineBytes is the scanner buffer ceiling for a single record line.
const maxLineBytes = 1024 * 1024

// FileStore is the append-only file backend. Every operation is a full
// open/act/close cycle: concurrency safety comes from the kernel's
// O_APPEND contract for writes of modest size, and re-opening on every
// call means the store recovers transparently when the live file has
// been rotated away between calls.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore for the given destination path.
// The file is not created until the first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the live destination path.
func (s *FileStore) Path() string {
	return s.path
}

// InitIfAbsent creates the destination's parent directory. The file
// itself is created by the first append. MkdirAll is idempotent, so
// concurrent first-use races are harmless.
func (s *FileStore) InitIfAbsent() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Append writes one encoded record line in a single open/write/close
// cycle. The encoded line stays well under the kernel's atomic append
// threshold for typical messages, so concurrent writers cannot
// interleave within a line.
func (s *FileStore) Append(rec record.Record) error {
	line, err := rec.Encode()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	_, werr := f.Write(line)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("failed to append record: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("failed to close log file: %w", cerr)
	}
	return nil
}

// Size returns the live file's size, or 0 if it does not exist.
func (s *FileStore) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat log file: %w", err)
	}
	return info.Size(), nil
}

// Scan streams matching records in file order. A missing file yields
// no records and no error. Lines that do not parse as records are
// skipped: a torn final line from a writer mid-append must not poison
// the rest of the stream.
func (s *FileStore) Scan(f Filter, fn func(rec record.Record) error) error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var parser fastjson.Parser
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// Cheap field probes first; full decode only for lines that
		// pass the filter.
		if !lineMatches(&parser, line, f) {
			continue
		}

		rec, err := record.Decode(line)
		if err != nil {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return nil
}

// lineMatches evaluates the filter against a raw line without a full
// decode. Unparseable lines never match.
func lineMatches(p *fastjson.Parser, line []byte, f Filter) bool {
	v, err := p.ParseBytes(line)
	if err != nil {
		return false
	}
	if f.Tool != "" && string(v.GetStringBytes("tool")) != f.Tool {
		return false
	}
	if f.Level != "" && string(v.GetStringBytes("level")) != f.Level {
		return false
	}
	if f.MsgContains != "" && !bytes.Contains(v.GetStringBytes("msg"), []byte(f.MsgContains)) {
		return false
	}
	if !f.Since.IsZero() {
		ts, err := record.ParseTS(string(v.GetStringBytes("ts")))
		if err != nil || ts.Before(f.Since) {
			return false
		}
	}
	return true
}

// Dump copies the raw file contents to w. The stored form is already
// one JSON line per record, so no re-encoding happens here.
func (s *FileStore) Dump(w io.Writer) error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("failed to dump log file: %w", err)
	}
	return nil
}

// Enforce rotates the live file once its size has reached the bound.
func (s *FileStore) Enforce(cfg BoundConfig) error {
	if cfg.MaxBytes == 0 {
		return nil
	}
	size, err := s.Size()
	if err != nil {
		return err
	}
	if size < cfg.MaxBytes {
		return nil
	}
	return s.rotate(cfg)
}

// Compact forces an immediate rotation regardless of size.
func (s *FileStore) Compact(cfg BoundConfig) error {
	return s.rotate(cfg)
}

// Close is a no-op; FileStore holds no resources between calls.
func (s *FileStore) Close() error {
	return nil
}
