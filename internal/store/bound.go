package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// generationStamp is the capture-time layout embedded in rotated file
// names: <base>-<YYYYMMDD>-<HHMMSS><ext>, UTC.
const generationStamp = "20060102-150405"

// rotate renames the live file to a timestamp-named generation, prunes
// surplus generations, and optionally compresses the new one. The next
// append recreates the live file, so no writer is ever blocked.
//
// The rename is atomic at the filesystem level: when two processes
// cross the threshold simultaneously, exactly one rename succeeds and
// the loser's attempt fails with ENOENT, which is discarded as a no-op.
func (s *FileStore) rotate(cfg BoundConfig) error {
	rotated := s.generationPath(time.Now().UTC())

	if err := os.Rename(s.path, rotated); err != nil {
		if os.IsNotExist(err) {
			// Lost the rotation race, or nothing to rotate.
			return nil
		}
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	if cfg.Compress {
		// Compression failure leaves the uncompressed generation in
		// place; it still counts against the retention limit.
		if err := compressGeneration(rotated); err == nil {
			rotated += ".gz"
		}
	}

	return s.pruneGenerations(cfg.Keep)
}

// generationPath names a rotated generation after its capture time.
func (s *FileStore) generationPath(t time.Time) string {
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext)
	return fmt.Sprintf("%s-%s%s", base, t.Format(generationStamp), ext)
}

// generations returns all rotated generation paths, oldest first. The
// timestamp in the name sorts lexically, so a plain sort suffices.
func (s *FileStore) generations() ([]string, error) {
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext)

	pattern := fmt.Sprintf("%s-????????-??????%s", base, ext)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	gz, err := filepath.Glob(pattern + ".gz")
	if err != nil {
		return nil, err
	}
	matches = append(matches, gz...)

	sort.Strings(matches)
	return matches, nil
}

// pruneGenerations deletes the oldest generations beyond keep.
func (s *FileStore) pruneGenerations(keep int) error {
	gens, err := s.generations()
	if err != nil {
		return err
	}
	if keep < 0 {
		keep = 0
	}
	if len(gens) <= keep {
		return nil
	}

	var firstErr error
	for _, path := range gens[:len(gens)-keep] {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("failed to prune rotated log: %w", err)
		}
	}
	return firstErr
}

// compressGeneration gzips a rotated generation and removes the
// original only after the compressed copy is fully written.
func compressGeneration(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	gzPath := path + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		return err
	}

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		dst.Close()
		os.Remove(gzPath)
		return err
	}
	if err := gw.Close(); err != nil {
		dst.Close()
		os.Remove(gzPath)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(gzPath)
		return err
	}

	return os.Remove(path)
}
