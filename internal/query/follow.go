package query

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/bioneural/spill/internal/record"
)

// Follow streams records appended to the live file destination as they
// arrive, like tail -f, invoking fn for each complete record. It
// watches the parent directory so it survives the live file being
// rotated away and recreated, and it tolerates the file not existing
// yet. Lines that do not parse as records are skipped.
//
// Follow blocks until ctx is canceled (returning nil) or fn returns an
// error (which is propagated). Only the file backend supports
// following.
func Follow(ctx context.Context, path string, fn func(rec record.Record) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch log directory: %w", err)
	}

	var file *os.File
	var reader *bufio.Reader
	var pending strings.Builder
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	open := func(seekEnd bool) error {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to open log file: %w", err)
		}
		if seekEnd {
			if _, err := f.Seek(0, io.SeekEnd); err != nil {
				f.Close()
				return fmt.Errorf("failed to seek log file: %w", err)
			}
		}
		file = f
		reader = bufio.NewReader(f)
		pending.Reset()
		return nil
	}

	closeFile := func() {
		if file != nil {
			file.Close()
			file = nil
			reader = nil
		}
	}

	// drain reads everything currently appended. A trailing chunk
	// with no newline yet stays pending until the writer finishes
	// the line.
	drain := func() error {
		for {
			chunk, err := reader.ReadString('\n')
			pending.WriteString(chunk)
			if err != nil {
				return nil
			}

			line := strings.TrimSpace(pending.String())
			pending.Reset()
			if line == "" {
				continue
			}
			rec, derr := record.Decode([]byte(line))
			if derr != nil {
				continue
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
	}

	// Start at the current end of the file; only new records are
	// streamed.
	if err := open(true); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}

			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// Rotated away; the next create starts a fresh
				// generation.
				closeFile()
				continue
			}
			if event.Op&fsnotify.Create != 0 && file == nil {
				if err := open(false); err != nil {
					return err
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if file == nil {
					if err := open(false); err != nil {
						return err
					}
				}
				if file == nil {
					continue
				}
				if err := drain(); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}
