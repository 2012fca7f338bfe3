// Package record defines the structured log record shared by the write
// and read paths, along with its line-delimited JSON encoding. A record
// is the atomic unit of durable output: one record per line in the file
// backend, one row in the sqlite backend.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Log levels supported by the logger, ordered by severity.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// TimeLayout is the fixed textual form of record timestamps:
// UTC, millisecond precision, trailing Z.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Record is one structured log event.
//
// Ctx is nil when the emitter supplied no extra fields; an absent ctx
// and an empty ctx are the same thing and both serialize to no "ctx"
// key at all.
type Record struct {
	TS    time.Time
	Tool  string
	Level string
	Msg   string
	PID   int
	Ctx   map[string]any
}

// wireRecord is the JSON shape written to the file backend.
type wireRecord struct {
	TS    string         `json:"ts"`
	Tool  string         `json:"tool"`
	Level string         `json:"level"`
	Msg   string         `json:"msg"`
	PID   int            `json:"pid"`
	Ctx   map[string]any `json:"ctx,omitempty"`
}

// Encode serializes the record as a single JSON line, newline included.
func (r Record) Encode() ([]byte, error) {
	w := wireRecord{
		TS:    FormatTS(r.TS),
		Tool:  r.Tool,
		Level: r.Level,
		Msg:   r.Msg,
		PID:   r.PID,
	}
	if len(r.Ctx) > 0 {
		w.Ctx = r.Ctx
	}

	buf, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return append(buf, '\n'), nil
}

// Decode parses one serialized record line.
func Decode(line []byte) (Record, error) {
	var w wireRecord
	dec := json.NewDecoder(bytes.NewReader(line))
	if err := dec.Decode(&w); err != nil {
		return Record{}, fmt.Errorf("failed to decode record: %w", err)
	}

	ts, err := ParseTS(w.TS)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		TS:    ts,
		Tool:  w.Tool,
		Level: w.Level,
		Msg:   w.Msg,
		PID:   w.PID,
	}
	if len(w.Ctx) > 0 {
		rec.Ctx = w.Ctx
	}
	return rec, nil
}

// FormatTS renders an instant in the fixed record timestamp layout.
func FormatTS(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTS parses a timestamp in the fixed record layout.
func ParseTS(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid record timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseLevel normalizes a level string to a member of the closed set.
// Unrecognized levels default to info.
func ParseLevel(level string) string {
	switch strings.ToLower(level) {
	case LevelDebug:
		return LevelDebug
	case LevelInfo:
		return LevelInfo
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevel reports whether level is a member of the closed set.
func ValidLevel(level string) bool {
	switch level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
