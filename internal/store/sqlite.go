package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/bioneural/spill/internal/record"
)

// sqlitePragmas holds the connection pragmas the write path relies on:
// WAL journaling so concurrent writers serialize through the engine,
// and a bounded lock wait so a contended writer fails fast instead of
// erroring immediately or retrying forever.
const sqlitePragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS logs (
    id    INTEGER PRIMARY KEY AUTOINCREMENT,
    ts    TEXT    NOT NULL,
    tool  TEXT    NOT NULL,
    level TEXT    NOT NULL,
    msg   TEXT    NOT NULL,
    pid   INTEGER NOT NULL,
    ctx   TEXT
);
CREATE INDEX IF NOT EXISTS idx_logs_ts ON logs(ts);
CREATE INDEX IF NOT EXISTS idx_logs_tool ON logs(tool);
CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
CREATE INDEX IF NOT EXISTS idx_logs_tool_level ON logs(tool, level);
`

// SQLiteStore is the relational backend: one table keyed by an
// auto-incrementing id, with secondary indexes matching the query
// engine's common filters. Cross-process concurrency safety is
// delegated to sqlite's WAL mode plus a busy timeout.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore returns a SQLiteStore for the given database path.
// No connection is opened until first use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// open returns the lazily created connection pool.
func (s *SQLiteStore) open() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("sqlite", "file:"+s.path+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open log database: %w", err)
	}
	s.db = db
	return db, nil
}

// InitIfAbsent creates the database, table and indexes if missing.
// Everything is IF NOT EXISTS, so two processes racing through first
// use both succeed.
func (s *SQLiteStore) InitIfAbsent() error {
	fs := FileStore{path: s.path}
	if err := fs.InitIfAbsent(); err != nil {
		return err
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create log schema: %w", err)
	}
	return nil
}

// Append inserts one record as a single statement.
func (s *SQLiteStore) Append(rec record.Record) error {
	db, err := s.open()
	if err != nil {
		return err
	}

	var ctx any
	if len(rec.Ctx) > 0 {
		buf, err := json.Marshal(rec.Ctx)
		if err != nil {
			return fmt.Errorf("failed to encode record context: %w", err)
		}
		ctx = string(buf)
	}

	_, err = db.Exec(
		`INSERT INTO logs (ts, tool, level, msg, pid, ctx) VALUES (?, ?, ?, ?, ?, ?)`,
		record.FormatTS(rec.TS), rec.Tool, rec.Level, rec.Msg, rec.PID, ctx,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Size returns the database file's size, or 0 if it does not exist.
func (s *SQLiteStore) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat log database: %w", err)
	}
	return info.Size(), nil
}

// Scan streams matching rows in id order. Indexed columns are pushed
// into the WHERE clause; the filter is re-applied in Go as the single
// source of matching truth.
func (s *SQLiteStore) Scan(f Filter, fn func(rec record.Record) error) error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	db, err := s.open()
	if err != nil {
		return err
	}

	query := `SELECT ts, tool, level, msg, pid, ctx FROM logs`
	var conds []string
	var args []any
	if f.Tool != "" {
		conds = append(conds, "tool = ?")
		args = append(args, f.Tool)
	}
	if f.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, f.Level)
	}
	if !f.Since.IsZero() {
		// The fixed timestamp layout sorts lexically in time order.
		conds = append(conds, "ts >= ?")
		args = append(args, record.FormatTS(f.Since))
	}
	if f.MsgContains != "" {
		// instr is case-sensitive, unlike LIKE.
		conds = append(conds, "instr(msg, ?) > 0")
		args = append(args, f.MsgContains)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := db.Query(query, args...)
	if err != nil {
		if isMissingTable(err) {
			return nil
		}
		return fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return err
		}
		if !f.matches(rec) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return nil
}

// scanRow converts one result row into a record.
func scanRow(rows *sql.Rows) (record.Record, error) {
	var ts, tool, level, msg string
	var pid int
	var ctx sql.NullString

	if err := rows.Scan(&ts, &tool, &level, &msg, &pid, &ctx); err != nil {
		return record.Record{}, fmt.Errorf("failed to scan record row: %w", err)
	}

	t, err := record.ParseTS(ts)
	if err != nil {
		return record.Record{}, err
	}

	rec := record.Record{TS: t, Tool: tool, Level: level, Msg: msg, PID: pid}
	if ctx.Valid && ctx.String != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(ctx.String), &m); err != nil {
			return record.Record{}, fmt.Errorf("%w: bad context column: %v", ErrCorrupted, err)
		}
		rec.Ctx = m
	}
	return rec, nil
}

// Dump re-encodes every row as a JSON line, in id order.
func (s *SQLiteStore) Dump(w io.Writer) error {
	return s.Scan(Filter{}, func(rec record.Record) error {
		line, err := rec.Encode()
		if err != nil {
			return err
		}
		_, err = w.Write(line)
		return err
	})
}

// Enforce culls the oldest half of rows once the database file has
// reached the bound.
func (s *SQLiteStore) Enforce(cfg BoundConfig) error {
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
	return s.cull()
}

// Compact forces an immediate cull regardless of size.
func (s *SQLiteStore) Compact(cfg BoundConfig) error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	return s.cull()
}

// cull deletes the oldest half of rows by id, then reclaims the freed
// pages. Deleting by ascending id assumes id order tracks insertion
// order, which can diverge from strict timestamp order under clock
// skew across writers; that trade-off is accepted here.
func (s *SQLiteStore) cull() error {
	db, err := s.open()
	if err != nil {
		return err
	}

	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM logs`).Scan(&count); err != nil {
		if isMissingTable(err) {
			return nil
		}
		return fmt.Errorf("failed to count records: %w", err)
	}
	if count < 2 {
		return nil
	}

	_, err = db.Exec(
		`DELETE FROM logs WHERE id IN (SELECT id FROM logs ORDER BY id LIMIT ?)`,
		count/2,
	)
	if err != nil {
		return fmt.Errorf("failed to cull records: %w", err)
	}

	if _, err := db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("failed to reclaim space: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// isMissingTable reports whether err is sqlite's complaint about a
// database that exists but has never been initialized.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
