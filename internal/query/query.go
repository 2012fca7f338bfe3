// Package query is the read side of the log store: tailing, filtered
// search, raw export and operator-invoked compaction. It only ever
// reads through the store interface; an absent or empty destination
// produces an empty result, never an error.
package query

import (
	"io"

	"github.com/bioneural/spill/internal/record"
	"github.com/bioneural/spill/internal/store"
)

// Tail returns the most recent n records in chronological order. A
// store with fewer than n records yields all of them. Memory stays
// bounded by n: the scan keeps a sliding window rather than loading
// the whole stream.
func Tail(st store.Store, n int) ([]record.Record, error) {
	if n <= 0 {
		return nil, nil
	}

	window := make([]record.Record, 0, n)
	err := st.Scan(store.Filter{}, func(rec record.Record) error {
		if len(window) == n {
			copy(window, window[1:])
			window = window[:n-1]
		}
		window = append(window, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

// Search returns records matching every set field of the filter, in
// chronological order.
func Search(st store.Store, f store.Filter) ([]record.Record, error) {
	var out []record.Record
	err := st.Scan(f, func(rec record.Record) error {
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Dump streams every stored record to w in storage order, one JSON
// line per record. This is the raw-export path for downstream piping.
func Dump(st store.Store, w io.Writer) error {
	return st.Dump(w)
}

// Compact forces an immediate compaction: rotation for the file
// backend, cull for the sqlite backend.
func Compact(st store.Store, cfg store.BoundConfig) error {
	return st.Compact(cfg)
}
