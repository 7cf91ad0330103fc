// Copyright (C) 2026 byoo authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package store implements the spillable store: an append-only row
// sink that holds a suffix of recently-pushed rows in memory and, once
// that suffix would exceed a size budget, flushes the resident rows to
// a backing temp file in wire row order. Reading streams the file
// prefix followed by the resident suffix through an exchange channel,
// fed by a background goroutine.
package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// Stats summarizes a store's contents: total row count and, per
// column, the sum of each value's wire-serialized byte size.
type Stats struct {
	Rows       int64
	ColumnSize []int64
}

// Store is a writable spillable row sink. The zero value is not
// usable; construct with New.
type Store struct {
	schema   row.Schema
	maxSize  int
	data     []value.Value // flat, row-major: len(data)/len(schema) resident rows
	file     *os.File
	writer   *bufio.Writer
	didSpill bool
	stats    Stats

	mu      sync.Mutex // guards reading
	reading bool       // true while a previous Read's drain goroutine is still in flight
}

// New creates a spillable store for rows of the given schema. maxSize
// bounds the number of resident scalar values (roughly proportional to
// memory footprint) before the resident rows are flushed to the
// backing file.
func New(schema row.Schema, maxSize int) (*Store, error) {
	name := filepath.Join(os.TempDir(), "byoo-spill-"+uuid.NewString())
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("store: create backing file: %w", err)
	}
	// Unlink immediately: the inode stays alive as long as f is open,
	// but the directory entry disappears, so the file's storage is
	// released once f is closed or the process exits, even if it dies
	// mid-query. Best effort only -- platforms
	// without unlink-while-open semantics just keep the visible file.
	_ = unix.Unlink(name)

	cap := maxSize / 4
	if cap < 0 {
		cap = 0
	}
	return &Store{
		schema:  schema,
		maxSize: maxSize,
		data:    make([]value.Value, 0, cap),
		file:    f,
		writer:  bufio.NewWriter(f),
		stats:   Stats{ColumnSize: make([]int64, len(schema))},
	}, nil
}

// DidSpill reports whether any rows have ever been written to the
// backing file.
func (s *Store) DidSpill() bool { return s.didSpill }

// Stats returns the running row-count and per-column byte-size
// statistics accumulated so far.
func (s *Store) Stats() Stats { return s.stats }

// PushRow appends one row. Rows are accepted in insertion order; once
// the resident suffix would exceed maxSize scalar values, the entire
// current suffix is flushed to the backing file and a fresh resident
// suffix begins with row.
func (s *Store) PushRow(r row.Row) error {
	if len(r) != len(s.schema) {
		return fmt.Errorf("store: push_row: expected %d columns, got %d", len(s.schema), len(r))
	}
	for i, v := range r {
		s.stats.ColumnSize[i] += int64(v.NumBytes())
	}
	s.stats.Rows++

	if len(s.data)+len(r) < s.maxSize {
		s.data = append(s.data, r...)
		return nil
	}

	s.didSpill = true
	flush := s.data
	s.data = make([]value.Value, 0, s.maxSize)
	for i := 0; i < len(flush); i += len(s.schema) {
		for c := 0; c < len(s.schema); c++ {
			if err := value.Encode(s.writer, flush[i+c]); err != nil {
				return fmt.Errorf("store: flush: %w", err)
			}
		}
	}
	s.data = append(s.data, r...)
	return nil
}

// Read begins a streamed pass over the store's contents (the flushed
// file prefix, followed by the resident suffix, in insertion order)
// and returns the consumer side of an exchange channel. Any number of
// sequential passes are allowed, each seeing the same rows in the same
// order; the backing file handle is shared, so a second Read call made
// before the previous one's drain has finished streaming is rejected
// rather than allowed to race the seek-to-start against whatever
// position the in-flight read left behind. Once the in-flight read's
// producer goroutine finishes -- which happens no later than its
// Reader observing end-of-stream -- the store accepts a new Read.
func (s *Store) Read() (*exchange.Reader, error) {
	s.mu.Lock()
	if s.reading {
		s.mu.Unlock()
		return nil, fmt.Errorf("store: read: a previous read has not finished yet")
	}
	s.reading = true
	s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		s.endRead()
		return nil, fmt.Errorf("store: read: flushing writer: %w", err)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		s.endRead()
		return nil, fmt.Errorf("store: read: seek: %w", err)
	}

	r, w := exchange.MakePair(5, 4096, s.schema)
	go s.drain(w)
	return r, nil
}

// endRead marks the in-flight read as finished, letting a subsequent
// Read proceed.
func (s *Store) endRead() {
	s.mu.Lock()
	s.reading = false
	s.mu.Unlock()
}

func (s *Store) drain(w *exchange.Writer) {
	defer w.Close()
	defer s.endRead()

	br := bufio.NewReader(s.file)
	width := len(s.schema)
	buf := make(row.Row, width)
	for {
		ok, err := s.readFileRow(br, buf)
		if err != nil {
			// Nothing useful to do with a corrupt spill file from a
			// background goroutine; the reader side simply sees a
			// short stream rather than a panic that would take the
			// whole process down.
			return
		}
		if !ok {
			break
		}
		if err := w.Write(buf); err != nil {
			return
		}
	}

	for i := 0; i < len(s.data); i += width {
		if err := w.Write(row.Row(s.data[i : i+width])); err != nil {
			return
		}
	}
}

// readFileRow reads one row into dst, reusing its backing array.
// Returns (false, nil) on a clean end-of-file at a row boundary.
func (s *Store) readFileRow(br *bufio.Reader, dst row.Row) (bool, error) {
	for c, t := range s.schema {
		v, err := value.Decode(br, t)
		if err != nil {
			if c == 0 && err == io.EOF {
				return false, nil
			}
			return false, fmt.Errorf("store: short row at column %d: %w", c, err)
		}
		dst[c] = v
	}
	return true, nil
}
