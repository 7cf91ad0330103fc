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

// Package exchange is the row-batch exchange fabric that connects two
// operator workers: a Writer fills row.Buffer batches and hands full
// ones to a Reader, which returns emptied buffers for reuse. Two
// channels, one per direction, carry a bounded pool of recyclable
// buffers; since Go channels are themselves bounded FIFO queues, the
// pool needs no separate deque.
package exchange

import (
	"fmt"
	"io"

	"github.com/byoo-db/byoo/predicate"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// Writer is the producer side of an exchange channel.
type Writer struct {
	schema     row.Schema
	data       chan *row.Buffer
	free       chan *row.Buffer
	cur        *row.Buffer
	filter     *predicate.Predicate
	projection []int
	closed     bool
}

// Reader is the consumer side of an exchange channel.
type Reader struct {
	schema row.Schema
	data   chan *row.Buffer
	free   chan *row.Buffer
	cur    *row.Buffer
}

// MakePair constructs a connected Reader/Writer pair. poolSize bounds
// the number of row.Buffer batches that may exist at once (the
// back-pressure knob); rowsPerBatch is each batch's row capacity.
func MakePair(poolSize, rowsPerBatch int, schema row.Schema) (*Reader, *Writer) {
	free := make(chan *row.Buffer, poolSize)
	for i := 0; i < poolSize; i++ {
		free <- row.New(schema, rowsPerBatch)
	}
	data := make(chan *row.Buffer, poolSize)
	w := &Writer{schema: schema, data: data, free: free}
	r := &Reader{schema: schema, data: data, free: free}
	return r, w
}

// Schema returns the writer's output schema (post-projection, if any).
func (w *Writer) Schema() row.Schema { return w.schema }

// AddFilter installs a predicate that is evaluated against every row
// passed to Write, before it is buffered. Rows that fail the predicate
// are dropped inline rather than being enqueued.
func (w *Writer) AddFilter(p *predicate.Predicate) { w.filter = p }

// SetProjection installs a column projection applied to every row
// passed to Write before it is buffered: the row handed to Write is
// expected to have the pre-projection width, and cols indexes into it
// to produce a row matching w.Schema().
func (w *Writer) SetProjection(cols []int) { w.projection = cols }

func (w *Writer) ensureBuffer() {
	if w.cur == nil {
		w.cur = <-w.free
	}
}

// sendCurrent flushes w.cur to the reader if it holds any rows, and
// clears it. An empty buffer is never sent, so Reader.Data only ever
// observes non-empty batches.
func (w *Writer) sendCurrent() {
	if w.cur == nil {
		return
	}
	if w.cur.Len() > 0 {
		w.data <- w.cur
		w.cur = nil
	}
}

func (w *Writer) apply(r row.Row) (row.Row, bool) {
	if w.filter != nil && !w.filter.Eval(r) {
		return nil, false
	}
	if w.projection != nil {
		out := make(row.Row, len(w.projection))
		for i, c := range w.projection {
			out[i] = r[c]
		}
		return out, true
	}
	return r, true
}

// Write buffers one row, transparently flushing and rotating to a
// fresh buffer when the current one fills (this is the engine's sole
// back-pressure point: rotating blocks on w.free until the reader
// returns a recycled buffer).
func (w *Writer) Write(r row.Row) error {
	r, ok := w.apply(r)
	if !ok {
		return nil
	}
	w.ensureBuffer()
	if w.cur.Full() {
		w.sendCurrent()
		w.ensureBuffer()
	}
	return w.cur.Write(r)
}

// WriteStrings parses row according to the writer's schema (CSV scan's
// fast path) and writes the result. A field that fails to parse
// becomes its column's zero value.
func (w *Writer) WriteStrings(fields []string) error {
	if len(fields) != len(w.schema) {
		return fmt.Errorf("exchange: write_strings: expected %d columns, got %d", len(w.schema), len(fields))
	}
	r := make(row.Row, len(fields))
	for i, f := range fields {
		v, err := value.Parse(w.schema[i], f)
		if err != nil {
			v = value.Zero(w.schema[i])
		}
		r[i] = v
	}
	return w.Write(r)
}

// WriteFromColumns writes n rows laid out column-major: columns[c]
// holds n consecutive values for column c. It is the fast path for
// column-oriented producers (the columnar scan, and column union's
// all-single-column specialization) that would otherwise have to
// transpose into row-major form first.
func (w *Writer) WriteFromColumns(n int, columns [][]value.Value) error {
	if len(columns) != len(w.schema) {
		return fmt.Errorf("exchange: write_from_columns: expected %d columns, got %d", len(w.schema), len(columns))
	}
	off := 0
	for off < n {
		w.ensureBuffer()
		if w.cur.Full() {
			w.sendCurrent()
			w.ensureBuffer()
		}
		room := w.cur.Capacity - w.cur.Len()
		take := n - off
		if take > room {
			take = room
		}
		chunk := make([][]value.Value, len(columns))
		for c := range columns {
			chunk[c] = columns[c][off : off+take]
		}
		if err := w.cur.WriteFromColumns(take, chunk); err != nil {
			return err
		}
		off += take
	}
	return nil
}

// Flush sends the current partial batch, even if it is not full.
func (w *Writer) Flush() { w.sendCurrent() }

// Close flushes any remaining rows and signals end-of-stream to the
// reader. A Writer must not be used after Close.
func (w *Writer) Close() {
	if w.closed {
		return
	}
	w.sendCurrent()
	close(w.data)
	w.closed = true
}

// Schema returns the reader's schema.
func (r *Reader) Schema() row.Schema { return r.schema }

// Data returns the next non-empty batch, blocking until one is
// available or the writer has closed with nothing left to deliver
// (reported as io.EOF).
func (r *Reader) Data() (*row.Buffer, error) {
	if r.cur != nil {
		return r.cur, nil
	}
	buf, ok := <-r.data
	if !ok {
		return nil, io.EOF
	}
	r.cur = buf
	return r.cur, nil
}

// Progress recycles the buffer most recently returned by Data,
// returning it to the writer's free pool. If the writer is already
// gone, the return is silently dropped rather than surfaced as an
// error to the reader.
func (r *Reader) Progress() {
	if r.cur == nil {
		return
	}
	buf := r.cur
	r.cur = nil
	buf.Reset()
	select {
	case r.free <- buf:
	default:
	}
}

// IntoVec drains every row from the reader into a single slice. It is
// a convenience for tests and for operators (e.g. merge join's
// pre-load) that need the whole stream materialized.
func (r *Reader) IntoVec() ([]row.Row, error) {
	var out []row.Row
	for {
		buf, err := r.Data()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		for _, rr := range buf.Rows() {
			cp := make(row.Row, len(rr))
			copy(cp, rr)
			out = append(out, cp)
		}
		r.Progress()
	}
}
