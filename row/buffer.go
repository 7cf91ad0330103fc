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

// Package row holds the fixed-capacity row batch that operators
// exchange with one another.
package row

import (
	"fmt"

	"github.com/byoo-db/byoo/value"
)

// Schema is the ordered list of column types for a row stream.
type Schema []value.Type

// Equal reports whether two schemas have the same column types.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Row is a single tuple: a fixed-length sequence of values.
type Row []value.Value

// Buffer is a batch of rows sharing a schema, with a fixed row
// capacity. The number of buffered values is
// always a multiple of len(Schema); a Buffer is Full once its row
// count reaches its capacity, at which point it must be sent before
// another row is written.
type Buffer struct {
	Schema   Schema
	Capacity int
	values   []value.Value
}

// New allocates an empty Buffer with the given schema and row capacity.
func New(schema Schema, capacity int) *Buffer {
	return &Buffer{
		Schema:   schema,
		Capacity: capacity,
		values:   make([]value.Value, 0, capacity*len(schema)),
	}
}

// Len returns the number of rows currently buffered.
func (b *Buffer) Len() int {
	if len(b.Schema) == 0 {
		return 0
	}
	return len(b.values) / len(b.Schema)
}

// Full reports whether the buffer has reached its row capacity.
func (b *Buffer) Full() bool { return b.Len() >= b.Capacity }

// Empty reports whether the buffer holds no rows.
func (b *Buffer) Empty() bool { return len(b.values) == 0 }

// Reset clears the buffer (row count 0, values dropped) so it can be
// recycled by an exchange channel's buffer pool.
func (b *Buffer) Reset() { b.values = b.values[:0] }

// Write appends row to the buffer. It requires len(row) == len(Schema).
func (b *Buffer) Write(r Row) error {
	if len(r) != len(b.Schema) {
		return fmt.Errorf("row: write: expected %d columns, got %d", len(b.Schema), len(r))
	}
	b.values = append(b.values, r...)
	return nil
}

// WriteSingleCol appends a one-column row. It requires a single-column
// schema.
func (b *Buffer) WriteSingleCol(v value.Value) error {
	if len(b.Schema) != 1 {
		return fmt.Errorf("row: write_single_col: schema has %d columns, not 1", len(b.Schema))
	}
	b.values = append(b.values, v)
	return nil
}

// WriteFromColumns appends n rows from column-major storage: columns[c]
// holds n consecutive values for column c. This is the fast path for
// union and columnar scans, avoiding a per-row shuffle when the source
// is already column-oriented.
func (b *Buffer) WriteFromColumns(n int, columns [][]value.Value) error {
	if len(columns) != len(b.Schema) {
		return fmt.Errorf("row: write_from_columns: expected %d columns, got %d", len(b.Schema), len(columns))
	}
	start := len(b.values)
	b.values = append(b.values, make([]value.Value, n*len(b.Schema))...)
	for row := 0; row < n; row++ {
		for col, c := range columns {
			b.values[start+row*len(b.Schema)+col] = c[row]
		}
	}
	return nil
}

// At returns row i (0-based) as a slice sharing the buffer's backing
// array. The slice is only valid until the buffer is next mutated.
func (b *Buffer) At(i int) Row {
	w := len(b.Schema)
	return Row(b.values[i*w : (i+1)*w])
}

// Rows returns all rows in the buffer as independent slices sharing the
// backing array, for iteration.
func (b *Buffer) Rows() []Row {
	n := b.Len()
	out := make([]Row, n)
	for i := 0; i < n; i++ {
		out[i] = b.At(i)
	}
	return out
}

// Column returns the values of column c across every row in the
// buffer, copied into a fresh slice.
func (b *Buffer) Column(c int) []value.Value {
	n := b.Len()
	w := len(b.Schema)
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		out[i] = b.values[i*w+c]
	}
	return out
}
