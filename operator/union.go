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

package operator

import (
	"fmt"
	"io"

	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// ColumnUnion combines N input streams column-wise: one row is popped
// from every input and their columns concatenated into a single output
// row, truncating to the shortest input (not a row-wise SQL UNION).
// Each input gets its own queue of buffered rows, refilled a whole
// batch at a time from its reader once empty. When every input is
// single-column, Start instead takes the batch-level fast path
// (singleColFast), copying column slices straight into the output
// batch without ever materializing a row.
type ColumnUnion struct {
	readers []*exchange.Reader
	output  *exchange.Writer
	queues  [][]row.Row
	allOne  bool
	colQs   [][]value.Value // residual unconsumed values per reader, fast path only
}

// NewColumnUnion builds a ColumnUnion. output's schema must equal the
// concatenation, in order, of every reader's schema.
func NewColumnUnion(readers []*exchange.Reader, output *exchange.Writer) (*ColumnUnion, error) {
	var want row.Schema
	allOne := true
	for _, r := range readers {
		want = append(want, r.Schema()...)
		if len(r.Schema()) != 1 {
			allOne = false
		}
	}
	if !want.Equal(output.Schema()) {
		return nil, fmt.Errorf("operator: column_union: output schema must be the concatenation of input schemas")
	}
	return &ColumnUnion{
		readers: readers,
		output:  output,
		queues:  make([][]row.Row, len(readers)),
		allOne:  allOne,
		colQs:   make([][]value.Value, len(readers)),
	}, nil
}

// next pops the next row from input idx's queue, refilling it one
// batch at a time from the reader when empty. It returns ok=false once
// that input is exhausted.
func (u *ColumnUnion) next(idx int) (row.Row, bool, error) {
	for len(u.queues[idx]) == 0 {
		buf, err := u.readers[idx].Data()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		rows := buf.Rows()
		q := make([]row.Row, len(rows))
		for i, rr := range rows {
			cp := make(row.Row, len(rr))
			copy(cp, rr)
			q[i] = cp
		}
		u.readers[idx].Progress()
		u.queues[idx] = q
	}
	r := u.queues[idx][0]
	u.queues[idx] = u.queues[idx][1:]
	return r, true, nil
}

// Start reads one row from each input per output row until any input
// is exhausted, then closes output. When every input is single-column,
// it instead runs singleColFast.
func (u *ColumnUnion) Start() error {
	defer u.output.Close()
	if u.allOne {
		return u.singleColFast()
	}
	for {
		var curr row.Row
		for idx := range u.readers {
			r, ok, err := u.next(idx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			curr = append(curr, r...)
		}
		if err := u.output.Write(curr); err != nil {
			return err
		}
	}
}

// fillCol tops up reader idx's residual column queue from its next
// batch when empty, copying the values out since the batch they came
// from is recycled as soon as Progress is called. It returns ok=false
// once that reader is exhausted.
func (u *ColumnUnion) fillCol(idx int) (bool, error) {
	if len(u.colQs[idx]) > 0 {
		return true, nil
	}
	buf, err := u.readers[idx].Data()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	col := buf.Column(0)
	cp := make([]value.Value, len(col))
	copy(cp, col)
	u.readers[idx].Progress()
	u.colQs[idx] = cp
	return true, nil
}

// singleColFast handles the all-single-column specialization: each
// reader keeps a residual column queue refilled a whole
// batch at a time; every round takes the shortest queue's length
// across readers and slices that many values straight out of each
// queue into WriteFromColumns -- no row is ever built. Unlike a naive
// per-batch truncation, values left over in a longer queue survive
// into the next round instead of being dropped.
func (u *ColumnUnion) singleColFast() error {
	for {
		n := -1
		for idx := range u.readers {
			ok, err := u.fillCol(idx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if n == -1 || len(u.colQs[idx]) < n {
				n = len(u.colQs[idx])
			}
		}
		columns := make([][]value.Value, len(u.readers))
		for idx := range u.readers {
			columns[idx] = u.colQs[idx][:n]
			u.colQs[idx] = u.colQs[idx][n:]
		}
		if err := u.output.WriteFromColumns(n, columns); err != nil {
			return err
		}
	}
}
