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

	"golang.org/x/exp/slices"

	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/heap"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/store"
	"github.com/byoo-db/byoo/value"
)

// Sort performs an external merge sort over byCols, in column order.
// Rows are accumulated into an in-memory buffer until it reaches
// bufSize scalar values, at which point the buffer is sorted and
// dumped into its own spillable store ("chunk"); once input is
// exhausted, every chunk is opened for a peekable read and merged via
// a min-heap keyed by the same column comparator.
type Sort struct {
	input   *exchange.Reader
	output  *exchange.Writer
	byCols  []int
	bufSize int
}

// NewSort builds a Sort. output's schema must equal input's.
func NewSort(input *exchange.Reader, output *exchange.Writer, byCols []int, bufSize int) (*Sort, error) {
	if !input.Schema().Equal(output.Schema()) {
		return nil, fmt.Errorf("operator: sort: output schema must match input schema")
	}
	for _, c := range byCols {
		if c < 0 || c >= len(input.Schema()) {
			return nil, fmt.Errorf("operator: sort: by_cols index %d out of range", c)
		}
	}
	return &Sort{input: input, output: output, byCols: byCols, bufSize: bufSize}, nil
}

// less orders two rows lexicographically over byCols. A comparison
// error (mismatched/incomparable types) is a fatal type error, so it
// panics rather than silently miscomparing.
func (s *Sort) less(a, b row.Row) bool {
	for _, c := range s.byCols {
		cmp, err := value.Compare(a[c], b[c])
		if err != nil {
			panic(fmt.Sprintf("operator: sort: %v", err))
		}
		if cmp != 0 {
			return cmp < 0
		}
	}
	return false
}

// Start reads all of input, chunked and sorted through spillable
// stores, then heap-merges the chunks into output in sorted order.
func (s *Sort) Start() error {
	defer s.output.Close()

	width := len(s.input.Schema())
	var buf []row.Row
	var readers []*exchange.Reader

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		slices.SortFunc(buf, s.less)
		st, err := store.New(s.input.Schema(), 1024)
		if err != nil {
			return err
		}
		for _, r := range buf {
			if err := st.PushRow(r); err != nil {
				return err
			}
		}
		rd, err := st.Read()
		if err != nil {
			return err
		}
		readers = append(readers, rd)
		buf = nil
		return nil
	}

	for {
		b, err := s.input.Data()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for _, r := range b.Rows() {
			cp := make(row.Row, len(r))
			copy(cp, r)
			buf = append(buf, cp)
			if len(buf)*width >= s.bufSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		s.input.Progress()
	}
	if err := flush(); err != nil {
		return err
	}

	peeks := make([]*exchange.Peekable, 0, len(readers))
	for _, rd := range readers {
		p := exchange.NewPeekable(rd)
		if _, ok := p.Peek(); ok {
			peeks = append(peeks, p)
		}
	}
	peekLess := func(a, b *exchange.Peekable) bool {
		ra, _ := a.Peek()
		rb, _ := b.Peek()
		return s.less(ra, rb)
	}
	heap.Order(peeks, peekLess)

	for len(peeks) > 0 {
		next := heap.Pop(&peeks, peekLess)
		r, _ := next.Pop()
		if err := s.output.Write(r); err != nil {
			return err
		}
		if _, ok := next.Peek(); ok {
			heap.Push(&peeks, next, peekLess)
		}
	}
	return nil
}
