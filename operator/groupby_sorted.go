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
	"io"

	"github.com/byoo-db/byoo/agg"
	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// SortedGroupBy groups rows by equality on one column, assuming input
// arrives already grouped (typically because it was sorted on that
// column upstream), emitting one row per group: the group's first row
// (the witness), followed by each aggregate's result. A group change
// is detected by comparing the group column against the previously
// stored witness row, not a separately tracked key, and the witness is
// only ever replaced at a group boundary -- it is the first row of the
// group, never the last.
type SortedGroupBy struct {
	input    *exchange.Reader
	output   *exchange.Writer
	groupCol int
	aggs     []agg.Aggregate
}

// NewSortedGroupBy builds a SortedGroupBy.
func NewSortedGroupBy(input *exchange.Reader, output *exchange.Writer, groupCol int, aggs []agg.Aggregate) *SortedGroupBy {
	return &SortedGroupBy{input: input, output: output, groupCol: groupCol, aggs: aggs}
}

// Start scans input once, emitting a witness+aggregates row every time
// the group column's value changes, plus a final row for the last
// group if input was non-empty.
func (g *SortedGroupBy) Start() error {
	defer g.output.Close()

	var witness row.Row
	have := false

	emit := func() error {
		out := make(row.Row, 0, len(witness)+len(g.aggs))
		out = append(out, witness...)
		for _, a := range g.aggs {
			v, err := a.Produce()
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return g.output.Write(out)
	}

	for {
		buf, err := g.input.Data()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for _, r := range buf.Rows() {
			if !have {
				witness = append(row.Row{}, r...)
				have = true
			} else if !value.Equal(witness[g.groupCol], r[g.groupCol]) {
				if err := emit(); err != nil {
					return err
				}
				witness = append(row.Row{}, r...)
			}
			for _, a := range g.aggs {
				a.Consume(r)
			}
		}
		g.input.Progress()
	}

	if have {
		return emit()
	}
	return nil
}
