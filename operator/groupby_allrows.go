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
)

// AllRowsGroupBy treats the whole input as a single group: no
// partitioning, no key column, every row feeds the same accumulators.
// Emits exactly one row (witness ++ aggregate results) if input was
// non-empty, and no row at all if it was empty -- never a null or
// zero-valued row.
type AllRowsGroupBy struct {
	input  *exchange.Reader
	output *exchange.Writer
	aggs   []agg.Aggregate
}

// NewAllRowsGroupBy builds an AllRowsGroupBy.
func NewAllRowsGroupBy(input *exchange.Reader, output *exchange.Writer, aggs []agg.Aggregate) *AllRowsGroupBy {
	return &AllRowsGroupBy{input: input, output: output, aggs: aggs}
}

// Start consumes every input row into the shared accumulators, then
// emits a single witness++aggregates row, unless input was empty.
func (g *AllRowsGroupBy) Start() error {
	defer g.output.Close()

	var witness row.Row
	have := false

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
			}
			for _, a := range g.aggs {
				a.Consume(r)
			}
		}
		g.input.Progress()
	}

	if !have {
		return nil
	}

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
