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

// Package operator holds every worker kind the plan compiler wires
// into a running graph: each one reads from one or more
// exchange.Reader inputs, writes to an exchange.Writer output, and
// exposes a Start method meant to run on its own goroutine. One file
// per operator.
package operator

import (
	"fmt"
	"io"

	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/predicate"
)

// Filter copies rows from input to output that satisfy predicate,
// exactly once each. The predicate check itself is pushed onto the
// output writer (exchange.Writer already evaluates a predicate inline
// before buffering a row), so Start only has to drain input to output.
type Filter struct {
	input  *exchange.Reader
	output *exchange.Writer
}

// NewFilter builds a Filter. output's schema must equal input's.
func NewFilter(input *exchange.Reader, output *exchange.Writer, pred *predicate.Predicate) (*Filter, error) {
	if !input.Schema().Equal(output.Schema()) {
		return nil, fmt.Errorf("operator: filter: output schema must match input schema")
	}
	output.AddFilter(pred)
	return &Filter{input: input, output: output}, nil
}

// Start drains input to output until input is exhausted, then closes
// output.
func (f *Filter) Start() error {
	defer f.output.Close()
	for {
		buf, err := f.input.Data()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		for _, r := range buf.Rows() {
			if err := f.output.Write(r); err != nil {
				return err
			}
		}
		f.input.Progress()
	}
}
