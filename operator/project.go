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
)

// Project copies rows from input to output, keeping only keepCols in
// that order. The column selection is pushed onto the output writer
// via SetProjection, so Start only drains.
type Project struct {
	input  *exchange.Reader
	output *exchange.Writer
}

// NewFilter's sibling: NewProject builds a Project. output's schema
// must be keepCols applied to input's schema, in order.
func NewProject(input *exchange.Reader, output *exchange.Writer, keepCols []int) (*Project, error) {
	in := input.Schema()
	out := output.Schema()
	if len(out) != len(keepCols) {
		return nil, fmt.Errorf("operator: project: output has %d columns, keep_cols has %d", len(out), len(keepCols))
	}
	for i, c := range keepCols {
		if c < 0 || c >= len(in) {
			return nil, fmt.Errorf("operator: project: keep_cols[%d] = %d out of range for %d input columns", i, c, len(in))
		}
		if out[i] != in[c] {
			return nil, fmt.Errorf("operator: project: output column %d type mismatch", i)
		}
	}
	output.SetProjection(keepCols)
	return &Project{input: input, output: output}, nil
}

// Start drains input to output until input is exhausted, then closes
// output.
func (p *Project) Start() error {
	defer p.output.Close()
	for {
		buf, err := p.input.Data()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		for _, r := range buf.Rows() {
			if err := p.output.Write(r); err != nil {
				return err
			}
		}
		p.input.Progress()
	}
}
