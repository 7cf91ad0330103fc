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
	"github.com/byoo-db/byoo/predicate"
	"github.com/byoo-db/byoo/row"
)

// LoopJoin is the naive nested-loop join: the left relation is
// buffered in full, then every right row is checked against every left
// row with pred, emitting left++right on a match. Loop join is already
// quadratic and meant only for small relations or predicates no other
// join shape can express, so materializing the left side in memory is
// acceptable.
type LoopJoin struct {
	left   *exchange.Reader
	right  *exchange.Reader
	output *exchange.Writer
	pred   *predicate.Predicate
}

// NewLoopJoin builds a LoopJoin. output's schema must be left's schema
// followed by right's.
func NewLoopJoin(left, right *exchange.Reader, output *exchange.Writer, pred *predicate.Predicate) (*LoopJoin, error) {
	if err := checkJoinOutputSchema(left, right, output); err != nil {
		return nil, err
	}
	return &LoopJoin{left: left, right: right, output: output, pred: pred}, nil
}

// Start buffers all of left, then streams right, emitting matches.
func (j *LoopJoin) Start() error {
	defer j.output.Close()

	leftRows, err := j.left.IntoVec()
	if err != nil {
		return err
	}

	for {
		buf, err := j.right.Data()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		for _, rightRow := range buf.Rows() {
			for _, leftRow := range leftRows {
				if j.pred.EvalOnPair(leftRow, rightRow) {
					out := make(row.Row, 0, len(leftRow)+len(rightRow))
					out = append(out, leftRow...)
					out = append(out, rightRow...)
					if err := j.output.Write(out); err != nil {
						return err
					}
				}
			}
		}
		j.right.Progress()
	}
}

// checkJoinOutputSchema validates that output's schema is exactly
// left's schema followed by right's, the shared contract of every
// join operator.
func checkJoinOutputSchema(left, right *exchange.Reader, output *exchange.Writer) error {
	want := append(append(row.Schema{}, left.Schema()...), right.Schema()...)
	if !want.Equal(output.Schema()) {
		return fmt.Errorf("operator: join: output schema must be left schema followed by right schema")
	}
	return nil
}
