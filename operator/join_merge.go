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

	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// MergeJoin joins two relations, each already sorted on its own join
// columns, by walking both in lock step and emitting the Cartesian
// product of each run of equal keys. readMatching pulls one run of
// key-equal rows off a peekable reader, and the main loop advances
// whichever side compares smaller until one side is exhausted.
type MergeJoin struct {
	left      *exchange.Peekable
	right     *exchange.Peekable
	output    *exchange.Writer
	leftCols  []int
	rightCols []int
}

// NewMergeJoin builds a MergeJoin. leftCols and rightCols must be the
// same length; output's schema must be left's schema followed by
// right's.
func NewMergeJoin(left, right *exchange.Reader, output *exchange.Writer, leftCols, rightCols []int) (*MergeJoin, error) {
	if len(leftCols) != len(rightCols) {
		return nil, fmt.Errorf("operator: merge join: left_cols and right_cols must have the same length")
	}
	if err := checkJoinOutputSchema(left, right, output); err != nil {
		return nil, err
	}
	return &MergeJoin{
		left:      exchange.NewPeekable(left),
		right:     exchange.NewPeekable(right),
		output:    output,
		leftCols:  leftCols,
		rightCols: rightCols,
	}, nil
}

// matchesOnCols reports whether r1 and r2 agree on every column in
// cols, pairwise.
func matchesOnCols(r1, r2 row.Row, cols1, cols2 []int) bool {
	for i, c1 := range cols1 {
		if !value.Equal(r1[c1], r2[cols2[i]]) {
			return false
		}
	}
	return true
}

// cmpOnColSets compares r1 and r2 lexicographically over their
// respective join-column lists.
func cmpOnColSets(r1, r2 row.Row, cols1, cols2 []int) (int, error) {
	for i, c1 := range cols1 {
		c, err := value.Compare(r1[c1], r2[cols2[i]])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

// readMatching pops the next run of rows off buf that all agree with
// the first popped row on cols, relative to a fixed reference column
// set (the run's own columns, since buf holds one side of the join).
// It returns nil once buf is exhausted.
func readMatching(buf *exchange.Peekable, cols []int) []row.Row {
	first, ok := buf.Pop()
	if !ok {
		return nil
	}
	out := []row.Row{first}
	for {
		next, ok := buf.Peek()
		if !ok {
			break
		}
		if !matchesOnCols(out[0], next, cols, cols) {
			break
		}
		popped, _ := buf.Pop()
		out = append(out, popped)
	}
	return out
}

// Start walks both sides in lock step, emitting the Cartesian product
// of each pair of key-matching runs, then closes output.
func (j *MergeJoin) Start() error {
	defer j.output.Close()

	leftSet := readMatching(j.left, j.leftCols)
	rightSet := readMatching(j.right, j.rightCols)

	for leftSet != nil && rightSet != nil {
		cmp, err := cmpOnColSets(leftSet[0], rightSet[0], j.leftCols, j.rightCols)
		if err != nil {
			return fmt.Errorf("operator: merge join: %w", err)
		}
		switch {
		case cmp == 0:
			for _, l := range leftSet {
				for _, r := range rightSet {
					out := make(row.Row, 0, len(l)+len(r))
					out = append(out, l...)
					out = append(out, r...)
					if err := j.output.Write(out); err != nil {
						return err
					}
				}
			}
			leftSet = readMatching(j.left, j.leftCols)
			rightSet = readMatching(j.right, j.rightCols)
		case cmp > 0:
			rightSet = readMatching(j.right, j.rightCols)
		default:
			leftSet = readMatching(j.left, j.leftCols)
		}
	}
	return nil
}
