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
	"github.com/byoo-db/byoo/partition"
	"github.com/byoo-db/byoo/row"
)

// HashTableSizeLimit is the hash join's ~256KB build-side memory cap,
// expressed in the resident-scalar-value unit store.New uses.
// partition.New also divides the left side's row count by it to
// choose the partition count.
const HashTableSizeLimit = 32768

// HashJoin is a Grace hash join: the left relation is hash-partitioned
// into N buckets sized to fit the memory budget; if partitioning
// collapses to a single bucket, the right side is streamed once
// against an in-memory table built from that bucket; otherwise the
// right side is partitioned with the same N and each partition pair is
// joined independently via its own in-memory table.
type HashJoin struct {
	left      *exchange.Reader
	right     *exchange.Reader
	output    *exchange.Writer
	leftCols  []int
	rightCols []int
}

// NewHashJoin builds a HashJoin. leftCols and rightCols must be the
// same length; output's schema must be left's schema followed by
// right's.
func NewHashJoin(left, right *exchange.Reader, output *exchange.Writer, leftCols, rightCols []int) (*HashJoin, error) {
	if len(leftCols) != len(rightCols) {
		return nil, fmt.Errorf("operator: hash join: left_cols and right_cols must have the same length")
	}
	if err := checkJoinOutputSchema(left, right, output); err != nil {
		return nil, err
	}
	return &HashJoin{left: left, right: right, output: output, leftCols: leftCols, rightCols: rightCols}, nil
}

// Start partitions left (and, if needed, right) and joins
// partition-by-partition, then closes output.
func (j *HashJoin) Start() error {
	defer j.output.Close()

	leftParts, err := partition.New(HashTableSizeLimit, j.left, j.leftCols)
	if err != nil {
		return fmt.Errorf("operator: hash join: %w", err)
	}
	n := leftParts.NumPartitions()

	if n == 1 {
		leftRows, err := leftParts.NextPartition().IntoVec()
		if err != nil {
			return fmt.Errorf("operator: hash join: %w", err)
		}
		table := buildHashTable(leftRows, j.leftCols)
		return j.probe(table, j.right)
	}

	rightParts, err := partition.WithPartitions(n, 4096, j.right, j.rightCols)
	if err != nil {
		return fmt.Errorf("operator: hash join: %w", err)
	}
	for {
		lp := leftParts.NextPartition()
		rp := rightParts.NextPartition()
		if lp == nil || rp == nil {
			return nil
		}
		leftRows, err := lp.IntoVec()
		if err != nil {
			return fmt.Errorf("operator: hash join: %w", err)
		}
		table := buildHashTable(leftRows, j.leftCols)
		if err := j.probe(table, rp); err != nil {
			return err
		}
	}
}

// buildHashTable groups rows by the hash of their join columns.
func buildHashTable(rows []row.Row, cols []int) map[uint64][]row.Row {
	t := make(map[uint64][]row.Row, len(rows))
	for _, r := range rows {
		h := partition.HashKey(r, cols)
		t[h] = append(t[h], r)
	}
	return t
}

// probe streams rightSide, matching each row against table by hash and
// then verifying true column equality (a hash match alone is not proof
// of a real match), emitting left++right for every match.
func (j *HashJoin) probe(table map[uint64][]row.Row, rightSide *exchange.Reader) error {
	for {
		buf, err := rightSide.Data()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		for _, r := range buf.Rows() {
			h := partition.HashKey(r, j.rightCols)
			for _, l := range table[h] {
				if !matchesOnCols(l, r, j.leftCols, j.rightCols) {
					continue
				}
				out := make(row.Row, 0, len(l)+len(r))
				out = append(out, l...)
				out = append(out, r...)
				if err := j.output.Write(out); err != nil {
					return err
				}
			}
		}
		rightSide.Progress()
	}
}
