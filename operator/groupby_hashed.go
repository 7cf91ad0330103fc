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

	"github.com/byoo-db/byoo/agg"
	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/partition"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// hashGroupByBudget is the memory-cap threshold for the hashed
// group-by's partitioning pass, the same budget the hash join's build
// side uses.
const hashGroupByBudget = HashTableSizeLimit

// HashedGroupBy groups rows by hash of one column without requiring
// sorted input: the relation is first hash-partitioned on the group
// column so that each partition's distinct keys fit in memory, then
// each partition is scanned into a map from key to (witness row,
// accumulators), emitting one row per key at the end of the partition.
type HashedGroupBy struct {
	input    *exchange.Reader
	output   *exchange.Writer
	groupCol int
	aggSpecs []aggSpec
}

// aggSpec is a cloneable aggregate factory: HashedGroupBy needs one
// independent accumulator set per distinct key, so it cannot share the
// agg.Aggregate instances the plan parsed once.
type aggSpec struct {
	name string
	col  int
}

// NewHashedGroupBy builds a HashedGroupBy. aggNames/aggCols must be
// parallel arrays naming each aggregate (as accepted by agg.New) and
// its input column.
func NewHashedGroupBy(input *exchange.Reader, output *exchange.Writer, groupCol int, aggNames []string, aggCols []int) (*HashedGroupBy, error) {
	if len(aggNames) != len(aggCols) {
		return nil, fmt.Errorf("operator: hashed group by: aggregate names/cols length mismatch")
	}
	specs := make([]aggSpec, len(aggNames))
	for i := range aggNames {
		specs[i] = aggSpec{name: aggNames[i], col: aggCols[i]}
	}
	return &HashedGroupBy{input: input, output: output, groupCol: groupCol, aggSpecs: specs}, nil
}

type hashedGroup struct {
	witness row.Row
	aggs    []agg.Aggregate
}

// Start partitions input by the group column, then for each partition
// builds an in-memory map of key to group state, consuming every row,
// and at partition end emits one row per key: witness ++ each
// aggregate's result.
func (g *HashedGroupBy) Start() error {
	defer g.output.Close()

	parts, err := partition.New(hashGroupByBudget, g.input, []int{g.groupCol})
	if err != nil {
		return fmt.Errorf("operator: hashed group by: %w", err)
	}

	for {
		part := parts.NextPartition()
		if part == nil {
			return nil
		}
		if err := g.consumePartition(part); err != nil {
			return err
		}
	}
}

// groupFor looks up (or creates) the group whose witness agrees with r on
// the group column, among every group sharing r's hash bucket. A bucket can
// hold more than one distinct key when siphash collides, so membership is
// always confirmed by real column equality, the same discipline HashJoin's
// buildHashTable/probe apply to join keys.
func (g *HashedGroupBy) groupFor(groups map[uint64][]*hashedGroup, r row.Row) (*hashedGroup, error) {
	h := partition.HashKey(r, []int{g.groupCol})
	for _, grp := range groups[h] {
		if value.Equal(grp.witness[g.groupCol], r[g.groupCol]) {
			return grp, nil
		}
	}
	aggs := make([]agg.Aggregate, len(g.aggSpecs))
	for i, s := range g.aggSpecs {
		a, err := agg.New(s.name, s.col)
		if err != nil {
			return nil, err
		}
		aggs[i] = a
	}
	grp := &hashedGroup{witness: append(row.Row{}, r...), aggs: aggs}
	groups[h] = append(groups[h], grp)
	return grp, nil
}

func (g *HashedGroupBy) consumePartition(part *exchange.Reader) error {
	groups := make(map[uint64][]*hashedGroup)
	for {
		buf, err := part.Data()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for _, r := range buf.Rows() {
			grp, err := g.groupFor(groups, r)
			if err != nil {
				return err
			}
			for _, a := range grp.aggs {
				a.Consume(r)
			}
		}
		part.Progress()
	}

	for _, bucket := range groups {
		for _, grp := range bucket {
			out := make(row.Row, 0, len(grp.witness)+len(grp.aggs))
			out = append(out, grp.witness...)
			for _, a := range grp.aggs {
				v, err := a.Produce()
				if err != nil {
					return err
				}
				out = append(out, v)
			}
			if err := g.output.Write(out); err != nil {
				return err
			}
		}
	}
	return nil
}
