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

package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/byoo-db/byoo/agg"
	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/operator"
	"github.com/byoo-db/byoo/predicate"
)

// Batch size 4096 rows, pool 5 buffers per channel; sortBufSize is
// the scalar-value threshold a sort chunk accumulates to before it is
// dumped to disk.
const (
	poolSize     = 5
	rowsPerBatch = 4096
	sortBufSize  = 4096
)

// starter is the narrow contract every constructed operator satisfies.
type starter interface {
	Start() error
}

// Start runs every worker in the plan tree to completion and returns
// every worker's error joined into one (nil if none failed),
// discarding the root's own output rows
// if it produces any. If the root is not a sink, its rows are drained
// in the background so the root worker is never blocked on
// back-pressure with nobody reading.
func (r *Root) Start() error {
	reader, errs := r.StartSave()
	if reader != nil {
		go reader.IntoVec()
	}
	return <-errs
}

// StartSave runs every worker in the plan tree, additionally handing
// back a Reader over the root's own output rows when the root is not
// a sink. If the root is a sink, the returned Reader
// is nil since there is nothing further to read. The returned channel
// receives exactly one value (the aggregate of every worker's error,
// nil if none failed) and is then closed.
func (r *Root) StartSave() (*exchange.Reader, <-chan error) {
	var wg sync.WaitGroup
	raw := make(chan error)

	var reader *exchange.Reader
	var writer *exchange.Writer
	if !r.root.sink {
		reader, writer = exchange.MakePair(poolSize, rowsPerBatch, r.root.schema)
	}

	wg.Add(1)
	spawnNode(r.root, writer, &wg, raw)

	go func() {
		wg.Wait()
		close(raw)
	}()

	errs := make(chan error, 1)
	go func() {
		var all []error
		for e := range raw {
			if e != nil {
				all = append(all, e)
			}
		}
		errs <- errors.Join(all...)
		close(errs)
	}()

	return reader, errs
}

// spawnNode wires n's children (recursively, synchronously -- the
// whole tree's channels and goroutines are set up before this call
// returns) and then launches n's own worker on its own goroutine. The
// caller must already have called wg.Add(1) for n. The parent builds
// one channel pair per child and recurses into each child
// synchronously to wire and launch it; only the worker launch itself
// is concurrent.
func spawnNode(n *node, output *exchange.Writer, wg *sync.WaitGroup, errs chan<- error) {
	readers := make([]*exchange.Reader, len(n.children))
	for i, c := range n.children {
		cr, cw := exchange.MakePair(poolSize, rowsPerBatch, c.schema)
		readers[i] = cr
		wg.Add(1)
		spawnNode(c, cw, wg, errs)
	}

	go func() {
		defer wg.Done()
		op, err := buildOperator(n, readers, output)
		if err != nil {
			if output != nil {
				output.Close()
			}
			for _, rd := range readers {
				rd.IntoVec()
			}
			errs <- fmt.Errorf("plan: node %d (%s): %w", n.id, n.op, err)
			return
		}
		if err := op.Start(); err != nil {
			errs <- fmt.Errorf("plan: node %d (%s): %w", n.id, n.op, err)
		}
	}()
}

// buildOperator constructs the operator n describes, wired to its
// already-built input readers and its (possibly nil, for sinks) output
// writer.
func buildOperator(n *node, readers []*exchange.Reader, output *exchange.Writer) (starter, error) {
	switch n.op {
	case "csv read":
		file, err := optString(n.options, "file")
		if err != nil {
			return nil, err
		}
		return operator.NewCSVScan(file, output), nil

	case "columnar read":
		file, err := optString(n.options, "file")
		if err != nil {
			return nil, err
		}
		col, err := optInt(n.options, "col")
		if err != nil {
			return nil, err
		}
		return operator.NewColumnarScan(file, col, output)

	case "csv out":
		file, err := optString(n.options, "file")
		if err != nil {
			return nil, err
		}
		return operator.NewCSVSink(file, readers[0]), nil

	case "columnar out":
		file, err := optString(n.options, "file")
		if err != nil {
			return nil, err
		}
		return operator.NewColumnarSink(file, readers[0]), nil

	case "project":
		cols, err := optIntSlice(n.options, "cols")
		if err != nil {
			return nil, err
		}
		return operator.NewProject(readers[0], output, cols)

	case "filter":
		pred, err := parsePredicateOption(n.options)
		if err != nil {
			return nil, err
		}
		return operator.NewFilter(readers[0], output, pred)

	case "sort":
		cols, err := optIntSlice(n.options, "cols")
		if err != nil {
			return nil, err
		}
		return operator.NewSort(readers[0], output, cols, sortBufSize)

	case "union":
		return operator.NewColumnUnion(readers, output)

	case "loop join":
		pred, err := parsePredicateOption(n.options)
		if err != nil {
			return nil, err
		}
		return operator.NewLoopJoin(readers[0], readers[1], output, pred)

	case "merge join":
		leftCols, rightCols, err := joinCols(n.options)
		if err != nil {
			return nil, err
		}
		return operator.NewMergeJoin(readers[0], readers[1], output, leftCols, rightCols)

	case "hash join":
		leftCols, rightCols, err := joinCols(n.options)
		if err != nil {
			return nil, err
		}
		return operator.NewHashJoin(readers[0], readers[1], output, leftCols, rightCols)

	case "sorted group by":
		col, err := optInt(n.options, "col")
		if err != nil {
			return nil, err
		}
		aggs, err := buildAggregates(n.options)
		if err != nil {
			return nil, err
		}
		return operator.NewSortedGroupBy(readers[0], output, col, aggs), nil

	case "hashed group by":
		col, err := optInt(n.options, "col")
		if err != nil {
			return nil, err
		}
		names, cols, err := optAggregates(n.options)
		if err != nil {
			return nil, err
		}
		return operator.NewHashedGroupBy(readers[0], output, col, names, cols)

	case "all rows group by":
		aggs, err := buildAggregates(n.options)
		if err != nil {
			return nil, err
		}
		return operator.NewAllRowsGroupBy(readers[0], output, aggs), nil

	default:
		return nil, fmt.Errorf("unknown opcode %q", n.op)
	}
}

func parsePredicateOption(options json.RawMessage) (*predicate.Predicate, error) {
	raw, err := optRaw(options, "predicate")
	if err != nil {
		return nil, err
	}
	return predicate.Parse(raw)
}

func joinCols(options json.RawMessage) ([]int, []int, error) {
	leftCols, err := optIntSlice(options, "left_cols")
	if err != nil {
		return nil, nil, err
	}
	rightCols, err := optIntSlice(options, "right_cols")
	if err != nil {
		return nil, nil, err
	}
	if len(leftCols) != len(rightCols) {
		return nil, nil, fmt.Errorf("left_cols and right_cols must have the same length")
	}
	return leftCols, rightCols, nil
}

func buildAggregates(options json.RawMessage) ([]agg.Aggregate, error) {
	names, cols, err := optAggregates(options)
	if err != nil {
		return nil, err
	}
	out := make([]agg.Aggregate, len(names))
	for i, name := range names {
		a, err := agg.New(name, cols[i])
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}
