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

// Package agg implements the group-by accumulators: count, sum, min,
// max, avg, each a small stateful accumulator with
// Consume/Produce/OutType. Produce resets the accumulator so the same
// instance can be reused across successive groups in a group-by.
package agg

import (
	"encoding/json"
	"fmt"

	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// Aggregate accumulates values from one column across a group of rows.
type Aggregate interface {
	// Consume folds one row's designated column into the running state.
	Consume(r row.Row)
	// Produce returns the accumulated result and resets state for the
	// next group.
	Produce() (value.Value, error)
	// OutType returns the result type, given the input column's type.
	OutType(in value.Type) value.Type
}

// New constructs the named aggregate reading column col of each
// consumed row. Valid names are "min", "max", "count", "sum", "avg".
func New(name string, col int) (Aggregate, error) {
	switch name {
	case "min":
		return &minAgg{col: col}, nil
	case "max":
		return &maxAgg{col: col}, nil
	case "count":
		return &countAgg{}, nil
	case "sum":
		return &sumAgg{col: col}, nil
	case "avg":
		return &avgAgg{col: col}, nil
	default:
		return nil, fmt.Errorf("agg: unknown aggregate %q", name)
	}
}

// jsonSpec mirrors one element of a plan JSON `aggregates` array:
// `{op, col}`.
type jsonSpec struct {
	Op  string `json:"op"`
	Col int    `json:"col"`
}

// ParseList decodes a plan JSON `aggregates` array into a list of
// constructed aggregates, in order.
func ParseList(raw json.RawMessage) ([]Aggregate, error) {
	var specs []jsonSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("agg: aggregates: %w", err)
	}
	out := make([]Aggregate, len(specs))
	for i, s := range specs {
		a, err := New(s.Op, s.Col)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

type minAgg struct {
	col   int
	cur   value.Value
	valid bool
}

func (a *minAgg) Consume(r row.Row) {
	nxt := r[a.col]
	if !a.valid {
		a.cur, a.valid = nxt, true
		return
	}
	if c, err := value.Compare(nxt, a.cur); err == nil && c < 0 {
		a.cur = nxt
	}
}

func (a *minAgg) Produce() (value.Value, error) {
	if !a.valid {
		return value.Value{}, fmt.Errorf("agg: min: produce called with no input")
	}
	v := a.cur
	a.valid = false
	return v, nil
}

func (a *minAgg) OutType(in value.Type) value.Type { return in }

type maxAgg struct {
	col   int
	cur   value.Value
	valid bool
}

func (a *maxAgg) Consume(r row.Row) {
	nxt := r[a.col]
	if !a.valid {
		a.cur, a.valid = nxt, true
		return
	}
	if c, err := value.Compare(nxt, a.cur); err == nil && c > 0 {
		a.cur = nxt
	}
}

func (a *maxAgg) Produce() (value.Value, error) {
	if !a.valid {
		return value.Value{}, fmt.Errorf("agg: max: produce called with no input")
	}
	v := a.cur
	a.valid = false
	return v, nil
}

func (a *maxAgg) OutType(in value.Type) value.Type { return in }

type countAgg struct {
	n int64
}

func (a *countAgg) Consume(r row.Row) { a.n++ }

func (a *countAgg) Produce() (value.Value, error) {
	v := value.Int(a.n)
	a.n = 0
	return v, nil
}

func (a *countAgg) OutType(in value.Type) value.Type { return value.Integer }

type sumAgg struct {
	col   int
	cur   value.Value
	valid bool
}

func (a *sumAgg) Consume(r row.Row) {
	nxt := r[a.col]
	if !a.valid {
		a.cur, a.valid = nxt, true
		return
	}
	if v, err := value.Add(a.cur, nxt); err == nil {
		a.cur = v
	}
}

func (a *sumAgg) Produce() (value.Value, error) {
	if !a.valid {
		return value.Value{}, fmt.Errorf("agg: sum: produce called with no input")
	}
	v := a.cur
	a.valid = false
	return v, nil
}

func (a *sumAgg) OutType(in value.Type) value.Type { return in }

// avgAgg tracks a Welford-style streaming mean: mean += (x-mean)/n.
// The result is always Real, even when the input column is Integer.
type avgAgg struct {
	col   int
	mean  float64
	n     int64
	valid bool
}

func (a *avgAgg) Consume(r row.Row) {
	x, err := r[a.col].ToFloat()
	if err != nil {
		return
	}
	a.n++
	a.mean += (x - a.mean) / float64(a.n)
	a.valid = true
}

func (a *avgAgg) Produce() (value.Value, error) {
	if !a.valid {
		return value.Value{}, fmt.Errorf("agg: avg: produce called with no input")
	}
	v := value.Float(a.mean)
	a.mean, a.n, a.valid = 0, 0, false
	return v, nil
}

func (a *avgAgg) OutType(in value.Type) value.Type { return value.Real }
