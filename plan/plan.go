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

// Package plan is the JSON plan compiler: it parses a plan tree,
// validates each node's arity and options, derives every operator's
// output schema bottom-up, and -- on Start/StartSave -- spawns one
// goroutine per node wired together by exchange channels.
package plan

import (
	"encoding/json"
	"fmt"

	"github.com/byoo-db/byoo/agg"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// arity describes how many children an opcode accepts.
type arity int

const (
	arityNone arity = iota
	arityAny
	arityExactly
)

// opSpec is the static, opcode-keyed description used for arity
// checking.
type opSpec struct {
	arity arity
	n     int // only meaningful when arity == arityExactly
	sink  bool
}

var opSpecs = map[string]opSpec{
	"csv read":          {arity: arityNone},
	"columnar read":     {arity: arityNone},
	"csv out":           {arity: arityExactly, n: 1, sink: true},
	"columnar out":      {arity: arityExactly, n: 1, sink: true},
	"project":           {arity: arityExactly, n: 1},
	"filter":            {arity: arityExactly, n: 1},
	"sort":              {arity: arityExactly, n: 1},
	"union":             {arity: arityAny},
	"loop join":         {arity: arityExactly, n: 2},
	"merge join":        {arity: arityExactly, n: 2},
	"hash join":         {arity: arityExactly, n: 2},
	"sorted group by":   {arity: arityExactly, n: 1},
	"hashed group by":   {arity: arityExactly, n: 1},
	"all rows group by": {arity: arityExactly, n: 1},
}

// jsonNode mirrors one plan-tree node as written in the plan JSON: an
// opcode, an options object, and a (possibly empty or absent) array of
// child nodes.
type jsonNode struct {
	Op      string          `json:"op"`
	Options json.RawMessage `json:"options"`
	Input   []jsonNode      `json:"input"`
}

// node is one compiled operator in the plan tree: its arity has been
// checked, and its output schema has been derived from its children's
// schemas and its own options.
type node struct {
	id       int
	op       string
	options  json.RawMessage
	children []*node
	schema   row.Schema // nil when sink is true
	sink     bool
}

// Root is a fully compiled plan, ready to run.
type Root struct {
	root *node
}

// Compile parses plan JSON text and builds the operator tree. Unknown
// opcodes, wrong arity, and bad schema-deriving options (scan types,
// project cols, group-by col and aggregates, including their column
// ranges) are fatal plan errors, returned here rather than panicking,
// since a malformed plan is caller input, not a programmer bug. The
// other options (files, sort cols, join cols, predicates) are decoded
// only when Start/StartSave builds each operator, and their errors
// arrive on the error channel; join key and predicate column indexes
// are not range-checked.
func Compile(jsonText []byte) (*Root, error) {
	var jn jsonNode
	if err := json.Unmarshal(jsonText, &jn); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	nextID := 0
	n, err := createOpTree(jn, &nextID)
	if err != nil {
		return nil, err
	}
	return &Root{root: n}, nil
}

// createOpTree validates jn's own arity, then recursively compiles its
// children (so their output schemas are known), then derives jn's
// output schema, assigning ids bottom-up as it unwinds.
func createOpTree(jn jsonNode, nextID *int) (*node, error) {
	spec, ok := opSpecs[jn.Op]
	if !ok {
		return nil, fmt.Errorf("plan: unknown opcode %q", jn.Op)
	}

	switch spec.arity {
	case arityNone:
		if len(jn.Input) != 0 {
			return nil, fmt.Errorf("plan: %q takes no input, got %d", jn.Op, len(jn.Input))
		}
	case arityAny:
		if len(jn.Input) < 2 {
			return nil, fmt.Errorf("plan: %q requires at least 2 inputs, got %d", jn.Op, len(jn.Input))
		}
	case arityExactly:
		if len(jn.Input) != spec.n {
			return nil, fmt.Errorf("plan: %q requires exactly %d input(s), got %d", jn.Op, spec.n, len(jn.Input))
		}
	}

	children := make([]*node, len(jn.Input))
	for i, c := range jn.Input {
		cn, err := createOpTree(c, nextID)
		if err != nil {
			return nil, err
		}
		children[i] = cn
	}

	n := &node{op: jn.Op, options: jn.Options, children: children, sink: spec.sink}
	if !spec.sink {
		schema, err := deriveSchema(jn.Op, jn.Options, children)
		if err != nil {
			return nil, err
		}
		n.schema = schema
	}
	n.id = *nextID
	*nextID++
	return n, nil
}

// deriveSchema computes op's output schema from its own options and
// its children's already-derived schemas.
func deriveSchema(op string, options json.RawMessage, children []*node) (row.Schema, error) {
	switch op {
	case "csv read", "columnar read":
		return schemaFromTypes(op, options)
	case "project":
		cols, err := optIntSlice(options, "cols")
		if err != nil {
			return nil, fmt.Errorf("plan: project: %w", err)
		}
		in := children[0].schema
		out := make(row.Schema, len(cols))
		for i, c := range cols {
			if c < 0 || c >= len(in) {
				return nil, fmt.Errorf("plan: project: cols[%d] = %d out of range for %d input columns", i, c, len(in))
			}
			out[i] = in[c]
		}
		return out, nil
	case "filter", "sort":
		return children[0].schema, nil
	case "union":
		var out row.Schema
		for _, c := range children {
			out = append(out, c.schema...)
		}
		return out, nil
	case "loop join", "merge join", "hash join":
		return append(append(row.Schema{}, children[0].schema...), children[1].schema...), nil
	case "sorted group by", "hashed group by", "all rows group by":
		in := children[0].schema
		if op != "all rows group by" {
			groupCol, err := optInt(options, "col")
			if err != nil {
				return nil, fmt.Errorf("plan: %s: %w", op, err)
			}
			if groupCol < 0 || groupCol >= len(in) {
				return nil, fmt.Errorf("plan: %s: col %d out of range for %d input columns", op, groupCol, len(in))
			}
		}
		aggNames, aggCols, err := optAggregates(options)
		if err != nil {
			return nil, fmt.Errorf("plan: %s: %w", op, err)
		}
		out := append(row.Schema{}, in...)
		for i, name := range aggNames {
			col := aggCols[i]
			if col < 0 || col >= len(in) {
				return nil, fmt.Errorf("plan: %s: aggregate column %d out of range for %d input columns", op, col, len(in))
			}
			a, err := agg.New(name, col)
			if err != nil {
				return nil, fmt.Errorf("plan: %s: %w", op, err)
			}
			out = append(out, a.OutType(in[col]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("plan: unknown opcode %q", op)
	}
}

// schemaFromTypes decodes the "types" (csv read) or "type" (columnar
// read, single column) option into a schema.
func schemaFromTypes(op string, options json.RawMessage) (row.Schema, error) {
	if op == "columnar read" {
		name, err := optString(options, "type")
		if err != nil {
			return nil, fmt.Errorf("plan: columnar read: %w", err)
		}
		t, err := value.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("plan: columnar read: %w", err)
		}
		return row.Schema{t}, nil
	}
	names, err := optStringSlice(options, "types")
	if err != nil {
		return nil, fmt.Errorf("plan: csv read: %w", err)
	}
	out := make(row.Schema, len(names))
	for i, name := range names {
		t, err := value.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("plan: csv read: %w", err)
		}
		out[i] = t
	}
	return out, nil
}
