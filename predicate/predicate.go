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

// Package predicate implements the recursive boolean expression over
// row columns used by filter and loop join. The closed set of node
// kinds is held as a single tagged struct (rather than an interface
// per node kind) so Eval is one switch instead of N dynamic
// dispatches, the same tradeoff the value package makes for Value.
package predicate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

// Kind identifies a predicate node's operator.
type Kind int

const (
	And Kind = iota
	Or
	Not
	Lt
	Gt
	Eq
	LtCol
	GtCol
	EqCol
	Contains
)

// Predicate is one node of the predicate tree.
type Predicate struct {
	Kind Kind

	// Children holds operands for And/Or (exactly 2) and Not (exactly 1).
	Children []*Predicate

	// Col is the column index for Lt/Gt/Eq/Contains/LtCol/GtCol/EqCol.
	Col int
	// Col2 is the second column index for LtCol/GtCol/EqCol.
	Col2 int
	// Val is the literal for Lt/Gt/Eq (numeric) and Contains (string).
	Val value.Value
}

// Eval evaluates the predicate against a single row.
func (p *Predicate) Eval(r row.Row) bool {
	return p.evalAccessor(func(i int) value.Value { return r[i] })
}

// EvalOnPair evaluates the predicate against two rows concatenated
// conceptually end to end: column indices less than len(left) address
// left, and indices at or beyond len(left) address right, offset by
// left's width. This lets a loop join predicate reference columns from
// either side without materializing the concatenated row.
func (p *Predicate) EvalOnPair(left, right row.Row) bool {
	n := len(left)
	return p.evalAccessor(func(i int) value.Value {
		if i < n {
			return left[i]
		}
		return right[i-n]
	})
}

// EvalAccessor evaluates the predicate using a caller-supplied column
// accessor, so predicates can be checked against columnar batches
// without materializing rows.
func (p *Predicate) EvalAccessor(at func(col int) value.Value) bool {
	return p.evalAccessor(at)
}

func (p *Predicate) evalAccessor(at func(int) value.Value) bool {
	switch p.Kind {
	case And:
		return p.Children[0].evalAccessor(at) && p.Children[1].evalAccessor(at)
	case Or:
		return p.Children[0].evalAccessor(at) || p.Children[1].evalAccessor(at)
	case Not:
		return !p.Children[0].evalAccessor(at)
	case Lt:
		return mustCompare(at(p.Col), p.Val) < 0
	case Gt:
		return mustCompare(at(p.Col), p.Val) > 0
	case Eq:
		return mustCompare(at(p.Col), p.Val) == 0
	case LtCol:
		return mustCompare(at(p.Col), at(p.Col2)) < 0
	case GtCol:
		return mustCompare(at(p.Col), at(p.Col2)) > 0
	case EqCol:
		return mustCompare(at(p.Col), at(p.Col2)) == 0
	case Contains:
		col := at(p.Col)
		if col.Type() != value.Text {
			panic(fmt.Sprintf("predicate: contains requires a TEXT column, got %s", col.Type()))
		}
		return strings.Contains(col.AsText(), p.Val.AsText())
	default:
		panic(fmt.Sprintf("predicate: unknown kind %d", p.Kind))
	}
}

// mustCompare orders a and b and panics on a value.Compare error
// (cross-tag comparison): a mismatch here is a fatal type error, the
// same contract the sort operator applies to its own Compare call.
func mustCompare(a, b value.Value) int {
	c, err := value.Compare(a, b)
	if err != nil {
		panic(fmt.Sprintf("predicate: %v", err))
	}
	return c
}

// jsonNode mirrors the plan JSON predicate grammar.
type jsonNode struct {
	Op       string          `json:"op"`
	Children []jsonNode      `json:"children"`
	Col      *int            `json:"col"`
	Col2     *int            `json:"col2"`
	Val      json.RawMessage `json:"val"`
}

// Parse decodes a predicate from the JSON value the plan compiler
// already unmarshaled.
func Parse(raw json.RawMessage) (*Predicate, error) {
	var n jsonNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("predicate: %w", err)
	}
	return fromNode(n)
}

func fromNode(n jsonNode) (*Predicate, error) {
	switch n.Op {
	case "and", "or":
		if len(n.Children) != 2 {
			return nil, fmt.Errorf("predicate: %q requires exactly 2 children, got %d", n.Op, len(n.Children))
		}
		c1, err := fromNode(n.Children[0])
		if err != nil {
			return nil, err
		}
		c2, err := fromNode(n.Children[1])
		if err != nil {
			return nil, err
		}
		k := And
		if n.Op == "or" {
			k = Or
		}
		return &Predicate{Kind: k, Children: []*Predicate{c1, c2}}, nil
	case "not":
		if len(n.Children) != 1 {
			return nil, fmt.Errorf("predicate: \"not\" requires exactly 1 child, got %d", len(n.Children))
		}
		c1, err := fromNode(n.Children[0])
		if err != nil {
			return nil, err
		}
		return &Predicate{Kind: Not, Children: []*Predicate{c1}}, nil
	case "lt", "gt", "eq":
		if n.Col == nil {
			return nil, fmt.Errorf("predicate: %q requires \"col\"", n.Op)
		}
		k := map[string]Kind{"lt": Lt, "gt": Gt, "eq": Eq}[n.Op]
		if n.Col2 != nil {
			colK := map[string]Kind{"lt": LtCol, "gt": GtCol, "eq": EqCol}[n.Op]
			return &Predicate{Kind: colK, Col: *n.Col, Col2: *n.Col2}, nil
		}
		if len(n.Val) == 0 {
			return nil, fmt.Errorf("predicate: %q requires \"val\" or \"col2\"", n.Op)
		}
		v, err := numericLiteral(n.Val)
		if err != nil {
			return nil, err
		}
		return &Predicate{Kind: k, Col: *n.Col, Val: v}, nil
	case "contains":
		if n.Col == nil {
			return nil, fmt.Errorf("predicate: \"contains\" requires \"col\"")
		}
		var s string
		if err := json.Unmarshal(n.Val, &s); err != nil {
			return nil, fmt.Errorf("predicate: \"contains\" requires a string \"val\": %w", err)
		}
		return &Predicate{Kind: Contains, Col: *n.Col, Val: value.Str(s)}, nil
	default:
		return nil, fmt.Errorf("predicate: unknown op %q", n.Op)
	}
}

// numericLiteral decodes a JSON number, retaining whether it was
// written as an integer or a real: an integer literal compares against
// Integer columns, a real literal against Real columns.
func numericLiteral(raw json.RawMessage) (value.Value, error) {
	s := strings.TrimSpace(string(raw))
	if !strings.ContainsAny(s, ".eE") {
		var i int64
		if err := json.Unmarshal(raw, &i); err == nil {
			return value.Int(i), nil
		}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return value.Value{}, fmt.Errorf("predicate: expected a numeric literal, got %s", s)
	}
	return value.Float(f), nil
}
