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
	"testing"

	"github.com/byoo-db/byoo/value"
)

func TestCompileCSVReadSchema(t *testing.T) {
	text := `{"op":"csv read","options":{"file":"x.csv","types":["INTEGER","TEXT"]}}`
	r, err := Compile([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	if r.root.sink {
		t.Fatal("csv read must not be a sink")
	}
	if len(r.root.schema) != 2 || r.root.schema[0] != value.Integer || r.root.schema[1] != value.Text {
		t.Fatalf("got schema %v", r.root.schema)
	}
}

func TestCompileUnknownOpcode(t *testing.T) {
	text := `{"op":"bogus"}`
	if _, err := Compile([]byte(text)); err == nil {
		t.Fatal("expected error for unknown opcode")
	}
}

func TestCompileArityMismatch(t *testing.T) {
	text := `{"op":"project","options":{"cols":[0]},"input":[]}`
	if _, err := Compile([]byte(text)); err == nil {
		t.Fatal("expected arity error for project with no input")
	}
}

func TestCompileUnionRequiresAtLeastTwo(t *testing.T) {
	text := `{"op":"union","input":[{"op":"csv read","options":{"file":"a.csv","types":["INTEGER"]}}]}`
	if _, err := Compile([]byte(text)); err == nil {
		t.Fatal("expected arity error for union with 1 input")
	}
}

func TestCompileProjectSchema(t *testing.T) {
	text := `{"op":"project","options":{"cols":[1,0]},"input":[
		{"op":"csv read","options":{"file":"a.csv","types":["INTEGER","TEXT"]}}
	]}`
	r, err := Compile([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.root.schema) != 2 || r.root.schema[0] != value.Text || r.root.schema[1] != value.Integer {
		t.Fatalf("got schema %v", r.root.schema)
	}
}

func TestCompileProjectOutOfRangeColumn(t *testing.T) {
	text := `{"op":"project","options":{"cols":[5]},"input":[
		{"op":"csv read","options":{"file":"a.csv","types":["INTEGER"]}}
	]}`
	if _, err := Compile([]byte(text)); err == nil {
		t.Fatal("expected out-of-range column error")
	}
}

func TestCompileSortedGroupBySchema(t *testing.T) {
	text := `{"op":"sorted group by","options":{"col":0,"aggregates":[{"op":"sum","col":1},{"op":"count","col":1}]},"input":[
		{"op":"csv read","options":{"file":"a.csv","types":["INTEGER","INTEGER"]}}
	]}`
	r, err := Compile([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	want := []value.Type{value.Integer, value.Integer, value.Integer, value.Integer}
	if len(r.root.schema) != len(want) {
		t.Fatalf("got schema %v", r.root.schema)
	}
	for i, w := range want {
		if r.root.schema[i] != w {
			t.Fatalf("column %d = %s, want %s", i, r.root.schema[i], w)
		}
	}
}

func TestCompileAllRowsGroupByHasNoColOption(t *testing.T) {
	text := `{"op":"all rows group by","options":{"aggregates":[{"op":"avg","col":0}]},"input":[
		{"op":"csv read","options":{"file":"a.csv","types":["INTEGER"]}}
	]}`
	r, err := Compile([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.root.schema) != 2 || r.root.schema[1] != value.Real {
		t.Fatalf("got schema %v", r.root.schema)
	}
}

func TestCompileJoinConcatenatesSchemas(t *testing.T) {
	text := `{"op":"merge join","options":{"left_cols":[0],"right_cols":[0]},"input":[
		{"op":"csv read","options":{"file":"a.csv","types":["INTEGER"]}},
		{"op":"csv read","options":{"file":"b.csv","types":["TEXT","TEXT"]}}
	]}`
	r, err := Compile([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.root.schema) != 3 || r.root.schema[0] != value.Integer || r.root.schema[1] != value.Text || r.root.schema[2] != value.Text {
		t.Fatalf("got schema %v", r.root.schema)
	}
}

func TestCompileSinkHasNoSchema(t *testing.T) {
	text := `{"op":"csv out","options":{"file":"out.csv"},"input":[
		{"op":"csv read","options":{"file":"a.csv","types":["INTEGER"]}}
	]}`
	r, err := Compile([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	if !r.root.sink {
		t.Fatal("csv out must be a sink")
	}
	if r.root.schema != nil {
		t.Fatalf("sink schema should be nil, got %v", r.root.schema)
	}
}

func TestCompileIDsAssignedBottomUp(t *testing.T) {
	text := `{"op":"project","options":{"cols":[0]},"input":[
		{"op":"csv read","options":{"file":"a.csv","types":["INTEGER"]}}
	]}`
	r, err := Compile([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	if r.root.children[0].id != 0 {
		t.Fatalf("leaf id = %d, want 0", r.root.children[0].id)
	}
	if r.root.id != 1 {
		t.Fatalf("root id = %d, want 1", r.root.id)
	}
}
