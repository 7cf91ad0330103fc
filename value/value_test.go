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

package value

import (
	"bufio"
	"bytes"
	"math"
	"testing"
)

func TestCompareNumeric(t *testing.T) {
	cases := []struct {
		a, b Value
		want int
	}{
		{Int(3), Int(5), -1},
		{Int(5), Int(5), 0},
		{Int(7), Int(5), 1},
		{Int(3), Float(3.5), -1},
		{Float(3.5), Int(3), 1},
		{Float(math.NaN()), Float(1.0), 1},
		{Float(math.NaN()), Float(math.NaN()), 0},
		{Float(1.0), Float(math.NaN()), -1},
	}
	for _, c := range cases {
		got, err := Compare(c.a, c.b)
		if err != nil {
			t.Fatalf("Compare(%v,%v): %v", c.a, c.b, err)
		}
		if got != c.want {
			t.Errorf("Compare(%v,%v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCompareCrossTagError(t *testing.T) {
	_, err := Compare(Int(1), Str("x"))
	if err == nil {
		t.Fatal("expected error comparing INTEGER to TEXT")
	}
}

func TestArith(t *testing.T) {
	v, err := Add(Int(3), Int(4))
	if err != nil || v.Type() != Integer || v.AsInt() != 7 {
		t.Fatalf("Add(int,int) = %v, %v", v, err)
	}
	v, err = Add(Int(3), Float(0.5))
	if err != nil || v.Type() != Real || v.AsFloat() != 3.5 {
		t.Fatalf("Add(int,real) = %v, %v", v, err)
	}
	v, err = Div(Int(10), Int(4))
	if err != nil || v.Type() != Real || v.AsFloat() != 2.5 {
		t.Fatalf("Div(int,int) = %v, %v", v, err)
	}
	if _, err := Div(Int(10), Int(0)); err == nil {
		t.Fatal("expected error dividing by zero")
	}
	if _, err := Add(Str("a"), Int(1)); err == nil {
		t.Fatal("expected error adding TEXT and INTEGER")
	}
}

func TestHashStableForEqualValues(t *testing.T) {
	if Int(42).Hash() != Int(42).Hash() {
		t.Fatal("equal integers hashed differently")
	}
	if Float(1.5).Hash() != Float(1.5).Hash() {
		t.Fatal("equal reals hashed differently")
	}
	if Str("hello").Hash() != Str("hello").Hash() {
		t.Fatal("equal text hashed differently")
	}
}

func TestRoundTrip(t *testing.T) {
	vals := []Value{Int(-8), Int(0), Float(3.25), Str("hello"), Bytes([]byte{1, 2, 3})}
	types := []Type{Integer, Integer, Real, Text, Blob}
	var buf bytes.Buffer
	for _, v := range vals {
		if err := Encode(&buf, v); err != nil {
			t.Fatal(err)
		}
	}
	r := bufio.NewReader(&buf)
	for i, want := range vals {
		got, err := Decode(r, types[i])
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if !Equal(got, want) {
			t.Errorf("round trip %d: got %v, want %v", i, got, want)
		}
	}
}

func TestParseAndZero(t *testing.T) {
	if _, err := Parse(Integer, "not a number"); err == nil {
		t.Fatal("expected parse error")
	}
	z := Zero(Integer)
	if z.Type() != Integer || z.AsInt() != 0 {
		t.Fatalf("Zero(Integer) = %v", z)
	}
	if Zero(Text).AsText() != "" {
		t.Fatal("Zero(Text) should be empty string")
	}
}

func TestStringRendering(t *testing.T) {
	if Float(9999.0).String() != "9999" {
		t.Fatalf("Float(9999.0).String() = %q, want %q", Float(9999.0).String(), "9999")
	}
	if Int(9999).String() != "9999" {
		t.Fatalf("Int(9999).String() = %q", Int(9999).String())
	}
}
