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

package exchange

import (
	"testing"

	"github.com/byoo-db/byoo/predicate"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

func mustPredicate(t *testing.T, jsonText string) *predicate.Predicate {
	t.Helper()
	p, err := predicate.Parse([]byte(jsonText))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestWriteAndDrain(t *testing.T) {
	r, w := MakePair(5, 10, row.Schema{value.Integer})
	w.Write(row.Row{value.Int(5)})
	w.Write(row.Row{value.Int(6)})
	w.Write(row.Row{value.Int(-100)})
	w.Close()

	got, err := r.IntoVec()
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{5, 6, -100}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, v := range want {
		if got[i][0].AsInt() != v {
			t.Fatalf("row %d = %d, want %d", i, got[i][0].AsInt(), v)
		}
	}
}

func TestSpansMultipleBatches(t *testing.T) {
	r, w := MakePair(5, 3, row.Schema{value.Integer})
	vals := []int64{5, 6, -100, 5, 7, -100}
	for _, v := range vals {
		w.Write(row.Row{value.Int(v)})
	}
	w.Close()

	got, err := r.IntoVec()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vals) {
		t.Fatalf("got %d rows, want %d", len(got), len(vals))
	}
	for i, v := range vals {
		if got[i][0].AsInt() != v {
			t.Fatalf("row %d = %d, want %d", i, got[i][0].AsInt(), v)
		}
	}
}

func TestConcurrentWriterReader(t *testing.T) {
	const n = 100000
	r, w := MakePair(5, 10, row.Schema{value.Integer, value.Integer, value.Integer})
	go func() {
		for i := int64(0); i < n; i++ {
			w.Write(row.Row{value.Int(i), value.Int(i + 1), value.Int(i + 2)})
		}
		w.Close()
	}()

	count := int64(0)
	for {
		buf, err := r.Data()
		if err != nil {
			break
		}
		for _, rr := range buf.Rows() {
			if rr[0].AsInt() != count {
				t.Fatalf("row %d = %d", count, rr[0].AsInt())
			}
			count++
		}
		r.Progress()
	}
	if count != n {
		t.Fatalf("count = %d, want %d", count, n)
	}
}

func TestFilterDropsRows(t *testing.T) {
	r, w := MakePair(5, 10, row.Schema{value.Integer})
	w.AddFilter(mustPredicate(t, `{"op":"gt","col":0,"val":3}`))
	for _, v := range []int64{1, 4, 2, 9} {
		w.Write(row.Row{value.Int(v)})
	}
	w.Close()
	got, _ := r.IntoVec()
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
}

func TestProjection(t *testing.T) {
	r, w := MakePair(5, 10, row.Schema{value.Integer, value.Integer})
	w.SetProjection([]int{1, 0})
	w.Write(row.Row{value.Int(1), value.Int(2)})
	w.Close()
	got, _ := r.IntoVec()
	if got[0][0].AsInt() != 2 || got[0][1].AsInt() != 1 {
		t.Fatalf("got %v", got[0])
	}
}

func TestPeekable(t *testing.T) {
	r, w := MakePair(5, 2, row.Schema{value.Integer})
	for _, v := range []int64{1, 2, 3} {
		w.Write(row.Row{value.Int(v)})
	}
	w.Close()

	p := NewPeekable(r)
	peeked, ok := p.Peek()
	if !ok || peeked[0].AsInt() != 1 {
		t.Fatalf("peek = %v, %v", peeked, ok)
	}
	var got []int64
	for {
		rr, ok := p.Pop()
		if !ok {
			break
		}
		got = append(got, rr[0].AsInt())
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("got %v", got)
	}
}
