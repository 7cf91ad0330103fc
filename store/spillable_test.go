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

package store

import (
	"io"
	"testing"

	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/value"
)

func TestNoSpill(t *testing.T) {
	s, err := New(row.Schema{value.Integer}, 100)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int64{5, 6, 7} {
		if err := s.PushRow(row.Row{value.Int(v)}); err != nil {
			t.Fatal(err)
		}
	}
	if s.DidSpill() {
		t.Fatal("expected no spill")
	}

	r, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.IntoVec()
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, v := range want {
		if got[i][0].AsInt() != v {
			t.Fatalf("row %d = %d, want %d", i, got[i][0].AsInt(), v)
		}
	}
}

func TestSpill(t *testing.T) {
	s, err := New(row.Schema{value.Integer}, 100)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10000; i++ {
		for _, v := range []int64{5, 6, 7} {
			if err := s.PushRow(row.Row{value.Int(v)}); err != nil {
				t.Fatal(err)
			}
		}
	}
	if !s.DidSpill() {
		t.Fatal("expected a spill")
	}

	r, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for {
		buf, err := r.Data()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		for _, rr := range buf.Rows() {
			want := []int64{5, 6, 7}[count%3]
			if rr[0].AsInt() != want {
				t.Fatalf("row %d = %d, want %d", count, rr[0].AsInt(), want)
			}
			count++
		}
		r.Progress()
	}
	if count != 30000 {
		t.Fatalf("count = %d, want 30000", count)
	}
}

func TestSpillMultiCol(t *testing.T) {
	schema := row.Schema{value.Integer, value.Integer, value.Text}
	s, err := New(schema, 100)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10000; i++ {
		if err := s.PushRow(row.Row{value.Int(5), value.Int(6), value.Str("hello!")}); err != nil {
			t.Fatal(err)
		}
		if err := s.PushRow(row.Row{value.Int(-5), value.Int(60), value.Str("world!")}); err != nil {
			t.Fatal(err)
		}
	}
	if !s.DidSpill() {
		t.Fatal("expected a spill")
	}

	r, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.IntoVec()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20000 {
		t.Fatalf("got %d rows, want 20000", len(got))
	}
	for i, rr := range got {
		if i%2 == 0 {
			if rr[0].AsInt() != 5 || rr[1].AsInt() != 6 || rr[2].AsText() != "hello!" {
				t.Fatalf("row %d = %v", i, rr)
			}
		} else {
			if rr[0].AsInt() != -5 || rr[1].AsInt() != 60 || rr[2].AsText() != "world!" {
				t.Fatalf("row %d = %v", i, rr)
			}
		}
	}
}

func TestReadSequentialSucceeds(t *testing.T) {
	s, err := New(row.Schema{value.Integer}, 100)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int64{1, 2, 3} {
		if err := s.PushRow(row.Row{value.Int(v)}); err != nil {
			t.Fatal(err)
		}
	}

	r1, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	got1, err := r1.IntoVec()
	if err != nil {
		t.Fatal(err)
	}

	// Only after the first read has fully drained does a second,
	// independent pass succeed: any number of sequential scans,
	// never a concurrent one.
	r2, err := s.Read()
	if err != nil {
		t.Fatalf("second Read after the first completed: %v", err)
	}
	got2, err := r2.IntoVec()
	if err != nil {
		t.Fatal(err)
	}

	want := []int64{1, 2, 3}
	for _, got := range [][]row.Row{got1, got2} {
		if len(got) != len(want) {
			t.Fatalf("got %d rows, want %d", len(got), len(want))
		}
		for i, v := range want {
			if got[i][0].AsInt() != v {
				t.Fatalf("row %d = %d, want %d", i, got[i][0].AsInt(), v)
			}
		}
	}
}

func TestReadConcurrentRejected(t *testing.T) {
	// maxSize is large enough that none of these rows ever spill, so
	// Read's drain goroutine serves them all straight out of s.data
	// over the exchange channel's pool of 5 buffers of 4096 rows each.
	s, err := New(row.Schema{value.Integer}, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	// More rows than the pool (5*4096 = 20480) can hold without a
	// consumer: once the drain goroutine has filled every buffer, its
	// next Write blocks waiting for a recycled buffer that will never
	// come, since this test never reads from the first Read's Reader.
	// That makes the first read provably still in flight -- not a race
	// against how fast the goroutine happens to run -- when the second
	// Read call below executes, so it must be rejected.
	const rows = 6 * 4096
	for i := 0; i < rows; i++ {
		if err := s.PushRow(row.Row{value.Int(int64(i))}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Read(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(); err == nil {
		t.Fatal("expected a concurrent second Read to be rejected")
	}
}

func TestStats(t *testing.T) {
	s, err := New(row.Schema{value.Integer, value.Text}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PushRow(row.Row{value.Int(1), value.Str("ab")}); err != nil {
		t.Fatal(err)
	}
	if err := s.PushRow(row.Row{value.Int(2), value.Str("cde")}); err != nil {
		t.Fatal(err)
	}
	st := s.Stats()
	if st.Rows != 2 {
		t.Fatalf("rows = %d, want 2", st.Rows)
	}
	if st.ColumnSize[0] != 16 {
		t.Fatalf("column 0 bytes = %d, want 16", st.ColumnSize[0])
	}
	if st.ColumnSize[1] != 7 {
		t.Fatalf("column 1 bytes = %d, want 7 (2+1 NUL, 3+1 NUL)", st.ColumnSize[1])
	}
}
