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

package format

import (
	"os"
	"testing"

	"github.com/byoo-db/byoo/compr"
	"github.com/byoo-db/byoo/value"
)

func TestHeaderRoundTrip(t *testing.T) {
	f, err := os.CreateTemp("", "byoo-format-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	types := []value.Type{value.Integer, value.Text}
	cols := [][]value.Value{
		{value.Int(1), value.Int(2), value.Int(3), value.Int(4)},
		{value.Str("a"), value.Str("bb"), value.Str("ccc"), value.Str("dddd")},
	}
	const numRows = 4

	offsetsAt, dataStart, err := WriteHeader(f, types, numRows)
	if err != nil {
		t.Fatal(err)
	}
	if dataStart != HeaderSize(len(types)) {
		t.Fatalf("dataStart = %d, want %d", dataStart, HeaderSize(len(types)))
	}

	c := compr.Compression("s2")
	offsets := make([]uint64, len(types))
	pos := uint64(dataStart)
	for i, vals := range cols {
		raw, err := EncodeColumn(vals)
		if err != nil {
			t.Fatal(err)
		}
		compressed := c.Compress(raw, nil)
		offsets[i] = pos
		if _, err := f.Write(compressed); err != nil {
			t.Fatal(err)
		}
		pos += uint64(len(compressed))
	}
	if err := PatchOffsets(f, offsetsAt, offsets); err != nil {
		t.Fatal(err)
	}

	if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		t.Fatal(err)
	}
	hdr, err := ReadHeader(f)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.NumRows != numRows {
		t.Fatalf("numRows = %d, want %d", hdr.NumRows, numRows)
	}
	if len(hdr.Types) != 2 || hdr.Types[0] != value.Integer || hdr.Types[1] != value.Text {
		t.Fatalf("types = %v", hdr.Types)
	}
	if hdr.Offsets[0] != offsets[0] || hdr.Offsets[1] != offsets[1] {
		t.Fatalf("offsets = %v, want %v", hdr.Offsets, offsets)
	}

	fi, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	fileEnd := uint64(fi.Size())

	d := compr.Decompression("s2")
	for i := range types {
		var length uint64
		if i+1 < len(hdr.Offsets) {
			length = hdr.Offsets[i+1] - hdr.Offsets[i]
		} else {
			length = fileEnd - hdr.Offsets[i]
		}
		compressed := make([]byte, length)
		if _, err := f.ReadAt(compressed, int64(hdr.Offsets[i])); err != nil {
			t.Fatal(err)
		}
		n, err := d.DecodedLen(compressed)
		if err != nil {
			t.Fatal(err)
		}
		raw := make([]byte, n)
		if err := d.Decompress(compressed, raw); err != nil {
			t.Fatal(err)
		}
		got, err := DecodeColumn(raw, hdr.Types[i], hdr.NumRows)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(cols[i]) {
			t.Fatalf("col %d: got %d values, want %d", i, len(got), len(cols[i]))
		}
		for j := range got {
			if got[j].Type() != cols[i][j].Type() {
				t.Fatalf("col %d row %d: type mismatch", i, j)
			}
		}
	}
}
