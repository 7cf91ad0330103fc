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

package compr

import (
	"bytes"
	"testing"
)

func TestS2RoundTrip(t *testing.T) {
	c := Compression("s2")
	d := Decompression("s2")
	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 100)
	compressed := c.Compress(src, nil)
	if len(compressed) == 0 {
		t.Fatal("empty compressed output")
	}
	n, err := d.DecodedLen(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(src) {
		t.Fatalf("decoded len = %d, want %d", n, len(src))
	}
	dst := make([]byte, n)
	if err := d.Decompress(compressed, dst); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst, src) {
		t.Fatal("round trip mismatch")
	}
}

func TestUnknownName(t *testing.T) {
	if Compression("bogus") != nil {
		t.Fatal("expected nil for unknown compressor")
	}
	if Decompression("bogus") != nil {
		t.Fatal("expected nil for unknown decompressor")
	}
}
