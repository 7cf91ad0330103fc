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

// Package compr wraps a third-party block compressor behind a small
// interface, so the columnar file format can compress each column's
// value stream without depending on a specific algorithm. The engine
// always names its compressor ("s2") rather than ever leaving a
// column's bytes raw, so the offsets table in the columnar header is
// always computed from real compressed lengths.
package compr

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// Compressor appends the compressed form of src to dst and returns the
// result, naming the algorithm used.
type Compressor interface {
	Name() string
	Compress(src, dst []byte) []byte
}

// Decompressor reverses a Compressor's encoding. Decompress must fully
// fill dst; a short or mismatched-length result is an error. DecodedLen
// reports how large dst must be without actually decompressing,
// relying on s2's block format embedding the uncompressed length as a
// varint header -- this is what lets the columnar format (format
// package) decompress a column of variable-width TEXT/BLOB values
// without storing a separate uncompressed-length field of its own.
type Decompressor interface {
	Name() string
	DecodedLen(src []byte) (int, error)
	Decompress(src, dst []byte) error
}

type s2Codec struct{}

func (s2Codec) Name() string { return "s2" }

func (s2Codec) Compress(src, dst []byte) []byte {
	return append(dst, s2.Encode(nil, src)...)
}

func (s2Codec) DecodedLen(src []byte) (int, error) {
	return s2.DecodedLen(src)
}

func (s2Codec) Decompress(src, dst []byte) error {
	got, err := s2.Decode(dst[:0:len(dst)], src)
	if err != nil {
		return err
	}
	if len(got) != len(dst) {
		return fmt.Errorf("compr: expected %d decompressed bytes, got %d", len(dst), len(got))
	}
	if len(dst) > 0 && &got[0] != &dst[0] {
		copy(dst, got)
	}
	return nil
}

// Compression selects a Compressor by name. It returns nil for an
// unrecognized name.
func Compression(name string) Compressor {
	switch name {
	case "s2":
		return s2Codec{}
	default:
		return nil
	}
}

// Decompression selects a Decompressor by name. It returns nil for an
// unrecognized name.
func Decompression(name string) Decompressor {
	switch name {
	case "s2":
		return s2Codec{}
	default:
		return nil
	}
}
