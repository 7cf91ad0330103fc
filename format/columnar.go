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

// Package format implements the columnar binary file's bit-exact
// layout: a header (format tag, column count, row count, per-column
// type codes, per-column byte offset) followed by each column's
// compressed value stream in order. Offsets are written as zero
// placeholders and back-patched once each column's compressed length
// is known; they are absolute from the start of the file.
package format

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/byoo-db/byoo/value"
)

// FormatTag is the only recognized format code ("column order").
const FormatTag = 1

// HeaderSize returns the number of bytes occupied by the fixed-size
// header and offsets table for a relation of numCols columns: 1 (tag)
// + 2 (col count) + 8 (row count) + 2*numCols (type codes) +
// 8*numCols (offsets).
func HeaderSize(numCols int) int64 {
	return 1 + 2 + 8 + int64(numCols)*2 + int64(numCols)*8
}

// WriteHeader writes the format tag, column count, row count, and
// per-column type codes, followed by a zeroed offsets table to be
// back-patched later by PatchOffsets. It returns the absolute file
// offset of the offsets table (where PatchOffsets must seek to) and
// the absolute file offset where column 0's compressed data begins.
func WriteHeader(w io.WriteSeeker, types []value.Type, numRows uint64) (offsetsAt, dataStart int64, err error) {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, err
	}
	if err := writeU8(w, FormatTag); err != nil {
		return 0, 0, err
	}
	if err := writeU16(w, uint16(len(types))); err != nil {
		return 0, 0, err
	}
	if err := writeU64(w, numRows); err != nil {
		return 0, 0, err
	}
	for _, t := range types {
		if err := writeU16(w, uint16(t)); err != nil {
			return 0, 0, err
		}
	}
	offsetsAt = pos + 1 + 2 + 8 + int64(len(types))*2
	for range types {
		if err := writeU64(w, 0); err != nil {
			return 0, 0, err
		}
	}
	dataStart = offsetsAt + int64(len(types))*8
	return offsetsAt, dataStart, nil
}

// PatchOffsets seeks back to the offsets table and writes the real,
// absolute-from-file-start offsets, then restores the write position
// to the end of the file so a caller appending nothing further does
// not need to seek again.
func PatchOffsets(w io.WriteSeeker, offsetsAt int64, offsets []uint64) error {
	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.Seek(offsetsAt, io.SeekStart); err != nil {
		return err
	}
	for _, off := range offsets {
		if err := writeU64(w, off); err != nil {
			return err
		}
	}
	_, err = w.Seek(end, io.SeekStart)
	return err
}

// Header is the decoded result of ReadHeader.
type Header struct {
	Types   []value.Type
	NumRows uint64
	Offsets []uint64 // absolute, from file start, one per column
}

// ReadHeader reads and validates the fixed-size header from the start
// of r (a fresh, unseeked reader over the file).
func ReadHeader(r io.Reader) (*Header, error) {
	tag, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("format: read header: %w", err)
	}
	if tag != FormatTag {
		return nil, fmt.Errorf("format: unrecognized format tag %d", tag)
	}
	numCols, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("format: read header: %w", err)
	}
	numRows, err := readU64(r)
	if err != nil {
		return nil, fmt.Errorf("format: read header: %w", err)
	}
	types := make([]value.Type, numCols)
	for i := range types {
		code, err := readU16(r)
		if err != nil {
			return nil, fmt.Errorf("format: read header: %w", err)
		}
		types[i] = value.Type(code)
	}
	offsets := make([]uint64, numCols)
	for i := range offsets {
		off, err := readU64(r)
		if err != nil {
			return nil, fmt.Errorf("format: read header: %w", err)
		}
		offsets[i] = off
	}
	return &Header{Types: types, NumRows: numRows, Offsets: offsets}, nil
}

// EncodeColumn serializes values in the row-wire encoding, to be
// compressed by the caller.
func EncodeColumn(values []value.Value) ([]byte, error) {
	buf := make([]byte, 0, len(values)*8)
	w := &growBuffer{b: buf}
	for _, v := range values {
		if err := value.Encode(w, v); err != nil {
			return nil, err
		}
	}
	return w.b, nil
}

// DecodeColumn deserializes numRows values of type typ from a
// decompressed column byte stream.
func DecodeColumn(data []byte, typ value.Type, numRows uint64) ([]value.Value, error) {
	br := bufio.NewReader(newByteReader(data))
	out := make([]value.Value, numRows)
	for i := range out {
		v, err := value.Decode(br, typ)
		if err != nil {
			return nil, fmt.Errorf("format: decode column: row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

type growBuffer struct{ b []byte }

func (g *growBuffer) Write(p []byte) (int, error) {
	g.b = append(g.b, p...)
	return len(p), nil
}

func newByteReader(b []byte) io.Reader { return &sliceReader{b: b} }

type sliceReader struct {
	b   []byte
	pos int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.pos:])
	s.pos += n
	return n, nil
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
