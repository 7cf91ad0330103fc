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
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode writes v to dst in the row-serialization format:
// little-endian fixed widths for INTEGER/REAL, a NUL-terminated byte
// string for TEXT, and a little-endian u64 length prefix for BLOB.
func Encode(dst io.Writer, v Value) error {
	switch v.typ {
	case Integer:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v.i))
		_, err := dst.Write(buf[:])
		return err
	case Real:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.f))
		_, err := dst.Write(buf[:])
		return err
	case Text:
		if _, err := io.WriteString(dst, v.s); err != nil {
			return err
		}
		_, err := dst.Write([]byte{0})
		return err
	case Blob:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(len(v.b)))
		if _, err := dst.Write(buf[:]); err != nil {
			return err
		}
		_, err := dst.Write(v.b)
		return err
	default:
		return fmt.Errorf("value: encode of unknown type %d", v.typ)
	}
}

// Decode reads one value of type t from src. EOF before any byte of the
// value has been read is reported as io.EOF (clean, row-boundary EOF);
// any partial read is io.ErrUnexpectedEOF.
func Decode(src *bufio.Reader, t Type) (Value, error) {
	switch t {
	case Integer:
		b, err := readFull(src, 8)
		if err != nil {
			return Value{}, err
		}
		return Int(int64(binary.LittleEndian.Uint64(b))), nil
	case Real:
		b, err := readFull(src, 8)
		if err != nil {
			return Value{}, err
		}
		return Float(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case Text:
		s, err := src.ReadString(0)
		if err != nil {
			if err == io.EOF && len(s) == 0 {
				return Value{}, io.EOF
			}
			return Value{}, io.ErrUnexpectedEOF
		}
		return Str(s[:len(s)-1]), nil
	case Blob:
		lb, err := readFull(src, 8)
		if err != nil {
			return Value{}, err
		}
		n := binary.LittleEndian.Uint64(lb)
		if n == 0 {
			return Bytes(nil), nil
		}
		b, err := readFull(src, int(n))
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return Value{}, err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return Bytes(cp), nil
	default:
		return Value{}, fmt.Errorf("value: decode of unknown type %d", t)
	}
}

// readFull reads exactly n bytes, reporting a clean io.EOF only when
// zero bytes were available before the read, and io.ErrUnexpectedEOF
// for a short read (a row cut off mid-value).
func readFull(src *bufio.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := src.Read(buf[read:])
		read += m
		if err != nil {
			if err == io.EOF {
				if read == 0 {
					return nil, io.EOF
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	return buf, nil
}
