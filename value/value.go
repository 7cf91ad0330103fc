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

// Package value implements the tagged scalar value that flows through
// every row in the engine.
package value

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"github.com/dchest/siphash"
)

// Type is the tag of a Value. The numeric codes are part of the
// columnar file format and must not be renumbered.
type Type uint8

const (
	Integer Type = 1
	Real    Type = 2
	Text    Type = 3
	Blob    Type = 4
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ParseType maps the plan JSON's type names to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "INTEGER":
		return Integer, nil
	case "REAL":
		return Real, nil
	case "TEXT":
		return Text, nil
	case "BLOB":
		return Blob, nil
	default:
		return 0, fmt.Errorf("value: unknown type name %q", s)
	}
}

// Value is a tagged scalar. Rather than an interface per variant, the
// four variants are held inline and dispatched on Type with a switch;
// this avoids an allocation and an indirect call per value, and the
// type set is closed and small enough that a switch is clearer than
// dynamic dispatch.
type Value struct {
	typ Type
	i   int64
	f   float64
	s   string
	b   []byte
}

// Int returns an Integer value.
func Int(i int64) Value { return Value{typ: Integer, i: i} }

// Float returns a Real value.
func Float(f float64) Value { return Value{typ: Real, f: f} }

// Str returns a Text value.
func Str(s string) Value { return Value{typ: Text, s: s} }

// Bytes returns a Blob value.
func Bytes(b []byte) Value { return Value{typ: Blob, b: b} }

// Zero returns the zero value for a type: 0, 0.0, "", or an empty blob.
// CSV scans substitute this value for any field that fails to parse.
func Zero(t Type) Value {
	switch t {
	case Integer:
		return Int(0)
	case Real:
		return Float(0)
	case Text:
		return Str("")
	case Blob:
		return Bytes(nil)
	default:
		panic(fmt.Sprintf("value: Zero of unknown type %d", t))
	}
}

// Type returns the value's tag.
func (v Value) Type() Type { return v.typ }

// AsInt returns the underlying integer. The caller must have checked
// Type() == Integer.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the underlying real. The caller must have checked
// Type() == Real.
func (v Value) AsFloat() float64 { return v.f }

// AsText returns the underlying string. The caller must have checked
// Type() == Text.
func (v Value) AsText() string { return v.s }

// AsBlob returns the underlying bytes. The caller must have checked
// Type() == Blob.
func (v Value) AsBlob() []byte { return v.b }

// ToFloat coerces an Integer or Real value to float64, for contexts
// (e.g. the avg aggregate) that always widen to Real regardless of the
// input column's type.
func (v Value) ToFloat() (float64, error) {
	switch v.typ {
	case Integer:
		return float64(v.i), nil
	case Real:
		return v.f, nil
	default:
		return 0, fmt.Errorf("value: cannot coerce %s to REAL", v.typ)
	}
}

// Parse parses a string into a Value of the given type. TEXT is copied
// verbatim; BLOB is base64-decoded. An error here is non-fatal at the
// CSV scan boundary: the caller should substitute Zero(t) and continue.
func Parse(t Type, s string) (Value, error) {
	switch t {
	case Integer:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case Real:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case Text:
		return Str(s), nil
	case Blob:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, err
		}
		return Bytes(b), nil
	default:
		return Value{}, fmt.Errorf("value: parse of unknown type %d", t)
	}
}

// String renders the value via its default string projection, used by
// the CSV sink and by the CLI when printing a non-sink root's rows.
// Real values use the shortest decimal representation that round-trips
// exactly, so an exact integral real (e.g. 9999.0) renders as "9999"
// rather than "9999.000000".
func (v Value) String() string {
	switch v.typ {
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Real:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Text:
		return v.s
	case Blob:
		return base64.StdEncoding.EncodeToString(v.b)
	default:
		panic(fmt.Sprintf("value: String of unknown type %d", v.typ))
	}
}

// TypeError is returned for cross-tag comparisons and arithmetic.
type TypeError struct {
	Op   string
	A, B Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("value: %s: incompatible types %s and %s", e.Op, e.A, e.B)
}

// Compare defines a total order within a type: numeric order within
// {Integer, Real} (NaN sorts greater than every finite value, and
// equal to NaN), and lexicographic order for Text and Blob. Comparing
// across incompatible tags is an error.
func Compare(a, b Value) (int, error) {
	switch {
	case a.typ == Integer && b.typ == Integer:
		switch {
		case a.i < b.i:
			return -1, nil
		case a.i > b.i:
			return 1, nil
		default:
			return 0, nil
		}
	case a.typ == Real && b.typ == Real:
		return compareFloat(a.f, b.f), nil
	case a.typ == Integer && b.typ == Real:
		return compareFloat(float64(a.i), b.f), nil
	case a.typ == Real && b.typ == Integer:
		return compareFloat(a.f, float64(b.i)), nil
	case a.typ == Text && b.typ == Text:
		switch {
		case a.s < b.s:
			return -1, nil
		case a.s > b.s:
			return 1, nil
		default:
			return 0, nil
		}
	case a.typ == Blob && b.typ == Blob:
		return bytesCompare(a.b, b.b), nil
	default:
		return 0, &TypeError{Op: "compare", A: a.typ, B: b.typ}
	}
}

func compareFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b compare equal. It is consistent with
// Compare (including the NaN-equals-NaN convention) but never errors:
// values of different, non-numeric-compatible types simply compare
// unequal rather than failing, since equality (unlike ordering) is a
// reasonable question to ask about any two values.
func Equal(a, b Value) bool {
	if a.typ != b.typ && !(numeric(a.typ) && numeric(b.typ)) {
		return false
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

func numeric(t Type) bool { return t == Integer || t == Real }

// Less reports a < b under Compare's order. It panics on a type
// mismatch; callers that need the fallible form should call Compare.
func Less(a, b Value) bool {
	c, err := Compare(a, b)
	if err != nil {
		panic(err)
	}
	return c < 0
}

// hashKey0, hashKey1 are the fixed siphash keys used to hash values
// for the hash-partitioned store and the hash join/group-by hash
// tables. They need not be secret (this is not a security boundary)
// but must be stable across a single process's partitioning and
// re-partitioning passes.
const (
	hashKey0 uint64 = 0x9ae16a3b2f90404f
	hashKey1 uint64 = 0xc949d7c7509e6557
)

// Hash returns a stable 64-bit hash of the value, used to bucket rows
// by key column in the hash-partitioned store and in hash-table-based
// joins/group-bys. Values of the same type with identical contents
// (for Real, identical bits) hash identically. The hash does not follow
// Equal across representations: Int(3) and Float(3) are Equal but hash
// differently, as do 0.0 and -0.0, and NaNs with different bit patterns.
func (v Value) Hash() uint64 {
	switch v.typ {
	case Integer:
		var buf [8]byte
		putUint64(buf[:], uint64(v.i))
		return siphash.Hash(hashKey0, hashKey1, buf[:])
	case Real:
		var buf [8]byte
		putUint64(buf[:], math.Float64bits(v.f))
		return siphash.Hash(hashKey0, hashKey1, buf[:])
	case Text:
		return siphash.Hash(hashKey0, hashKey1, []byte(v.s))
	case Blob:
		return siphash.Hash(hashKey0, hashKey1, v.b)
	default:
		panic(fmt.Sprintf("value: Hash of unknown type %d", v.typ))
	}
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Add implements value addition: Integer+Integer stays Integer, any
// mix with Real coerces to Real. Text/Blob are not addable.
func Add(a, b Value) (Value, error) { return arith("add", a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y }) }

// Sub implements value-subtract, with the same coercion rule as Add.
func Sub(a, b Value) (Value, error) { return arith("sub", a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }) }

func arith(op string, a, b Value, fi func(int64, int64) int64, ff func(float64, float64) float64) (Value, error) {
	switch {
	case a.typ == Integer && b.typ == Integer:
		return Int(fi(a.i, b.i)), nil
	case numeric(a.typ) && numeric(b.typ):
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return Float(ff(af, bf)), nil
	default:
		return Value{}, &TypeError{Op: op, A: a.typ, B: b.typ}
	}
}

// Div implements value-divide: dividing by a positive Integer or Real
// coerces the result to Real. Any other divisor is an error.
func Div(a, b Value) (Value, error) {
	if !numeric(a.typ) {
		return Value{}, &TypeError{Op: "div", A: a.typ, B: b.typ}
	}
	switch b.typ {
	case Integer:
		if b.i <= 0 {
			return Value{}, fmt.Errorf("value: divide by non-positive integer %d", b.i)
		}
		af, _ := a.ToFloat()
		return Float(af / float64(b.i)), nil
	case Real:
		if !(b.f > 0) {
			return Value{}, fmt.Errorf("value: divide by non-positive real %v", b.f)
		}
		af, _ := a.ToFloat()
		return Float(af / b.f), nil
	default:
		return Value{}, &TypeError{Op: "div", A: a.typ, B: b.typ}
	}
}

// NumBytes returns the wire size of v when serialized.
func (v Value) NumBytes() int {
	switch v.typ {
	case Integer:
		return 8
	case Real:
		return 8
	case Text:
		return len(v.s) + 1 // NUL terminator
	case Blob:
		return 8 + len(v.b) // u64 length prefix
	default:
		panic(fmt.Sprintf("value: NumBytes of unknown type %d", v.typ))
	}
}
