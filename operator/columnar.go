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

package operator

import (
	"fmt"
	"io"
	"os"

	"github.com/byoo-db/byoo/compr"
	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/format"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/store"
	"github.com/byoo-db/byoo/value"
)

// columnarCodec is the sole compressor/decompressor the columnar
// format uses; compr.Compression's one registered codec.
const columnarCodec = "s2"

// ColumnarScan is the "columnar read" leaf operator: it reads one
// column out of a columnar binary file and streams its values as a
// single-column relation. The header's offsets are absolute file
// positions (format.ReadHeader), and the column bytes are
// decompressed via compr before decoding.
type ColumnarScan struct {
	file   string
	col    int
	output *exchange.Writer
}

// NewColumnarScan builds a ColumnarScan reading column col of file.
func NewColumnarScan(file string, col int, output *exchange.Writer) (*ColumnarScan, error) {
	if len(output.Schema()) != 1 {
		return nil, fmt.Errorf("operator: columnar read: output must be a single column")
	}
	return &ColumnarScan{file: file, col: col, output: output}, nil
}

// Start reads the file's header, decompresses the requested column,
// and writes its values to output, then closes output.
func (c *ColumnarScan) Start() error {
	defer c.output.Close()

	f, err := os.Open(c.file)
	if err != nil {
		return fmt.Errorf("operator: columnar read: %w", err)
	}
	defer f.Close()

	hdr, err := format.ReadHeader(f)
	if err != nil {
		return fmt.Errorf("operator: columnar read: %w", err)
	}
	if c.col < 0 || c.col >= len(hdr.Offsets) {
		return fmt.Errorf("operator: columnar read: column %d out of range for %d columns", c.col, len(hdr.Offsets))
	}
	if hdr.Types[c.col] != c.output.Schema()[0] {
		return fmt.Errorf("operator: columnar read: column %d has type %s, output expects %s", c.col, hdr.Types[c.col], c.output.Schema()[0])
	}

	var length int64
	if c.col+1 < len(hdr.Offsets) {
		length = int64(hdr.Offsets[c.col+1] - hdr.Offsets[c.col])
	} else {
		fi, err := f.Stat()
		if err != nil {
			return fmt.Errorf("operator: columnar read: %w", err)
		}
		length = fi.Size() - int64(hdr.Offsets[c.col])
	}

	compressed := make([]byte, length)
	if _, err := f.ReadAt(compressed, int64(hdr.Offsets[c.col])); err != nil {
		return fmt.Errorf("operator: columnar read: %w", err)
	}

	d := compr.Decompression(columnarCodec)
	decodedLen, err := d.DecodedLen(compressed)
	if err != nil {
		return fmt.Errorf("operator: columnar read: %w", err)
	}
	raw := make([]byte, decodedLen)
	if err := d.Decompress(compressed, raw); err != nil {
		return fmt.Errorf("operator: columnar read: %w", err)
	}

	values, err := format.DecodeColumn(raw, hdr.Types[c.col], hdr.NumRows)
	if err != nil {
		return fmt.Errorf("operator: columnar read: %w", err)
	}
	return c.output.WriteFromColumns(len(values), [][]value.Value{values})
}

// ColumnarSink is the "columnar out" sink operator: it writes the
// columnar binary file format, spooling each input column into its own
// spillable store so the whole relation never needs to be resident at
// once, then streaming each column's compressed bytes into the output
// file and back-patching the offsets table once every column's
// compressed length is known.
type ColumnarSink struct {
	file  string
	input *exchange.Reader
}

// NewColumnarSink builds a ColumnarSink writing to file.
func NewColumnarSink(file string, input *exchange.Reader) *ColumnarSink {
	return &ColumnarSink{file: file, input: input}
}

// columnStoreBudget bounds how many scalar values of a single column
// are held resident before spilling, applied per column since each
// column gets its own store.
const columnStoreBudget = 4096

// Start drains input into one spillable store per column, then writes
// the columnar file.
func (c *ColumnarSink) Start() error {
	schema := c.input.Schema()
	stores := make([]*store.Store, len(schema))
	for i, t := range schema {
		s, err := store.New(row.Schema{t}, columnStoreBudget)
		if err != nil {
			return fmt.Errorf("operator: columnar out: %w", err)
		}
		stores[i] = s
	}

	for {
		buf, err := c.input.Data()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for _, r := range buf.Rows() {
			for i, v := range r {
				if err := stores[i].PushRow(row.Row{v}); err != nil {
					return fmt.Errorf("operator: columnar out: %w", err)
				}
			}
		}
		c.input.Progress()
	}

	var numRows uint64
	if len(stores) > 0 {
		numRows = uint64(stores[0].Stats().Rows)
	}

	f, err := os.Create(c.file)
	if err != nil {
		return fmt.Errorf("operator: columnar out: %w", err)
	}
	defer f.Close()

	offsetsAt, dataStart, err := format.WriteHeader(f, schema, numRows)
	if err != nil {
		return fmt.Errorf("operator: columnar out: %w", err)
	}

	compressor := compr.Compression(columnarCodec)
	offsets := make([]uint64, len(schema))
	pos := uint64(dataStart)
	for i, s := range stores {
		vals, err := drainColumn(s)
		if err != nil {
			return fmt.Errorf("operator: columnar out: %w", err)
		}
		raw, err := format.EncodeColumn(vals)
		if err != nil {
			return fmt.Errorf("operator: columnar out: %w", err)
		}
		compressed := compressor.Compress(raw, nil)
		offsets[i] = pos
		if _, err := f.Write(compressed); err != nil {
			return fmt.Errorf("operator: columnar out: %w", err)
		}
		pos += uint64(len(compressed))
	}

	return format.PatchOffsets(f, offsetsAt, offsets)
}

// drainColumn reads every value out of a single-column store.
func drainColumn(s *store.Store) ([]value.Value, error) {
	rd, err := s.Read()
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for {
		buf, err := rd.Data()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, buf.Column(0)...)
		rd.Progress()
	}
}
