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
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/byoo-db/byoo/exchange"
)

// CSVScan is the "csv read" leaf operator: it parses a comma-delimited
// file whose fields are typed positionally by the output schema,
// skipping the header row. Each record maps directly onto
// exchange.Writer.WriteStrings, which already turns an unparseable
// field into its column's zero value.
type CSVScan struct {
	file   string
	output *exchange.Writer
}

// NewCSVScan builds a CSVScan reading from file.
func NewCSVScan(file string, output *exchange.Writer) *CSVScan {
	return &CSVScan{file: file, output: output}
}

// Start opens the file, discards its header row, and writes one row
// per remaining record, then closes output.
func (c *CSVScan) Start() error {
	defer c.output.Close()

	f, err := os.Open(c.file)
	if err != nil {
		return fmt.Errorf("operator: csv read: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("operator: csv read: header: %w", err)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("operator: csv read: %w", err)
		}
		if err := c.output.WriteStrings(rec); err != nil {
			return err
		}
	}
}

// CSVSink is the "csv out" sink operator: it writes one CSV record per
// input row, each value rendered through its string projection. The
// plan JSON grammar gives csv out no header-names option, so this sink
// never writes a header line.
type CSVSink struct {
	file  string
	input *exchange.Reader
}

// NewCSVSink builds a CSVSink writing to file.
func NewCSVSink(file string, input *exchange.Reader) *CSVSink {
	return &CSVSink{file: file, input: input}
}

// Start drains input, writing one CSV record per row, until input is
// exhausted.
func (c *CSVSink) Start() error {
	f, err := os.Create(c.file)
	if err != nil {
		return fmt.Errorf("operator: csv out: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for {
		buf, err := c.input.Data()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for _, r := range buf.Rows() {
			rec := make([]string, len(r))
			for i, v := range r {
				rec[i] = v.String()
			}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("operator: csv out: %w", err)
			}
		}
		c.input.Progress()
	}
	w.Flush()
	return w.Error()
}
