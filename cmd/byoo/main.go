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

// Command byoo runs a single query plan: byoo [PLAN_FILE].
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/byoo-db/byoo/plan"
)

func main() {
	flag.Parse()
	args := flag.Args()

	file := "plan.json"
	if len(args) > 0 {
		file = args[0]
	} else {
		fmt.Fprintf(os.Stderr, "byoo: no plan file given, defaulting to %q\n", file)
	}

	if err := run(file); err != nil {
		fmt.Fprintf(os.Stderr, "byoo: %s\n", err)
		os.Exit(1)
	}
}

func run(file string) error {
	text, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	root, err := plan.Compile(text)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", file, err)
	}

	reader, errs := root.StartSave()
	if reader == nil {
		return <-errs
	}

	out := bufio.NewWriter(os.Stdout)
	for {
		buf, err := reader.Data()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for _, r := range buf.Rows() {
			for i, v := range r {
				if i > 0 {
					out.WriteByte(',')
				}
				out.WriteString(v.String())
			}
			out.WriteByte('\n')
		}
		reader.Progress()
	}
	if err := out.Flush(); err != nil {
		return err
	}

	return <-errs
}
