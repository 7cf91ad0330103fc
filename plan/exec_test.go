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

package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeCSV(t *testing.T, dir, name string, header string, rows []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fmt.Fprintln(f, header)
	for _, r := range rows {
		fmt.Fprintln(f, r)
	}
	return path
}

// TestFilterAndProjectEndToEnd runs a scan -> filter -> project -> sink
// plan through a real compiled tree.
func TestFilterAndProjectEndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "in.csv", "id,name,age", []string{
		"1,alice,30",
		"2,bob,15",
		"3,carol,45",
	})
	out := filepath.Join(dir, "out.csv")

	planText := fmt.Sprintf(`{
		"op": "csv out",
		"options": {"file": %q},
		"input": [{
			"op": "project",
			"options": {"cols": [1]},
			"input": [{
				"op": "filter",
				"options": {"predicate": {"op": "gt", "col": 2, "val": 20}},
				"input": [{
					"op": "csv read",
					"options": {"file": %q, "types": ["INTEGER", "TEXT", "INTEGER"]}
				}]
			}]
		}]
	}`, out, in)

	root, err := Compile([]byte(planText))
	if err != nil {
		t.Fatal(err)
	}
	if err := root.Start(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitNonEmptyLines(string(got))
	sort.Strings(lines)
	want := []string{"alice", "carol"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("got %v, want %v", lines, want)
		}
	}
}

// TestMergeJoinEndToEnd runs two sorted scans through a merge join and
// a csv out sink.
func TestMergeJoinEndToEnd(t *testing.T) {
	dir := t.TempDir()
	left := writeCSV(t, dir, "left.csv", "id,name", []string{"1,alice", "2,bob", "3,carol"})
	right := writeCSV(t, dir, "right.csv", "id,city", []string{"1,nyc", "2,sf", "4,la"})
	out := filepath.Join(dir, "out.csv")

	planText := fmt.Sprintf(`{
		"op": "csv out",
		"options": {"file": %q},
		"input": [{
			"op": "merge join",
			"options": {"left_cols": [0], "right_cols": [0]},
			"input": [
				{"op": "csv read", "options": {"file": %q, "types": ["INTEGER", "TEXT"]}},
				{"op": "csv read", "options": {"file": %q, "types": ["INTEGER", "TEXT"]}}
			]
		}]
	}`, out, left, right)

	root, err := Compile([]byte(planText))
	if err != nil {
		t.Fatal(err)
	}
	if err := root.Start(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitNonEmptyLines(string(got))
	if len(lines) != 2 {
		t.Fatalf("got %d matched rows, want 2: %v", len(lines), lines)
	}
}

// TestStartSaveReturnsRowsForNonSinkRoot exercises the non-sink path
// of StartSave directly, without going through the CLI.
func TestStartSaveReturnsRowsForNonSinkRoot(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "in.csv", "n", []string{"1", "2", "3"})

	planText := fmt.Sprintf(`{"op":"csv read","options":{"file":%q,"types":["INTEGER"]}}`, in)
	root, err := Compile([]byte(planText))
	if err != nil {
		t.Fatal(err)
	}

	reader, errs := root.StartSave()
	if reader == nil {
		t.Fatal("expected a non-nil reader for a non-sink root")
	}
	rows, err := reader.IntoVec()
	if err != nil {
		t.Fatal(err)
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
}

func TestStartSaveSinkRootHasNilReader(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "in.csv", "n", []string{"1", "2"})
	out := filepath.Join(dir, "out.csv")

	planText := fmt.Sprintf(`{
		"op": "csv out",
		"options": {"file": %q},
		"input": [{"op": "csv read", "options": {"file": %q, "types": ["INTEGER"]}}]
	}`, out, in)
	root, err := Compile([]byte(planText))
	if err != nil {
		t.Fatal(err)
	}

	reader, errs := root.StartSave()
	if reader != nil {
		t.Fatal("expected a nil reader for a sink root")
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
