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
	"encoding/json"
	"fmt"
)

// optField pulls one named field out of a plan node's options object,
// reporting a fatal plan error if it is absent.
func optField(options json.RawMessage, name string) (json.RawMessage, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("missing required option %q", name)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(options, &m); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("missing required option %q", name)
	}
	return v, nil
}

// optString reads a required string-valued option.
func optString(options json.RawMessage, name string) (string, error) {
	raw, err := optField(options, name)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("option %q must be a string: %w", name, err)
	}
	return s, nil
}

// optInt reads a required integer-valued option.
func optInt(options json.RawMessage, name string) (int, error) {
	raw, err := optField(options, name)
	if err != nil {
		return 0, err
	}
	var i int
	if err := json.Unmarshal(raw, &i); err != nil {
		return 0, fmt.Errorf("option %q must be an integer: %w", name, err)
	}
	return i, nil
}

// optStringSlice reads a required array-of-strings option.
func optStringSlice(options json.RawMessage, name string) ([]string, error) {
	raw, err := optField(options, name)
	if err != nil {
		return nil, err
	}
	var s []string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("option %q must be an array of strings: %w", name, err)
	}
	return s, nil
}

// optIntSlice reads a required array-of-integers option.
func optIntSlice(options json.RawMessage, name string) ([]int, error) {
	raw, err := optField(options, name)
	if err != nil {
		return nil, err
	}
	var s []int
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("option %q must be an array of integers: %w", name, err)
	}
	return s, nil
}

// optRaw reads a required option as a raw JSON value, for fields
// (predicate, aggregates) that get their own dedicated parser.
func optRaw(options json.RawMessage, name string) (json.RawMessage, error) {
	return optField(options, name)
}

// aggSpec mirrors one element of the plan JSON `aggregates` array:
// `{op, col}`.
type aggSpec struct {
	Op  string `json:"op"`
	Col int    `json:"col"`
}

// optAggregates reads the "aggregates" option into parallel name/col
// slices, used both for output-schema derivation and operator
// construction.
func optAggregates(options json.RawMessage) ([]string, []int, error) {
	raw, err := optField(options, "aggregates")
	if err != nil {
		return nil, nil, err
	}
	var specs []aggSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, nil, fmt.Errorf("option \"aggregates\" must be an array of {op, col}: %w", err)
	}
	names := make([]string, len(specs))
	cols := make([]int, len(specs))
	for i, s := range specs {
		names[i] = s.Op
		cols[i] = s.Col
	}
	return names, cols, nil
}
