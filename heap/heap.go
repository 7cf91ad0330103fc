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

// Package heap implements a generic min-heap over a plain slice. The
// external merge sort (operator/sort.go) uses it to pick, on each
// step, the smallest head row among the currently open run readers.
package heap

// Fix restores the min-heap invariant for x after the element at index
// has changed, given the order predicate less.
func Fix[T any](x []T, index int, less func(a, b T) bool) {
	siftDown(x, index, less)
	siftUp(x, index, less)
}

// Pop removes and returns the smallest element of x, preserving the
// heap invariant.
func Pop[T any](x *[]T, less func(a, b T) bool) T {
	ret := (*x)[0]
	(*x)[0], *x = (*x)[len(*x)-1], (*x)[:len(*x)-1]
	if len(*x) > 0 {
		siftDown(*x, 0, less)
	}
	return ret
}

// Push adds item to x, preserving the min-heap invariant.
func Push[T any](x *[]T, item T, less func(a, b T) bool) {
	*x = append(*x, item)
	siftUp(*x, len(*x)-1, less)
}

// Order arranges x into min-heap order in place. If len(x) > 0, the
// smallest element is x[0] afterward.
func Order[T any](x []T, less func(a, b T) bool) {
	for i := len(x)/2 - 1; i >= 0; i-- {
		siftDown(x, i, less)
	}
}

func siftUp[T any](x []T, index int, less func(a, b T) bool) {
	for index > 0 {
		parent := (index - 1) / 2
		if less(x[parent], x[index]) {
			break
		}
		x[parent], x[index] = x[index], x[parent]
		index = parent
	}
}

func siftDown[T any](x []T, index int, less func(a, b T) bool) {
	for {
		left := index*2 + 1
		right := left + 1
		if left >= len(x) {
			break
		}
		c := left
		if right < len(x) && less(x[right], x[left]) {
			c = right
		}
		if less(x[index], x[c]) {
			break
		}
		x[c], x[index] = x[index], x[c]
		index = c
	}
}
