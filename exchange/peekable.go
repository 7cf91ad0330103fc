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

package exchange

import "github.com/byoo-db/byoo/row"

// Peekable wraps a Reader with one-row lookahead across batch
// boundaries, for algorithms that need to look at the next row before
// deciding whether to consume it (external sort's merge step, merge
// join's group matching). Rows are copied out of the underlying
// row.Buffer as they are loaded, since the buffer they came from is
// recycled (and its backing array reused) as soon as the adapter
// moves past it.
type Peekable struct {
	r   *Reader
	buf []row.Row
	pos int
}

// NewPeekable wraps r, eagerly loading its first non-empty batch.
func NewPeekable(r *Reader) *Peekable {
	p := &Peekable{r: r}
	p.loadNext()
	return p
}

func (p *Peekable) loadNext() {
	p.buf = nil
	p.pos = 0
	for {
		b, err := p.r.Data()
		if err != nil {
			return // io.EOF: p.buf stays nil, Peek/Pop report exhausted
		}
		rows := b.Rows()
		if len(rows) == 0 {
			p.r.Progress()
			continue
		}
		p.buf = make([]row.Row, len(rows))
		for i, rr := range rows {
			cp := make(row.Row, len(rr))
			copy(cp, rr)
			p.buf[i] = cp
		}
		p.r.Progress()
		return
	}
}

// Peek returns the next row without consuming it, and false if the
// stream is exhausted.
func (p *Peekable) Peek() (row.Row, bool) {
	if p.pos >= len(p.buf) {
		return nil, false
	}
	return p.buf[p.pos], true
}

// Pop consumes and returns the next row, and false if the stream is
// exhausted. When the cursor passes the current batch's last row, the
// next batch is loaded transparently.
func (p *Peekable) Pop() (row.Row, bool) {
	r, ok := p.Peek()
	if !ok {
		return nil, false
	}
	p.pos++
	if p.pos >= len(p.buf) {
		p.loadNext()
	}
	return r, true
}
