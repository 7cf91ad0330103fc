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

// Package partition implements the hash-partitioned store: a relation
// split into N disk-backed partitions by the hash of designated key
// columns, so a join or group-by can process one partition's worth of
// rows at a time within a fixed memory budget. Construction is two
// passes: a row count gathered through an intermediate spillable
// store, then a re-partitioning pass by hash(key_cols) mod N into N
// independent spillable stores.
package partition

import (
	"encoding/binary"

	"github.com/dchest/siphash"

	"github.com/byoo-db/byoo/exchange"
	"github.com/byoo-db/byoo/row"
	"github.com/byoo-db/byoo/store"
)

// MaxPartitions caps the number of backing files a Store will ever
// create, so adaptive sizing cannot exhaust the process's file
// descriptors.
const MaxPartitions = 32

// partitionHashKey0/1 are independent siphash keys from the ones the
// value package uses for Value.Hash, so that partition bucketing and
// any downstream per-row hashing (hash join probing, hashed group-by)
// don't accidentally correlate.
const (
	partitionHashKey0 uint64 = 0x3c6ef372fe94f82b
	partitionHashKey1 uint64 = 0xbb67ae8584caa73b
)

// HashKey computes the stable combined hash of a row's key columns,
// used both to assign a row to a partition and, by callers with the
// same key columns and the same N, to confirm two rows could collide.
func HashKey(r row.Row, keyCols []int) uint64 {
	var buf [8]byte
	var combined [8 * 8]byte // supports up to 8 key columns inline; falls back to a slice beyond that
	var extra []byte
	dst := combined[:0]
	if len(keyCols) > 8 {
		extra = make([]byte, 0, len(keyCols)*8)
		dst = extra
	}
	for _, c := range keyCols {
		binary.LittleEndian.PutUint64(buf[:], r[c].Hash())
		dst = append(dst, buf[:]...)
	}
	return siphash.Hash(partitionHashKey0, partitionHashKey1, dst)
}

// Store holds N disk-backed partitions of a relation, each an
// independent spillable store, and hands them out one at a time.
type Store struct {
	parts   []*store.Store
	readers []*exchange.Reader
	next    int
}

// New builds a hash-partitioned store by reading all of input once
// into an intermediate spillable store (to count rows without
// buffering them all in memory at once), then re-partitioning that
// intermediate store into an adaptively-sized number of partitions:
// N = min(MaxPartitions, rows/maxSize + 1).
func New(maxSize int, input *exchange.Reader, keyCols []int) (*Store, error) {
	schema := input.Schema()
	intermediate, err := store.New(schema, maxSize)
	if err != nil {
		return nil, err
	}
	count := 0
	for {
		rows, err := drainOneBatch(input)
		if rows == nil && err != nil {
			break
		}
		for _, r := range rows {
			if err := intermediate.PushRow(r); err != nil {
				return nil, err
			}
			count++
		}
	}

	numPartitions := count/maxSize + 1
	if numPartitions > MaxPartitions {
		numPartitions = MaxPartitions
	}

	reread, err := intermediate.Read()
	if err != nil {
		return nil, err
	}
	return WithPartitions(numPartitions, 4096, reread, keyCols)
}

// WithPartitions builds a hash-partitioned store with exactly N
// partitions, as required when a join must partition both sides with
// the same N so that matching keys land in matching partitions.
func WithPartitions(numPartitions, bufSize int, input *exchange.Reader, keyCols []int) (*Store, error) {
	if numPartitions < 1 {
		numPartitions = 1
	}
	schema := input.Schema()
	parts := make([]*store.Store, numPartitions)
	for i := range parts {
		s, err := store.New(schema, bufSize)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}

	for {
		buf, err := input.Data()
		if err != nil {
			break
		}
		for _, r := range buf.Rows() {
			h := HashKey(r, keyCols) % uint64(numPartitions)
			if err := parts[h].PushRow(r); err != nil {
				return nil, err
			}
		}
		input.Progress()
	}

	readers := make([]*exchange.Reader, numPartitions)
	for i, p := range parts {
		rd, err := p.Read()
		if err != nil {
			return nil, err
		}
		readers[i] = rd
	}
	return &Store{parts: parts, readers: readers}, nil
}

// NumPartitions returns N.
func (s *Store) NumPartitions() int { return len(s.parts) }

// NextPartition pops and returns the reader for the next partition, or
// nil once every partition has been handed out. The order partitions
// are returned in is insignificant.
func (s *Store) NextPartition() *exchange.Reader {
	if s.next >= len(s.readers) {
		return nil
	}
	r := s.readers[s.next]
	s.next++
	return r
}

func drainOneBatch(r *exchange.Reader) ([]row.Row, error) {
	buf, err := r.Data()
	if err != nil {
		return nil, err
	}
	rows := make([]row.Row, len(buf.Rows()))
	for i, rr := range buf.Rows() {
		cp := make(row.Row, len(rr))
		copy(cp, rr)
		rows[i] = cp
	}
	r.Progress()
	return rows, nil
}
