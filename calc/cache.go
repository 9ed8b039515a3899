/*
 * cache.go, part of chemlive.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package calc

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	chem "github.com/rmera/chemlive"
)

// DefaultCacheSize is the number of results kept by a Cached backend when no size is given.
const DefaultCacheSize = 256

// Cached wraps a backend, keeping the results of the last structures it computed.
// Two structures are the same if they have identical atomic numbers, positions, cell
// and periodicity. It is safe for concurrent use if the wrapped backend is.
type Cached struct {
	calc   chem.Calculator
	cache  *lru.Cache[uint64, *chem.Results]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached returns a cache of size results around c. A size < 1 means DefaultCacheSize.
func NewCached(c chem.Calculator, size int) (*Cached, error) {
	if size < 1 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[uint64, *chem.Results](size)
	if err != nil {
		return nil, err
	}
	return &Cached{calc: c, cache: cache}, nil
}

// Calculate returns the cached results for s, or computes and stores them.
func (C *Cached) Calculate(ctx context.Context, s *chem.Structure) (*chem.Results, error) {
	if err := s.Corrupted(); err != nil {
		return nil, err
	}
	key := structureKey(s)
	if r, ok := C.cache.Get(key); ok {
		C.hits.Add(1)
		return r, nil
	}
	C.misses.Add(1)
	r, err := C.calc.Calculate(ctx, s)
	if err != nil {
		return nil, err
	}
	C.cache.Add(key, r)
	return r, nil
}

// Stats returns the number of cache hits and misses so far.
func (C *Cached) Stats() (hits, misses int64) {
	return C.hits.Load(), C.misses.Load()
}

// Purge empties the cache.
func (C *Cached) Purge() {
	C.cache.Purge()
}

func structureKey(s *chem.Structure) uint64 {
	h := fnv.New64a()
	buf := make([]byte, 8)
	put := func(u uint64) {
		binary.LittleEndian.PutUint64(buf, u)
		h.Write(buf)
	}
	for _, z := range s.Numbers {
		put(uint64(z))
	}
	for _, v := range s.Positions.Flat(nil) {
		put(math.Float64bits(v))
	}
	for _, v := range s.Cell.Flat(nil) {
		put(math.Float64bits(v))
	}
	for _, p := range s.PBC {
		if p {
			put(1)
		} else {
			put(0)
		}
	}
	return h.Sum64()
}
