// File: pool/arena.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Chunked, grow-only backing storage for a Freelist.

package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/tagged"
)

// cell is one slot: the payload plus the link word used while the slot is free.
type cell[T any] struct {
	link  tagged.Atomic
	value T
}

// arena maps 1-based slot indexes onto fixed-size chunks. Chunks never move,
// so a resolved *cell stays valid for the arena's lifetime. The directory is
// replaced copy-on-write under mu; readers only load it atomically.
type arena[T any] struct {
	shift  uint
	mask   uint32
	limit  uint32
	carved atomic.Uint32

	mu  sync.Mutex
	dir atomic.Pointer[[]*[]cell[T]]
}

func newArena[T any](chunkSize int, limit uint32) *arena[T] {
	size := uint32(1) << bits.Len32(uint32(chunkSize-1))
	return &arena[T]{
		shift: uint(bits.TrailingZeros32(size)),
		mask:  size - 1,
		limit: limit,
	}
}

// carve takes a never-used slot. It blocks only while a new chunk is made.
func (a *arena[T]) carve() (uint32, error) {
	for {
		n := a.carved.Load()
		if n >= a.limit {
			return 0, api.NewError(api.ErrCodeResourceExhausted, "pool: arena exhausted").
				WithContext("carved", n).
				WithContext("limit", a.limit)
		}
		if a.carved.CompareAndSwap(n, n+1) {
			idx := n + 1
			a.ensure(idx >> a.shift)
			return idx, nil
		}
	}
}

func (a *arena[T]) ensure(c uint32) {
	if d := a.dir.Load(); d != nil && int(c) < len(*d) && (*d)[c] != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	var cur []*[]cell[T]
	if d := a.dir.Load(); d != nil {
		cur = *d
	}
	if int(c) < len(cur) && cur[c] != nil {
		return
	}
	n := len(cur)
	if n <= int(c) {
		n = max(2*n, int(c)+1)
	}
	next := make([]*[]cell[T], n)
	copy(next, cur)
	chunk := make([]cell[T], a.mask+1)
	next[c] = &chunk
	a.dir.Store(&next)
}

// at resolves a slot index. The index must have been carved.
func (a *arena[T]) at(idx uint32) *cell[T] {
	d := *a.dir.Load()
	return &(*d[idx>>a.shift])[idx&a.mask]
}

// high is the high-water mark of carved slots.
func (a *arena[T]) high() uint32 { return a.carved.Load() }
