// File: core/concurrency/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ring is a bounded MPMC ring with per-cell sequence numbers. It never
// allocates after construction and serves as the fixed-capacity baseline
// next to the unbounded node-based Queue.

package concurrency

import (
	"math/bits"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/backoff"
)

var _ api.FIFO[int] = (*Ring[int])(nil)

type ringCell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// Ring is a lock-free bounded ring buffer.
type Ring[T any] struct {
	_       cpu.CacheLinePad
	head    atomic.Uint64
	_       cpu.CacheLinePad
	tail    atomic.Uint64
	_       cpu.CacheLinePad
	mask    uint64
	cells   []ringCell[T]
	backoff backoff.Config
}

// NewRing allocates a ring whose capacity is size rounded up to a power of two.
func NewRing[T any](size uint64, opts ...Option) *Ring[T] {
	if size < 2 {
		size = 2
	}
	if size&(size-1) != 0 {
		size = 1 << bits.Len64(size-1)
	}
	o := buildOptions(opts)
	r := &Ring[T]{
		mask:    size - 1,
		cells:   make([]ringCell[T], size),
		backoff: o.backoff,
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// Enqueue adds item; returns false if full.
func (r *Ring[T]) Enqueue(item T) bool {
	w := r.backoff.Waiter()
	for {
		tail := r.tail.Load()
		c := &r.cells[tail&r.mask]
		dif := int64(c.sequence.Load()) - int64(tail)
		switch {
		case dif == 0:
			if r.tail.CompareAndSwap(tail, tail+1) {
				c.data = item
				c.sequence.Store(tail + 1)
				return true
			}
			w.Wait()
		case dif < 0:
			return false
		}
	}
}

// Dequeue removes and returns the oldest item; ok is false if empty.
func (r *Ring[T]) Dequeue() (T, bool) {
	w := r.backoff.Waiter()
	for {
		head := r.head.Load()
		c := &r.cells[head&r.mask]
		dif := int64(c.sequence.Load()) - int64(head+1)
		switch {
		case dif == 0:
			if r.head.CompareAndSwap(head, head+1) {
				item := c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + r.mask + 1)
				return item, true
			}
			w.Wait()
		case dif < 0:
			var zero T
			return zero, false
		}
	}
}

// Push is Enqueue.
func (r *Ring[T]) Push(v T) bool { return r.Enqueue(v) }

// Pop is Dequeue.
func (r *Ring[T]) Pop() (T, bool) { return r.Dequeue() }

// Len returns number of items currently in buffer.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns fixed buffer capacity.
func (r *Ring[T]) Cap() int {
	return len(r.cells)
}
