// File: pool/freelist.go
// Package pool implements a lock-free recycling slot allocator.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/backoff"
	"github.com/momentics/hioload-lockfree/core/tagged"
)

var _ api.SlotAllocator = (*Freelist[int])(nil)

// Freelist is a lock-free pool of recyclable slots holding a T.
//
// A slot returned by Allocate is owned by the caller until Deallocate.
// Its payload is whatever the previous owner left there: call Construct
// before use and Destroy before giving it back, or manage the fields
// yourself when T carries atomic words that must survive recycling.
type Freelist[T any] struct {
	_    cpu.CacheLinePad
	head tagged.Atomic
	_    cpu.CacheLinePad

	arena   *arena[T]
	backoff backoff.Config

	allocs atomic.Int64
	frees  atomic.Int64
	fresh  atomic.Int64
}

// New creates an empty Freelist.
func New[T any](opts ...Option) *Freelist[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	f := &Freelist[T]{
		arena:   newArena[T](o.chunkSize, o.maxSlots),
		backoff: o.backoff,
	}
	// Start the head at a random tag so pools never share a tag history.
	f.head.Store(tagged.New(0))
	return f
}

// Allocate pops a free slot, or carves a new one when the pool is empty.
// The tag of the returned reference has no meaning to the pool.
func (f *Freelist[T]) Allocate() (tagged.Ref, error) {
	w := f.backoff.Waiter()
	for {
		old := f.head.Load()
		if old.IsNull() {
			return f.allocateFresh()
		}
		next := f.arena.at(old.Index()).link.Load()
		if f.head.CompareAndSwap(old, old.Successor(next.Index())) {
			f.allocs.Add(1)
			return tagged.Make(old.Index(), 0), nil
		}
		w.Wait()
	}
}

func (f *Freelist[T]) allocateFresh() (tagged.Ref, error) {
	idx, err := f.arena.carve()
	if err != nil {
		return tagged.Null, err
	}
	f.fresh.Add(1)
	f.allocs.Add(1)
	return tagged.Make(idx, 0), nil
}

// Deallocate pushes ref's slot back onto the pool.
func (f *Freelist[T]) Deallocate(ref tagged.Ref) {
	f.push(ref.Index())
	f.frees.Add(1)
}

func (f *Freelist[T]) push(idx uint32) {
	c := f.arena.at(idx)
	w := f.backoff.Waiter()
	for {
		old := f.head.Load()
		c.link.Store(old)
		if f.head.CompareAndSwap(old, old.Successor(idx)) {
			return
		}
		w.Wait()
	}
}

// AllocateUnsync is Allocate for single-goroutine setup and teardown.
// It must not run concurrently with any other Freelist call.
func (f *Freelist[T]) AllocateUnsync() (tagged.Ref, error) {
	old := f.head.Load()
	if old.IsNull() {
		return f.allocateFresh()
	}
	next := f.arena.at(old.Index()).link.Load()
	f.head.Store(old.Successor(next.Index()))
	f.allocs.Add(1)
	return tagged.Make(old.Index(), 0), nil
}

// DeallocateUnsync is Deallocate for single-goroutine setup and teardown.
func (f *Freelist[T]) DeallocateUnsync(ref tagged.Ref) {
	old := f.head.Load()
	f.arena.at(ref.Index()).link.Store(old)
	f.head.Store(old.Successor(ref.Index()))
	f.frees.Add(1)
}

// Reserve carves n slots and adds them to the pool, so the next n
// allocations are served without touching backing storage.
func (f *Freelist[T]) Reserve(n int) error {
	for i := 0; i < n; i++ {
		idx, err := f.arena.carve()
		if err != nil {
			return err
		}
		f.push(idx)
	}
	return nil
}

// At returns the storage of an allocated slot.
func (f *Freelist[T]) At(ref tagged.Ref) *T {
	return &f.arena.at(ref.Index()).value
}

// Construct stores v into an allocated slot.
func (f *Freelist[T]) Construct(ref tagged.Ref, v T) {
	*f.At(ref) = v
}

// Destroy resets an allocated slot to the zero value, dropping references
// the payload holds. It overwrites the whole slot with plain stores, so it
// must not be used on element types that embed words other goroutines may
// still load atomically, such as the link of a container node; clear the
// payload field instead.
func (f *Freelist[T]) Destroy(ref tagged.Ref) {
	var zero T
	*f.At(ref) = zero
}

// Len returns the approximate number of free slots.
func (f *Freelist[T]) Len() int {
	return int(f.Stats().Free)
}

// Stats returns a snapshot of the allocation counters.
func (f *Freelist[T]) Stats() api.PoolStats {
	frees := f.frees.Load()
	allocs := f.allocs.Load()
	carved := int64(f.arena.high())
	inUse := allocs - frees
	return api.PoolStats{
		Carved: carved,
		Allocs: allocs,
		Frees:  frees,
		Fresh:  f.fresh.Load(),
		InUse:  inUse,
		Free:   carved - inUse,
	}
}
