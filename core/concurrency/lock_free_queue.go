// File: core/concurrency/lock_free_queue.go
// Package concurrency provides unbounded lock-free containers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unbounded MPMC FIFO after Michael & Scott (PODC '96): a singly linked list
// with a permanent dummy node at the front, head and tail as tagged
// references, and enqueuers that help a lagging tail forward.

package concurrency

import (
	"fmt"

	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/backoff"
	"github.com/momentics/hioload-lockfree/core/tagged"
	"github.com/momentics/hioload-lockfree/pool"
)

var (
	_ api.FIFO[any]   = (*Queue[any])(nil)
	_ api.Inspectable = (*Queue[any])(nil)
	_ api.StatsSource = (*Queue[any])(nil)
)

// dummyTag seeds the tag of the initial dummy node.
const dummyTag = 0x5a5a

// Queue is an unbounded lock-free MPMC FIFO.
//
// tail always points to the last or the second-to-last node; an enqueue
// that linked its node but has not swung tail yet leaves it one behind.
type Queue[T any] struct {
	_    cpu.CacheLinePad
	head tagged.Atomic
	_    cpu.CacheLinePad
	tail tagged.Atomic
	_    cpu.CacheLinePad

	nodes   *pool.Freelist[Node[T]]
	backoff backoff.Config
}

// NewQueue creates a queue backed by its own node pool.
func NewQueue[T any](opts ...Option) (*Queue[T], error) {
	o := buildOptions(opts)
	return newQueue(privatePool[T](o), o)
}

// NewQueueOn creates a queue whose nodes come from a shared pool.
func NewQueueOn[T any](nodes *pool.Freelist[Node[T]], opts ...Option) (*Queue[T], error) {
	if nodes == nil {
		return nil, ErrNilPool
	}
	return newQueue(nodes, buildOptions(opts))
}

func newQueue[T any](nodes *pool.Freelist[Node[T]], o options) (*Queue[T], error) {
	q := &Queue[T]{nodes: nodes, backoff: o.backoff}
	ref, err := nodes.Allocate()
	if err != nil {
		return nil, fmt.Errorf("concurrency: allocate queue dummy: %w", err)
	}
	n := nodes.At(ref)
	n.clear()
	n.unlink()
	dummy := ref.WithTag(dummyTag)
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q, nil
}

func (q *Queue[T]) node(r tagged.Ref) *Node[T] { return q.nodes.At(r) }

// Enqueue appends v. It returns false only if no node could be allocated,
// or if the queue was closed.
func (q *Queue[T]) Enqueue(v T) bool {
	ref, err := q.nodes.Allocate()
	if err != nil {
		return false
	}
	n := q.node(ref)
	n.value = v
	n.unlink()

	w := q.backoff.Waiter()
	for {
		tail := q.tail.Load()
		if tail.IsNull() {
			n.clear()
			q.nodes.Deallocate(ref)
			return false
		}
		next := q.node(tail).next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next.IsNull() {
			if q.node(tail).next.CompareAndSwap(next, next.Successor(ref.Index())) {
				// Losing this CAS means someone already helped.
				q.tail.CompareAndSwap(tail, tail.Successor(ref.Index()))
				return true
			}
			w.Wait()
			continue
		}
		// Another enqueue linked a node but has not swung tail yet.
		q.tail.CompareAndSwap(tail, tail.Successor(next.Index()))
	}
}

// Dequeue removes the oldest element; ok is false if the queue is empty.
// An empty dequeue leaves the queue untouched.
//
// The node holding the returned value becomes the new dummy and keeps its
// copy of the payload until the next successful Dequeue (or Close) frees
// it. Clearing it earlier is unsafe: another dequeuer may already have
// recycled that node into a new enqueue.
func (q *Queue[T]) Dequeue() (v T, ok bool) {
	w := q.backoff.Waiter()
	for {
		head := q.head.Load()
		if head.IsNull() {
			return v, false
		}
		tail := q.tail.Load()
		next := q.node(head).next.Load()
		if head != q.head.Load() {
			continue
		}
		if head.SameAddress(tail) {
			if next.IsNull() {
				return v, false
			}
			q.tail.CompareAndSwap(tail, tail.Successor(next.Index()))
			continue
		}
		if next.IsNull() {
			continue
		}
		// Copy before the CAS: once head moves, next may be recycled.
		val := q.node(next).value
		if q.head.CompareAndSwap(head, head.Successor(next.Index())) {
			old := slot(head)
			q.node(old).clear()
			q.nodes.Deallocate(old)
			return val, true
		}
		w.Wait()
	}
}

// Push is Enqueue under the Container contract.
func (q *Queue[T]) Push(v T) bool { return q.Enqueue(v) }

// Pop is Dequeue under the Container contract.
func (q *Queue[T]) Pop() (T, bool) { return q.Dequeue() }

// Empty reports whether the queue held no element at the time of the call.
func (q *Queue[T]) Empty() bool {
	head := q.head.Load()
	if head.IsNull() {
		return true
	}
	return q.node(head).next.Load().IsNull()
}

// Drain dequeues until empty, handing every element to fn (which may be nil).
// It returns the number of elements removed.
func (q *Queue[T]) Drain(fn func(T)) int {
	n := 0
	for {
		v, ok := q.Dequeue()
		if !ok {
			return n
		}
		if fn != nil {
			fn(v)
		}
		n++
	}
}

// Close drains the queue and releases the dummy node. Close must not run
// concurrently with any other operation on q. After Close, Enqueue returns
// false and Dequeue reports empty.
func (q *Queue[T]) Close() error {
	if q.head.Load().IsNull() {
		return ErrQueueClosed
	}
	q.Drain(nil)
	dummy := slot(q.head.Load())
	q.head.Store(tagged.Null)
	q.tail.Store(tagged.Null)
	q.node(dummy).clear()
	q.nodes.Deallocate(dummy)
	return nil
}

// Stats returns the statistics of the node pool.
func (q *Queue[T]) Stats() api.PoolStats { return q.nodes.Stats() }

// Probes implements api.Inspectable.
func (q *Queue[T]) Probes() map[string]func() any {
	return map[string]func() any{
		"empty": func() any { return q.Empty() },
		"pool":  func() any { return q.Stats() },
	}
}
