// File: core/concurrency/stack.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unbounded lock-free LIFO (Treiber stack) over recycled, tagged nodes.

package concurrency

import (
	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/backoff"
	"github.com/momentics/hioload-lockfree/core/tagged"
	"github.com/momentics/hioload-lockfree/pool"
)

var (
	_ api.Container[any] = (*Stack[any])(nil)
	_ api.Inspectable    = (*Stack[any])(nil)
	_ api.StatsSource    = (*Stack[any])(nil)
)

// Stack is an unbounded lock-free LIFO. The zero value is not usable;
// create stacks with NewStack or NewStackOn.
type Stack[T any] struct {
	_    cpu.CacheLinePad
	head tagged.Atomic
	_    cpu.CacheLinePad

	nodes   *pool.Freelist[Node[T]]
	backoff backoff.Config
}

// NewStack creates a stack backed by its own node pool.
func NewStack[T any](opts ...Option) *Stack[T] {
	o := buildOptions(opts)
	return &Stack[T]{nodes: privatePool[T](o), backoff: o.backoff}
}

// NewStackOn creates a stack whose nodes come from a shared pool.
func NewStackOn[T any](nodes *pool.Freelist[Node[T]], opts ...Option) (*Stack[T], error) {
	if nodes == nil {
		return nil, ErrNilPool
	}
	o := buildOptions(opts)
	return &Stack[T]{nodes: nodes, backoff: o.backoff}, nil
}

func (s *Stack[T]) node(r tagged.Ref) *Node[T] { return s.nodes.At(r) }

// Push adds v on top. It returns false only if no node could be allocated.
func (s *Stack[T]) Push(v T) bool {
	ref, err := s.nodes.Allocate()
	if err != nil {
		return false
	}
	n := s.node(ref)
	n.value = v

	w := s.backoff.Waiter()
	for {
		old := s.head.Load()
		// n is not published yet, so relinking on every attempt is safe.
		n.link(old.Index())
		if s.head.CompareAndSwap(old, old.Successor(ref.Index())) {
			return true
		}
		w.Wait()
	}
}

// Pop removes the top element; ok is false if the stack is empty.
func (s *Stack[T]) Pop() (v T, ok bool) {
	w := s.backoff.Waiter()
	for {
		old := s.head.Load()
		if old.IsNull() {
			return v, false
		}
		next := s.node(old).next.Load()
		if s.head.CompareAndSwap(old, old.Successor(next.Index())) {
			return s.release(old), true
		}
		w.Wait()
	}
}

// release copies the payload out of a node this goroutine unlinked and
// returns the node to the pool.
func (s *Stack[T]) release(r tagged.Ref) T {
	ref := slot(r)
	n := s.node(ref)
	v := n.value
	n.clear()
	s.nodes.Deallocate(ref)
	return v
}

// PushUnsync is Push without the CAS loop, for single-goroutine setup.
// It must not run concurrently with any other operation on s.
func (s *Stack[T]) PushUnsync(v T) bool {
	ref, err := s.nodes.Allocate()
	if err != nil {
		return false
	}
	n := s.node(ref)
	n.value = v
	old := s.head.Load()
	n.link(old.Index())
	s.head.Store(old.Successor(ref.Index()))
	return true
}

// PopUnsync is Pop without the CAS loop, for single-goroutine teardown.
func (s *Stack[T]) PopUnsync() (v T, ok bool) {
	old := s.head.Load()
	if old.IsNull() {
		return v, false
	}
	next := s.node(old).next.Load()
	s.head.Store(old.Successor(next.Index()))
	return s.release(old), true
}

// Empty reports whether the stack held no element at the time of the call.
func (s *Stack[T]) Empty() bool {
	return s.head.Load().IsNull()
}

// Clear pops every element with PopUnsync and returns how many were
// released. Clear must not run concurrently with any other operation on s.
func (s *Stack[T]) Clear() int {
	n := 0
	for {
		if _, ok := s.PopUnsync(); !ok {
			return n
		}
		n++
	}
}

// Stats returns the statistics of the node pool.
func (s *Stack[T]) Stats() api.PoolStats { return s.nodes.Stats() }

// Probes implements api.Inspectable.
func (s *Stack[T]) Probes() map[string]func() any {
	return map[string]func() any{
		"empty": func() any { return s.Empty() },
		"pool":  func() any { return s.Stats() },
	}
}
