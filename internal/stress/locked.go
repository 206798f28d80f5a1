// File: internal/stress/locked.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Locked is the mutex-guarded baseline the lock-free containers are
// measured against.

package stress

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-lockfree/api"
)

var _ api.FIFO[int] = (*Locked[int])(nil)

// Locked is an unbounded FIFO protected by a single mutex.
type Locked[T any] struct {
	mu sync.Mutex
	q  *queue.Queue
}

// NewLocked returns an empty locked queue.
func NewLocked[T any]() *Locked[T] {
	return &Locked[T]{q: queue.New()}
}

// Enqueue appends v. It never fails.
func (l *Locked[T]) Enqueue(v T) bool {
	l.mu.Lock()
	l.q.Add(v)
	l.mu.Unlock()
	return true
}

// Dequeue removes the oldest element.
func (l *Locked[T]) Dequeue() (v T, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.q.Length() == 0 {
		return v, false
	}
	return l.q.Remove().(T), true
}

func (l *Locked[T]) Push(v T) bool { return l.Enqueue(v) }
func (l *Locked[T]) Pop() (T, bool) { return l.Dequeue() }

// Len returns the number of queued elements.
func (l *Locked[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Length()
}
