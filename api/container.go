// Package api
// Author: momentics@gmail.com
//
// Push/pop contracts shared by the lock-free containers and their baselines.

package api

// Container is the common push/pop contract of queues and stacks.
type Container[T any] interface {
	// Push inserts an item; returns false if it could not be stored.
	Push(item T) bool
	// Pop removes an item; returns false if empty.
	Pop() (T, bool)
}

// FIFO is a first-in first-out Container.
type FIFO[T any] interface {
	Container[T]
	// Enqueue adds item at the tail; returns false if the item was not stored.
	Enqueue(item T) bool
	// Dequeue removes the oldest item; returns false if empty.
	Dequeue() (T, bool)
}
