// File: core/concurrency/node.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Node layout shared by Queue and Stack, so one Freelist can back both.

package concurrency

import (
	"github.com/momentics/hioload-lockfree/core/tagged"
	"github.com/momentics/hioload-lockfree/pool"
)

// Node is a container element stored in a pool.Freelist slot.
type Node[T any] struct {
	value T
	next  tagged.Atomic
}

// NewNodePool creates a node pool that several queues and stacks of the
// same element type may share.
func NewNodePool[T any](opts ...pool.Option) *pool.Freelist[Node[T]] {
	return pool.New[Node[T]](opts...)
}

// link points next at index. Every store advances the tag of next, so a
// CAS prepared against an earlier life of this node cannot succeed, even
// when the node moved between containers sharing one pool.
func (n *Node[T]) link(index uint32) {
	n.next.Store(n.next.Load().Successor(index))
}

// unlink clears next.
func (n *Node[T]) unlink() { n.link(0) }

// clear drops the payload. next is left alone: stale readers may still
// load it, and its tag must keep growing across the node's lives.
func (n *Node[T]) clear() {
	var zero T
	n.value = zero
}

// slot strips a published reference down to the address the pool knows.
func slot(r tagged.Ref) tagged.Ref {
	return tagged.Make(r.Index(), 0)
}
