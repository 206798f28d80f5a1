// File: core/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unbounded lock-free containers for hioload-lockfree: a Michael-Scott
// MPMC queue and a Treiber stack. Both store their elements in nodes
// recycled through a pool.Freelist and coordinate only through
// compare-and-swap on tagged references; no operation takes a lock except
// the pool's cold path that grows its arena.
//
// The containers are lock-free, not wait-free: some goroutine always makes
// progress, but a given call may retry for as long as it keeps losing
// races. Retry pacing is chosen with WithBackoff.
//
// By default each container owns its node pool. Queues and stacks of the
// same element type can share one with NewNodePool plus NewQueueOn or
// NewStackOn, trading lower peak memory for contention on the pool head.
//
// Ring is a fixed-capacity MPMC ring kept as a bounded baseline.
package concurrency
