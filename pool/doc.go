// Package pool
// Author: momentics <momentics@gmail.com>
//
// Recycling slot allocation for the lock-free containers of hioload-lockfree.
//
// A Freelist hands out fixed-size slots of one element type and takes them
// back for reuse. Free slots form an intrusive Treiber chain whose head is a
// tagged reference, so a CAS racing against a recycled slot fails instead of
// corrupting the chain. Slots come from a chunked arena that only grows: the
// high-water mark never shrinks and storage is kept for the pool's lifetime.
//
// The Freelist guarantees that no slot is handed to two owners at once. It
// does not stop another goroutine from reading a slot it observed before the
// slot was recycled; containers built on it detect that through tags.
// See freelist.go, arena.go and options.go.
package pool
