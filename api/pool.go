// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines abstract pooling APIs: recycling slot allocators and their statistics.

package api

import "github.com/momentics/hioload-lockfree/core/tagged"

// SlotAllocator hands out fixed-size slots addressed by tagged references.
type SlotAllocator interface {
	// Allocate returns an exclusively owned slot, or an error if the
	// backing storage cannot grow.
	Allocate() (tagged.Ref, error)

	// Deallocate returns a slot for reuse. The caller must not touch it afterwards.
	Deallocate(ref tagged.Ref)

	// Stats returns allocation counters.
	Stats() PoolStats
}

// PoolStats describes a slot allocator.
type PoolStats struct {
	// Carved is the high-water mark of slots taken from backing storage; it never shrinks.
	Carved int64
	// Allocs and Frees count successful Allocate/Deallocate calls.
	Allocs int64
	Frees  int64
	// Fresh counts allocations served by carving new storage.
	Fresh int64
	// InUse is Allocs - Frees.
	InUse int64
	// Free is the number of carved slots currently in the pool.
	Free int64
}

// StatsSource is anything reporting PoolStats.
type StatsSource interface {
	Stats() PoolStats
}
