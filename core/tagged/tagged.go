// File: core/tagged/tagged.go
// Package tagged implements ABA-safe tagged slot references.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Ref packs a 1-based slot index and a 32-bit version tag into one
// uint64 so that both fields are loaded, stored and compared-and-swapped
// together by a single 64-bit atomic instruction.

package tagged

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
)

const (
	// IndexBits is the width of the address field.
	IndexBits = 32
	// TagBits is the width of the version field.
	TagBits = 64 - IndexBits

	indexMask = 1<<IndexBits - 1
	tagMask   = 1<<TagBits - 1

	// MaxIndex is the largest addressable slot.
	MaxIndex = indexMask
)

// Ref is a slot index with a version tag. Index 0 is the null address.
type Ref uint64

// Null is the null reference with tag 0.
const Null Ref = 0

// Make packs index and tag.
func Make(index, tag uint32) Ref {
	return Ref(uint64(tag)<<IndexBits | uint64(index))
}

// New packs index with a pseudo-random tag.
func New(index uint32) Ref {
	return Make(index, rand.Uint32())
}

// Index returns the slot address.
func (r Ref) Index() uint32 { return uint32(r & indexMask) }

// Tag returns the version tag.
func (r Ref) Tag() uint32 { return uint32(r >> IndexBits & tagMask) }

// NextTag returns Tag()+1, wrapping within TagBits.
func (r Ref) NextTag() uint32 { return uint32((uint64(r.Tag()) + 1) & tagMask) }

// IsNull reports whether the address is null, whatever the tag.
func (r Ref) IsNull() bool { return r.Index() == 0 }

// WithTag returns r with its tag replaced.
func (r Ref) WithTag(tag uint32) Ref { return Make(r.Index(), tag) }

// Successor returns the reference that replaces r when index is published
// in its place: the new address carrying r's incremented tag.
func (r Ref) Successor(index uint32) Ref { return Make(index, r.NextTag()) }

// SameAddress compares addresses only.
func (r Ref) SameAddress(o Ref) bool { return r.Index() == o.Index() }

func (r Ref) String() string {
	if r.IsNull() {
		return fmt.Sprintf("nil@%d", r.Tag())
	}
	return fmt.Sprintf("%d@%d", r.Index(), r.Tag())
}

// Atomic is a Ref cell accessed only through atomic operations.
// The zero value holds Null.
type Atomic struct {
	v atomic.Uint64
}

// Load reads the reference. Pairs with Store/CompareAndSwap as acquire.
func (a *Atomic) Load() Ref { return Ref(a.v.Load()) }

// Store publishes r with release semantics.
func (a *Atomic) Store(r Ref) { a.v.Store(uint64(r)) }

// CompareAndSwap replaces old by new if the cell still holds old,
// comparing index and tag together.
func (a *Atomic) CompareAndSwap(old, new Ref) bool {
	return a.v.CompareAndSwap(uint64(old), uint64(new))
}
