// File: pool/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"github.com/momentics/hioload-lockfree/core/backoff"
	"github.com/momentics/hioload-lockfree/core/tagged"
)

// DefaultChunkSize is the number of slots carved per arena chunk.
const DefaultChunkSize = 1024

const maxChunkSize = 1 << 20

// Option customizes Freelist construction.
type Option func(*options)

type options struct {
	chunkSize int
	maxSlots  uint32
	backoff   backoff.Config
}

func defaultOptions() options {
	return options{
		chunkSize: DefaultChunkSize,
		maxSlots:  tagged.MaxIndex,
	}
}

// WithChunkSize sets how many slots one arena growth step carves.
// Rounded up to a power of two; values below 2 select the default.
func WithChunkSize(n int) Option {
	return func(o *options) {
		switch {
		case n < 2:
			n = DefaultChunkSize
		case n > maxChunkSize:
			n = maxChunkSize
		}
		o.chunkSize = n
	}
}

// WithMaxSlots caps the arena. Once n slots have been carved, allocation
// from an empty pool fails with api.ErrResourceExhausted. Zero means no cap
// beyond the index space.
func WithMaxSlots(n int) Option {
	return func(o *options) {
		if n <= 0 || uint64(n) > tagged.MaxIndex {
			o.maxSlots = tagged.MaxIndex
			return
		}
		o.maxSlots = uint32(n)
	}
}

// WithBackoff sets the CAS retry policy.
func WithBackoff(cfg backoff.Config) Option {
	return func(o *options) {
		o.backoff = cfg
	}
}
