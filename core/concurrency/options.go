// File: core/concurrency/options.go
// Package concurrency defines functional options for queues and stacks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"github.com/momentics/hioload-lockfree/core/backoff"
	"github.com/momentics/hioload-lockfree/pool"
)

// Option customizes Queue and Stack construction.
type Option func(*options)

type options struct {
	backoff  backoff.Config
	poolOpts []pool.Option
}

// WithBackoff sets the CAS retry policy of the container and of its
// private node pool.
func WithBackoff(cfg backoff.Config) Option {
	return func(o *options) {
		o.backoff = cfg
	}
}

// WithPoolOptions configures the private node pool. Ignored when the
// container is built on a shared pool.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(o *options) {
		o.poolOpts = append(o.poolOpts, opts...)
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func privatePool[T any](o options) *pool.Freelist[Node[T]] {
	popts := append([]pool.Option{pool.WithBackoff(o.backoff)}, o.poolOpts...)
	return NewNodePool[T](popts...)
}
