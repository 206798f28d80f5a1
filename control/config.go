// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed configuration for pools and containers, with an atomically
// published snapshot and hot-reload listeners.

package control

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/backoff"
	"github.com/momentics/hioload-lockfree/core/concurrency"
	"github.com/momentics/hioload-lockfree/core/tagged"
	"github.com/momentics/hioload-lockfree/pool"
)

// Config tunes node pools and the containers built on them.
type Config struct {
	// ChunkSize is the number of slots carved per arena growth step.
	ChunkSize int
	// MaxSlots caps each pool; 0 means the whole index space.
	MaxSlots int
	// Backoff selects the CAS retry policy.
	Backoff backoff.Policy
	// SpinLimit bounds spinning before a yield for non-eager policies.
	SpinLimit int
	// SharedPool makes queues and stacks of one element type share a pool.
	SharedPool bool
}

// DefaultConfig returns eager retry and private, uncapped pools.
func DefaultConfig() Config {
	return Config{
		ChunkSize: pool.DefaultChunkSize,
		Backoff:   backoff.Eager,
		SpinLimit: backoff.DefaultSpinLimit,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.ChunkSize < 0:
		return invalid("ChunkSize", c.ChunkSize)
	case c.MaxSlots < 0 || uint64(c.MaxSlots) > tagged.MaxIndex:
		return invalid("MaxSlots", c.MaxSlots)
	case c.Backoff > backoff.Exponential:
		return invalid("Backoff", c.Backoff)
	case c.SpinLimit < 0:
		return invalid("SpinLimit", c.SpinLimit)
	}
	return nil
}

func invalid(field string, v any) error {
	return api.NewError(api.ErrCodeInvalidArgument, fmt.Sprintf("control: invalid %s", field)).
		WithContext("value", v)
}

// BackoffConfig returns the retry policy.
func (c Config) BackoffConfig() backoff.Config {
	return backoff.Config{Policy: c.Backoff, SpinLimit: c.SpinLimit}
}

// PoolOptions translates c into pool options.
func (c Config) PoolOptions() []pool.Option {
	return []pool.Option{
		pool.WithChunkSize(c.ChunkSize),
		pool.WithMaxSlots(c.MaxSlots),
		pool.WithBackoff(c.BackoffConfig()),
	}
}

// ContainerOptions translates c into queue/stack options.
func (c Config) ContainerOptions() []concurrency.Option {
	return []concurrency.Option{
		concurrency.WithBackoff(c.BackoffConfig()),
		concurrency.WithPoolOptions(c.PoolOptions()...),
	}
}

// ConfigStore holds the current Config and notifies listeners on change.
type ConfigStore struct {
	cur       atomic.Pointer[Config]
	mu        sync.Mutex
	listeners []func(Config)
}

// NewConfigStore initializes a store with cfg, or DefaultConfig if cfg is invalid.
func NewConfigStore(cfg Config) *ConfigStore {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	cs := &ConfigStore{}
	cs.cur.Store(&cfg)
	return cs
}

// GetSnapshot returns the current configuration.
func (cs *ConfigStore) GetSnapshot() Config {
	return *cs.cur.Load()
}

// SetConfig validates and publishes cfg, then runs the listeners in
// registration order on the caller's goroutine.
func (cs *ConfigStore) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.cur.Store(&cfg)
	for _, fn := range cs.listeners {
		fn(cfg)
	}
	return nil
}

// OnReload registers a listener called with every published config.
func (cs *ConfigStore) OnReload(fn func(Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
