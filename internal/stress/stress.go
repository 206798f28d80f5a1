// File: internal/stress/stress.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Multi-producer multi-consumer driver. Producers push disjoint ranges of
// [0, Items) into a source container, consumers forward everything they pop
// into a destination container, and the destination is then drained and
// checked to hold every value exactly once.

package stress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-lockfree/affinity"
	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/backoff"
)

// ErrVerification reports lost, duplicated or foreign values in the destination.
var ErrVerification = errors.New("stress: verification failed")

// Config describes one run.
type Config struct {
	Items     int
	Producers int
	Consumers int

	// Pin binds every worker to a CPU, producers first.
	Pin bool

	// Backoff is used while a worker waits on an empty or full container.
	Backoff backoff.Config

	// Logf receives pinning failures. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// DefaultConfig returns a small run with two producers and two consumers.
func DefaultConfig() Config {
	return Config{
		Items:     100_000,
		Producers: 2,
		Consumers: 2,
		Backoff:   backoff.Config{Policy: backoff.SpinYield},
	}
}

func (c Config) validate() error {
	switch {
	case c.Items < 0:
		return api.NewError(api.ErrCodeInvalidArgument, "stress: negative item count").WithContext("items", c.Items)
	case c.Producers < 1:
		return api.NewError(api.ErrCodeInvalidArgument, "stress: need at least one producer").WithContext("producers", c.Producers)
	case c.Consumers < 1:
		return api.NewError(api.ErrCodeInvalidArgument, "stress: need at least one consumer").WithContext("consumers", c.Consumers)
	}
	return nil
}

// Report summarizes a completed run.
type Report struct {
	Items     int
	Elapsed   time.Duration
	Sum       uint64
	PushFails int64 // rejected pushes that were retried
	EmptyPops int64 // pops that found the source empty
}

// Throughput returns transferred items per second.
func (r Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Items) / r.Elapsed.Seconds()
}

func (r Report) String() string {
	return fmt.Sprintf("items=%d elapsed=%s throughput=%.0f/s sum=%d push_fails=%d empty_pops=%d",
		r.Items, r.Elapsed, r.Throughput(), r.Sum, r.PushFails, r.EmptyPops)
}

type run struct {
	ctx       context.Context
	cfg       Config
	src, dst  api.Container[uint64]
	moved     atomic.Int64
	pushFails atomic.Int64
	emptyPops atomic.Int64

	errOnce  sync.Once
	firstErr error
}

// fail records the first error a worker returned.
func (r *run) fail(err error) {
	r.errOnce.Do(func() { r.firstErr = err })
}

// Run executes cfg against src and dst. Both containers should be empty.
// A cancelled ctx stops all workers and is returned wrapped.
func Run(ctx context.Context, cfg Config, src, dst api.Container[uint64]) (Report, error) {
	if err := cfg.validate(); err != nil {
		return Report{}, err
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	r := &run{ctx: ctx, cfg: cfg, src: src, dst: dst}

	start := time.Now()
	var wg sync.WaitGroup
	per := cfg.Items / cfg.Producers
	for p := 0; p < cfg.Producers; p++ {
		lo := p * per
		hi := lo + per
		if p == cfg.Producers-1 {
			hi = cfg.Items
		}
		wg.Add(1)
		go r.worker(&wg, p, func() error { return r.produce(uint64(lo), uint64(hi)) })
	}
	for c := 0; c < cfg.Consumers; c++ {
		wg.Add(1)
		go r.worker(&wg, cfg.Producers+c, r.consume)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if moved := r.moved.Load(); moved < int64(cfg.Items) {
		err := r.firstErr
		if err == nil {
			err = ErrVerification
		}
		return Report{}, fmt.Errorf("stress: run stopped after %d of %d items: %w", moved, cfg.Items, err)
	}
	sum, err := verify(dst, cfg.Items)
	rep := Report{
		Items:     cfg.Items,
		Elapsed:   elapsed,
		Sum:       sum,
		PushFails: r.pushFails.Load(),
		EmptyPops: r.emptyPops.Load(),
	}
	return rep, err
}

func (r *run) worker(wg *sync.WaitGroup, id int, body func() error) {
	defer wg.Done()
	if r.cfg.Pin {
		if err := affinity.PinCurrent(id); err != nil {
			r.cfg.Logf("stress: worker %d not pinned: %v", id, err)
		} else {
			defer affinity.Unpin()
		}
	}
	if err := body(); err != nil {
		r.fail(fmt.Errorf("stress: worker %d: %w", id, err))
	}
}

func (r *run) produce(lo, hi uint64) error {
	w := r.cfg.Backoff.Waiter()
	for v := lo; v < hi; v++ {
		for !r.src.Push(v) {
			r.pushFails.Add(1)
			if err := r.ctx.Err(); err != nil {
				return err
			}
			w.Wait()
		}
		w.Reset()
	}
	return nil
}

func (r *run) consume() error {
	w := r.cfg.Backoff.Waiter()
	total := int64(r.cfg.Items)
	for r.moved.Load() < total {
		v, ok := r.src.Pop()
		if !ok {
			r.emptyPops.Add(1)
			if err := r.ctx.Err(); err != nil {
				return err
			}
			w.Wait()
			continue
		}
		w.Reset()
		for !r.dst.Push(v) {
			r.pushFails.Add(1)
			if err := r.ctx.Err(); err != nil {
				return err
			}
			w.Wait()
		}
		r.moved.Add(1)
	}
	return nil
}

// verify drains dst and checks it holds exactly 0..items-1.
func verify(dst api.Container[uint64], items int) (uint64, error) {
	got := make([]uint64, 0, items)
	var sum uint64
	for {
		v, ok := dst.Pop()
		if !ok {
			break
		}
		got = append(got, v)
		sum += v
	}
	n := uint64(items)
	if want := n * (n - 1) / 2; items > 0 && sum != want {
		return sum, fmt.Errorf("%w: sum %d, want %d", ErrVerification, sum, want)
	}
	if len(got) != items {
		return sum, fmt.Errorf("%w: drained %d values, want %d", ErrVerification, len(got), items)
	}
	slices.Sort(got)
	for i, v := range got {
		if v != uint64(i) {
			return sum, fmt.Errorf("%w: position %d holds %d", ErrVerification, i, v)
		}
	}
	return sum, nil
}
