// File: core/backoff/backoff.go
// Package backoff implements retry policies for CAS loops.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A failed compare-and-swap means another goroutine made progress, so the
// loser simply retries. Eager retry is the default; under heavy contention
// a bounded spin followed by a scheduler yield keeps cores from hammering
// the same cache line.

package backoff

import (
	"fmt"
	"runtime"
	"strings"
)

// Policy selects how a CAS loop waits between attempts.
type Policy uint8

const (
	// Eager retries immediately.
	Eager Policy = iota
	// SpinYield spins a fixed number of rounds, then yields.
	SpinYield
	// Exponential doubles the spin budget per failure up to a cap, then yields.
	Exponential
)

// DefaultSpinLimit bounds busy-spinning before a yield.
const DefaultSpinLimit = 64

const maxExponent = 10

func (p Policy) String() string {
	switch p {
	case Eager:
		return "eager"
	case SpinYield:
		return "spin"
	case Exponential:
		return "exp"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParsePolicy maps the String form back to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "eager":
		return Eager, nil
	case "spin", "spin-yield", "spinyield":
		return SpinYield, nil
	case "exp", "exponential":
		return Exponential, nil
	}
	return Eager, fmt.Errorf("backoff: unknown policy %q", s)
}

// Config is the immutable part shared by all waiters of one structure.
type Config struct {
	Policy    Policy
	SpinLimit int
}

// Waiter returns a fresh per-call waiter.
func (c Config) Waiter() Waiter {
	limit := c.SpinLimit
	if limit <= 0 {
		limit = DefaultSpinLimit
	}
	return Waiter{policy: c.Policy, limit: limit}
}

// Waiter tracks consecutive failures of one operation.
// It lives on the caller's stack and is never shared.
type Waiter struct {
	policy   Policy
	limit    int
	failures int
}

// Wait is called after a lost CAS race.
func (w *Waiter) Wait() {
	switch w.policy {
	case Eager:
		return
	case SpinYield:
		w.failures++
		if w.failures < w.limit {
			spin(1)
			return
		}
		w.failures = 0
		runtime.Gosched()
	case Exponential:
		e := w.failures
		if e > maxExponent {
			e = maxExponent
		}
		rounds := 1 << e
		w.failures++
		if rounds >= w.limit {
			w.failures = 0
			runtime.Gosched()
			return
		}
		spin(rounds)
	}
}

// Reset clears the failure count after progress.
func (w *Waiter) Reset() { w.failures = 0 }

// Failures reports consecutive failures since the last Reset or yield.
func (w *Waiter) Failures() int { return w.failures }

// spin burns a few cycles without touching shared memory.
//
//go:noinline
func spin(rounds int) (acc int) {
	for i := 0; i < rounds; i++ {
		acc += i
	}
	return acc
}
