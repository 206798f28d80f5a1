package control

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/backoff"
	"github.com/momentics/hioload-lockfree/core/concurrency"
	"github.com/momentics/hioload-lockfree/pool"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"capped", func(c *Config) { c.MaxSlots = 16 }, true},
		{"negative chunk", func(c *Config) { c.ChunkSize = -1 }, false},
		{"negative cap", func(c *Config) { c.MaxSlots = -5 }, false},
		{"unknown policy", func(c *Config) { c.Backoff = backoff.Policy(9) }, false},
		{"negative spin", func(c *Config) { c.SpinLimit = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, ok %v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, api.ErrInvalidArgument) {
				t.Fatalf("Validate error %v is not ErrInvalidArgument", err)
			}
		})
	}
}

func TestConfig_OptionsApply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSlots = 3
	cfg.Backoff = backoff.SpinYield

	fl := pool.New[int](cfg.PoolOptions()...)
	for i := 0; i < 3; i++ {
		if _, err := fl.Allocate(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := fl.Allocate(); !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("MaxSlots not applied: %v", err)
	}

	q, err := concurrency.NewQueue[int](cfg.ContainerOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Push(1) || !q.Push(2) || q.Push(3) {
		t.Fatal("queue did not honour MaxSlots from config")
	}
}

func TestConfigStore_SetConfigNotifies(t *testing.T) {
	cs := NewConfigStore(Config{ChunkSize: -1})
	if cs.GetSnapshot() != DefaultConfig() {
		t.Fatal("invalid initial config not replaced by default")
	}
	var seen []backoff.Policy
	cs.OnReload(func(c Config) { seen = append(seen, c.Backoff) })

	next := DefaultConfig()
	next.Backoff = backoff.Exponential
	if err := cs.SetConfig(next); err != nil {
		t.Fatal(err)
	}
	bad := next
	bad.SpinLimit = -3
	if err := cs.SetConfig(bad); err == nil {
		t.Fatal("invalid config accepted")
	}
	if cs.GetSnapshot().Backoff != backoff.Exponential {
		t.Fatal("snapshot not updated")
	}
	if len(seen) != 1 || seen[0] != backoff.Exponential {
		t.Fatalf("listeners saw %v", seen)
	}
}

func TestMetricsRegistry_Collect(t *testing.T) {
	mr := NewMetricsRegistry()
	s := concurrency.NewStack[int]()
	s.Push(1)
	s.Push(2)
	s.Pop()
	mr.Observe("stack", s)
	mr.Set("custom", 7)
	mr.Collect()

	snap := mr.GetSnapshot()
	if snap["stack.carved"] != int64(2) || snap["stack.in_use"] != int64(1) || snap["stack.free"] != int64(1) {
		t.Fatalf("unexpected snapshot %v", snap)
	}
	if snap["custom"] != 7 {
		t.Fatal("custom metric lost")
	}
	if mr.Updated().IsZero() {
		t.Fatal("Updated not set")
	}
	keys := mr.Keys()
	if len(keys) != 7 || keys[0] != "custom" {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestDebugProbes_Containers(t *testing.T) {
	dp := NewDebugProbes()
	q, _ := concurrency.NewQueue[string]()
	dp.RegisterContainer("queue", q)
	RegisterPlatformProbes(dp)

	state := dp.DumpState()
	if state["queue.empty"] != true {
		t.Fatalf("queue.empty = %v", state["queue.empty"])
	}
	q.Push("x")
	if dp.DumpState()["queue.empty"] != false {
		t.Fatal("probe did not observe the push")
	}
	if n, ok := state["platform.cacheline"].(int); !ok || n < 32 {
		t.Fatalf("platform.cacheline = %v", state["platform.cacheline"])
	}
	if _, ok := state["queue.pool"].(api.PoolStats); !ok {
		t.Fatal("queue.pool probe missing")
	}
}
