// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for pool monitoring.
// Exposes counters in a thread-safe map with dynamic registration.

package control

import (
	"sort"
	"sync"
	"time"

	"github.com/momentics/hioload-lockfree/api"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	sources map[string]api.StatsSource
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
		sources: make(map[string]api.StatsSource),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Observe registers a pool statistics source polled by Collect.
func (mr *MetricsRegistry) Observe(name string, src api.StatsSource) {
	mr.mu.Lock()
	mr.sources[name] = src
	mr.mu.Unlock()
}

// Collect polls every observed source into "<name>.<counter>" keys.
func (mr *MetricsRegistry) Collect() {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	for name, src := range mr.sources {
		st := src.Stats()
		mr.metrics[name+".carved"] = st.Carved
		mr.metrics[name+".allocs"] = st.Allocs
		mr.metrics[name+".frees"] = st.Frees
		mr.metrics[name+".fresh"] = st.Fresh
		mr.metrics[name+".in_use"] = st.InUse
		mr.metrics[name+".free"] = st.Free
	}
	mr.updated = time.Now()
}

// Updated returns the time of the last change.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// Keys returns the sorted metric names.
func (mr *MetricsRegistry) Keys() []string {
	mr.mu.RLock()
	keys := make([]string, 0, len(mr.metrics))
	for k := range mr.metrics {
		keys = append(keys, k)
	}
	mr.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
