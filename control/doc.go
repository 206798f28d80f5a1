// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for
// hioload-lockfree pools and containers.
//
// Provides concurrent-safe state handling primitives including:
//   - Typed Config with validation and translation into pool/container options
//   - ConfigStore with atomic snapshot reads and hot-reload listeners
//   - MetricsRegistry polling pool statistics sources
//   - DebugProbes for container and platform probes
package control
