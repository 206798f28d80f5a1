// Package api
// Author: momentics
//
// Live debug support for production workloads.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of all probes.
	DumpState() map[string]any

	// RegisterProbe dynamically registers a named probe.
	RegisterProbe(name string, fn func() any)
}

// Inspectable containers publish their own probes.
type Inspectable interface {
	Probes() map[string]func() any
}
