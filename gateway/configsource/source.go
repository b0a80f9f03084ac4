// Package configsource defines the ConfigSource interface the Engine
// depends on for the current provider snapshot and reload notifications,
// plus a YAML file-backed reference implementation. Per SPEC_FULL.md §4.6
// this is a consumed interface: the core component set only ever reads
// through ConfigSource, never a concrete config store — a real deployment
// is free to swap in a database- or control-plane-backed implementation
// without touching Router/UsageManager/Dispatcher/Executor.
package configsource

import "github.com/BaSui01/agentflow/gatewaytypes"

// ConfigSource supplies the current provider configuration and signals
// reloads. Subscribe's channel is closed only when the source itself is
// Closed; a reload sends a value, it never closes the channel.
type ConfigSource interface {
	// Providers returns the current snapshot. Callers must not mutate the
	// returned slice or its elements.
	Providers() []gatewaytypes.Provider
	// Subscribe returns a channel that receives a value after every
	// successful reload. Each call returns an independent channel.
	Subscribe() <-chan struct{}
	// Close releases any background resources (file watchers, etc).
	Close() error
}
