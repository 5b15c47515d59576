// plugin.go: the plugin contract and the embeddable base implementation
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sync/atomic"
)

// Plugin is one loaded extension. Concrete plugins embed BasePlugin, which
// carries the runtime wiring, and implement Description plus whichever
// lifecycle hooks they care about.
//
// The loader, manager and logger reachable from a plugin are handles into
// manager-owned storage; a plugin never owns them.
type Plugin interface {
	// Description returns the plugin's parsed identity and metadata.
	// Treated as read-only after load.
	Description() *PluginDescription

	// OnLoad runs once right after the plugin is registered with the
	// manager, before any enable. A returned error fails the load and the
	// plugin is discarded.
	OnLoad() error

	// OnEnable runs when the plugin transitions to enabled. A returned
	// error flips the plugin back to disabled.
	OnEnable() error

	// OnDisable runs when the plugin transitions to disabled. Errors are
	// logged, the transition stands.
	OnDisable() error

	// OnCommand handles an invocation of one of the plugin's commands when
	// no explicit executor was installed. Returning false surfaces the
	// command's usage strings.
	OnCommand(sender CommandSender, cmd Command, args []string) bool

	// IsEnabled reports the current lifecycle state.
	IsEnabled() bool

	// Logger returns the plugin's named logger.
	Logger() Logger

	// Loader returns the loader that produced this plugin.
	Loader() PluginLoader

	// Manager returns the manager that owns this plugin.
	Manager() *PluginManager

	base() *BasePlugin
}

// BasePlugin supplies the runtime state every plugin carries: the enabled
// flag, the loader and manager handles and the named logger. Lifecycle hooks
// default to no-ops so concrete plugins only implement what they use.
type BasePlugin struct {
	enabled atomic.Bool
	loader  PluginLoader
	manager *PluginManager
	logger  Logger
}

func (b *BasePlugin) base() *BasePlugin { return b }

// init wires the back-references when the manager registers the plugin.
func (b *BasePlugin) init(loader PluginLoader, manager *PluginManager, logger Logger) {
	b.loader = loader
	b.manager = manager
	b.logger = logger
}

// setEnabled flips the lifecycle flag and reports whether it changed.
func (b *BasePlugin) setEnabled(enabled bool) bool {
	return b.enabled.CompareAndSwap(!enabled, enabled)
}

// OnLoad implements Plugin (no-op).
func (b *BasePlugin) OnLoad() error { return nil }

// OnEnable implements Plugin (no-op).
func (b *BasePlugin) OnEnable() error { return nil }

// OnDisable implements Plugin (no-op).
func (b *BasePlugin) OnDisable() error { return nil }

// OnCommand implements Plugin (unhandled).
func (b *BasePlugin) OnCommand(sender CommandSender, cmd Command, args []string) bool {
	return false
}

// IsEnabled implements Plugin.
func (b *BasePlugin) IsEnabled() bool {
	return b.enabled.Load()
}

// Logger implements Plugin. Before the manager wires the plugin the logger
// is a no-op.
func (b *BasePlugin) Logger() Logger {
	if b.logger == nil {
		return DefaultLogger()
	}
	return b.logger
}

// Loader implements Plugin.
func (b *BasePlugin) Loader() PluginLoader {
	return b.loader
}

// Manager implements Plugin.
func (b *BasePlugin) Manager() *PluginManager {
	return b.manager
}
