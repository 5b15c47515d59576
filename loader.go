// loader.go: plugin loader contract and shared lifecycle behaviour
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"regexp"
)

// PluginLoader produces plugins from files and owns their enable/disable
// transitions. The manager selects a loader by matching a registered pattern
// against the file name, then delegates the rest of the plugin's life to it.
type PluginLoader interface {
	// PluginFileFilters returns the patterns describing files this loader
	// understands.
	PluginFileFilters() []*regexp.Regexp

	// LoadPlugin materialises a plugin from a file. The returned plugin is
	// not yet registered or wired; the manager does both.
	LoadPlugin(path string) (Plugin, error)

	// EnablePlugin flips the plugin to enabled and runs its startup hook.
	// Enabling an enabled plugin is a no-op.
	EnablePlugin(plugin Plugin) error

	// DisablePlugin flips the plugin to disabled and runs its shutdown
	// hook. Disabling a disabled plugin is a no-op.
	DisablePlugin(plugin Plugin) error
}

// BaseLoader carries the enable/disable behaviour shared by every loader:
// flip the flag, log the transition, run the plugin hook. Concrete loaders
// embed it and implement file filtering and loading themselves.
type BaseLoader struct {
	logger Logger
}

// NewBaseLoader creates the shared loader core logging through the given
// logger.
func NewBaseLoader(logger Logger) BaseLoader {
	return BaseLoader{logger: NewLogger(logger)}
}

// Logger returns the loader's logger.
func (l *BaseLoader) Logger() Logger {
	return l.logger
}

// EnablePlugin implements PluginLoader. An error from the plugin's OnEnable
// hook flips the plugin back to disabled and propagates.
func (l *BaseLoader) EnablePlugin(plugin Plugin) error {
	if plugin.IsEnabled() {
		return nil
	}
	l.logger.Info("Enabling plugin", "plugin", plugin.Description().FullName())
	plugin.base().setEnabled(true)
	if err := plugin.OnEnable(); err != nil {
		l.logger.Error("Error occurred while enabling plugin",
			"plugin", plugin.Description().FullName(),
			"error", err)
		plugin.base().setEnabled(false)
		return err
	}
	return nil
}

// DisablePlugin implements PluginLoader. An error from the plugin's
// OnDisable hook is logged and propagated; the disable stands either way.
func (l *BaseLoader) DisablePlugin(plugin Plugin) error {
	if !plugin.IsEnabled() {
		return nil
	}
	l.logger.Info("Disabling plugin", "plugin", plugin.Description().FullName())
	plugin.base().setEnabled(false)
	if err := plugin.OnDisable(); err != nil {
		l.logger.Error("Error occurred while disabling plugin",
			"plugin", plugin.Description().FullName(),
			"error", err)
		return err
	}
	return nil
}
