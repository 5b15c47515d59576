// manager.go: plugin discovery, registration and lifecycle management
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

type loaderRegistration struct {
	rawPattern string
	pattern    *regexp.Regexp
	loader     PluginLoader
}

// PluginManager owns every loaded plugin and drives its lifecycle. Loading
// walks registered loaders in registration order; enabling wires the
// plugin's commands and permissions into the router and registry, fires the
// lifecycle event and hands over to the plugin's loader.
//
// The manager is constructed by the Runtime with explicit references to the
// event bus, command map and permission registry; nothing here reaches for
// ambient state.
type PluginManager struct {
	mu      sync.RWMutex
	loaders []*loaderRegistration
	plugins []Plugin
	lookup  map[string]Plugin

	logger      Logger
	bus         *EventBus
	commands    *CommandMap
	permissions *PermissionRegistry
}

// NewPluginManager creates a manager wired to the given collaborators.
func NewPluginManager(logger Logger, bus *EventBus, commands *CommandMap, permissions *PermissionRegistry) *PluginManager {
	return &PluginManager{
		lookup:      make(map[string]Plugin),
		logger:      NewLogger(logger),
		bus:         bus,
		commands:    commands,
		permissions: permissions,
	}
}

// RegisterLoader associates a file name pattern with a loader. Patterns are
// consulted in registration order and the first match wins; registering a
// second loader for an identical pattern replaces the first in place.
func (m *PluginManager) RegisterLoader(pattern string, loader PluginLoader) error {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return NewConfigInvalidError("loader_pattern", err).
			WithContext("pattern", pattern)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lr := range m.loaders {
		if lr.rawPattern == pattern {
			lr.pattern = compiled
			lr.loader = loader
			return nil
		}
	}
	m.loaders = append(m.loaders, &loaderRegistration{
		rawPattern: pattern,
		pattern:    compiled,
		loader:     loader,
	})
	return nil
}

// RegisterLoaderFilters registers a loader under every pattern it declares.
func (m *PluginManager) RegisterLoaderFilters(loader PluginLoader) error {
	for _, filter := range loader.PluginFileFilters() {
		if err := m.RegisterLoader(filter.String(), loader); err != nil {
			return err
		}
	}
	return nil
}

func (m *PluginManager) findLoader(fileName string) *loaderRegistration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, lr := range m.loaders {
		if lr.pattern.MatchString(fileName) {
			return lr
		}
	}
	return nil
}

// LoadPlugin loads a single plugin from a file.
//
// Failure modes, all reported as errors and never as panics:
//   - the path does not exist: FileNotFound
//   - no registered pattern accepts the file name: NoMatchingLoader
//   - the loader itself fails: its error, propagated
//   - the produced name violates the name grammar: InvalidPluginName, the
//     instance is discarded
//   - a plugin with the same name (case-insensitive) is already loaded:
//     DuplicatePlugin, the new instance is discarded
//
// On success the plugin is registered, wired with its loader, manager and a
// named logger, and its OnLoad hook has run.
func (m *PluginManager) LoadPlugin(path string) (Plugin, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewFileNotFoundError(path)
	}

	lr := m.findLoader(filepath.Base(path))
	if lr == nil {
		return nil, NewNoMatchingLoaderError(path)
	}

	plugin, err := lr.loader.LoadPlugin(path)
	if err != nil {
		return nil, err
	}

	desc := plugin.Description()
	if !IsValidPluginName(desc.Name) {
		return nil, NewInvalidPluginNameError(desc.Name)
	}

	key := strings.ToLower(desc.Name)
	m.mu.Lock()
	if _, exists := m.lookup[key]; exists {
		m.mu.Unlock()
		return nil, NewDuplicatePluginError(desc.Name)
	}
	m.plugins = append(m.plugins, plugin)
	m.lookup[key] = plugin
	m.mu.Unlock()

	plugin.base().init(lr.loader, m, m.logger.With("plugin", desc.Name))

	if err := plugin.OnLoad(); err != nil {
		m.removePlugin(key)
		return nil, err
	}

	m.logger.Info("Loaded plugin", "plugin", desc.FullName())
	return plugin, nil
}

func (m *PluginManager) removePlugin(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plugin, ok := m.lookup[key]
	if !ok {
		return
	}
	delete(m.lookup, key)
	for i, p := range m.plugins {
		if p == plugin {
			m.plugins = append(m.plugins[:i], m.plugins[i+1:]...)
			break
		}
	}
}

// LoadPlugins scans a directory for plugins. Regular files go through
// LoadPlugin when a registered pattern accepts them; subdirectories are
// probed for a canonical plugin manifest and skipped silently when they hold
// none. A failure on one entry is logged and skipped, it never aborts the
// scan. Only a missing or non-directory path fails the call itself.
func (m *PluginManager) LoadPlugins(dir string) ([]Plugin, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, NewFileNotFoundError(dir)
	}
	if !info.IsDir() {
		return nil, NewNotADirectoryError(dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		m.logger.Error("Could not read plugin directory", "dir", dir, "error", err)
		return nil, NewNotADirectoryError(dir)
	}

	var loaded []Plugin
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			manifestPath, ok := findManifest(path)
			if !ok {
				continue
			}
			plugin, err := m.LoadPlugin(manifestPath)
			if err != nil {
				m.logger.Error("Could not load plugin", "path", path, "error", err)
				continue
			}
			loaded = append(loaded, plugin)
			continue
		}

		if m.findLoader(entry.Name()) == nil {
			continue
		}
		plugin, err := m.LoadPlugin(path)
		if err != nil {
			m.logger.Error("Could not load plugin", "path", path, "error", err)
			continue
		}
		loaded = append(loaded, plugin)
	}
	return loaded, nil
}

// EnablePlugin transitions a plugin to enabled. Enabling an enabled plugin
// is a no-op.
//
// The sequence: declared dependencies must be loaded, manifest commands are
// wrapped into PluginCommands and registered under the plugin's namespace,
// manifest permissions are bulk-registered, PluginEnableEvent fires, and the
// plugin's loader runs the enable hook. When the hook fails the commands and
// permissions are unregistered again and the error propagates.
func (m *PluginManager) EnablePlugin(plugin Plugin) error {
	if plugin.IsEnabled() {
		return nil
	}
	desc := plugin.Description()

	for _, dep := range desc.Depend {
		if m.GetPlugin(dep) == nil {
			return NewMissingDependencyError(desc.Name, dep)
		}
	}

	namespace := strings.ToLower(desc.Name)
	if len(desc.Commands) > 0 {
		cmds := make([]Command, 0, len(desc.Commands))
		for _, spec := range desc.Commands {
			cmds = append(cmds, NewPluginCommand(spec, plugin))
		}
		m.commands.RegisterAll(namespace, cmds)
	}

	if len(desc.Permissions) > 0 {
		perms := make([]*Permission, 0, len(desc.Permissions))
		for _, spec := range desc.Permissions {
			perms = append(perms, NewPermission(spec.Name, spec.Description, spec.Default))
		}
		for _, addErr := range m.permissions.AddPermissions(perms) {
			m.logger.Warn("Skipping permission", "plugin", desc.Name, "error", addErr)
		}
	}

	if err := m.bus.Fire(NewPluginEnableEvent(plugin)); err != nil {
		m.logger.Error("Could not fire plugin enable event", "plugin", desc.Name, "error", err)
	}

	if err := plugin.Loader().EnablePlugin(plugin); err != nil {
		m.commands.UnregisterAll(namespace)
		for _, spec := range desc.Permissions {
			m.permissions.RemovePermission(spec.Name)
		}
		return err
	}
	return nil
}

// EnablePlugins enables every loaded plugin in the given load phase, in load
// order. Failures are logged and the sweep continues.
func (m *PluginManager) EnablePlugins(order PluginLoadOrder) {
	for _, plugin := range m.GetPlugins() {
		if plugin.Description().Load != order || plugin.IsEnabled() {
			continue
		}
		if err := m.EnablePlugin(plugin); err != nil {
			m.logger.Error("Could not enable plugin",
				"plugin", plugin.Description().FullName(),
				"error", err)
		}
	}
}

// DisablePlugin transitions a plugin to disabled, unregistering its commands
// and permissions. Disabling a disabled plugin is a no-op.
func (m *PluginManager) DisablePlugin(plugin Plugin) error {
	if !plugin.IsEnabled() {
		return nil
	}
	desc := plugin.Description()

	if err := m.bus.Fire(NewPluginDisableEvent(plugin)); err != nil {
		m.logger.Error("Could not fire plugin disable event", "plugin", desc.Name, "error", err)
	}

	err := plugin.Loader().DisablePlugin(plugin)

	m.commands.UnregisterAll(strings.ToLower(desc.Name))
	for _, spec := range desc.Permissions {
		m.permissions.RemovePermission(spec.Name)
	}
	return err
}

// DisablePlugins disables every enabled plugin in reverse load order.
func (m *PluginManager) DisablePlugins() {
	plugins := m.GetPlugins()
	for i := len(plugins) - 1; i >= 0; i-- {
		if err := m.DisablePlugin(plugins[i]); err != nil {
			m.logger.Error("Could not disable plugin",
				"plugin", plugins[i].Description().FullName(),
				"error", err)
		}
	}
}

// ClearPlugins disables everything and drops all plugin storage. Loader
// registrations survive, so a subsequent LoadPlugins starts fresh with the
// same loaders.
func (m *PluginManager) ClearPlugins() {
	m.DisablePlugins()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins = nil
	m.lookup = make(map[string]Plugin)
}

// GetPlugin looks a plugin up by name, case-insensitive. Returns nil when no
// plugin with the name is loaded.
func (m *PluginManager) GetPlugin(name string) Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup[strings.ToLower(name)]
}

// GetPlugins returns a snapshot of every loaded plugin in load order.
func (m *PluginManager) GetPlugins() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plugins := make([]Plugin, len(m.plugins))
	copy(plugins, m.plugins)
	return plugins
}

// IsPluginEnabled reports whether a plugin with the name is loaded and
// currently enabled.
func (m *PluginManager) IsPluginEnabled(name string) bool {
	plugin := m.GetPlugin(name)
	return plugin != nil && plugin.IsEnabled()
}
