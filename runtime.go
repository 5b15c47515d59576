// runtime.go: runtime wiring for plugins, permissions, commands, and events
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sync"
	"sync/atomic"
)

// Version is the basalt runtime version reported by the version command.
const Version = "0.1.0"

// PingData is the folded outcome of a server list ping after plugins had
// their chance to rewrite the advertised fields.
type PingData struct {
	ServerGUID       string
	MOTD             string
	LevelName        string
	GameMode         GameMode
	NumPlayers       int
	MaxPlayers       int
	ProtocolVersion  int
	MinecraftVersion string
	Port             int
	PortV6           int
}

// Runtime owns one instance of every subsystem and wires them together. All
// cross-subsystem references flow through this object, so two runtimes can
// coexist in one process without sharing any state.
type Runtime struct {
	logger      Logger
	bus         *EventBus
	permissions *PermissionRegistry
	commands    *CommandMap
	manager     *PluginManager
	console     *ConsoleSender

	settings    atomic.Pointer[ServerSettings]
	playerCount atomic.Int32
	started     atomic.Bool

	mu      sync.Mutex
	watcher *SettingsWatcher
}

// NewRuntime assembles a runtime around the given settings. A nil settings
// pointer uses the compiled-in defaults. The logger accepts the same values
// as NewLogger.
func NewRuntime(settings *ServerSettings, logger any) *Runtime {
	internalLogger := NewLogger(logger)
	if settings == nil {
		settings = DefaultServerSettings()
	}
	settings.ApplyDefaults()

	bus := NewEventBus(internalLogger)
	permissions := NewPermissionRegistry(internalLogger)
	commands := NewCommandMap(internalLogger)
	manager := NewPluginManager(internalLogger, bus, commands, permissions)

	r := &Runtime{
		logger:      internalLogger,
		bus:         bus,
		permissions: permissions,
		commands:    commands,
		manager:     manager,
		console:     NewConsoleSender(internalLogger, permissions),
	}
	r.settings.Store(settings)
	return r
}

// Logger returns the runtime's root logger.
func (r *Runtime) Logger() Logger { return r.logger }

// EventBus returns the runtime's event bus.
func (r *Runtime) EventBus() *EventBus { return r.bus }

// Permissions returns the runtime's permission registry.
func (r *Runtime) Permissions() *PermissionRegistry { return r.permissions }

// Commands returns the runtime's command map.
func (r *Runtime) Commands() *CommandMap { return r.commands }

// PluginManager returns the runtime's plugin manager.
func (r *Runtime) PluginManager() *PluginManager { return r.manager }

// Console returns the built-in console command sender.
func (r *Runtime) Console() *ConsoleSender { return r.console }

// Settings returns the current settings snapshot.
func (r *Runtime) Settings() *ServerSettings { return r.settings.Load() }

// ApplySettings swaps in a new settings snapshot. Used as the hot reload
// callback of the settings watcher.
func (r *Runtime) ApplySettings(next *ServerSettings) {
	if next == nil {
		return
	}
	r.settings.Store(next)
	r.logger.Debug("Server settings applied", "motd", next.MOTD, "max_players", next.MaxPlayers)
}

// Bootstrap brings the runtime up: it registers the script loader and the
// built-in commands, loads every plugin from the plugins directory, and
// enables them around the server load event. Plugins with STARTUP load order
// are enabled before the event fires, POSTWORLD plugins after.
func (r *Runtime) Bootstrap() error {
	if !r.started.CompareAndSwap(false, true) {
		return NewRuntimeStateError("runtime is already bootstrapped")
	}

	settings := r.Settings()
	if err := r.manager.RegisterLoaderFilters(NewLuaPluginLoader(r.logger)); err != nil {
		return err
	}
	r.registerBuiltinCommands()

	if _, err := r.manager.LoadPlugins(settings.PluginsDir); err != nil {
		if ErrorCode(err) != ErrCodeFileNotFound {
			return err
		}
		r.logger.Warn("Plugins directory does not exist, skipping plugin load",
			"dir", settings.PluginsDir)
	}

	r.manager.EnablePlugins(LoadOrderStartup)
	if err := r.bus.Fire(NewServerLoadEvent(ServerLoadTypeStartup)); err != nil {
		r.logger.Error("Server load event dispatch failed", "error", err)
	}
	r.manager.EnablePlugins(LoadOrderPostWorld)

	r.logger.Info("Runtime bootstrapped",
		"version", Version,
		"plugins", len(r.manager.GetPlugins()))
	return nil
}

// DispatchCommand routes a command line to its handler on behalf of sender.
// A nil sender dispatches as the console. The boolean mirrors the command's
// own result; routing failures are reported to the sender as messages.
func (r *Runtime) DispatchCommand(sender CommandSender, commandLine string) bool {
	if sender == nil {
		sender = r.console
	}
	return r.commands.Dispatch(sender, commandLine)
}

// PingResponse builds the response for a server list ping from the given
// remote address. Plugins observe and rewrite the advertised fields through
// ServerListPingEvent; a cancelled event yields ok=false and the ping goes
// unanswered.
func (r *Runtime) PingResponse(remoteHost string, remotePort int) (PingData, bool) {
	settings := r.Settings()

	event := NewServerListPingEvent(remoteHost, remotePort)
	event.ServerGUID = settings.ServerGUID
	event.LocalPort = settings.Port
	event.LocalPortV6 = settings.PortV6
	event.MOTD = settings.MOTD
	event.NetworkProtocolVersion = settings.ProtocolVersion
	event.MinecraftVersion = settings.MinecraftVersion
	event.NumPlayers = int(r.playerCount.Load())
	event.MaxPlayers = settings.MaxPlayers
	event.LevelName = settings.LevelName
	event.GameMode = settings.GameMode

	if err := r.bus.FireAsync(event); err != nil {
		r.logger.Error("Server list ping dispatch failed", "error", err)
	}
	if event.IsCancelled() {
		return PingData{}, false
	}
	return PingData{
		ServerGUID:       event.ServerGUID,
		MOTD:             event.MOTD,
		LevelName:        event.LevelName,
		GameMode:         event.GameMode,
		NumPlayers:       event.NumPlayers,
		MaxPlayers:       event.MaxPlayers,
		ProtocolVersion:  event.NetworkProtocolVersion,
		MinecraftVersion: event.MinecraftVersion,
		Port:             event.LocalPort,
		PortV6:           event.LocalPortV6,
	}, true
}

// SetPlayerCount records the number of connected players advertised in pings.
func (r *Runtime) SetPlayerCount(count int) {
	r.playerCount.Store(int32(count))
}

// PlayerCount returns the number of connected players.
func (r *Runtime) PlayerCount() int {
	return int(r.playerCount.Load())
}

// WatchSettings starts hot reloading of the given settings file into this
// runtime. Stop happens as part of Shutdown.
func (r *Runtime) WatchSettings(path string, options SettingsWatcherOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher != nil {
		return NewRuntimeStateError("settings watcher is already running")
	}
	watcher, err := NewSettingsWatcher(path, r.ApplySettings, options, r.logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	r.watcher = watcher
	return nil
}

// Reload disables and unloads every plugin, then loads and enables the
// plugins directory again. Loaders and non-plugin subscriptions survive.
func (r *Runtime) Reload() error {
	if !r.started.Load() {
		return NewRuntimeStateError("runtime has not been bootstrapped")
	}
	r.logger.Info("Reloading plugins")

	r.manager.ClearPlugins()
	settings := r.Settings()
	if _, err := r.manager.LoadPlugins(settings.PluginsDir); err != nil {
		if ErrorCode(err) != ErrCodeFileNotFound {
			return err
		}
		r.logger.Warn("Plugins directory does not exist, skipping plugin load",
			"dir", settings.PluginsDir)
	}
	r.manager.EnablePlugins(LoadOrderStartup)
	r.manager.EnablePlugins(LoadOrderPostWorld)

	r.logger.Info("Reload complete", "plugins", len(r.manager.GetPlugins()))
	return nil
}

// Shutdown disables and unloads every plugin and stops the settings watcher.
// The runtime cannot be bootstrapped again afterwards.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	watcher := r.watcher
	r.watcher = nil
	r.mu.Unlock()

	var err error
	if watcher != nil {
		err = watcher.Stop()
	}
	r.manager.ClearPlugins()
	r.logger.Info("Runtime stopped")
	return err
}
