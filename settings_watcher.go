// settings_watcher.go: hot reload of server settings with Argus integration
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// SettingsWatcherOptions configures polling and audit behavior of the watcher.
type SettingsWatcherOptions struct {
	// PollInterval controls how often Argus checks the settings file.
	PollInterval time.Duration

	// CacheTTL bounds how long file stat results are cached between polls.
	CacheTTL time.Duration

	// Audit configures the trail written for every settings change.
	Audit argus.AuditConfig

	// ErrorHandler receives file watching errors. When nil, errors are
	// logged through the watcher's logger.
	ErrorHandler func(err error, path string)
}

// DefaultSettingsWatcherOptions returns defaults tuned for a settings file
// that changes rarely but should apply within a few seconds of being saved.
func DefaultSettingsWatcherOptions() SettingsWatcherOptions {
	return SettingsWatcherOptions{
		PollInterval: 5 * time.Second,
		CacheTTL:     2 * time.Second,
		Audit: argus.AuditConfig{
			Enabled:       true,
			OutputFile:    "basalt-settings-audit.jsonl",
			MinLevel:      argus.AuditInfo,
			BufferSize:    256,
			FlushInterval: 10 * time.Second,
		},
	}
}

// SettingsWatcher hot-reloads server settings when the backing file changes.
//
// The watcher keeps the last good settings in an atomic pointer and invokes an
// optional callback after every successful reload. Files that fail to parse or
// validate are rejected and the previous settings stay in effect.
type SettingsWatcher struct {
	logger Logger

	watcher     *argus.Watcher
	auditLogger *argus.AuditLogger

	configPath string
	current    atomic.Pointer[ServerSettings]
	onChange   func(*ServerSettings)

	enabled  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	mutex    sync.Mutex

	options SettingsWatcherOptions
}

// NewSettingsWatcher creates a watcher for the given settings file. The
// onChange callback may be nil; when set it runs after each applied reload,
// including the initial load performed by Start.
func NewSettingsWatcher(configPath string, onChange func(*ServerSettings), options SettingsWatcherOptions, logger any) (*SettingsWatcher, error) {
	internalLogger := NewLogger(logger)

	sw := &SettingsWatcher{
		logger:     internalLogger,
		configPath: configPath,
		onChange:   onChange,
		options:    options,
	}

	argusConfig := argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.CacheTTL,
		MaxWatchedFiles:      5,
		Audit:                options.Audit,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, path string) {
			if options.ErrorHandler != nil {
				options.ErrorHandler(err, path)
				return
			}
			internalLogger.Error("Settings file watching error", "error", err, "file", path)
		},
	}
	sw.watcher = argus.New(argusConfig)

	if options.Audit.Enabled {
		auditLogger, err := argus.NewAuditLogger(options.Audit)
		if err != nil {
			return nil, NewConfigInvalidError("audit", err)
		}
		sw.auditLogger = auditLogger
	}

	return sw, nil
}

// Start loads the settings file, applies it, and begins watching for changes.
func (sw *SettingsWatcher) Start() error {
	if sw.stopped.Load() {
		return NewRuntimeStateError("settings watcher has been stopped and cannot be restarted")
	}

	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if !sw.enabled.CompareAndSwap(false, true) {
		return NewRuntimeStateError("settings watcher is already running")
	}

	initial, err := LoadServerSettings(sw.configPath)
	if err != nil {
		sw.enabled.Store(false)
		return err
	}
	sw.current.Store(initial)
	if sw.onChange != nil {
		sw.onChange(initial)
	}

	sw.auditEvent("settings_loaded", map[string]interface{}{
		"path":   sw.configPath,
		"source": "initial_load",
	})

	if err := sw.watcher.Watch(sw.configPath, sw.handleSettingsChange); err != nil {
		sw.enabled.Store(false)
		return NewConfigInvalidError("watcher", err).
			WithContext("path", sw.configPath)
	}
	if err := sw.watcher.Start(); err != nil {
		sw.enabled.Store(false)
		return NewConfigInvalidError("watcher", err).
			WithContext("path", sw.configPath)
	}

	sw.logger.Info("Settings watcher started",
		"config_path", sw.configPath,
		"poll_interval", sw.options.PollInterval)
	return nil
}

// Stop ends watching permanently. The watcher cannot be restarted afterwards.
func (sw *SettingsWatcher) Stop() error {
	if sw.stopped.Load() {
		return nil
	}

	var stopErr error
	sw.stopOnce.Do(func() {
		sw.mutex.Lock()
		defer sw.mutex.Unlock()

		if !sw.enabled.CompareAndSwap(true, false) {
			return
		}
		sw.stopped.Store(true)

		if err := sw.watcher.Stop(); err != nil {
			stopErr = err
		}
		if sw.auditLogger != nil {
			if err := sw.auditLogger.Close(); err != nil {
				sw.logger.Warn("Failed to close settings audit logger", "error", err)
			}
		}
		sw.logger.Info("Settings watcher stopped", "config_path", sw.configPath)
	})
	return stopErr
}

// IsRunning reports whether the watcher is actively polling.
func (sw *SettingsWatcher) IsRunning() bool {
	return sw.enabled.Load() && !sw.stopped.Load()
}

// Current returns the most recently applied settings, or nil before Start.
func (sw *SettingsWatcher) Current() *ServerSettings {
	return sw.current.Load()
}

// handleSettingsChange processes a change event from Argus. Reloads that fail
// to parse or validate leave the previous settings in effect.
func (sw *SettingsWatcher) handleSettingsChange(event argus.ChangeEvent) {
	sw.logger.Info("Settings file change detected",
		"path", event.Path,
		"is_create", event.IsCreate,
		"is_delete", event.IsDelete,
		"is_modify", event.IsModify)

	if event.IsDelete {
		sw.logger.Warn("Settings file was deleted, keeping current settings", "path", event.Path)
		sw.auditEvent("settings_file_deleted", map[string]interface{}{
			"path": event.Path,
		})
		return
	}

	next, err := readServerSettings(event.Path)
	if err != nil {
		sw.logger.Error("Failed to load new settings", "error", err, "path", event.Path)
		sw.auditEvent("settings_load_failed", map[string]interface{}{
			"path":  event.Path,
			"error": err.Error(),
		})
		return
	}

	// A file that leaves server_guid empty keeps the identity of the running
	// instance instead of minting a new one per reload.
	prev := sw.current.Load()
	if prev != nil && next.ServerGUID == "" {
		next.ServerGUID = prev.ServerGUID
	}
	next.ApplyDefaults()
	if err := next.Validate(); err != nil {
		sw.logger.Error("Rejected invalid settings", "error", err, "path", event.Path)
		sw.auditEvent("settings_validation_failed", map[string]interface{}{
			"path":  event.Path,
			"error": err.Error(),
		})
		return
	}

	old := sw.current.Swap(next)
	if sw.onChange != nil {
		sw.onChange(next)
	}

	changes := diffSettings(old, next)
	sw.logger.Info("Settings reloaded", "path", event.Path, "changes", changes)
	sw.auditEvent("settings_reloaded", map[string]interface{}{
		"path":    event.Path,
		"changes": changes,
	})
}

// auditEvent records a settings lifecycle event when auditing is enabled.
func (sw *SettingsWatcher) auditEvent(eventType string, context map[string]interface{}) {
	if sw.auditLogger != nil {
		sw.auditLogger.LogSecurityEvent(eventType, "Server settings change", context)
	}
}

// diffSettings names the fields that differ between two settings snapshots.
func diffSettings(old, next *ServerSettings) []string {
	if old == nil {
		return []string{"initial_settings"}
	}
	var changes []string
	if old.PluginsDir != next.PluginsDir {
		changes = append(changes, "plugins_dir")
	}
	if old.MOTD != next.MOTD {
		changes = append(changes, "motd")
	}
	if old.MaxPlayers != next.MaxPlayers {
		changes = append(changes, "max_players")
	}
	if old.LevelName != next.LevelName {
		changes = append(changes, "level_name")
	}
	if old.GameMode != next.GameMode {
		changes = append(changes, "game_mode")
	}
	if old.Port != next.Port {
		changes = append(changes, "port")
	}
	if old.PortV6 != next.PortV6 {
		changes = append(changes, "port_v6")
	}
	if old.ProtocolVersion != next.ProtocolVersion {
		changes = append(changes, "protocol_version")
	}
	if old.MinecraftVersion != next.MinecraftVersion {
		changes = append(changes, "minecraft_version")
	}
	if old.ServerGUID != next.ServerGUID {
		changes = append(changes, "server_guid")
	}
	if len(changes) == 0 {
		changes = []string{"unchanged"}
	}
	return changes
}
