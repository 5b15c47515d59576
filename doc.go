// Package basalt provides an embeddable extensibility runtime for game
// servers. It loads plugins from manifests or Lua scripts and wires them into
// a shared command router, permission registry, and prioritized event bus.
//
// Key Features:
//   - Pattern-based plugin loaders with manifest parsing (TOML, YAML, JSON)
//   - Lua script plugins with lifecycle and command hooks
//   - Namespaced command routing with permission checks and tab completion
//   - Role-aware permission registry with live default recalculation
//   - Six-level prioritized event bus with cancellable events
//   - Hot-reloading of server settings with audit trails
//   - Structured logging throughout
//
// Basic Usage:
//
//	// Load settings and assemble a runtime
//	settings, err := basalt.LoadServerSettings("basalt.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	runtime := basalt.NewRuntime(settings, logger)
//
//	// Load and enable every plugin in the plugins directory
//	if err := runtime.Bootstrap(); err != nil {
//		log.Fatal(err)
//	}
//	defer runtime.Shutdown()
//
//	// Route commands and observe events
//	runtime.DispatchCommand(nil, "version")
//	runtime.EventBus().Subscribe(basalt.EventNameServerListPing, func(e basalt.Event) {
//		ping := e.(*basalt.ServerListPingEvent)
//		ping.MOTD = "Welcome!"
//	})
//
// Plugins:
// A plugin ships either as a directory with a plugin.toml manifest or as a
// standalone .lua script declaring a plugin table. Manifests describe
// commands, permissions, dependencies, and load order; the runtime registers
// all of it when the plugin is enabled and tears it down when disabled.
//
// Concurrency:
// Every registry in the package is safe for concurrent use. Event dispatch
// runs against immutable handler snapshots, so handlers may subscribe or
// unsubscribe while an event is in flight.
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0
package basalt
