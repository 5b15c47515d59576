// events_plugin.go: plugin lifecycle events
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

// Event names for plugin lifecycle transitions.
const (
	EventNamePluginEnable  = "PluginEnableEvent"
	EventNamePluginDisable = "PluginDisableEvent"
)

// PluginEnableEvent fires when a plugin transitions to enabled, before its
// loader runs the enable hook. Synchronous, not cancellable.
type PluginEnableEvent struct {
	BaseEvent
	plugin Plugin
}

// NewPluginEnableEvent creates the event for the given plugin.
func NewPluginEnableEvent(plugin Plugin) *PluginEnableEvent {
	return &PluginEnableEvent{
		BaseEvent: NewBaseEvent(false),
		plugin:    plugin,
	}
}

// EventName implements Event.
func (e *PluginEnableEvent) EventName() string {
	return EventNamePluginEnable
}

// Plugin returns the plugin being enabled.
func (e *PluginEnableEvent) Plugin() Plugin {
	return e.plugin
}

// PluginDisableEvent fires when a plugin transitions to disabled, before its
// loader runs the disable hook. Synchronous, not cancellable.
type PluginDisableEvent struct {
	BaseEvent
	plugin Plugin
}

// NewPluginDisableEvent creates the event for the given plugin.
func NewPluginDisableEvent(plugin Plugin) *PluginDisableEvent {
	return &PluginDisableEvent{
		BaseEvent: NewBaseEvent(false),
		plugin:    plugin,
	}
}

// EventName implements Event.
func (e *PluginDisableEvent) EventName() string {
	return EventNamePluginDisable
}

// Plugin returns the plugin being disabled.
func (e *PluginDisableEvent) Plugin() Plugin {
	return e.plugin
}
