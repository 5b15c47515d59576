// events_server.go: server-level events
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

// Event names for server-level events.
const (
	EventNameServerLoad     = "ServerLoadEvent"
	EventNameServerListPing = "ServerListPingEvent"
)

// ServerLoadType distinguishes why the server finished loading.
type ServerLoadType int

const (
	// ServerLoadTypeStartup marks the initial boot load.
	ServerLoadTypeStartup ServerLoadType = iota
)

// String returns the load type name in log-friendly form.
func (t ServerLoadType) String() string {
	switch t {
	case ServerLoadTypeStartup:
		return "STARTUP"
	default:
		return "UNKNOWN"
	}
}

// ServerLoadEvent fires once the host finishes its load phase and Startup
// plugins are enabled. Synchronous, not cancellable.
type ServerLoadEvent struct {
	BaseEvent
	loadType ServerLoadType
}

// NewServerLoadEvent creates the event for the given load type.
func NewServerLoadEvent(loadType ServerLoadType) *ServerLoadEvent {
	return &ServerLoadEvent{
		BaseEvent: NewBaseEvent(false),
		loadType:  loadType,
	}
}

// EventName implements Event.
func (e *ServerLoadEvent) EventName() string {
	return EventNameServerLoad
}

// LoadType returns why the load happened.
func (e *ServerLoadEvent) LoadType() ServerLoadType {
	return e.loadType
}

// ServerListPingEvent fires when a remote client asks the server to describe
// itself for its server list. Handlers may rewrite every server-owned field;
// the mutated values flow back into the ping response. The remote endpoint is
// descriptive and fixed.
//
// This event is asynchronous and cancellable: pings arrive on network
// goroutines, so it must be fired through EventBus.FireAsync, and the
// cancellation flag is atomic.
type ServerListPingEvent struct {
	BaseEvent
	CancelState

	remoteHost string
	remotePort int

	ServerGUID             string
	LocalPort              int
	LocalPortV6            int
	MOTD                   string
	NetworkProtocolVersion int
	MinecraftVersion       string
	NumPlayers             int
	MaxPlayers             int
	LevelName              string
	GameMode               GameMode
}

// NewServerListPingEvent creates the event for a ping from the given remote
// endpoint. Server-owned fields start zero; the runtime fills them from its
// current settings before firing.
func NewServerListPingEvent(remoteHost string, remotePort int) *ServerListPingEvent {
	return &ServerListPingEvent{
		BaseEvent:  NewBaseEvent(true),
		remoteHost: remoteHost,
		remotePort: remotePort,
	}
}

// EventName implements Event.
func (e *ServerListPingEvent) EventName() string {
	return EventNameServerListPing
}

// RemoteHost returns the address the ping came from.
func (e *ServerListPingEvent) RemoteHost() string {
	return e.remoteHost
}

// RemotePort returns the port the ping came from.
func (e *ServerListPingEvent) RemotePort() int {
	return e.remotePort
}
