// event.go: core event types, priorities and cancellation state
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// EventPriority controls the order handlers run in when an event fires.
// Handlers run in ascending priority order; within one priority they run in
// registration order.
//
// Priority semantics:
//   - EventPriorityLowest: runs first, outcome may be customised by later handlers
//   - EventPriorityLow ... EventPriorityHighest: progressively later say
//   - EventPriorityHighest: last handler that may modify the event
//   - EventPriorityMonitor: observes the final outcome only and must not
//     modify the event
type EventPriority int

const (
	EventPriorityLowest EventPriority = iota
	EventPriorityLow
	EventPriorityNormal
	EventPriorityHigh
	EventPriorityHighest
	EventPriorityMonitor
)

// String returns the priority name in log-friendly form.
func (p EventPriority) String() string {
	switch p {
	case EventPriorityLowest:
		return "LOWEST"
	case EventPriorityLow:
		return "LOW"
	case EventPriorityNormal:
		return "NORMAL"
	case EventPriorityHigh:
		return "HIGH"
	case EventPriorityHighest:
		return "HIGHEST"
	case EventPriorityMonitor:
		return "MONITOR"
	default:
		return "UNKNOWN"
	}
}

// Result is the tri-state outcome carried by events that gate a decision.
type Result int

const (
	// ResultDeny forces the action to be blocked even when it would be allowed.
	ResultDeny Result = iota
	// ResultDefault defers to whatever the host would normally do.
	ResultDefault
	// ResultAllow forces the action through even when it would be blocked.
	ResultAllow
)

// String returns the result name in log-friendly form.
func (r Result) String() string {
	switch r {
	case ResultDeny:
		return "DENY"
	case ResultAllow:
		return "ALLOW"
	default:
		return "DEFAULT"
	}
}

// Event is implemented by everything that can travel through the EventBus.
//
// Each event type statically declares whether it is asynchronous. Synchronous
// events must be fired through EventBus.Fire from the host's main context;
// asynchronous events must be fired through EventBus.FireAsync and may
// originate from any goroutine.
type Event interface {
	// EventName returns the stable name handlers subscribe to.
	EventName() string

	// IsAsynchronous reports whether this event type fires outside the
	// host's main context.
	IsAsynchronous() bool
}

// Cancellable is implemented by event types whose action can be called off.
// Cancelled events still travel to every remaining handler; handlers decide
// for themselves whether a cancelled event is still interesting.
type Cancellable interface {
	// IsCancelled reports whether a handler has cancelled the event.
	IsCancelled() bool

	// SetCancelled flips the cancellation state of the event.
	SetCancelled(cancelled bool)
}

// BaseEvent carries the state shared by all event types. Concrete events
// embed it and implement EventName themselves.
type BaseEvent struct {
	timestamp time.Time
	async     bool
}

// NewBaseEvent stamps a new event core. async declares the firing context
// the event type expects.
func NewBaseEvent(async bool) BaseEvent {
	return BaseEvent{
		timestamp: timecache.CachedTime(),
		async:     async,
	}
}

// Timestamp returns the moment the event was created.
func (e *BaseEvent) Timestamp() time.Time {
	return e.timestamp
}

// IsAsynchronous implements Event.
func (e *BaseEvent) IsAsynchronous() bool {
	return e.async
}

// CancelState is the stock Cancellable implementation. The flag is atomic so
// asynchronous events can be cancelled from any goroutine without a race.
type CancelState struct {
	cancelled atomic.Bool
}

// IsCancelled implements Cancellable.
func (c *CancelState) IsCancelled() bool {
	return c.cancelled.Load()
}

// SetCancelled implements Cancellable.
func (c *CancelState) SetCancelled(cancelled bool) {
	c.cancelled.Store(cancelled)
}
