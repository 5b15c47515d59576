// event_bus.go: in-process event bus with priority-ordered dispatch
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sort"
	"sync"
)

// EventHandler receives a fired event. Handlers that care about cancellation
// check the event's Cancellable state themselves; the bus never filters.
type EventHandler func(Event)

// Subscription identifies one registered handler so it can be removed later.
type Subscription struct {
	event string
	id    uint64
}

// Event returns the event name the subscription is attached to.
func (s Subscription) Event() string {
	return s.event
}

type eventHandlerEntry struct {
	id       uint64
	priority EventPriority
	handler  EventHandler
}

// handlerList holds the handlers for one event name, ordered by priority and
// then by registration. Dispatch works on snapshots so handlers registered
// mid-fire never invalidate a running iteration.
type handlerList struct {
	mu      sync.RWMutex
	entries []*eventHandlerEntry
}

func (l *handlerList) add(entry *eventHandlerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].priority < l.entries[j].priority
	})
}

func (l *handlerList) remove(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.entries {
		if entry.id == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *handlerList) snapshot() []*eventHandlerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := make([]*eventHandlerEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

func (l *handlerList) size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*eventHandlerEntry)

// WithPriority places the handler in the given priority bucket. Handlers
// without an explicit priority run at EventPriorityNormal.
func WithPriority(priority EventPriority) SubscribeOption {
	return func(entry *eventHandlerEntry) {
		entry.priority = priority
	}
}

// EventBus routes fired events to subscribed handlers.
//
// Delivery contract:
//   - handlers run in ascending EventPriority order, registration order
//     within one priority
//   - every handler runs regardless of cancellation state
//   - a panicking handler is recovered and logged, the rest still run
//   - synchronous events fire via Fire, asynchronous ones via FireAsync;
//     mixing the two is a reported contract violation
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string]*handlerList
	nextID   uint64
	logger   Logger
}

// NewEventBus creates an event bus that logs through the given logger.
func NewEventBus(logger Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string]*handlerList),
		logger:   NewLogger(logger),
	}
}

// Subscribe registers a handler for the named event and returns the handle
// needed to unsubscribe it. Registration is safe from inside a running
// handler; the new handler joins from the next fire onward.
func (b *EventBus) Subscribe(eventName string, handler EventHandler, opts ...SubscribeOption) Subscription {
	b.mu.Lock()
	b.nextID++
	entry := &eventHandlerEntry{
		id:       b.nextID,
		priority: EventPriorityNormal,
		handler:  handler,
	}
	for _, opt := range opts {
		opt(entry)
	}
	list, ok := b.handlers[eventName]
	if !ok {
		list = &handlerList{}
		b.handlers[eventName] = list
	}
	b.mu.Unlock()

	list.add(entry)
	return Subscription{event: eventName, id: entry.id}
}

// Unsubscribe removes a previously registered handler. Removing a handler
// twice is a no-op.
func (b *EventBus) Unsubscribe(sub Subscription) bool {
	b.mu.RLock()
	list, ok := b.handlers[sub.event]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	return list.remove(sub.id)
}

// Fire delivers a synchronous event to every handler in priority order.
// Firing an event whose type is declared asynchronous is a contract
// violation: it is logged and returned as an error, and nothing is delivered.
func (b *EventBus) Fire(event Event) error {
	if event.IsAsynchronous() {
		err := NewAsyncViolationError(event.EventName(), false)
		b.logger.Error("Asynchronous event fired synchronously",
			"event", event.EventName())
		return err
	}
	b.dispatch(event)
	return nil
}

// FireAsync delivers an asynchronous event from whatever goroutine the
// caller runs on. Firing a synchronous-only event this way is a contract
// violation: it is logged and returned as an error, and nothing is delivered.
func (b *EventBus) FireAsync(event Event) error {
	if !event.IsAsynchronous() {
		err := NewAsyncViolationError(event.EventName(), true)
		b.logger.Error("Synchronous event fired asynchronously",
			"event", event.EventName())
		return err
	}
	b.dispatch(event)
	return nil
}

func (b *EventBus) dispatch(event Event) {
	b.mu.RLock()
	list, ok := b.handlers[event.EventName()]
	b.mu.RUnlock()
	if !ok {
		return
	}

	// Cancellation never short-circuits delivery. Handlers consult
	// IsCancelled themselves; MONITOR handlers observe the final state.
	for _, entry := range list.snapshot() {
		func(e *eventHandlerEntry) {
			defer withStackRecover(b.logger)()
			e.handler(event)
		}(entry)
	}
}

// Cancel flips the cancellation flag on a cancellable event. Calling it on
// an event type that cannot be cancelled is a logged no-op so misbehaving
// handlers never take the host down.
func (b *EventBus) Cancel(event Event) bool {
	c, ok := event.(Cancellable)
	if !ok {
		b.logger.Warn("Cancellation requested on non-cancellable event",
			"event", event.EventName(),
			"error_code", ErrCodeMisusedCancellation)
		return false
	}
	c.SetCancelled(true)
	return true
}

// HandlerCount returns how many handlers are registered for the event name.
func (b *EventBus) HandlerCount(eventName string) int {
	b.mu.RLock()
	list, ok := b.handlers[eventName]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	return list.size()
}

// Clear drops every registered handler.
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string]*handlerList)
}
