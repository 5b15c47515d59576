// event_bus_test.go: event bus ordering, cancellation and contract tests
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatEvent is a minimal synchronous event used only in tests.
type chatEvent struct {
	BaseEvent
}

func newChatEvent() *chatEvent {
	return &chatEvent{BaseEvent: NewBaseEvent(false)}
}

func (e *chatEvent) EventName() string { return "ChatEvent" }

// breakEvent is a cancellable synchronous event used only in tests.
type breakEvent struct {
	BaseEvent
	CancelState
}

func newBreakEvent() *breakEvent {
	return &breakEvent{BaseEvent: NewBaseEvent(false)}
}

func (e *breakEvent) EventName() string { return "BreakEvent" }

// queryEvent is an asynchronous event used only in tests.
type queryEvent struct {
	BaseEvent
	CancelState
}

func newQueryEvent() *queryEvent {
	return &queryEvent{BaseEvent: NewBaseEvent(true)}
}

func (e *queryEvent) EventName() string { return "QueryEvent" }

func TestEventBus_PriorityOrdering(t *testing.T) {
	t.Run("handlers_run_lowest_to_monitor", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())

		var order []string
		record := func(name string) EventHandler {
			return func(Event) { order = append(order, name) }
		}

		// Registered deliberately out of priority order.
		bus.Subscribe("ChatEvent", record("MONITOR"), WithPriority(EventPriorityMonitor))
		bus.Subscribe("ChatEvent", record("HIGH"), WithPriority(EventPriorityHigh))
		bus.Subscribe("ChatEvent", record("LOWEST"), WithPriority(EventPriorityLowest))
		bus.Subscribe("ChatEvent", record("HIGHEST"), WithPriority(EventPriorityHighest))
		bus.Subscribe("ChatEvent", record("NORMAL"), WithPriority(EventPriorityNormal))
		bus.Subscribe("ChatEvent", record("LOW"), WithPriority(EventPriorityLow))

		require.NoError(t, bus.Fire(newChatEvent()))

		expected := []string{"LOWEST", "LOW", "NORMAL", "HIGH", "HIGHEST", "MONITOR"}
		assert.Equal(t, expected, order, "handlers must run in ascending priority order")
	})

	t.Run("registration_order_within_priority", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())

		var order []int
		for i := 0; i < 5; i++ {
			i := i
			bus.Subscribe("ChatEvent", func(Event) { order = append(order, i) },
				WithPriority(EventPriorityNormal))
		}

		require.NoError(t, bus.Fire(newChatEvent()))
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order,
			"handlers at one priority must keep registration order")
	})

	t.Run("default_priority_is_normal", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())

		var order []string
		bus.Subscribe("ChatEvent", func(Event) { order = append(order, "highest") },
			WithPriority(EventPriorityHighest))
		bus.Subscribe("ChatEvent", func(Event) { order = append(order, "default") })
		bus.Subscribe("ChatEvent", func(Event) { order = append(order, "lowest") },
			WithPriority(EventPriorityLowest))

		require.NoError(t, bus.Fire(newChatEvent()))
		assert.Equal(t, []string{"lowest", "default", "highest"}, order)
	})
}

func TestEventBus_Cancellation(t *testing.T) {
	t.Run("cancelled_event_reaches_remaining_handlers", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())
		event := newBreakEvent()

		var highRan, monitorRan bool
		var highSawCancelled, monitorSawCancelled bool

		bus.Subscribe("BreakEvent", func(e Event) {
			e.(Cancellable).SetCancelled(true)
		}, WithPriority(EventPriorityNormal))
		bus.Subscribe("BreakEvent", func(e Event) {
			highRan = true
			highSawCancelled = e.(Cancellable).IsCancelled()
		}, WithPriority(EventPriorityHigh))
		bus.Subscribe("BreakEvent", func(e Event) {
			monitorRan = true
			monitorSawCancelled = e.(Cancellable).IsCancelled()
		}, WithPriority(EventPriorityMonitor))

		require.NoError(t, bus.Fire(event))

		assert.True(t, highRan, "handlers after the cancelling one must still run")
		assert.True(t, monitorRan, "monitor handlers must still run")
		assert.True(t, highSawCancelled, "later handlers must observe the cancelled state")
		assert.True(t, monitorSawCancelled)
		assert.True(t, event.IsCancelled())
	})

	t.Run("later_handler_can_uncancel", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())
		event := newBreakEvent()

		var monitorSawCancelled bool
		bus.Subscribe("BreakEvent", func(e Event) {
			e.(Cancellable).SetCancelled(true)
		}, WithPriority(EventPriorityLow))
		bus.Subscribe("BreakEvent", func(e Event) {
			e.(Cancellable).SetCancelled(false)
		}, WithPriority(EventPriorityHighest))
		bus.Subscribe("BreakEvent", func(e Event) {
			monitorSawCancelled = e.(Cancellable).IsCancelled()
		}, WithPriority(EventPriorityMonitor))

		require.NoError(t, bus.Fire(event))

		assert.False(t, event.IsCancelled(), "highest priority handler has the final say")
		assert.False(t, monitorSawCancelled, "monitor observes the final outcome")
	})

	t.Run("cancel_helper_flips_cancellable_events", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())
		event := newBreakEvent()

		assert.True(t, bus.Cancel(event))
		assert.True(t, event.IsCancelled())
	})

	t.Run("cancel_helper_is_logged_noop_on_non_cancellable", func(t *testing.T) {
		logger := NewTestLogger()
		bus := NewEventBus(logger)
		event := newChatEvent()

		assert.False(t, bus.Cancel(event), "non-cancellable events cannot be cancelled")
		assert.True(t, logger.HasMessage("WARN", "Cancellation requested on non-cancellable event"),
			"the misuse must be logged")
	})
}

func TestEventBus_AsyncContract(t *testing.T) {
	t.Run("async_event_rejected_by_fire", func(t *testing.T) {
		logger := NewTestLogger()
		bus := NewEventBus(logger)

		handled := false
		bus.Subscribe("QueryEvent", func(Event) { handled = true })

		err := bus.Fire(newQueryEvent())
		require.Error(t, err)
		assert.Equal(t, ErrCodeAsyncViolation, ErrorCode(err))
		assert.False(t, handled, "nothing is delivered on a contract violation")
		assert.True(t, logger.HasMessage("ERROR", "Asynchronous event fired synchronously"))
	})

	t.Run("sync_event_rejected_by_fire_async", func(t *testing.T) {
		logger := NewTestLogger()
		bus := NewEventBus(logger)

		handled := false
		bus.Subscribe("ChatEvent", func(Event) { handled = true })

		err := bus.FireAsync(newChatEvent())
		require.Error(t, err)
		assert.Equal(t, ErrCodeAsyncViolation, ErrorCode(err))
		assert.False(t, handled, "nothing is delivered on a contract violation")
		assert.True(t, logger.HasMessage("ERROR", "Synchronous event fired asynchronously"))
	})

	t.Run("async_event_delivered_by_fire_async", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())

		handled := false
		bus.Subscribe("QueryEvent", func(Event) { handled = true })

		require.NoError(t, bus.FireAsync(newQueryEvent()))
		assert.True(t, handled)
	})
}

func TestEventBus_SubscriptionLifecycle(t *testing.T) {
	t.Run("unsubscribe_stops_delivery", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())

		var first, second int
		sub := bus.Subscribe("ChatEvent", func(Event) { first++ })
		bus.Subscribe("ChatEvent", func(Event) { second++ })

		require.NoError(t, bus.Fire(newChatEvent()))
		assert.True(t, bus.Unsubscribe(sub))
		require.NoError(t, bus.Fire(newChatEvent()))

		assert.Equal(t, 1, first, "unsubscribed handler must not run again")
		assert.Equal(t, 2, second)
		assert.False(t, bus.Unsubscribe(sub), "second unsubscribe is a no-op")
	})

	t.Run("reentrant_subscribe_joins_next_fire", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())

		var innerCalls int
		bus.Subscribe("ChatEvent", func(Event) {
			bus.Subscribe("ChatEvent", func(Event) { innerCalls++ })
		})

		require.NoError(t, bus.Fire(newChatEvent()))
		assert.Equal(t, 0, innerCalls, "handlers registered mid-fire join the next fire")

		require.NoError(t, bus.Fire(newChatEvent()))
		assert.Equal(t, 1, innerCalls)
	})

	t.Run("reentrant_unsubscribe_finishes_current_fire", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())

		var targetCalls int
		var target Subscription
		bus.Subscribe("ChatEvent", func(Event) {
			bus.Unsubscribe(target)
		}, WithPriority(EventPriorityLowest))
		target = bus.Subscribe("ChatEvent", func(Event) { targetCalls++ },
			WithPriority(EventPriorityHigh))

		require.NoError(t, bus.Fire(newChatEvent()))
		assert.Equal(t, 1, targetCalls, "the running fire works on a snapshot")

		require.NoError(t, bus.Fire(newChatEvent()))
		assert.Equal(t, 1, targetCalls, "the removal applies from the next fire")
	})

	t.Run("handler_count_and_clear", func(t *testing.T) {
		bus := NewEventBus(NewTestLogger())

		bus.Subscribe("ChatEvent", func(Event) {})
		bus.Subscribe("ChatEvent", func(Event) {})
		bus.Subscribe("BreakEvent", func(Event) {})

		assert.Equal(t, 2, bus.HandlerCount("ChatEvent"))
		assert.Equal(t, 1, bus.HandlerCount("BreakEvent"))
		assert.Equal(t, 0, bus.HandlerCount("QueryEvent"))

		bus.Clear()
		assert.Equal(t, 0, bus.HandlerCount("ChatEvent"))
		assert.Equal(t, 0, bus.HandlerCount("BreakEvent"))
	})
}

func TestEventBus_PanicIsolation(t *testing.T) {
	logger := NewTestLogger()
	bus := NewEventBus(logger)

	var afterRan bool
	bus.Subscribe("ChatEvent", func(Event) {
		panic("handler exploded")
	}, WithPriority(EventPriorityNormal))
	bus.Subscribe("ChatEvent", func(Event) { afterRan = true },
		WithPriority(EventPriorityHigh))

	require.NoError(t, bus.Fire(newChatEvent()))

	assert.True(t, afterRan, "a panicking handler must not stop later handlers")
	assert.True(t, logger.HasMessage("ERROR", "Panic recovered"))
}

func TestEventBus_ConcurrentFireAsync(t *testing.T) {
	bus := NewEventBus(NewTestLogger())

	var delivered atomic.Int64
	bus.Subscribe("QueryEvent", func(Event) { delivered.Add(1) })

	const fires = 50
	var wg sync.WaitGroup
	for i := 0; i < fires; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.FireAsync(newQueryEvent())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(fires), delivered.Load(),
		"every concurrent fire must reach the handler exactly once")
}
