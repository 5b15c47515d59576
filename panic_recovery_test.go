// panic_recovery_test.go: panic recovery tests with logging
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestPanicRecovery_WithStackRecover(t *testing.T) {
	t.Run("RecoversPanic_WithStackTrace", func(t *testing.T) {
		logger := NewTestLogger()

		func() {
			defer withStackRecover(logger)()
			panic("test panic message")
		}()

		if len(logger.Messages) != 1 {
			t.Fatalf("Expected 1 log message, got %d", len(logger.Messages))
		}

		logMsg := logger.Messages[0]
		if logMsg.Level != "ERROR" {
			t.Errorf("Expected ERROR level, got %s", logMsg.Level)
		}
		if logMsg.Message != "Panic recovered" {
			t.Errorf("Expected 'Panic recovered', got %s", logMsg.Message)
		}

		// Pull the panic value and stack out of the key/value args.
		var panicValue interface{}
		var stackTrace string
		for i := 0; i < len(logMsg.Args)-1; i += 2 {
			key, ok := logMsg.Args[i].(string)
			if !ok {
				continue
			}
			switch key {
			case "panic":
				panicValue = logMsg.Args[i+1]
			case "stack":
				if stackStr, ok := logMsg.Args[i+1].(string); ok {
					stackTrace = stackStr
				}
			}
		}

		if panicValue != "test panic message" {
			t.Errorf("Expected panic value 'test panic message', got %v", panicValue)
		}
		if stackTrace == "" {
			t.Error("Expected non-empty stack trace")
		}
		if !strings.Contains(stackTrace, "TestPanicRecovery_WithStackRecover") {
			t.Error("Expected stack trace to contain test function name")
		}
	})

	t.Run("NoPanic_NoLogging", func(t *testing.T) {
		logger := NewTestLogger()

		func() {
			defer withStackRecover(logger)()
		}()

		if len(logger.Messages) != 0 {
			t.Errorf("Expected 0 log messages when no panic, got %d", len(logger.Messages))
		}
	})
}

func TestPanicRecovery_SafeGo(t *testing.T) {
	t.Run("SafeGo_PanicRecovered", func(t *testing.T) {
		logger := NewTestLogger()
		var wg sync.WaitGroup
		wg.Add(1)

		SafeGo(logger, func() {
			defer wg.Done()
			panic("SafeGo test panic")
		})

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			t.Fatal("SafeGo goroutine did not complete within timeout")
		}

		// wg.Done runs before the deferred recovery, give the logger a moment.
		time.Sleep(10 * time.Millisecond)

		logger.mu.RLock()
		messageCount := len(logger.Messages)
		var logMsg TestLogMessage
		if messageCount > 0 {
			logMsg = logger.Messages[0]
		}
		logger.mu.RUnlock()

		if messageCount != 1 {
			t.Fatalf("Expected 1 log message, got %d", messageCount)
		}
		if logMsg.Level != "ERROR" {
			t.Errorf("Expected ERROR level, got %s", logMsg.Level)
		}

		var panicValue interface{}
		for i := 0; i < len(logMsg.Args)-1; i += 2 {
			if key, ok := logMsg.Args[i].(string); ok && key == "panic" {
				panicValue = logMsg.Args[i+1]
				break
			}
		}
		if panicValue != "SafeGo test panic" {
			t.Errorf("Expected panic value 'SafeGo test panic', got %v", panicValue)
		}
	})

	t.Run("SafeGo_NormalExecution", func(t *testing.T) {
		logger := NewTestLogger()
		var wg sync.WaitGroup
		var executionCompleted bool

		wg.Add(1)
		SafeGo(logger, func() {
			defer wg.Done()
			executionCompleted = true
		})

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("SafeGo goroutine did not complete within timeout")
		}

		if !executionCompleted {
			t.Error("Expected function to complete execution")
		}
		if len(logger.Messages) != 0 {
			t.Errorf("Expected 0 log messages when no panic, got %d", len(logger.Messages))
		}
	})
}
