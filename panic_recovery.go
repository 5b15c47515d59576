// panic_recovery.go: panic recovery utilities with stack trace support
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"runtime"
)

// withStackRecover returns a panic recovery function that logs panic details
// including the full stack trace. Event handlers and plugin callbacks run
// behind it so one bad handler never takes the host down.
//
// Example usage:
//
//	func() {
//	    defer withStackRecover(logger)()
//	    // potentially panicking code
//	}()
//
// The returned function should be called with defer to ensure proper recovery.
func withStackRecover(logger Logger) func() {
	return func() {
		if r := recover(); r != nil {
			buf := make([]byte, 64<<10) // 64KB should be sufficient for most cases
			n := runtime.Stack(buf, false)

			logger.Error("Panic recovered",
				"panic", r,
				"stack", string(buf[:n]))
		}
	}
}

// SafeGo executes a function in a new goroutine with automatic panic recovery.
//
// Example usage:
//
//	SafeGo(logger, func() {
//	    // potentially panicking code
//	})
//
// If the function panics, the panic is logged and the goroutine terminates
// without crashing the host.
func SafeGo(logger Logger, fn func()) {
	go func() {
		defer withStackRecover(logger)()
		fn()
	}()
}
