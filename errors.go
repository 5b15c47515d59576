// errors.go: structured error definitions for the basalt runtime
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"github.com/agilira/go-errors"
)

// Error codes for the basalt runtime. Callers distinguish failure kinds by
// code, never by message text.
const (
	// Plugin loading errors (1000-1099)
	ErrCodeFileNotFound      = "BASALT_1001"
	ErrCodeNotADirectory     = "BASALT_1002"
	ErrCodeInvalidPluginName = "BASALT_1003"
	ErrCodeDuplicatePlugin   = "BASALT_1004"
	ErrCodeNoMatchingLoader  = "BASALT_1005"
	ErrCodeInvalidManifest   = "BASALT_1006"
	ErrCodeMissingDependency = "BASALT_1007"

	// Permission errors (2000-2099)
	ErrCodeDuplicatePermission = "BASALT_2001"
	ErrCodeUnknownPermission   = "BASALT_2002"

	// Command errors (3000-3099)
	ErrCodeUnknownCommand   = "BASALT_3001"
	ErrCodePermissionDenied = "BASALT_3002"
	ErrCodeDuplicateCommand = "BASALT_3003"

	// Event errors (4000-4099)
	ErrCodeMisusedCancellation = "BASALT_4001"
	ErrCodeAsyncViolation      = "BASALT_4002"

	// Settings and lifecycle errors (5000-5099)
	ErrCodeConfigInvalid = "BASALT_5001"
	ErrCodeRuntimeState  = "BASALT_5002"

	// Script loader errors (6000-6099)
	ErrCodeScriptFailure = "BASALT_6001"
)

// Plugin loading error constructors

func NewFileNotFoundError(path string) *errors.Error {
	return errors.New(ErrCodeFileNotFound, "File not found").
		WithUserMessage("The provided path does not exist").
		WithContext("path", path).
		WithSeverity("error")
}

func NewNotADirectoryError(path string) *errors.Error {
	return errors.New(ErrCodeNotADirectory, "Not a directory").
		WithUserMessage("The provided path is not a directory").
		WithContext("path", path).
		WithSeverity("error")
}

func NewInvalidPluginNameError(name string) *errors.Error {
	return errors.New(ErrCodeInvalidPluginName, "Invalid plugin name").
		WithUserMessage("Plugin names may only contain letters, digits, underscores and hyphens").
		WithContext("provided_name", name).
		WithSeverity("error")
}

func NewDuplicatePluginError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicatePlugin, "Duplicate plugin").
		WithUserMessage("A plugin with this name is already loaded").
		WithContext("plugin_name", name).
		WithSeverity("error")
}

func NewNoMatchingLoaderError(path string) *errors.Error {
	return errors.New(ErrCodeNoMatchingLoader, "No matching loader").
		WithUserMessage("No registered loader accepts this file").
		WithContext("path", path).
		WithSeverity("error")
}

func NewInvalidManifestError(path string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInvalidManifest, "Invalid plugin manifest").
			WithUserMessage("The plugin manifest could not be parsed").
			WithContext("path", path).
			WithSeverity("error")
	}
	return errors.New(ErrCodeInvalidManifest, "Invalid plugin manifest").
		WithUserMessage("The plugin manifest could not be parsed").
		WithContext("path", path).
		WithSeverity("error")
}

func NewMissingDependencyError(plugin, dependency string) *errors.Error {
	return errors.New(ErrCodeMissingDependency, "Missing plugin dependency").
		WithUserMessage("A plugin this plugin depends on is not loaded").
		WithContext("plugin_name", plugin).
		WithContext("dependency", dependency).
		WithSeverity("error")
}

// Permission error constructors

func NewDuplicatePermissionError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicatePermission, "Duplicate permission").
		WithUserMessage("A permission with this name is already defined").
		WithContext("permission", name).
		WithSeverity("error")
}

func NewUnknownPermissionError(name string) *errors.Error {
	return errors.New(ErrCodeUnknownPermission, "Unknown permission").
		WithUserMessage("No permission with this name is registered").
		WithContext("permission", name).
		WithSeverity("error")
}

// Command error constructors

func NewUnknownCommandError(label string) *errors.Error {
	return errors.New(ErrCodeUnknownCommand, "Unknown command").
		WithUserMessage("No command with this label is registered").
		WithContext("label", label).
		WithSeverity("warning")
}

func NewPermissionDeniedError(sender, label string) *errors.Error {
	return errors.New(ErrCodePermissionDenied, "Permission denied").
		WithUserMessage("You do not have permission to run this command").
		WithContext("sender", sender).
		WithContext("label", label).
		WithSeverity("warning")
}

func NewDuplicateCommandError(label, namespace string) *errors.Error {
	return errors.New(ErrCodeDuplicateCommand, "Duplicate command").
		WithUserMessage("Both the bare and namespaced spellings of this label are taken").
		WithContext("label", label).
		WithContext("namespace", namespace).
		WithSeverity("warning")
}

// Event error constructors

func NewMisusedCancellationError(eventName string) *errors.Error {
	return errors.New(ErrCodeMisusedCancellation, "Misused cancellation").
		WithUserMessage("This event type cannot be cancelled").
		WithContext("event", eventName).
		WithSeverity("warning")
}

func NewAsyncViolationError(eventName string, firedAsync bool) *errors.Error {
	return errors.New(ErrCodeAsyncViolation, "Async contract violation").
		WithUserMessage("The event was fired from a context that does not match its declaration").
		WithContext("event", eventName).
		WithContext("fired_async", firedAsync).
		WithSeverity("error")
}

// Settings and lifecycle error constructors

func NewRuntimeStateError(reason string) *errors.Error {
	return errors.New(ErrCodeRuntimeState, "Invalid runtime state").
		WithUserMessage("The runtime is not in a state that allows this operation").
		WithContext("reason", reason).
		WithSeverity("error")
}

func NewConfigInvalidError(field string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigInvalid, "Invalid settings").
			WithUserMessage("The server settings could not be loaded").
			WithContext("field", field).
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigInvalid, "Invalid settings").
		WithUserMessage("The server settings could not be loaded").
		WithContext("field", field).
		WithSeverity("error")
}

// Script loader error constructors

func NewScriptFailureError(plugin string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeScriptFailure, "Script execution failed").
			WithUserMessage("The plugin script raised an error").
			WithContext("plugin_name", plugin).
			WithSeverity("error")
	}
	return errors.New(ErrCodeScriptFailure, "Script execution failed").
		WithUserMessage("The plugin script raised an error").
		WithContext("plugin_name", plugin).
		WithSeverity("error")
}

// ErrorCode extracts the basalt error code from err, or "" when err is not a
// structured basalt error.
func ErrorCode(err error) string {
	if goErr, ok := err.(*errors.Error); ok {
		return string(goErr.Code)
	}
	return ""
}
