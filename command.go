// command.go: command contracts, senders and plugin-bound commands
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"strings"
)

// CommandSender is whoever issued a command: a player session, the console
// or an automation surface. Senders are permissibles so the router can gate
// dispatch on them.
type CommandSender interface {
	Permissible

	// Name returns the display name of the sender.
	Name() string

	// SendMessage delivers a line of feedback to the sender.
	SendMessage(message string)
}

// CommandExecutor is the function form of command handling.
type CommandExecutor func(sender CommandSender, args []string) bool

// Command is a named operation the router can dispatch to. Execute returns
// whether the invocation was handled; returning false surfaces the usage
// strings to the sender.
type Command interface {
	// Name returns the primary label, registered lowercase.
	Name() string

	// Aliases returns alternative labels.
	Aliases() []string

	// Description returns the one-line help text.
	Description() string

	// Usages returns usage strings shown on failed invocations.
	Usages() []string

	// Permissions returns the permission names gating the command. Holding
	// any one of them is enough; an empty list means open to everyone.
	Permissions() []string

	// Execute runs the command with the arguments that followed the label.
	Execute(sender CommandSender, args []string) bool
}

// SimpleCommand is a function-backed Command for built-ins and hosts that
// do not need a dedicated type.
type SimpleCommand struct {
	name        string
	description string
	aliases     []string
	usages      []string
	permissions []string
	executor    CommandExecutor
}

// CommandOption configures a SimpleCommand.
type CommandOption func(*SimpleCommand)

// WithDescription sets the one-line help text.
func WithDescription(description string) CommandOption {
	return func(c *SimpleCommand) { c.description = description }
}

// WithAliases sets alternative labels.
func WithAliases(aliases ...string) CommandOption {
	return func(c *SimpleCommand) { c.aliases = aliases }
}

// WithUsages sets the usage strings.
func WithUsages(usages ...string) CommandOption {
	return func(c *SimpleCommand) { c.usages = usages }
}

// WithPermissions sets the gating permission names.
func WithPermissions(permissions ...string) CommandOption {
	return func(c *SimpleCommand) { c.permissions = permissions }
}

// NewSimpleCommand creates a function-backed command.
func NewSimpleCommand(name string, executor CommandExecutor, opts ...CommandOption) *SimpleCommand {
	cmd := &SimpleCommand{
		name:     strings.ToLower(name),
		executor: executor,
	}
	for _, opt := range opts {
		opt(cmd)
	}
	return cmd
}

// Name implements Command.
func (c *SimpleCommand) Name() string { return c.name }

// Aliases implements Command.
func (c *SimpleCommand) Aliases() []string { return c.aliases }

// Description implements Command.
func (c *SimpleCommand) Description() string { return c.description }

// Usages implements Command.
func (c *SimpleCommand) Usages() []string { return c.usages }

// Permissions implements Command.
func (c *SimpleCommand) Permissions() []string { return c.permissions }

// Execute implements Command.
func (c *SimpleCommand) Execute(sender CommandSender, args []string) bool {
	if c.executor == nil {
		return false
	}
	return c.executor(sender, args)
}

// PluginCommand binds a manifest-declared command to its owning plugin. It
// refuses to run while the plugin is disabled and otherwise forwards to the
// executor the plugin registered, falling back to the plugin's OnCommand.
//
// The plugin reference is a handle into manager-owned storage, never an
// owning pointer.
type PluginCommand struct {
	name        string
	description string
	aliases     []string
	usages      []string
	permissions []string
	plugin      Plugin
	executor    CommandExecutor
}

// NewPluginCommand creates a plugin-bound command from a manifest command
// spec.
func NewPluginCommand(spec CommandSpec, plugin Plugin) *PluginCommand {
	return &PluginCommand{
		name:        strings.ToLower(spec.Name),
		description: spec.Description,
		aliases:     append([]string(nil), spec.Aliases...),
		usages:      append([]string(nil), spec.Usages...),
		permissions: append([]string(nil), spec.Permissions...),
		plugin:      plugin,
	}
}

// Name implements Command.
func (c *PluginCommand) Name() string { return c.name }

// Aliases implements Command.
func (c *PluginCommand) Aliases() []string { return c.aliases }

// Description implements Command.
func (c *PluginCommand) Description() string { return c.description }

// Usages implements Command.
func (c *PluginCommand) Usages() []string { return c.usages }

// Permissions implements Command.
func (c *PluginCommand) Permissions() []string { return c.permissions }

// Plugin returns the owning plugin.
func (c *PluginCommand) Plugin() Plugin {
	return c.plugin
}

// SetExecutor installs the function that handles invocations. Script
// loaders use this to route into script-declared handlers.
func (c *PluginCommand) SetExecutor(executor CommandExecutor) {
	c.executor = executor
}

// Execute implements Command.
func (c *PluginCommand) Execute(sender CommandSender, args []string) bool {
	if !c.plugin.IsEnabled() {
		sender.SendMessage("Cannot execute command '" + c.name + "' while its plugin is disabled.")
		return false
	}
	if c.executor != nil {
		return c.executor(sender, args)
	}
	return c.plugin.OnCommand(sender, c, args)
}

// ConsoleSender is the host console as a command sender. Messages go to the
// runtime log and the role is RoleConsole, so default op policies apply.
type ConsoleSender struct {
	*BasePermissible
	logger Logger
}

// NewConsoleSender creates the console sender against the given registry.
func NewConsoleSender(logger Logger, registry *PermissionRegistry) *ConsoleSender {
	return &ConsoleSender{
		BasePermissible: NewBasePermissible(RoleConsole, registry),
		logger:          NewLogger(logger),
	}
}

// Name implements CommandSender.
func (c *ConsoleSender) Name() string {
	return "CONSOLE"
}

// SendMessage implements CommandSender.
func (c *ConsoleSender) SendMessage(message string) {
	c.logger.Info(message)
}
