// command_defaults.go: built-in commands shipped with every runtime
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"fmt"
	"sort"
	"strings"
)

// builtinNamespace is the fallback prefix for commands owned by the runtime
// itself, so "/version" stays reachable as "/basalt:version" even when a
// plugin claims the bare label.
const builtinNamespace = "basalt"

// Permission names guarding the built-in commands.
const (
	PermissionCommandVersion = "basalt.command.version"
	PermissionCommandPlugins = "basalt.command.plugins"
	PermissionCommandReload  = "basalt.command.reload"
	PermissionCommandHelp    = "basalt.command.help"
)

// registerBuiltinCommands installs the runtime's own commands and their
// permissions. Reload is operator-only; the rest default to everyone.
func (r *Runtime) registerBuiltinCommands() {
	perms := []*Permission{
		NewPermission(PermissionCommandVersion, "Allows the user to query the runtime version", PermissionDefaultTrue),
		NewPermission(PermissionCommandPlugins, "Allows the user to list loaded plugins", PermissionDefaultTrue),
		NewPermission(PermissionCommandReload, "Allows the user to reload all plugins", PermissionDefaultOp),
		NewPermission(PermissionCommandHelp, "Allows the user to browse command help", PermissionDefaultTrue),
	}
	for _, err := range r.permissions.AddPermissions(perms) {
		r.logger.Warn("Skipping built-in permission", "error", err)
	}

	commands := []Command{
		NewSimpleCommand("version", r.versionCommand,
			WithDescription("Shows the version of the server"),
			WithAliases("ver", "about"),
			WithUsages("/version"),
			WithPermissions(PermissionCommandVersion)),
		NewSimpleCommand("plugins", r.pluginsCommand,
			WithDescription("Lists the plugins loaded on the server"),
			WithAliases("pl"),
			WithUsages("/plugins"),
			WithPermissions(PermissionCommandPlugins)),
		NewSimpleCommand("reload", r.reloadCommand,
			WithDescription("Reloads all plugins"),
			WithAliases("rl"),
			WithUsages("/reload"),
			WithPermissions(PermissionCommandReload)),
		NewSimpleCommand("help", r.helpCommand,
			WithDescription("Shows help for the available commands"),
			WithAliases("?"),
			WithUsages("/help [command]"),
			WithPermissions(PermissionCommandHelp)),
	}
	r.commands.RegisterAll(builtinNamespace, commands)
}

func (r *Runtime) versionCommand(sender CommandSender, args []string) bool {
	settings := r.Settings()
	sender.SendMessage(fmt.Sprintf("This server is running Basalt v%s (Minecraft v%s)",
		Version, settings.MinecraftVersion))
	return true
}

func (r *Runtime) pluginsCommand(sender CommandSender, args []string) bool {
	plugins := r.manager.GetPlugins()
	names := make([]string, 0, len(plugins))
	for _, plugin := range plugins {
		label := plugin.Description().FullName()
		if !plugin.IsEnabled() {
			label += " (disabled)"
		}
		names = append(names, label)
	}
	sort.Strings(names)
	sender.SendMessage(fmt.Sprintf("Plugins (%d): %s", len(names), strings.Join(names, ", ")))
	return true
}

func (r *Runtime) reloadCommand(sender CommandSender, args []string) bool {
	sender.SendMessage("Reloading plugins. Note that reload cannot recover plugins holding live resources; prefer a full restart when in doubt.")
	if err := r.Reload(); err != nil {
		sender.SendMessage("Reload failed: " + err.Error())
		return true
	}
	sender.SendMessage("Reload complete.")
	return true
}

func (r *Runtime) helpCommand(sender CommandSender, args []string) bool {
	if len(args) > 0 {
		return r.helpForCommand(sender, args[0])
	}

	lines := make([]string, 0)
	for _, cmd := range r.commands.Commands() {
		if !testPermissionSilently(sender, cmd) {
			continue
		}
		lines = append(lines, fmt.Sprintf("/%s: %s", cmd.Name(), cmd.Description()))
	}
	sender.SendMessage(fmt.Sprintf("Available commands (%d):", len(lines)))
	for _, line := range lines {
		sender.SendMessage(line)
	}
	return true
}

func (r *Runtime) helpForCommand(sender CommandSender, topic string) bool {
	label := strings.ToLower(strings.TrimSpace(topic))
	cmd := r.commands.GetCommand(label)
	if cmd == nil || !testPermissionSilently(sender, cmd) {
		sender.SendMessage("Unknown command: " + label + ". Type \"help\" for help.")
		return false
	}

	sender.SendMessage(fmt.Sprintf("/%s: %s", cmd.Name(), cmd.Description()))
	for _, usage := range cmd.Usages() {
		sender.SendMessage("Usage: " + strings.ReplaceAll(usage, "<command>", cmd.Name()))
	}
	if aliases := cmd.Aliases(); len(aliases) > 0 {
		sender.SendMessage("Aliases: " + strings.Join(aliases, ", "))
	}
	return true
}
