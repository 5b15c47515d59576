// command_map.go: command registration and dispatch
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sort"
	"strings"
	"sync"
)

type commandRegistration struct {
	cmd       Command
	namespace string
}

// CommandMap routes command lines to registered commands.
//
// Registration semantics: every command is always reachable under its
// namespace-qualified spelling (namespace:label); the bare label is claimed
// only when no earlier registration holds it. Aliases follow the same rule.
// Unknown commands and permission failures are messaged to the sender and
// reported through the return value, never raised.
type CommandMap struct {
	mu            sync.RWMutex
	knownCommands map[string]*commandRegistration
	logger        Logger
}

// NewCommandMap creates an empty command map logging through the given
// logger.
func NewCommandMap(logger Logger) *CommandMap {
	return &CommandMap{
		knownCommands: make(map[string]*commandRegistration),
		logger:        NewLogger(logger),
	}
}

// RegisterAll registers a batch of commands under one namespace, typically a
// plugin name. Returns how many commands claimed their bare label.
func (m *CommandMap) RegisterAll(namespace string, commands []Command) int {
	won := 0
	for _, cmd := range commands {
		if m.Register(namespace, cmd) {
			won++
		}
	}
	return won
}

// Register adds one command under the namespace. The return value reports
// whether the bare primary label was claimed; the namespaced spelling is
// registered regardless. A command whose namespaced spelling is already
// taken is dropped with a logged DuplicateCommand.
func (m *CommandMap) Register(namespace string, cmd Command) bool {
	namespace = strings.ToLower(strings.TrimSpace(namespace))
	label := strings.ToLower(strings.TrimSpace(cmd.Name()))
	if label == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	reg := &commandRegistration{cmd: cmd, namespace: namespace}

	namespaced := namespace + ":" + label
	if _, taken := m.knownCommands[namespaced]; taken {
		m.logger.Warn("Command label is taken in both spellings, dropping",
			"label", label,
			"namespace", namespace,
			"error_code", ErrCodeDuplicateCommand)
		return false
	}
	m.knownCommands[namespaced] = reg

	bareWon := false
	if _, taken := m.knownCommands[label]; !taken {
		m.knownCommands[label] = reg
		bareWon = true
	}

	for _, alias := range cmd.Aliases() {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" || alias == label {
			continue
		}
		namespacedAlias := namespace + ":" + alias
		if _, taken := m.knownCommands[namespacedAlias]; !taken {
			m.knownCommands[namespacedAlias] = reg
		}
		if _, taken := m.knownCommands[alias]; !taken {
			m.knownCommands[alias] = reg
		}
	}

	return bareWon
}

// UnregisterAll removes every command registered under the namespace, both
// spellings and aliases included.
func (m *CommandMap) UnregisterAll(namespace string) {
	namespace = strings.ToLower(strings.TrimSpace(namespace))
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, reg := range m.knownCommands {
		if reg.namespace == namespace {
			delete(m.knownCommands, key)
		}
	}
}

// Dispatch tokenizes a command line, resolves the leading token and runs the
// command with the remaining tokens as arguments.
//
// Outcomes:
//   - empty line: false, nothing happens
//   - unknown label: sender is messaged, false, no handler runs
//   - permission denied: sender is messaged, false, no handler runs
//   - otherwise: the handler's own result; a false handler result surfaces
//     the usage strings to the sender
//
// A leading slash on the line is tolerated. A panicking handler is recovered
// and logged, and the dispatch reports false.
func (m *CommandMap) Dispatch(sender CommandSender, commandLine string) bool {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(commandLine), "/"))
	if len(fields) == 0 {
		return false
	}
	label := strings.ToLower(fields[0])
	args := fields[1:]

	m.mu.RLock()
	reg, ok := m.knownCommands[label]
	m.mu.RUnlock()
	if !ok {
		m.logger.Debug("Unknown command", "label", label, "sender", sender.Name(),
			"error_code", ErrCodeUnknownCommand)
		sender.SendMessage("Unknown command: " + label + ". Type \"help\" for help.")
		return false
	}
	cmd := reg.cmd

	if !m.testPermission(sender, cmd) {
		return false
	}

	handled := func() (result bool) {
		defer withStackRecover(m.logger)()
		return cmd.Execute(sender, args)
	}()

	if !handled {
		for _, usage := range cmd.Usages() {
			sender.SendMessage("Usage: " + strings.ReplaceAll(usage, "<command>", label))
		}
	}
	return handled
}

// testPermission checks the sender against the command's permission list and
// messages the sender on failure. Holding any listed permission passes; an
// empty list always passes.
func (m *CommandMap) testPermission(sender CommandSender, cmd Command) bool {
	if testPermissionSilently(sender, cmd) {
		return true
	}
	m.logger.Debug("Permission denied", "label", cmd.Name(), "sender", sender.Name(),
		"error_code", ErrCodePermissionDenied)
	sender.SendMessage("You do not have permission to run this command.")
	return false
}

func testPermissionSilently(sender CommandSender, cmd Command) bool {
	perms := cmd.Permissions()
	if len(perms) == 0 {
		return true
	}
	for _, perm := range perms {
		if sender.HasPermission(perm) {
			return true
		}
	}
	return false
}

// TabComplete returns the known labels that extend the partial leading token
// and that the sender is allowed to run, sorted. Completion beyond the
// leading token is up to individual commands and not handled here.
func (m *CommandMap) TabComplete(sender CommandSender, partial string) []string {
	partial = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(partial), "/"))
	if strings.ContainsAny(partial, " \t") {
		return nil
	}

	m.mu.RLock()
	matches := make([]string, 0)
	for label, reg := range m.knownCommands {
		if strings.HasPrefix(label, partial) && testPermissionSilently(sender, reg.cmd) {
			matches = append(matches, label)
		}
	}
	m.mu.RUnlock()

	sort.Strings(matches)
	return matches
}

// GetCommand resolves a label or namespaced label to its command, or nil.
func (m *CommandMap) GetCommand(label string) Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if reg, ok := m.knownCommands[strings.ToLower(label)]; ok {
		return reg.cmd
	}
	return nil
}

// Commands returns a snapshot of every distinct registered command, sorted
// by primary name.
func (m *CommandMap) Commands() []Command {
	m.mu.RLock()
	seen := make(map[Command]struct{})
	cmds := make([]Command, 0, len(m.knownCommands))
	for _, reg := range m.knownCommands {
		if _, ok := seen[reg.cmd]; ok {
			continue
		}
		seen[reg.cmd] = struct{}{}
		cmds = append(cmds, reg.cmd)
	}
	m.mu.RUnlock()

	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
	return cmds
}

// Clear drops every registration.
func (m *CommandMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.knownCommands = make(map[string]*commandRegistration)
}
