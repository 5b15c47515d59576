// permissible.go: permission-holding actors and the stock implementation
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"strings"
	"sync"
)

// Permissible is anything that can hold permissions: players, the console,
// automation senders. The registry tracks which permissibles care about
// which permissions so default changes propagate.
type Permissible interface {
	// Role returns the coarse privilege level used by default policies.
	Role() PermissibleRole

	// HasPermission reports whether the permission is granted, falling back
	// to the permission's default policy when nothing set it explicitly.
	HasPermission(name string) bool

	// IsPermissionSet reports whether the permission is explicitly present
	// in the permissible's effective set.
	IsPermissionSet(name string) bool

	// RecalculatePermissions rebuilds the effective set from registry
	// defaults and explicit grants. The registry calls this when defaults
	// change.
	RecalculatePermissions()
}

// BasePermissible is the stock Permissible implementation. It keeps an
// effective permission set assembled from the registry's role defaults plus
// explicit grants, and re-subscribes itself on every rebuild so the registry
// knows who to notify.
type BasePermissible struct {
	mu       sync.RWMutex
	role     PermissibleRole
	registry *PermissionRegistry

	granted   map[string]bool
	effective map[string]bool
}

// NewBasePermissible creates a permissible with the given role, subscribes
// it to the registry's default permissions for that role and computes its
// initial effective set.
func NewBasePermissible(role PermissibleRole, registry *PermissionRegistry) *BasePermissible {
	p := &BasePermissible{
		role:      role,
		registry:  registry,
		granted:   make(map[string]bool),
		effective: make(map[string]bool),
	}
	registry.SubscribeToDefaultPermissions(role, p)
	p.RecalculatePermissions()
	return p
}

// Role implements Permissible.
func (p *BasePermissible) Role() PermissibleRole {
	return p.role
}

// HasPermission implements Permissible.
func (p *BasePermissible) HasPermission(name string) bool {
	name = strings.ToLower(name)

	p.mu.RLock()
	value, ok := p.effective[name]
	p.mu.RUnlock()
	if ok {
		return value
	}

	if perm := p.registry.GetPermission(name); perm != nil {
		return perm.Default().Test(p.role)
	}
	return false
}

// IsPermissionSet implements Permissible.
func (p *BasePermissible) IsPermissionSet(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.effective[strings.ToLower(name)]
	return ok
}

// SetPermission grants or revokes a permission explicitly and rebuilds the
// effective set. Explicit values shadow registry defaults.
func (p *BasePermissible) SetPermission(name string, value bool) {
	p.mu.Lock()
	p.granted[strings.ToLower(name)] = value
	p.mu.Unlock()
	p.RecalculatePermissions()
}

// UnsetPermission removes an explicit grant and rebuilds the effective set.
func (p *BasePermissible) UnsetPermission(name string) {
	p.mu.Lock()
	delete(p.granted, strings.ToLower(name))
	p.mu.Unlock()
	p.RecalculatePermissions()
}

// RecalculatePermissions implements Permissible. The previous effective set
// is dropped, per-permission subscriptions are refreshed, and the set is
// rebuilt from role defaults with explicit grants layered on top.
func (p *BasePermissible) RecalculatePermissions() {
	p.mu.Lock()
	old := p.effective
	p.effective = make(map[string]bool)

	for _, perm := range p.registry.GetDefaultPermissions(p.role) {
		p.effective[perm.Name()] = true
	}
	for name, value := range p.granted {
		p.effective[name] = value
	}

	added := make([]string, 0, len(p.effective))
	removed := make([]string, 0)
	for name := range p.effective {
		if _, ok := old[name]; !ok {
			added = append(added, name)
		}
	}
	for name := range old {
		if _, ok := p.effective[name]; !ok {
			removed = append(removed, name)
		}
	}
	p.mu.Unlock()

	// Subscription upkeep happens outside the lock: the registry takes its
	// own lock and may call back into other permissibles.
	for _, name := range removed {
		p.registry.UnsubscribeFromPermission(name, p)
	}
	for _, name := range added {
		p.registry.SubscribeToPermission(name, p)
	}
}

// Close detaches the permissible from the registry. After Close the
// registry stops notifying it about default changes.
func (p *BasePermissible) Close() {
	p.mu.Lock()
	effective := p.effective
	p.effective = make(map[string]bool)
	p.mu.Unlock()

	for name := range effective {
		p.registry.UnsubscribeFromPermission(name, p)
	}
	p.registry.UnsubscribeFromDefaultPermissions(p.role, p)
}
