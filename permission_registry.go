// permission_registry.go: authoritative store for permissions and their defaults
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sort"
	"strings"
	"sync"
)

// PermissionRegistry owns every registered Permission, the per-role default
// buckets derived from their policies, and the subscription bookkeeping that
// tells it which permissibles to notify when defaults move.
//
// All getters return snapshot copies; mutating a returned slice never
// touches registry state. Subscriber notification always runs outside the
// registry lock so a notified permissible may call straight back in.
type PermissionRegistry struct {
	mu           sync.RWMutex
	permissions  map[string]*Permission
	defaultPerms map[PermissibleRole]map[string]*Permission
	permSubs     map[string]map[Permissible]struct{}
	defaultSubs  map[PermissibleRole]map[Permissible]struct{}
	logger       Logger
}

// NewPermissionRegistry creates an empty registry logging through the given
// logger.
func NewPermissionRegistry(logger Logger) *PermissionRegistry {
	return &PermissionRegistry{
		permissions:  make(map[string]*Permission),
		defaultPerms: make(map[PermissibleRole]map[string]*Permission),
		permSubs:     make(map[string]map[Permissible]struct{}),
		defaultSubs:  make(map[PermissibleRole]map[Permissible]struct{}),
		logger:       NewLogger(logger),
	}
}

// AddPermission registers a permission and recomputes its default buckets,
// notifying every permissible subscribed to an affected role's defaults.
//
// Adding a name that already exists (case-insensitive) returns the existing
// object together with a DuplicatePermission error; there are never two live
// Permission objects for one name.
func (r *PermissionRegistry) AddPermission(perm *Permission) (*Permission, error) {
	return r.addPermission(perm, true)
}

// AddPermissions bulk-registers permissions with per-add notification
// deferred, then recomputes each affected role once. Duplicate entries are
// reported in the returned slice and skipped.
func (r *PermissionRegistry) AddPermissions(perms []*Permission) []error {
	var errs []error
	dirty := make(map[PermissibleRole]bool)
	for _, perm := range perms {
		added, err := r.addPermission(perm, false)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, role := range permissibleRoles() {
			if added.Default().Test(role) {
				dirty[role] = true
			}
		}
	}
	for _, role := range permissibleRoles() {
		if dirty[role] {
			r.updatePermissibles(role)
		}
	}
	return errs
}

func (r *PermissionRegistry) addPermission(perm *Permission, update bool) (*Permission, error) {
	name := perm.Name()

	r.mu.Lock()
	if existing, ok := r.permissions[name]; ok {
		r.mu.Unlock()
		r.logger.Error("Permission is already defined", "permission", name)
		return existing, NewDuplicatePermissionError(name)
	}
	r.permissions[name] = perm
	perm.registry = r
	r.mu.Unlock()

	r.calculatePermissionDefault(perm, update)
	return perm, nil
}

// RemovePermission unregisters a permission by name, purges it from every
// default bucket and recalculates affected subscribers.
func (r *PermissionRegistry) RemovePermission(name string) {
	name = strings.ToLower(name)

	r.mu.Lock()
	perm, ok := r.permissions[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.permissions, name)
	perm.registry = nil

	var dirty []PermissibleRole
	for role, bucket := range r.defaultPerms {
		if _, ok := bucket[name]; ok {
			delete(bucket, name)
			dirty = append(dirty, role)
		}
	}
	r.mu.Unlock()

	for _, role := range dirty {
		r.updatePermissibles(role)
	}
}

// RecalculatePermissionDefaults drops the permission from every role bucket,
// recomputes its membership from the current default policy and notifies
// affected subscribers. The permission's own holders re-evaluate as well,
// which covers policies that narrowed and no longer reach their role.
func (r *PermissionRegistry) RecalculatePermissionDefaults(perm *Permission) {
	r.mu.Lock()
	if _, ok := r.permissions[perm.Name()]; !ok {
		r.mu.Unlock()
		return
	}
	for _, bucket := range r.defaultPerms {
		delete(bucket, perm.Name())
	}
	holders := make([]Permissible, 0, len(r.permSubs[perm.Name()]))
	for p := range r.permSubs[perm.Name()] {
		holders = append(holders, p)
	}
	r.mu.Unlock()

	r.calculatePermissionDefault(perm, true)

	for _, p := range holders {
		p.RecalculatePermissions()
	}
}

// calculatePermissionDefault files the permission into the default bucket of
// every role its policy grants, then notifies those roles' default
// subscribers when update is set. Bulk registration passes update=false and
// sweeps once afterwards.
func (r *PermissionRegistry) calculatePermissionDefault(perm *Permission, update bool) {
	r.mu.Lock()
	var dirty []PermissibleRole
	for _, role := range permissibleRoles() {
		if perm.Default().Test(role) {
			bucket, ok := r.defaultPerms[role]
			if !ok {
				bucket = make(map[string]*Permission)
				r.defaultPerms[role] = bucket
			}
			bucket[perm.Name()] = perm
			dirty = append(dirty, role)
		}
	}
	r.mu.Unlock()

	if update {
		for _, role := range dirty {
			r.updatePermissibles(role)
		}
	}
}

// updatePermissibles recalculates every permissible subscribed to the role's
// default permissions. Runs against a snapshot so subscribers may mutate
// their subscriptions while being notified.
func (r *PermissionRegistry) updatePermissibles(role PermissibleRole) {
	r.mu.RLock()
	subs := make([]Permissible, 0, len(r.defaultSubs[role]))
	for p := range r.defaultSubs[role] {
		subs = append(subs, p)
	}
	r.mu.RUnlock()

	for _, p := range subs {
		p.RecalculatePermissions()
	}
}

// SubscribeToPermission records the permissible's interest in a permission.
// Subscribing twice is a no-op.
func (r *PermissionRegistry) SubscribeToPermission(name string, p Permissible) {
	name = strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.permSubs[name]
	if !ok {
		set = make(map[Permissible]struct{})
		r.permSubs[name] = set
	}
	set[p] = struct{}{}
}

// UnsubscribeFromPermission removes the permissible's interest in a
// permission. Unsubscribing twice is a no-op; empty sets are pruned.
func (r *PermissionRegistry) UnsubscribeFromPermission(name string, p Permissible) {
	name = strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.permSubs[name]
	if !ok {
		return
	}
	delete(set, p)
	if len(set) == 0 {
		delete(r.permSubs, name)
	}
}

// SubscribeToDefaultPermissions records the permissible's interest in the
// default permission set of its role.
func (r *PermissionRegistry) SubscribeToDefaultPermissions(role PermissibleRole, p Permissible) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.defaultSubs[role]
	if !ok {
		set = make(map[Permissible]struct{})
		r.defaultSubs[role] = set
	}
	set[p] = struct{}{}
}

// UnsubscribeFromDefaultPermissions removes the permissible from the role's
// default notification set.
func (r *PermissionRegistry) UnsubscribeFromDefaultPermissions(role PermissibleRole, p Permissible) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.defaultSubs[role]
	if !ok {
		return
	}
	delete(set, p)
	if len(set) == 0 {
		delete(r.defaultSubs, role)
	}
}

// GetPermission looks a permission up by name, case-insensitive. Returns nil
// when nothing is registered under the name.
func (r *PermissionRegistry) GetPermission(name string) *Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.permissions[strings.ToLower(name)]
}

// GetPermissions returns a snapshot of every registered permission, sorted
// by name.
func (r *PermissionRegistry) GetPermissions() []*Permission {
	r.mu.RLock()
	perms := make([]*Permission, 0, len(r.permissions))
	for _, perm := range r.permissions {
		perms = append(perms, perm)
	}
	r.mu.RUnlock()

	sort.Slice(perms, func(i, j int) bool { return perms[i].Name() < perms[j].Name() })
	return perms
}

// GetDefaultPermissions returns a snapshot of the permissions the role holds
// by default, sorted by name.
func (r *PermissionRegistry) GetDefaultPermissions(role PermissibleRole) []*Permission {
	r.mu.RLock()
	bucket := r.defaultPerms[role]
	perms := make([]*Permission, 0, len(bucket))
	for _, perm := range bucket {
		perms = append(perms, perm)
	}
	r.mu.RUnlock()

	sort.Slice(perms, func(i, j int) bool { return perms[i].Name() < perms[j].Name() })
	return perms
}

// GetPermissionSubscriptions returns a snapshot of the permissibles
// subscribed to a permission.
func (r *PermissionRegistry) GetPermissionSubscriptions(name string) []Permissible {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.permSubs[strings.ToLower(name)]
	subs := make([]Permissible, 0, len(set))
	for p := range set {
		subs = append(subs, p)
	}
	return subs
}

// GetDefaultPermSubscriptions returns a snapshot of the permissibles
// subscribed to a role's default permissions.
func (r *PermissionRegistry) GetDefaultPermSubscriptions(role PermissibleRole) []Permissible {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.defaultSubs[role]
	subs := make([]Permissible, 0, len(set))
	for p := range set {
		subs = append(subs, p)
	}
	return subs
}

// ClearPermissions drops every permission, default bucket and subscription.
func (r *PermissionRegistry) ClearPermissions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, perm := range r.permissions {
		perm.registry = nil
	}
	r.permissions = make(map[string]*Permission)
	r.defaultPerms = make(map[PermissibleRole]map[string]*Permission)
	r.permSubs = make(map[string]map[Permissible]struct{})
	r.defaultSubs = make(map[PermissibleRole]map[Permissible]struct{})
}
