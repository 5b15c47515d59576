// permission.go: permission values, default policies and permissible roles
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"strings"
)

// PermissibleRole is the coarse privilege level of a command sender. Roles
// are ordered: a higher role carries at least the privileges of the lower
// ones when a default policy tests against it.
type PermissibleRole int

const (
	RoleGuest PermissibleRole = iota
	RoleOperator
	RoleConsole
)

// String returns the role name in log-friendly form.
func (r PermissibleRole) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleOperator:
		return "operator"
	case RoleConsole:
		return "console"
	default:
		return "unknown"
	}
}

// permissibleRoles lists every role in ascending privilege order.
func permissibleRoles() []PermissibleRole {
	return []PermissibleRole{RoleGuest, RoleOperator, RoleConsole}
}

// PermissionDefault is the policy deciding which roles hold a permission
// when nothing grants or revokes it explicitly.
type PermissionDefault string

const (
	PermissionDefaultTrue  PermissionDefault = "true"
	PermissionDefaultFalse PermissionDefault = "false"
	PermissionDefaultOp    PermissionDefault = "op"
	PermissionDefaultNotOp PermissionDefault = "not_op"
)

// Test reports whether the policy grants the permission to the given role.
func (d PermissionDefault) Test(role PermissibleRole) bool {
	switch d {
	case PermissionDefaultTrue:
		return true
	case PermissionDefaultOp:
		return role >= RoleOperator
	case PermissionDefaultNotOp:
		return role < RoleOperator
	default:
		return false
	}
}

// ParsePermissionDefault maps a manifest spelling onto a policy. The zero
// spelling defaults to op, matching how plugin-declared permissions are
// usually scoped.
func ParsePermissionDefault(value string) (PermissionDefault, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return PermissionDefaultOp, nil
	case "true":
		return PermissionDefaultTrue, nil
	case "false":
		return PermissionDefaultFalse, nil
	case "op", "operator":
		return PermissionDefaultOp, nil
	case "not_op", "notop", "!op":
		return PermissionDefaultNotOp, nil
	default:
		return PermissionDefaultFalse, NewConfigInvalidError("default", nil).
			WithContext("value", value)
	}
}

// Permission is a named capability commands and plugins gate on. Names are
// case-insensitive; the canonical form is lowercase and fixed at creation.
type Permission struct {
	name         string
	description  string
	defaultValue PermissionDefault
	registry     *PermissionRegistry
}

// NewPermission creates a permission with the given canonical name,
// description and default policy.
func NewPermission(name, description string, defaultValue PermissionDefault) *Permission {
	return &Permission{
		name:         strings.ToLower(name),
		description:  description,
		defaultValue: defaultValue,
	}
}

// Name returns the canonical lowercase permission name.
func (p *Permission) Name() string {
	return p.name
}

// Description returns the human-readable description.
func (p *Permission) Description() string {
	return p.description
}

// SetDescription replaces the human-readable description.
func (p *Permission) SetDescription(description string) {
	p.description = description
}

// Default returns the default policy.
func (p *Permission) Default() PermissionDefault {
	return p.defaultValue
}

// SetDefault replaces the default policy. When the permission is registered
// the registry recomputes its default buckets and notifies subscribers.
func (p *Permission) SetDefault(defaultValue PermissionDefault) {
	p.defaultValue = defaultValue
	if p.registry != nil {
		p.registry.RecalculatePermissionDefaults(p)
	}
}
