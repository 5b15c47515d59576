// permission_test.go: permission registry, defaults and permissible tests
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingPermissible records how many times the registry asked it to
// recalculate. It never resolves permissions itself.
type countingPermissible struct {
	role    PermissibleRole
	recalcs atomic.Int32
}

func (c *countingPermissible) Role() PermissibleRole       { return c.role }
func (c *countingPermissible) HasPermission(string) bool   { return false }
func (c *countingPermissible) IsPermissionSet(string) bool { return false }
func (c *countingPermissible) RecalculatePermissions()     { c.recalcs.Add(1) }

func TestPermissionRegistry_AddPermission(t *testing.T) {
	t.Run("registers_and_folds_names", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())

		perm, err := registry.AddPermission(NewPermission("MyPlugin.Feature", "test permission", PermissionDefaultTrue))
		require.NoError(t, err)
		require.NotNil(t, perm)
		assert.Equal(t, "myplugin.feature", perm.Name())

		assert.Same(t, perm, registry.GetPermission("myplugin.feature"))
		assert.Same(t, perm, registry.GetPermission("MYPLUGIN.FEATURE"))
		assert.Same(t, perm, registry.GetPermission("MyPlugin.Feature"))
	})

	t.Run("duplicate_returns_existing_object_and_error", func(t *testing.T) {
		logger := NewTestLogger()
		registry := NewPermissionRegistry(logger)

		first, err := registry.AddPermission(NewPermission("chat.use", "first", PermissionDefaultTrue))
		require.NoError(t, err)

		second, err := registry.AddPermission(NewPermission("Chat.Use", "second", PermissionDefaultFalse))
		require.Error(t, err)
		assert.Equal(t, ErrCodeDuplicatePermission, ErrorCode(err))
		assert.Same(t, first, second)

		// The original registration is untouched.
		assert.Equal(t, "first", first.Description())
		assert.Equal(t, PermissionDefaultTrue, first.Default())
		assert.Len(t, registry.GetPermissions(), 1)

		assert.True(t, logger.HasMessage("ERROR", "Permission is already defined"))
	})

	t.Run("default_buckets_follow_role_policy", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())

		everyone, err := registry.AddPermission(NewPermission("perm.everyone", "", PermissionDefaultTrue))
		require.NoError(t, err)
		nobody, err := registry.AddPermission(NewPermission("perm.nobody", "", PermissionDefaultFalse))
		require.NoError(t, err)
		ops, err := registry.AddPermission(NewPermission("perm.ops", "", PermissionDefaultOp))
		require.NoError(t, err)
		guests, err := registry.AddPermission(NewPermission("perm.guests", "", PermissionDefaultNotOp))
		require.NoError(t, err)

		assert.ElementsMatch(t, []*Permission{everyone, guests}, registry.GetDefaultPermissions(RoleGuest))
		assert.ElementsMatch(t, []*Permission{everyone, ops}, registry.GetDefaultPermissions(RoleOperator))
		assert.ElementsMatch(t, []*Permission{everyone, ops}, registry.GetDefaultPermissions(RoleConsole))
		assert.NotContains(t, registry.GetDefaultPermissions(RoleGuest), nobody)
	})

	t.Run("get_permissions_is_sorted", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())

		for _, name := range []string{"zeta.perm", "alpha.perm", "mid.perm"} {
			_, err := registry.AddPermission(NewPermission(name, "", PermissionDefaultFalse))
			require.NoError(t, err)
		}

		var names []string
		for _, perm := range registry.GetPermissions() {
			names = append(names, perm.Name())
		}
		assert.Equal(t, []string{"alpha.perm", "mid.perm", "zeta.perm"}, names)
	})
}

func TestPermissionRegistry_BulkAdd(t *testing.T) {
	t.Run("collects_errors_per_permission", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())

		_, err := registry.AddPermission(NewPermission("taken.perm", "", PermissionDefaultTrue))
		require.NoError(t, err)

		errs := registry.AddPermissions([]*Permission{
			NewPermission("fresh.one", "", PermissionDefaultTrue),
			NewPermission("taken.perm", "", PermissionDefaultTrue),
			NewPermission("fresh.two", "", PermissionDefaultTrue),
		})
		require.Len(t, errs, 1)
		assert.Equal(t, ErrCodeDuplicatePermission, ErrorCode(errs[0]))

		assert.NotNil(t, registry.GetPermission("fresh.one"))
		assert.NotNil(t, registry.GetPermission("fresh.two"))
	})

	t.Run("recalculates_once_per_dirty_role", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())

		counter := &countingPermissible{role: RoleGuest}
		registry.SubscribeToDefaultPermissions(RoleGuest, counter)

		errs := registry.AddPermissions([]*Permission{
			NewPermission("bulk.one", "", PermissionDefaultTrue),
			NewPermission("bulk.two", "", PermissionDefaultTrue),
			NewPermission("bulk.three", "", PermissionDefaultTrue),
		})
		require.Empty(t, errs)

		// One sweep for the guest bucket, not one per permission.
		assert.Equal(t, int32(1), counter.recalcs.Load())
	})

	t.Run("skips_roles_the_defaults_never_touch", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())

		guest := &countingPermissible{role: RoleGuest}
		operator := &countingPermissible{role: RoleOperator}
		registry.SubscribeToDefaultPermissions(RoleGuest, guest)
		registry.SubscribeToDefaultPermissions(RoleOperator, operator)

		errs := registry.AddPermissions([]*Permission{
			NewPermission("ops.only", "", PermissionDefaultOp),
		})
		require.Empty(t, errs)

		assert.Equal(t, int32(0), guest.recalcs.Load())
		assert.Equal(t, int32(1), operator.recalcs.Load())
	})
}

func TestPermissionRegistry_DefaultRecalculation(t *testing.T) {
	t.Run("single_add_notifies_role_subscribers", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())

		counter := &countingPermissible{role: RoleGuest}
		registry.SubscribeToDefaultPermissions(RoleGuest, counter)

		_, err := registry.AddPermission(NewPermission("solo.perm", "", PermissionDefaultTrue))
		require.NoError(t, err)
		assert.Equal(t, int32(1), counter.recalcs.Load())
	})

	t.Run("set_default_widens_and_grants", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		perm, err := registry.AddPermission(NewPermission("gate.perm", "", PermissionDefaultFalse))
		require.NoError(t, err)

		guest := NewBasePermissible(RoleGuest, registry)
		defer guest.Close()
		assert.False(t, guest.HasPermission("gate.perm"))

		perm.SetDefault(PermissionDefaultTrue)

		assert.True(t, guest.HasPermission("gate.perm"))
		assert.Contains(t, registry.GetDefaultPermissions(RoleGuest), perm)
	})

	t.Run("set_default_narrows_and_revokes", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		perm, err := registry.AddPermission(NewPermission("fade.perm", "", PermissionDefaultTrue))
		require.NoError(t, err)

		guest := NewBasePermissible(RoleGuest, registry)
		defer guest.Close()
		require.True(t, guest.HasPermission("fade.perm"))

		perm.SetDefault(PermissionDefaultFalse)

		assert.False(t, guest.HasPermission("fade.perm"))
		assert.NotContains(t, registry.GetDefaultPermissions(RoleGuest), perm)
	})

	t.Run("set_default_retargets_roles", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		perm, err := registry.AddPermission(NewPermission("shift.perm", "", PermissionDefaultNotOp))
		require.NoError(t, err)

		guest := NewBasePermissible(RoleGuest, registry)
		defer guest.Close()
		operator := NewBasePermissible(RoleOperator, registry)
		defer operator.Close()

		require.True(t, guest.HasPermission("shift.perm"))
		require.False(t, operator.HasPermission("shift.perm"))

		perm.SetDefault(PermissionDefaultOp)

		assert.False(t, guest.HasPermission("shift.perm"))
		assert.True(t, operator.HasPermission("shift.perm"))
	})

	t.Run("recalculate_ignores_unregistered_permissions", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())

		counter := &countingPermissible{role: RoleGuest}
		registry.SubscribeToDefaultPermissions(RoleGuest, counter)

		loose := NewPermission("loose.perm", "", PermissionDefaultTrue)
		registry.RecalculatePermissionDefaults(loose)

		assert.Equal(t, int32(0), counter.recalcs.Load())
		assert.Empty(t, registry.GetDefaultPermissions(RoleGuest))
	})
}

func TestPermissionRegistry_Subscriptions(t *testing.T) {
	t.Run("permission_subscription_set_semantics", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		permissible := &countingPermissible{role: RoleGuest}

		registry.SubscribeToPermission("Chat.Use", permissible)
		registry.SubscribeToPermission("chat.use", permissible)
		assert.Len(t, registry.GetPermissionSubscriptions("chat.use"), 1)

		registry.UnsubscribeFromPermission("CHAT.USE", permissible)
		assert.Empty(t, registry.GetPermissionSubscriptions("chat.use"))

		// A second unsubscribe is a harmless no-op.
		registry.UnsubscribeFromPermission("chat.use", permissible)
		assert.Empty(t, registry.GetPermissionSubscriptions("chat.use"))
	})

	t.Run("default_subscription_set_semantics", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		permissible := &countingPermissible{role: RoleOperator}

		registry.SubscribeToDefaultPermissions(RoleOperator, permissible)
		registry.SubscribeToDefaultPermissions(RoleOperator, permissible)
		assert.Len(t, registry.GetDefaultPermSubscriptions(RoleOperator), 1)

		registry.UnsubscribeFromDefaultPermissions(RoleOperator, permissible)
		assert.Empty(t, registry.GetDefaultPermSubscriptions(RoleOperator))

		registry.UnsubscribeFromDefaultPermissions(RoleOperator, permissible)
		assert.Empty(t, registry.GetDefaultPermSubscriptions(RoleOperator))
	})

	t.Run("subscriptions_are_tracked_per_permissible", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		first := &countingPermissible{role: RoleGuest}
		second := &countingPermissible{role: RoleGuest}

		registry.SubscribeToPermission("shared.perm", first)
		registry.SubscribeToPermission("shared.perm", second)
		assert.Len(t, registry.GetPermissionSubscriptions("shared.perm"), 2)

		registry.UnsubscribeFromPermission("shared.perm", first)
		subs := registry.GetPermissionSubscriptions("shared.perm")
		require.Len(t, subs, 1)
		assert.Same(t, second, subs[0].(*countingPermissible))
	})
}

func TestPermissionRegistry_RemovePermission(t *testing.T) {
	t.Run("purges_lookup_and_buckets", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		_, err := registry.AddPermission(NewPermission("gone.perm", "", PermissionDefaultTrue))
		require.NoError(t, err)

		guest := NewBasePermissible(RoleGuest, registry)
		defer guest.Close()
		require.True(t, guest.HasPermission("gone.perm"))

		registry.RemovePermission("GONE.PERM")

		assert.Nil(t, registry.GetPermission("gone.perm"))
		assert.Empty(t, registry.GetDefaultPermissions(RoleGuest))
		assert.False(t, guest.HasPermission("gone.perm"))
	})

	t.Run("removing_unknown_permission_is_noop", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		registry.RemovePermission("never.added")
		assert.Empty(t, registry.GetPermissions())
	})
}

func TestPermissionRegistry_Clear(t *testing.T) {
	registry := NewPermissionRegistry(NewTestLogger())

	perm, err := registry.AddPermission(NewPermission("wipe.perm", "", PermissionDefaultTrue))
	require.NoError(t, err)
	counter := &countingPermissible{role: RoleGuest}
	registry.SubscribeToDefaultPermissions(RoleGuest, counter)
	registry.SubscribeToPermission("wipe.perm", counter)

	registry.ClearPermissions()

	assert.Empty(t, registry.GetPermissions())
	assert.Empty(t, registry.GetDefaultPermissions(RoleGuest))
	assert.Empty(t, registry.GetPermissionSubscriptions("wipe.perm"))
	assert.Empty(t, registry.GetDefaultPermSubscriptions(RoleGuest))

	// A cleared registry accepts the permission again as a fresh object.
	again, err := registry.AddPermission(NewPermission("wipe.perm", "", PermissionDefaultTrue))
	require.NoError(t, err)
	assert.NotSame(t, perm, again)
}

func TestBasePermissible(t *testing.T) {
	t.Run("defaults_follow_role", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		_, err := registry.AddPermission(NewPermission("perm.everyone", "", PermissionDefaultTrue))
		require.NoError(t, err)
		_, err = registry.AddPermission(NewPermission("perm.ops", "", PermissionDefaultOp))
		require.NoError(t, err)

		guest := NewBasePermissible(RoleGuest, registry)
		defer guest.Close()
		operator := NewBasePermissible(RoleOperator, registry)
		defer operator.Close()
		console := NewBasePermissible(RoleConsole, registry)
		defer console.Close()

		assert.True(t, guest.HasPermission("perm.everyone"))
		assert.False(t, guest.HasPermission("perm.ops"))
		assert.True(t, operator.HasPermission("perm.ops"))
		assert.True(t, console.HasPermission("perm.ops"))
	})

	t.Run("explicit_grant_overrides_policy", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		_, err := registry.AddPermission(NewPermission("vault.open", "", PermissionDefaultFalse))
		require.NoError(t, err)

		guest := NewBasePermissible(RoleGuest, registry)
		defer guest.Close()
		require.False(t, guest.HasPermission("vault.open"))

		guest.SetPermission("Vault.Open", true)
		assert.True(t, guest.HasPermission("vault.open"))
		assert.True(t, guest.IsPermissionSet("vault.open"))
	})

	t.Run("explicit_revoke_overrides_default_true", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		_, err := registry.AddPermission(NewPermission("chat.use", "", PermissionDefaultTrue))
		require.NoError(t, err)

		guest := NewBasePermissible(RoleGuest, registry)
		defer guest.Close()
		require.True(t, guest.HasPermission("chat.use"))

		guest.SetPermission("chat.use", false)
		assert.False(t, guest.HasPermission("chat.use"))
		assert.True(t, guest.IsPermissionSet("chat.use"))

		guest.UnsetPermission("chat.use")
		assert.True(t, guest.HasPermission("chat.use"))
	})

	t.Run("unset_lookup_falls_back_to_registered_default", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		_, err := registry.AddPermission(NewPermission("build.place", "", PermissionDefaultOp))
		require.NoError(t, err)

		operator := NewBasePermissible(RoleOperator, registry)
		defer operator.Close()

		// The effective set already holds op defaults, so force the
		// fallback path with a permission outside any bucket.
		_, err = registry.AddPermission(NewPermission("build.break", "", PermissionDefaultFalse))
		require.NoError(t, err)

		assert.False(t, operator.IsPermissionSet("build.break"))
		assert.False(t, operator.HasPermission("build.break"))
		assert.False(t, operator.HasPermission("never.registered"))
	})

	t.Run("close_detaches_subscriptions", func(t *testing.T) {
		registry := NewPermissionRegistry(NewTestLogger())
		guest := NewBasePermissible(RoleGuest, registry)

		require.Len(t, registry.GetDefaultPermSubscriptions(RoleGuest), 1)

		guest.Close()

		assert.Empty(t, registry.GetDefaultPermSubscriptions(RoleGuest))
	})
}

func TestParsePermissionDefault(t *testing.T) {
	cases := []struct {
		value   string
		want    PermissionDefault
		wantErr bool
	}{
		{"", PermissionDefaultOp, false},
		{"true", PermissionDefaultTrue, false},
		{"TRUE", PermissionDefaultTrue, false},
		{"false", PermissionDefaultFalse, false},
		{"op", PermissionDefaultOp, false},
		{"operator", PermissionDefaultOp, false},
		{"not_op", PermissionDefaultNotOp, false},
		{"notop", PermissionDefaultNotOp, false},
		{"!op", PermissionDefaultNotOp, false},
		{"sometimes", PermissionDefaultFalse, true},
	}

	for _, tc := range cases {
		got, err := ParsePermissionDefault(tc.value)
		if tc.wantErr {
			require.Error(t, err, "value %q", tc.value)
			assert.Equal(t, ErrCodeConfigInvalid, ErrorCode(err))
		} else {
			require.NoError(t, err, "value %q", tc.value)
		}
		assert.Equal(t, tc.want, got, "value %q", tc.value)
	}
}

func TestPermissionDefault_Test(t *testing.T) {
	cases := []struct {
		def  PermissionDefault
		role PermissibleRole
		want bool
	}{
		{PermissionDefaultTrue, RoleGuest, true},
		{PermissionDefaultTrue, RoleOperator, true},
		{PermissionDefaultTrue, RoleConsole, true},
		{PermissionDefaultFalse, RoleGuest, false},
		{PermissionDefaultFalse, RoleConsole, false},
		{PermissionDefaultOp, RoleGuest, false},
		{PermissionDefaultOp, RoleOperator, true},
		{PermissionDefaultOp, RoleConsole, true},
		{PermissionDefaultNotOp, RoleGuest, true},
		{PermissionDefaultNotOp, RoleOperator, false},
		{PermissionDefaultNotOp, RoleConsole, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.def.Test(tc.role), "%s for %s", tc.def, tc.role)
	}
}
