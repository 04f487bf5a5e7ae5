package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermissionBindings(t *testing.T) {
	core := []Permission{PermViewAllData, PermManageTasks, PermApproveTasks, PermViewTechnicalVault}

	for _, role := range []Role{RoleSuperAdmin, RoleAdmin, RoleManager} {
		for _, p := range core {
			assert.Truef(t, HasPermission(&User{Role: role}, p), "%s should hold %s", role, p)
		}
	}
	for _, role := range []Role{RoleDeveloper, RoleAgencyUser} {
		for _, p := range core {
			assert.Falsef(t, HasPermission(&User{Role: role}, p), "%s should not hold %s", role, p)
		}
	}

	assert.True(t, HasPermission(&User{Role: RoleAdmin}, PermManageUsers))
	assert.False(t, HasPermission(&User{Role: RoleManager}, PermManageUsers))
	assert.True(t, HasPermission(&User{Role: RoleAgencyUser}, PermSubmitProjects))
	assert.False(t, HasPermission(&User{Role: RoleManager}, PermSubmitProjects))
}

func TestHasPermissionFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		user *User
		perm Permission
	}{
		{"nil user", nil, PermViewAllData},
		{"unknown role", &User{Role: "owner"}, PermViewAllData},
		{"empty role", &User{}, PermManageTasks},
		{"unknown permission", &User{Role: RoleSuperAdmin}, Permission("delete_everything")},
		{"empty permission", &User{Role: RoleAdmin}, Permission("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, HasPermission(tt.user, tt.perm))
		})
	}
}

func TestHasPermissionIsIdempotent(t *testing.T) {
	users := []*User{nil, {Role: RoleManager}, {Role: RoleDeveloper}, {Role: "ghost"}}
	perms := []Permission{PermViewAllData, PermApproveTasks, "nope"}

	for _, u := range users {
		for _, p := range perms {
			first := HasPermission(u, p)
			second := HasPermission(u, p)
			assert.Equal(t, first, second)
		}
	}
}

func TestHasPermissions(t *testing.T) {
	manager := &User{Role: RoleManager}

	assert.True(t, HasPermissions(manager, PermManageTasks, PermApproveTasks))
	assert.False(t, HasPermissions(manager, PermManageTasks, PermManageUsers), "conjunction, not disjunction")
	assert.True(t, HasPermissions(manager), "known role with empty list")
	assert.True(t, HasPermissions(&User{Role: RoleDeveloper}))
	assert.False(t, HasPermissions(&User{Role: "ghost"}))
	assert.False(t, HasPermissions(nil))
}

func TestPermissionsFor(t *testing.T) {
	perms := PermissionsFor(RoleManager)
	assert.Equal(t, []Permission{
		PermApproveTasks, PermManageProjects, PermManageTasks, PermViewAllData, PermViewTechnicalVault,
	}, perms)

	// Mutating the copy must not leak into the registry.
	perms[0] = PermManageUsers
	assert.False(t, HasPermission(&User{Role: RoleManager}, PermManageUsers))

	assert.Empty(t, PermissionsFor(RoleDeveloper))
	assert.NotNil(t, PermissionsFor(Role("ghost")))
}
