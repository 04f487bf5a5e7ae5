package domain

import "sort"

// Permission is a named capability bound statically to roles
type Permission string

const (
	PermViewAllData        Permission = "view_all_data"
	PermManageTasks        Permission = "manage_tasks"
	PermApproveTasks       Permission = "approve_tasks"
	PermViewTechnicalVault Permission = "view_technical_vault"
	PermManageUsers        Permission = "manage_users"
	PermManageProjects     Permission = "manage_projects"
	PermSubmitProjects     Permission = "submit_projects"
)

type permissionSet map[Permission]struct{}

func grants(perms ...Permission) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// rolePermissions is the role registry. It is never mutated after init;
// callers read it through HasPermission and PermissionsFor.
var rolePermissions = map[Role]permissionSet{
	RoleSuperAdmin: grants(
		PermViewAllData, PermManageTasks, PermApproveTasks, PermViewTechnicalVault,
		PermManageUsers, PermManageProjects,
	),
	RoleAdmin: grants(
		PermViewAllData, PermManageTasks, PermApproveTasks, PermViewTechnicalVault,
		PermManageUsers, PermManageProjects,
	),
	RoleManager: grants(
		PermViewAllData, PermManageTasks, PermApproveTasks, PermViewTechnicalVault,
		PermManageProjects,
	),
	// Developers and agency users are scoped by the visibility filter instead.
	RoleDeveloper:  grants(),
	RoleAgencyUser: grants(PermSubmitProjects),
}

// HasPermission reports whether the user's role grants the permission.
// Nil users, unknown roles and unknown permissions are denied.
func HasPermission(user *User, perm Permission) bool {
	if user == nil {
		return false
	}
	set, ok := rolePermissions[user.Role]
	if !ok {
		return false
	}
	_, granted := set[perm]
	return granted
}

// HasPermissions reports whether the user holds every listed permission.
// With no permissions it only checks that the role is known.
func HasPermissions(user *User, perms ...Permission) bool {
	if user == nil || !user.Role.Valid() {
		return false
	}
	for _, p := range perms {
		if !HasPermission(user, p) {
			return false
		}
	}
	return true
}

// PermissionsFor returns a sorted copy of the permissions granted to role
func PermissionsFor(role Role) []Permission {
	set := rolePermissions[role]
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
