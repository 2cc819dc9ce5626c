package auth

import "slices"

// Role represents an authorisation tier.
type Role string

const (
	// RoleViewer may read device properties and history.
	RoleViewer Role = "viewer"

	// RoleOperator may also start refresh passes.
	RoleOperator Role = "operator"

	// RoleAdmin has every permission.
	RoleAdmin Role = "admin"
)

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermDeviceRead    Permission = "device:read"
	PermDeviceRefresh Permission = "device:refresh"
	PermSystemAdmin   Permission = "system:admin"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer:   {PermDeviceRead},
	RoleOperator: {PermDeviceRead, PermDeviceRefresh},
	RoleAdmin:    {PermDeviceRead, PermDeviceRefresh, PermSystemAdmin},
}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	_, ok := rolePermissions[r]
	return ok
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}
