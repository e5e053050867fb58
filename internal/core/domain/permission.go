package domain

import "sort"

// Named feature permissions checked by the dashboard.
const (
	PermViewAllData  = "view_all_data"
	PermExportData   = "export_data"
	PermManageUsers  = "manage_users"
	PermViewCosts    = "view_costs"
	PermEditSettings = "edit_settings"
)

// permissions is the static permission -> allowed roles policy. It is never
// mutated after init.
var permissions = map[string][]Role{
	PermViewAllData:  {RoleAdmin, RoleManager},
	PermExportData:   {RoleAdmin, RoleManager, RoleSales, RoleSupplyChain},
	PermManageUsers:  {RoleAdmin},
	PermViewCosts:    {RoleAdmin, RoleManager, RoleSupplyChain},
	PermEditSettings: {RoleAdmin},
}

// RolesFor returns the roles allowed for a permission. Unknown names yield an
// empty set. The returned slice is a copy.
func RolesFor(permission string) []Role {
	roles := permissions[permission]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Allowed reports whether role may use the named permission.
func Allowed(permission string, role Role) bool {
	for _, r := range permissions[permission] {
		if r == role {
			return true
		}
	}
	return false
}

// PermissionNames lists every known permission in sorted order.
func PermissionNames() []string {
	names := make([]string, 0, len(permissions))
	for name := range permissions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
