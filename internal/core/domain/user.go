package domain

import "time"

// Role is one of the fixed dashboard roles stored in users.role.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleSales       Role = "sales"
	RoleSupplyChain Role = "supply_chain"
	RoleViewer      Role = "viewer"
)

var validRoles = map[Role]struct{}{
	RoleAdmin:       {},
	RoleManager:     {},
	RoleSales:       {},
	RoleSupplyChain: {},
	RoleViewer:      {},
}

// ParseRole maps a stored role value to a Role. Empty values fall back to
// viewer, the least privileged role; unknown values are rejected.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleViewer, nil
	}
	r := Role(s)
	if _, ok := validRoles[r]; !ok {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Valid reports whether r belongs to the fixed role enumeration.
func (r Role) Valid() bool {
	_, ok := validRoles[r]
	return ok
}

// Label renders the role for menus: "supply_chain" -> "Supply Chain".
func (r Role) Label() string {
	b := []byte(r)
	upper := true
	for i, c := range b {
		switch {
		case c == '_':
			b[i] = ' '
			upper = true
		case upper && c >= 'a' && c <= 'z':
			b[i] = c - 'a' + 'A'
			upper = false
		default:
			upper = false
		}
	}
	return string(b)
}

// User is the profile projection of a users row. It never carries secrets and
// is what gets serialized into session state.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	EmployeeID  *int64     `json:"employee_id"`
	IsActive    bool       `json:"is_active"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedDate *time.Time `json:"created_date"`
}

func (u *User) HasRole(role Role) bool {
	return u != nil && u.Role == role
}

func (u *User) HasAnyRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.HasRole(RoleAdmin) }
func (u *User) IsManager() bool { return u.HasRole(RoleManager) }

// CanViewAllData is granted to admins and managers.
func (u *User) CanViewAllData() bool {
	return u.HasAnyRole(RoleAdmin, RoleManager)
}

// CanExportData is granted to every role except viewer.
func (u *User) CanExportData() bool {
	return u != nil && u.Role != RoleViewer
}

// Credential is the secret half of a users row, read only for verification.
type Credential struct {
	Username     string
	PasswordHash string
	PasswordSalt string
	IsActive     bool
}
