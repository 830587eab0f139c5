package domain

// Role identifies the kind of caller acting on the system.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// ValidRole reports whether the string names a known role.
func ValidRole(r string) bool {
	switch Role(r) {
	case RoleRider, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the identity has admin privileges.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
