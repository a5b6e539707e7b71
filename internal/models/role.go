package models

// Role is the coarse authorization tier attached to a user
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Roles lists every role a user may hold
var Roles = []Role{RoleUser, RoleAdmin, RoleManager}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// NormalizeRole maps absent or unknown roles to RoleUser
func NormalizeRole(role string) Role {
	r := Role(role)
	if !r.Valid() {
		return RoleUser
	}
	return r
}
