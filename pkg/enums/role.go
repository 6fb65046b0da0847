package enums

import (
	"fmt"
	"strings"
)

// Role is the account-level role that drives access decisions.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleCustomer Role = "customer"
	RoleViewer   Role = "viewer"
	RoleEditor   Role = "editor"
	RoleGuest    Role = "guest"
)

var validRoles = []Role{
	RoleOwner,
	RoleCustomer,
	RoleViewer,
	RoleEditor,
	RoleGuest,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
