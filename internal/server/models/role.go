package models

import (
	"fmt"
	"slices"
	"strings"
)

// Role is the principal's side of the marketplace. The set is closed.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleNGO       Role = "ngo"
)

// Roles lists every valid Role.
var Roles = []Role{RoleVolunteer, RoleNGO}

// ParseRole accepts the wire spelling of a role, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q, want one of %v", s, Roles)
	}
	return r, nil
}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

func (r Role) String() string { return string(r) }
