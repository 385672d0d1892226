package domain

import (
	"fmt"
	"strings"
)

// Role is a capability tier granted to a user. The set is closed.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// ErrInvalidRole is returned when a string does not name a known Role.
var ErrInvalidRole = fmt.Errorf("%w: unknown role", ErrValidation)

// rolePrecedence lists roles from most to least privileged. PrimaryRole picks
// the first entry a user holds.
var rolePrecedence = []Role{RoleAdmin, RoleModerator, RoleUser}

// ParseRole maps a role name such as "ADMIN" to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is part of the enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

func rank(r Role) int {
	for i, candidate := range rolePrecedence {
		if candidate == r {
			return i
		}
	}
	return len(rolePrecedence)
}
