package domain

import (
	"slices"
	"time"
)

// User is a stored account and the roles it holds.
type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2id PHC string
	Roles        []Role // never empty once persisted
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds r.
func (u User) HasRole(r Role) bool {
	return slices.Contains(u.Roles, r)
}

// PrimaryRole returns the most privileged role the user holds, or USER when
// the role set is empty.
func (u User) PrimaryRole() Role {
	return primaryOf(u.Roles)
}

// SortedRoles returns the role set ordered from most to least privileged.
func (u User) SortedRoles() []Role {
	return SortRoles(u.Roles)
}

// RoleNames returns the role set as plain strings, most privileged first.
func (u User) RoleNames() []string {
	sorted := u.SortedRoles()
	names := make([]string, len(sorted))
	for i, r := range sorted {
		names[i] = r.String()
	}
	return names
}

// Actor returns the identity used when u performs an operation.
func (u User) Actor() Actor {
	return Actor{UserID: u.ID, Roles: u.Roles}
}

// SortRoles returns a copy of roles ordered from most to least privileged,
// without duplicates.
func SortRoles(roles []Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Role) int { return rank(a) - rank(b) })
	return out
}

func primaryOf(roles []Role) Role {
	sorted := SortRoles(roles)
	if len(sorted) == 0 {
		return RoleUser
	}
	return sorted[0]
}

// Actor is the caller of an operation, resolved once at the API boundary and
// passed down explicitly.
type Actor struct {
	UserID string
	Roles  []Role
}

func (a Actor) HasRole(r Role) bool {
	return slices.Contains(a.Roles, r)
}

func (a Actor) IsAdmin() bool { return a.HasRole(RoleAdmin) }
