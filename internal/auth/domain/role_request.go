package domain

import (
	"fmt"
	"time"
)

// RoleRequestStatus is the state of a RoleChangeRequest.
type RoleRequestStatus string

const (
	RoleRequestPending  RoleRequestStatus = "PENDING"
	RoleRequestApproved RoleRequestStatus = "APPROVED"
	RoleRequestRejected RoleRequestStatus = "REJECTED"
)

// ErrInvalidRoleRequestStatus is returned for unknown status filters.
var ErrInvalidRoleRequestStatus = fmt.Errorf("%w: unknown role request status", ErrValidation)

// roleRequestTransitions is the full state machine. APPROVED and REJECTED
// have no outgoing edges.
var roleRequestTransitions = map[RoleRequestStatus][]RoleRequestStatus{
	RoleRequestPending: {RoleRequestApproved, RoleRequestRejected},
}

// ParseRoleRequestStatus maps a status name to a RoleRequestStatus.
func ParseRoleRequestStatus(s string) (RoleRequestStatus, error) {
	st := RoleRequestStatus(s)
	switch st {
	case RoleRequestPending, RoleRequestApproved, RoleRequestRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidRoleRequestStatus, s)
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s RoleRequestStatus) CanTransitionTo(next RoleRequestStatus) bool {
	for _, allowed := range roleRequestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s RoleRequestStatus) IsTerminal() bool {
	return len(roleRequestTransitions[s]) == 0
}

func (s RoleRequestStatus) String() string { return string(s) }

// RoleChangeRequest is a user-initiated proposal to grant an additional role.
// Only an ADMIN may move it out of PENDING, and only once.
type RoleChangeRequest struct {
	ID            string
	UserID        string
	RequestedRole Role
	Status        RoleRequestStatus
	DecidedBy     string     // admin user id, empty while pending
	DecidedAt     *time.Time // nil while pending
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RoleRequestFilter narrows ListRequests. The zero value matches everything.
type RoleRequestFilter struct {
	Status RoleRequestStatus
}
