package service

import (
	"fmt"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
)

// Each error wraps one domain kind so the HTTP layer can map it to a status
// without knowing every service.
var (
	ErrBlankPassword      = fmt.Errorf("%w: password must not be blank", domain.ErrValidation)
	ErrInvalidUsername    = fmt.Errorf("%w: username must be 1-64 characters", domain.ErrValidation)
	ErrUsernameTaken      = fmt.Errorf("%w: username already exists", domain.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)

	ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	ErrTokenExpired = fmt.Errorf("%w: token expired", domain.ErrUnauthorized)

	ErrUserNotFound = fmt.Errorf("%w: user not found", domain.ErrNotFound)

	ErrAdminRequired        = fmt.Errorf("%w: ADMIN role required", domain.ErrForbidden)
	ErrNotRequestOwner      = fmt.Errorf("%w: cannot request a role for another user", domain.ErrForbidden)
	ErrRoleRequestNotFound  = fmt.Errorf("%w: role change request not found", domain.ErrNotFound)
	ErrDuplicateRoleRequest = fmt.Errorf("%w: a pending request for this role already exists", domain.ErrConflict)
	ErrRoleAlreadyHeld      = fmt.Errorf("%w: user already holds this role", domain.ErrConflict)
	ErrRequestNotPending    = fmt.Errorf("%w: role change request is no longer pending", domain.ErrInvalidState)

	ErrBootstrapDisabled     = fmt.Errorf("%w: bootstrap is not enabled", domain.ErrNotFound)
	ErrBootstrapUnauthorized = fmt.Errorf("%w: invalid bootstrap token", domain.ErrUnauthorized)
	ErrBootstrapAlready      = fmt.Errorf("%w: an administrator already exists", domain.ErrConflict)
)
