package authsdk

import "time"

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	// Error is a short machine-readable code (e.g., "conflict", "invalid_state")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned when a request body fails validation.
type ValidationErrorResponse struct {
	// Code is always "validation_error"
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details maps each failing JSON field to the reason it failed
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Auth Types
// ============================================================================

// CredentialsRequest is the body of both the register and login endpoints.
type CredentialsRequest struct {
	// Username is 1-64 characters; surrounding whitespace is trimmed
	Username string `json:"username" validate:"required,max=64"`

	// Password must contain a non-whitespace character
	Password string `json:"password" validate:"required,max=256"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	// Token is the signed JWT access token
	Token string `json:"token"`

	// ExpiresIn is the lifetime of Token in seconds
	ExpiresIn int64 `json:"expires_in"`
}

// ============================================================================
// Bootstrap Types
// ============================================================================

// BootstrapRequest describes the first administrator.
type BootstrapRequest struct {
	AdminUsername string `json:"admin_username" validate:"required,max=64"`
	AdminPassword string `json:"admin_password" validate:"required,min=8,max=256"`
}

// BootstrapResponse carries the created administrator.
type BootstrapResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// ============================================================================
// User Types
// ============================================================================

// UserResponse is the public view of a user. The password hash is never
// exposed.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`

	// Role is the most privileged role the user holds
	Role string `json:"role"`

	// Roles is the full role set, most privileged first
	Roles []string `json:"roles"`
}

// ============================================================================
// Role Change Types
// ============================================================================

const (
	RoleUser      = "USER"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"

	RoleRequestPending  = "PENDING"
	RoleRequestApproved = "APPROVED"
	RoleRequestRejected = "REJECTED"
)

// RoleChangeRequestBody is the body of the role request endpoint.
type RoleChangeRequestBody struct {
	// Role is one of USER, MODERATOR or ADMIN
	Role string `json:"role" validate:"required,oneof=USER MODERATOR ADMIN"`
}

// RoleRequestResponse is a role change request as returned by the API.
type RoleRequestResponse struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	RequestedRole string     `json:"requested_role"`
	Status        string     `json:"status"`
	DecidedBy     string     `json:"decided_by,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RoleRequestSubmittedResponse is returned when a role change is requested.
type RoleRequestSubmittedResponse struct {
	Message string              `json:"message"`
	Request RoleRequestResponse `json:"request"`
}

// MessageResponse is a bare confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by the liveness and readiness endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each readiness dependency.
type HealthChecks struct {
	Database string `json:"database"`

	// Schema is the applied migration version, or an error
	Schema string `json:"schema"`
}
