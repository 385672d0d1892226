package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes used in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeValidation        = "validation_error"
	ErrorCodeUnauthorized      = "unauthorized"
	ErrorCodeForbidden         = "forbidden"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeConflict          = "conflict"
	ErrorCodeInvalidState      = "invalid_state"
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrorCodeServerError       = "server_error"
)

// ErrSessionExpired is returned by Session methods once the access token has
// expired. Log in again to continue.
var ErrSessionExpired = errors.New("authsdk: session expired")

// APIError is a non-success response from the service.
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Code is the error code (e.g., "conflict", "invalid_state")
	Code string

	// Description is a human-readable description of the error
	Description string

	// Details holds per-field reasons for validation errors
	Details map[string]string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	var valErr ValidationErrorResponse
	if err := json.Unmarshal(body, &valErr); err == nil && valErr.Code != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        valErr.Code,
			Description: valErr.Message,
			Details:     valErr.Details,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
