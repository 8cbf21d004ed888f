package goAccount

import (
	"errors"
	"net/http"
	"strings"
)

// Error kinds. Every error returned by the Engine unwraps to exactly one of
// these, so callers can branch on the kind with errors.Is and let
// StatusCode pick the HTTP status.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnavailable    = errors.New("backend unavailable")
	ErrEngineNotReady = errors.New("engine not initialized")
)

var (
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = newKindError(ErrUnauthorized, "invalid credentials")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = newKindError(ErrNotFound, "user not found")
	// ErrVerificationNotFound is returned for an unknown or expired opaque id.
	ErrVerificationNotFound = newKindError(ErrNotFound, "verification id not found or expired")
	// ErrInvalidCode is returned for a malformed or wrong verification code.
	ErrInvalidCode = newKindError(ErrValidation, "invalid verification code")
	// ErrVerificationAttemptsExceeded is returned once a binding burned its attempts.
	ErrVerificationAttemptsExceeded = newKindError(ErrValidation, "verification attempts exceeded")
	// ErrAlreadyVerified is returned when re-issuing a code for a verified account.
	ErrAlreadyVerified = newKindError(ErrValidation, "email already verified")
	// ErrRoleNotAllowed is returned when registration asks for a privileged role.
	ErrRoleNotAllowed = newKindError(ErrValidation, "role not allowed")
	// ErrTokenMissing is returned when no access token was presented.
	ErrTokenMissing = newKindError(ErrUnauthorized, "unauthorized request")
	// ErrTokenInvalid covers bad signatures, malformed and expired access tokens.
	ErrTokenInvalid = newKindError(ErrForbidden, "invalid access token")
	// ErrRefreshInvalid is returned when a refresh token fails to verify or
	// no longer matches the stored one.
	ErrRefreshInvalid = newKindError(ErrUnauthorized, "invalid refresh token")
	// ErrAccountUnverified is returned by Login when verified accounts are required.
	ErrAccountUnverified = newKindError(ErrForbidden, "account unverified")
	// ErrLoginRateLimited is returned while the login window is exhausted.
	ErrLoginRateLimited = newKindError(ErrRateLimited, "too many login attempts")
	// ErrResendRateLimited is returned while the resend window is exhausted.
	ErrResendRateLimited = newKindError(ErrRateLimited, "too many verification requests")
	// ErrAllocationExhausted is returned when no free opaque id was found.
	ErrAllocationExhausted = newKindError(ErrUnavailable, "could not allocate verification id")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// ValidationError lists every violated input rule.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError lists every unique field whose value is already taken.
type ConflictError struct {
	Fields []string
}

func (e *ConflictError) Error() string {
	if len(e.Fields) == 0 {
		return "user already exists"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f + " already exists"
	}
	return strings.Join(parts, ", ")
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StatusCode maps err to the HTTP status the account API responds with.
// Conflicts are reported as 400, matching the registration contract.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsInternal reports whether err should be hidden behind a generic message.
func IsInternal(err error) bool {
	return StatusCode(err) >= http.StatusInternalServerError
}
