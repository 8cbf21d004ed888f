// Package jwt issues and verifies the HS256 access and refresh tokens handed out at
// registration, login, and refresh.
//
// Access tokens carry {_id, email, userName}; refresh tokens carry only {_id}. The two
// kinds are signed with different secrets. Verification failures collapse into
// [ErrTokenExpired] and [ErrTokenInvalid] so callers can hide the distinction from clients.
package jwt
