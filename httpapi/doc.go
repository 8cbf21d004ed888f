// Package httpapi serves the account endpoints over net/http.
//
// Routes live under /api/<version>/user:
//
//	POST   /                register
//	POST   /login           login, sets accessToken and refreshToken cookies
//	POST   /refresh         rotate tokens (cookie or {"refreshToken": ...})
//	POST   /verify          confirm an email OTP ({"id", "code"})
//	GET    /                current user            (guarded)
//	PATCH  /                update profile          (guarded)
//	POST   /logout          revoke refresh token    (guarded)
//	POST   /verify/resend   issue a new OTP         (guarded)
//	PUT    /password        change password         (guarded)
//
// plus GET /healthz and, when configured, GET /metrics. Every response body
// is an envelope.Response.
package httpapi
