// Package middleware adapts Engine.Authenticate to net/http.
//
// Guard reads the access token from the Authorization header or the
// accessToken cookie, calls Engine.Authenticate and stores the *Session with
// goAccount.WithSession. Handlers read it back with
// goAccount.SessionFromContext. Failures are answered with the JSON envelope
// and the Engine's status code: 401 for a missing token, 403 for a bad or
// expired one.
package middleware
