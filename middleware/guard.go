package middleware

import (
	"net"
	"net/http"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/envelope"
	"github.com/rs/zerolog/hlog"
)

// AccessCookie is the cookie the access token is read from when no
// Authorization header is present.
const AccessCookie = "accessToken"

// Guard authenticates the request and stores the resulting *Session in its
// context. Rejections are written as envelopes with the Engine's status.
func Guard(engine *goAccount.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := engine.Authenticate(r.Context(), AccessToken(r))
			if err != nil {
				status := goAccount.StatusCode(err)
				msg := err.Error()
				if goAccount.IsInternal(err) {
					hlog.FromRequest(r).Error().Err(err).Msg("authenticate failed")
					msg = http.StatusText(status)
				}
				_ = envelope.WriteError(w, status, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(goAccount.WithSession(r.Context(), s)))
		})
	}
}

// AccessToken returns the bearer token, falling back to the access cookie.
func AccessToken(r *http.Request) string {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	if c, err := r.Cookie(AccessCookie); err == nil {
		return c.Value
	}
	return ""
}

// ClientIP records the peer address for login throttling and audit.
// Forwarded headers are not trusted.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(goAccount.WithClientIP(r.Context(), ip)))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
