package goAccount

import (
	"context"
	"time"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool          `json:"redisAvailable"`
	RedisLatency   time.Duration `json:"redisLatency"`
}

// Health pings Redis. The user store is not probed; its driver reports its
// own connectivity.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e.ready() != nil {
		return HealthStatus{}
	}

	latency, err := e.bindings.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

// LoginAttempts returns the failed logins counted for email in the current
// throttle window.
func (e *Engine) LoginAttempts(ctx context.Context, email string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	email = normalizeEmail(email)
	if email == "" {
		return 0, nil
	}

	n, err := e.limiter.LoginAttempts(ctx, email)
	if err != nil {
		return 0, limiterErr(err, ErrLoginRateLimited)
	}
	return n, nil
}

// TokenTTLs returns the configured access and refresh token lifetimes, used
// by HTTP adapters to size cookies.
func (e *Engine) TokenTTLs() (access, refresh time.Duration) {
	if e == nil {
		return 0, 0
	}
	return e.config.JWT.AccessTTL, e.config.JWT.RefreshTTL
}
