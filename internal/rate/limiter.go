package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters. A zero Max disables the
// corresponding window.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	MaxResendAttempts     int
	ResendCooldown        time.Duration
}

// window is one fixed-window counter family.
type window struct {
	prefix string
	max    int
	ttl    time.Duration
}

func (w window) enabled() bool {
	return w.max > 0 && w.ttl > 0
}

func (w window) key(id string) string {
	return w.prefix + id
}

// Limiter enforces login and resend budgets using Redis counters.
type Limiter struct {
	redis   redis.UniversalClient
	config  Config
	loginID window
	loginIP window
	resend  window
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:   redisClient,
		config:  cfg,
		loginID: window{prefix: "al:", max: cfg.MaxLoginAttempts, ttl: cfg.LoginCooldownDuration},
		loginIP: window{prefix: "ali:", max: cfg.MaxLoginAttempts, ttl: cfg.LoginCooldownDuration},
		resend:  window{prefix: "avr:", max: cfg.MaxResendAttempts, ttl: cfg.ResendCooldown},
	}
}

// CheckLogin reports ErrRateLimited when the email (or, with IP throttling on,
// the client IP) has used up its failed-login budget. It does not count.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if err := l.check(ctx, l.loginID, normalize(email)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.check(ctx, l.loginIP, ip)
	}
	return nil
}

// IncrementLogin records a failed login attempt.
func (l *Limiter) IncrementLogin(ctx context.Context, email, ip string) error {
	if _, err := l.hit(ctx, l.loginID, normalize(email)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if _, err := l.hit(ctx, l.loginIP, ip); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears the failed-login counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	if !l.loginID.enabled() {
		return nil
	}

	keys := []string{l.loginID.key(normalize(email))}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIP.key(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the failed-login count for email in the current window.
func (l *Limiter) LoginAttempts(ctx context.Context, email string) (int, error) {
	if !l.loginID.enabled() {
		return 0, nil
	}
	count, err := l.get(ctx, l.loginID.key(normalize(email)))
	return int(count), err
}

// AllowResend counts one resend for userID and reports ErrRateLimited once the
// window's budget is exceeded.
func (l *Limiter) AllowResend(ctx context.Context, userID string) error {
	count, err := l.hit(ctx, l.resend, userID)
	if err != nil {
		return err
	}
	if l.resend.enabled() && count > int64(l.resend.max) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) check(ctx context.Context, w window, id string) error {
	if !w.enabled() {
		return nil
	}

	count, err := l.get(ctx, w.key(id))
	if err != nil {
		return err
	}
	if count >= int64(w.max) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) get(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

func (l *Limiter) hit(ctx context.Context, w window, id string) (int64, error) {
	if !w.enabled() {
		return 0, nil
	}

	key := w.key(id)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, w.ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
