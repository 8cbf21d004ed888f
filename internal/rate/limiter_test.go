package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*miniredis.Miniredis, *Limiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, New(client, cfg)
}

func TestLoginBudget(t *testing.T) {
	mr, l := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "A@Example.com", ""); err != nil {
			t.Fatalf("attempt %d: unexpected limit: %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "a@example.com", ""); err != nil {
			t.Fatalf("IncrementLogin failed: %v", err)
		}
	}

	if err := l.CheckLogin(ctx, "a@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if n, _ := l.LoginAttempts(ctx, "a@example.com"); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestResetLogin(t *testing.T) {
	_, l := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute, EnableIPThrottle: true})
	ctx := context.Background()

	if err := l.IncrementLogin(ctx, "b@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("IncrementLogin failed: %v", err)
	}
	if err := l.CheckLogin(ctx, "other@example.com", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ip throttle to apply, got %v", err)
	}
	if err := l.ResetLogin(ctx, "b@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("ResetLogin failed: %v", err)
	}
	if err := l.CheckLogin(ctx, "b@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("expected counters cleared, got %v", err)
	}
}

func TestDisabledWindowsNeverLimit(t *testing.T) {
	mr, l := newTestLimiter(t, Config{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := l.IncrementLogin(ctx, "c@example.com", ""); err != nil {
			t.Fatalf("IncrementLogin failed: %v", err)
		}
		if err := l.AllowResend(ctx, "u1"); err != nil {
			t.Fatalf("AllowResend failed: %v", err)
		}
	}
	if err := l.CheckLogin(ctx, "c@example.com", ""); err != nil {
		t.Fatalf("disabled limiter must not limit, got %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("disabled limiter must not write keys, got %v", mr.Keys())
	}
}

func TestAllowResend(t *testing.T) {
	mr, l := newTestLimiter(t, Config{MaxResendAttempts: 2, ResendCooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.AllowResend(ctx, "u1"); err != nil {
			t.Fatalf("resend %d: unexpected limit: %v", i, err)
		}
	}
	if err := l.AllowResend(ctx, "u1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.AllowResend(ctx, "u2"); err != nil {
		t.Fatalf("budget must be per user, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.AllowResend(ctx, "u1"); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr, l := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginCooldownDuration: time.Minute})
	mr.Close()

	if err := l.CheckLogin(context.Background(), "d@example.com", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
