package main

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_URI", "redis://localhost:6379/0")
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 8000 || cfg.APIVersion != "v1" || cfg.SaltRounds != 10 || cfg.SMTPPort != 465 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if time.Duration(cfg.RefreshExpiry) != 10*24*time.Hour {
		t.Fatalf("expected 10d refresh expiry, got %s", time.Duration(cfg.RefreshExpiry))
	}

	ec := cfg.engineConfig()
	if err := ec.Validate(); err != nil {
		t.Fatalf("engine config must validate: %v", err)
	}
	if ec.JWT.AccessTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %s", ec.JWT.AccessTTL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "1d")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "720h")
	t.Setenv("SALT_ROUNDS", "12")
	t.Setenv("REQUIRE_VERIFIED_LOGIN", "true")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	ec := cfg.engineConfig()
	if cfg.Port != 9090 || ec.JWT.AccessTTL != 24*time.Hour || ec.JWT.RefreshTTL != 720*time.Hour {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if ec.Password.Rounds != 12 || !ec.Account.RequireVerifiedForLogin {
		t.Fatalf("unexpected engine config %+v", ec)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("REDIS_URI", "redis://localhost:6379")
	t.Setenv("ACCESS_TOKEN_SECRET", "a")
	t.Setenv("REFRESH_TOKEN_SECRET", "b")

	_, err := loadConfig()
	if err == nil || !strings.Contains(err.Error(), "MONGODB_URI") {
		t.Fatalf("expected MONGODB_URI error, got %v", err)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"ACCESS_TOKEN_EXPIRY": "soon",
		"SALT_ROUNDS":         "many",
		"LOG_LEVEL":           "loud",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, value)
			if _, err := loadConfig(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestParseExpiry(t *testing.T) {
	good := map[string]time.Duration{
		"15m": 15 * time.Minute,
		"1d":  24 * time.Hour,
		"10d": 240 * time.Hour,
		"90s": 90 * time.Second,
	}
	for in, want := range good {
		got, err := parseExpiry(in)
		if err != nil || got != want {
			t.Fatalf("parseExpiry(%q): expected %s, got %s %v", in, want, got, err)
		}
	}
	for _, in := range []string{"", "0d", "-5m", "xd", "10"} {
		if _, err := parseExpiry(in); err == nil {
			t.Fatalf("parseExpiry(%q): expected error", in)
		}
	}
}
