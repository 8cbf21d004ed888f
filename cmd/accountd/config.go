package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

type config struct {
	Port          int    `env:"PORT" envDefault:"8000"`
	CORSOrigin    string `env:"CORS_ORIGIN"`
	APIVersion    string `env:"API_VERSION" envDefault:"v1"`
	MongoURI      string `env:"MONGODB_URI,required,notEmpty"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"hint"`
	RedisURI      string `env:"REDIS_URI,required,notEmpty"`

	AccessSecret  string `env:"ACCESS_TOKEN_SECRET,required,notEmpty,unset"`
	AccessExpiry  expiry `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshSecret string `env:"REFRESH_TOKEN_SECRET,required,notEmpty,unset"`
	RefreshExpiry expiry `env:"REFRESH_TOKEN_EXPIRY" envDefault:"10d"`
	SaltRounds    int    `env:"SALT_ROUNDS" envDefault:"10"`

	EmailUser string `env:"EMAIL_USER"`
	EmailPass string `env:"EMAIL_PASS,unset"`
	SMTPHost  string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"465"`

	RequireVerifiedLogin bool   `env:"REQUIRE_VERIFIED_LOGIN" envDefault:"false"`
	CookieSecure         bool   `env:"COOKIE_SECURE" envDefault:"true"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsEnabled       bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// engineConfig maps the process settings onto the library configuration.
func (c config) engineConfig() goAccount.Config {
	cfg := goAccount.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(c.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.RefreshSecret)
	cfg.JWT.AccessTTL = time.Duration(c.AccessExpiry)
	cfg.JWT.RefreshTTL = time.Duration(c.RefreshExpiry)
	cfg.Password.Rounds = c.SaltRounds
	cfg.Account.RequireVerifiedForLogin = c.RequireVerifiedLogin
	cfg.Security.EnableIPThrottle = true
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	return cfg
}

// expiry accepts Go durations plus a day suffix ("10d"), the format the
// token expiry variables have always used.
type expiry time.Duration

func (e *expiry) UnmarshalText(text []byte) error {
	d, err := parseExpiry(string(text))
	if err != nil {
		return err
	}
	*e = expiry(d)
	return nil
}

func parseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty expiry")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q", s)
	}
	return d, nil
}
