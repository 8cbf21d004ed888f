package goAccount

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config is the complete Engine configuration. Start from DefaultConfig and
// override what differs.
type Config struct {
	JWT          JWTConfig
	Password     PasswordConfig
	Verification VerificationConfig
	Account      AccountConfig
	Security     SecurityConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the HS256 secrets and token lifetimes. Access and refresh
// tokens must use different secrets.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the bcrypt work factor.
type PasswordConfig struct {
	Rounds         int
	UpgradeOnLogin bool
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig controls OTP bindings.
type VerificationConfig struct {
	KeyPrefix             string
	RegistrationTTL       time.Duration
	ReissueTTL            time.Duration
	OpaqueIDAlphabet      string
	OpaqueIDLength        int
	MaxAllocationAttempts int
	MaxConfirmAttempts    int
	// ConsumeOnConfirm deletes the binding after a successful confirm. When
	// false the binding lives until its TTL and confirming again is a no-op.
	ConsumeOnConfirm  bool
	ResendMaxAttempts int
	ResendCooldown    time.Duration
	MailSubject       string
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig holds registration and login policy.
type AccountConfig struct {
	RequireVerifiedForLogin bool
	RegistrationRoles       []Role
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds throttling and refresh-token policy.
type SecurityConfig struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	EnableIPThrottle      bool
	// RevokeOnRefreshReuse clears the stored refresh token when a presented
	// token verifies but no longer matches it.
	RevokeOnRefreshReuse bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. Secrets are left empty and
// must be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 10 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Rounds:         10,
			UpgradeOnLogin: true,
		},
		Verification: VerificationConfig{
			KeyPrefix:             "emailId::",
			RegistrationTTL:       24 * time.Hour,
			ReissueTTL:            time.Hour,
			OpaqueIDAlphabet:      "0123456789abcdefghijklmnopqrstuvwxyz",
			OpaqueIDLength:        12,
			MaxAllocationAttempts: 8,
			MaxConfirmAttempts:    5,
			ConsumeOnConfirm:      true,
			ResendMaxAttempts:     3,
			ResendCooldown:        15 * time.Minute,
			MailSubject:           "HINT Bharat: Verify your email",
		},
		Account: AccountConfig{
			RequireVerifiedForLogin: false,
			RegistrationRoles:       []Role{RoleUser, RoleAdmin},
		},
		Security: SecurityConfig{
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableIPThrottle:      false,
			RevokeOnRefreshReuse:  true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = bytes.Clone(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = bytes.Clone(cfg.JWT.RefreshSecret)
	if cfg.Account.RegistrationRoles != nil {
		out.Account.RegistrationRoles = append([]Role(nil), cfg.Account.RegistrationRoles...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the Engine cannot run with.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT RefreshSecret is required")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Rounds < bcrypt.MinCost || c.Password.Rounds > bcrypt.MaxCost {
		return errors.New("Password Rounds must be between 4 and 31")
	}

	// Verification
	v := c.Verification
	if strings.TrimSpace(v.KeyPrefix) == "" {
		return errors.New("Verification KeyPrefix is required")
	}
	if strings.ContainsAny(v.KeyPrefix, "*?[]") {
		return errors.New("Verification KeyPrefix must not contain glob characters")
	}
	if v.RegistrationTTL <= 0 || v.ReissueTTL <= 0 {
		return errors.New("Verification TTLs must be > 0")
	}
	if len(v.OpaqueIDAlphabet) < 2 || len(v.OpaqueIDAlphabet) > 256 {
		return errors.New("Verification OpaqueIDAlphabet must have between 2 and 256 characters")
	}
	if strings.ContainsAny(v.OpaqueIDAlphabet, "*?[]:") {
		return errors.New("Verification OpaqueIDAlphabet must not contain glob or separator characters")
	}
	if v.OpaqueIDLength < 8 || v.OpaqueIDLength > 64 {
		return errors.New("Verification OpaqueIDLength must be between 8 and 64")
	}
	if v.MaxAllocationAttempts <= 0 {
		return errors.New("Verification MaxAllocationAttempts must be > 0")
	}
	if v.MaxConfirmAttempts <= 0 || v.MaxConfirmAttempts > 65535 {
		return errors.New("Verification MaxConfirmAttempts must be between 1 and 65535")
	}
	if v.ResendMaxAttempts < 0 || v.ResendCooldown < 0 {
		return errors.New("Verification resend limits must be >= 0")
	}
	if v.ResendMaxAttempts > 0 && v.ResendCooldown == 0 {
		return errors.New("Verification ResendCooldown must be > 0 when ResendMaxAttempts is set")
	}

	// Account
	if len(c.Account.RegistrationRoles) == 0 {
		return errors.New("Account RegistrationRoles must allow at least one role")
	}
	for _, r := range c.Account.RegistrationRoles {
		if !r.Valid() {
			return errors.New("Account RegistrationRoles contains an unknown role")
		}
		if r == RoleSuperAdmin {
			return errors.New("Account RegistrationRoles must not include superAdmin")
		}
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("Security MaxLoginAttempts must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security LoginCooldownDuration must be > 0 when MaxLoginAttempts is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
