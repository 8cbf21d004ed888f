package goAccount

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/jwt"
)

// Login checks email and password and issues a new token pair. The pair
// replaces whatever refresh token the account held before.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}
	}()

	email = normalizeEmail(email)
	ip := ClientIPFromContext(ctx)

	if err := limiterErr(e.limiter.CheckLogin(ctx, email, ip), ErrLoginRateLimited); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", err, nil)
		}
		return nil, err
	}

	if err := validateStruct(LoginRequest{Email: email, Password: password}); err != nil {
		return nil, err
	}

	user, err := e.users.FindOne(ctx, UserFilter{Email: email})
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrUserNotFound) {
			e.loginFailed(ctx, email, ip, "", err)
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		e.loginFailed(ctx, email, ip, user.ID, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	user = e.upgradePasswordHash(ctx, user, password)

	if e.config.Account.RequireVerifiedForLogin && !user.IsVerified {
		e.metricInc(MetricLoginUnverified)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrAccountUnverified, nil)
		return nil, ErrAccountUnverified
	}

	user, tokens, err := e.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := e.limiter.ResetLogin(ctx, email, ip); err != nil {
		e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("login throttle reset failed")
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)

	return &LoginResult{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

func (e *Engine) loginFailed(ctx context.Context, email, ip, userID string, cause error) {
	e.metricInc(MetricLoginFailure)
	if err := e.limiter.IncrementLogin(ctx, email, ip); err != nil {
		e.logger.Warn().Err(err).Msg("login throttle increment failed")
	}
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, cause, nil)
}

// upgradePasswordHash rewrites a digest produced at an outdated cost. It runs
// only after a successful Verify. Failures are logged and the caller keeps the
// old record.
func (e *Engine) upgradePasswordHash(ctx context.Context, user User, plaintext string) User {
	if !e.config.Password.UpgradeOnLogin {
		return user
	}

	digest, changed, err := e.hasher.RehashIfStale(plaintext, user.PasswordHash)
	if err != nil {
		e.metricInc(MetricPasswordRehashFailure)
		e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash failed")
		return user
	}
	if !changed {
		return user
	}

	setAt := e.clock()
	updated, err := e.users.Update(ctx, user.ID, UserPatch{PasswordHash: &digest, PasswordSetAt: &setAt})
	if err != nil {
		e.metricInc(MetricPasswordRehashFailure)
		e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash not persisted")
		return user
	}

	e.metricInc(MetricPasswordRehash)
	return updated
}

// Refresh exchanges a refresh token for a new pair. The token must verify and
// match the one stored on the account; a verified but stale token is treated
// as reuse and, with RevokeOnRefreshReuse, logs the account out.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrTokenMissing
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid
	}

	user, err := e.users.FindByID(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, storeErr(err)
	}

	if user.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		e.metricInc(MetricRefreshFailure)
		if user.RefreshToken != "" {
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, user.ID, ErrRefreshInvalid, nil)
			if e.config.Security.RevokeOnRefreshReuse {
				if _, err := e.clearRefreshToken(ctx, user.ID); err != nil {
					e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("refresh revocation failed")
				}
			}
		} else {
			e.emitAudit(ctx, auditEventRefreshInvalid, false, user.ID, ErrRefreshInvalid, nil)
		}
		return nil, ErrRefreshInvalid
	}

	user, tokens, err := e.issueTokenPair(ctx, user.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, nil, nil)

	return &LoginResult{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Authenticate verifies an access token and loads its account. Expired and
// otherwise invalid tokens are not distinguished.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrTokenMissing
	}

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		if !errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenInvalid) {
			return nil, err
		}
		return nil, ErrTokenInvalid
	}

	user, err := e.users.FindByID(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, storeErr(err)
	}

	s := &Session{
		UserID:   user.ID,
		Email:    claims.Email,
		Username: claims.Username,
		User:     user,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Logout clears the stored refresh token so it can no longer be exchanged.
// Access tokens already issued stay valid until they expire.
func (e *Engine) Logout(ctx context.Context, s *Session) error {
	if err := e.ready(); err != nil {
		return err
	}
	if s == nil || s.UserID == "" {
		return ErrTokenMissing
	}

	if _, err := e.clearRefreshToken(ctx, s.UserID); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, s.UserID, nil, nil)
	return nil
}
