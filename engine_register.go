package goAccount

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/MrEthical07/goAccount/password"
)

// Register creates an account, signs it in, and starts email verification.
//
// Every unique-field collision is reported in one *ConflictError and nothing
// is written. A failure to start verification or deliver the code leaves the
// account in place; the result then carries an empty VerificationID.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	req = normalizeRegisterRequest(req)
	if err := validateStruct(req); err != nil {
		return nil, e.registerRejected(ctx, err)
	}
	if req.Role == "" {
		req.Role = RoleUser
	}
	if !slices.Contains(e.config.Account.RegistrationRoles, req.Role) {
		return nil, e.registerRejected(ctx, ErrRoleNotAllowed)
	}

	if err := e.checkUnique(ctx, "", uniqueFields{
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	}); err != nil {
		return nil, e.registerRejected(ctx, err)
	}

	digest, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.registerRejected(ctx, passwordErr(err))
	}

	now := e.clock()
	created, err := e.users.Create(ctx, User{
		Username:      req.Username,
		Name:          req.Name,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		PasswordHash:  digest,
		PasswordSetAt: now,
		IsVerified:    false,
		Avatar:        req.Avatar,
		Role:          req.Role,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, e.registerRejected(ctx, storeErr(err))
	}

	user, tokens, err := e.issueTokenPair(ctx, created.ID)
	if err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, created.ID, err, nil)
		return nil, err
	}

	var verificationID string
	ticket, err := e.startVerification(ctx, user.Email, e.config.Verification.RegistrationTTL)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("verification start failed")
	} else {
		verificationID = ticket.ID
		e.dispatchCode(ctx, user.Email, ticket.Code)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, nil, func() map[string]string {
		return map[string]string{
			"role":                 string(user.Role),
			"verification_started": boolString(verificationID != ""),
		}
	})

	return &RegisterResult{
		User:           user,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		VerificationID: verificationID,
	}, nil
}

func (e *Engine) registerRejected(ctx context.Context, err error) error {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		e.metricInc(MetricRegisterConflict)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", err, func() map[string]string {
			return map[string]string{"fields": strings.Join(conflict.Fields, ",")}
		})
	case errors.Is(err, ErrValidation):
		e.metricInc(MetricRegisterInvalid)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, nil)
	default:
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, nil)
	}
	return err
}

func normalizeRegisterRequest(req RegisterRequest) RegisterRequest {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Email = normalizeEmail(req.Email)
	req.Avatar = strings.TrimSpace(req.Avatar)
	return req
}

// passwordErr turns hasher input errors into validation errors.
func passwordErr(err error) error {
	switch {
	case errors.Is(err, password.ErrPasswordTooLong):
		return &ValidationError{Violations: []string{`"password" must be at most 72 bytes`}}
	case errors.Is(err, password.ErrEmptyPassword):
		return &ValidationError{Violations: []string{`"password" is required`}}
	default:
		return err
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
