package goAccount

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/internal/stores"
)

// verificationTicket is what the mailer needs: the opaque id handed to the
// client and the code sent to the inbox.
type verificationTicket struct {
	ID   string
	Code string
}

// startVerification draws a code, allocates a fresh opaque id, and binds the
// pair to email for ttl.
func (e *Engine) startVerification(ctx context.Context, email string, ttl time.Duration) (verificationTicket, error) {
	code, err := internal.NewOTP()
	if err != nil {
		e.metricInc(MetricVerificationStartFailure)
		return verificationTicket{}, err
	}

	id, err := e.bindings.Allocate(ctx, ttl, func(id string) stores.Binding {
		return stores.Binding{Email: email, CodeHash: internal.HashOTP(id, code)}
	})
	if err != nil {
		e.metricInc(MetricVerificationStartFailure)
		return verificationTicket{}, bindingErr(err)
	}

	e.metricInc(MetricVerificationIssued)
	e.emitAudit(ctx, auditEventVerificationIssued, true, "", nil, func() map[string]string {
		return map[string]string{"ttl": ttl.String()}
	})
	return verificationTicket{ID: id, Code: code}, nil
}

// dispatchCode sends code to recipient. Delivery failures are logged and
// counted, never returned.
func (e *Engine) dispatchCode(ctx context.Context, recipient, code string) {
	if e.mailer == nil {
		e.logger.Debug().Msg("no mailer configured, verification code not sent")
		return
	}

	err := e.mailer.Send(ctx, Message{
		Recipient: recipient,
		Subject:   e.config.Verification.MailSubject,
		Code:      code,
	})
	if err != nil {
		e.metricInc(MetricMailFailure)
		e.logger.Warn().Err(err).Msg("verification mail not delivered")
	}
}

// ResolveVerification returns the email bound to id.
func (e *Engine) ResolveVerification(ctx context.Context, id string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrVerificationNotFound
	}

	binding, err := e.bindings.Resolve(ctx, id)
	if err != nil {
		return "", bindingErr(err)
	}
	return binding.Email, nil
}

// ConfirmVerification checks code against the binding held under id and marks
// the bound account verified. A wrong code counts as an attempt; once the
// attempt budget is spent the binding is gone and a new code is needed.
func (e *Engine) ConfirmVerification(ctx context.Context, id, code string) (User, error) {
	if err := e.ready(); err != nil {
		return User{}, err
	}

	id = strings.TrimSpace(id)
	code = strings.TrimSpace(code)
	if !internal.IsOTP(code) {
		return User{}, e.confirmRejected(ctx, ErrInvalidCode)
	}
	if id == "" {
		return User{}, e.confirmRejected(ctx, ErrVerificationNotFound)
	}

	// The binding outlives a matching code until the account is written, so a
	// store failure below leaves the code usable.
	binding, err := e.bindings.Consume(
		ctx,
		id,
		internal.HashOTP(id, code),
		e.config.Verification.MaxConfirmAttempts,
		false,
	)
	if err != nil {
		return User{}, e.confirmRejected(ctx, bindingErr(err))
	}

	user, err := e.users.FindOne(ctx, UserFilter{Email: binding.Email})
	if err != nil {
		return User{}, e.confirmRejected(ctx, storeErr(err))
	}

	if !user.IsVerified {
		verified := true
		user, err = e.users.Update(ctx, user.ID, UserPatch{IsVerified: &verified})
		if err != nil {
			return User{}, e.confirmRejected(ctx, storeErr(err))
		}
	}

	if e.config.Verification.ConsumeOnConfirm {
		if err := e.bindings.Delete(ctx, id); err != nil {
			e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("verification binding not removed after confirm")
		}
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, user.ID, nil, nil)
	return user, nil
}

func (e *Engine) confirmRejected(ctx context.Context, err error) error {
	if errors.Is(err, ErrVerificationAttemptsExceeded) {
		e.metricInc(MetricVerificationAttemptsExceeded)
	} else {
		e.metricInc(MetricVerificationFailure)
	}
	e.emitAudit(ctx, auditEventVerificationConfirm, false, "", err, nil)
	return err
}

// ResendVerification issues a new code for the session's account, bound
// under a new opaque id with the re-issue TTL. Earlier bindings stay valid
// until they expire.
func (e *Engine) ResendVerification(ctx context.Context, s *Session) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if s == nil || s.UserID == "" {
		return "", ErrTokenMissing
	}

	user, err := e.users.FindByID(ctx, s.UserID)
	if err != nil {
		return "", storeErr(err)
	}
	if user.IsVerified {
		return "", ErrAlreadyVerified
	}

	if err := limiterErr(e.limiter.AllowResend(ctx, user.ID), ErrResendRateLimited); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricVerificationResendRateLimited)
		}
		e.emitAudit(ctx, auditEventVerificationResend, false, user.ID, err, nil)
		return "", err
	}

	ticket, err := e.startVerification(ctx, user.Email, e.config.Verification.ReissueTTL)
	if err != nil {
		e.emitAudit(ctx, auditEventVerificationResend, false, user.ID, err, nil)
		return "", err
	}
	e.dispatchCode(ctx, user.Email, ticket.Code)

	e.emitAudit(ctx, auditEventVerificationResend, true, user.ID, nil, nil)
	return ticket.ID, nil
}

// PurgeVerifications deletes every binding and returns how many were removed.
// Outstanding codes stop working immediately.
func (e *Engine) PurgeVerifications(ctx context.Context) (int64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}

	removed, err := e.bindings.DeleteMatching(ctx, e.bindings.Pattern())
	if removed > 0 && e.metrics != nil {
		e.metrics.Add(MetricVerificationPurged, uint64(removed))
	}
	if err != nil {
		return removed, bindingErr(err)
	}

	e.emitAudit(ctx, auditEventVerificationPurge, true, "", nil, func() map[string]string {
		return map[string]string{"removed": strconv.FormatInt(removed, 10)}
	})
	return removed, nil
}
