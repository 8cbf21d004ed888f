package goAccount

import (
	"context"
	"errors"
	"strings"
)

// CurrentSession returns the account attached to s. It does not touch the store.
func (e *Engine) CurrentSession(s *Session) (User, error) {
	if s == nil {
		return User{}, ErrTokenMissing
	}
	return s.User, nil
}

// UpdateProfile applies the non-nil fields of upd. Changed unique fields are
// checked against other accounts first. Verification state, password and
// tokens are never touched here, so an email change keeps IsVerified.
func (e *Engine) UpdateProfile(ctx context.Context, s *Session, upd ProfileUpdate) (User, error) {
	if err := e.ready(); err != nil {
		return User{}, err
	}
	if s == nil || s.UserID == "" {
		return User{}, ErrTokenMissing
	}

	upd = normalizeProfileUpdate(upd)
	if err := validateStruct(upd); err != nil {
		return User{}, err
	}

	current, err := e.users.FindByID(ctx, s.UserID)
	if err != nil {
		return User{}, storeErr(err)
	}

	patch := UserPatch{Name: upd.Name, Avatar: upd.Avatar}
	var probe uniqueFields
	if upd.Username != nil && *upd.Username != current.Username {
		patch.Username = upd.Username
		probe.Username = *upd.Username
	}
	if upd.Email != nil && *upd.Email != current.Email {
		patch.Email = upd.Email
		probe.Email = *upd.Email
	}
	if upd.PhoneNumber != nil && *upd.PhoneNumber != current.PhoneNumber {
		patch.PhoneNumber = upd.PhoneNumber
		probe.PhoneNumber = *upd.PhoneNumber
	}

	if patch.Empty() {
		return current, nil
	}

	if err := e.checkUnique(ctx, current.ID, probe); err != nil {
		e.emitAudit(ctx, auditEventProfileUpdate, false, current.ID, err, nil)
		return User{}, err
	}

	updated, err := e.users.Update(ctx, current.ID, patch)
	if err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventProfileUpdate, false, current.ID, err, nil)
		return User{}, err
	}

	e.metricInc(MetricProfileUpdate)
	e.emitAudit(ctx, auditEventProfileUpdate, true, updated.ID, nil, nil)
	return updated, nil
}

// ChangePassword replaces the password after checking the current one and
// revokes the stored refresh token.
func (e *Engine) ChangePassword(ctx context.Context, s *Session, change PasswordChange) error {
	if err := e.ready(); err != nil {
		return err
	}
	if s == nil || s.UserID == "" {
		return ErrTokenMissing
	}
	if err := validateStruct(change); err != nil {
		return err
	}

	user, err := e.users.FindByID(ctx, s.UserID)
	if err != nil {
		return storeErr(err)
	}

	ok, err := e.hasher.Verify(change.CurrentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, user.ID, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	digest, err := e.hasher.Hash(change.NewPassword)
	if err != nil {
		return passwordErr(err)
	}

	setAt := e.clock()
	empty := ""
	if _, err := e.users.Update(ctx, user.ID, UserPatch{
		PasswordHash:  &digest,
		PasswordSetAt: &setAt,
		RefreshToken:  &empty,
	}); err != nil {
		return storeErr(err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, user.ID, nil, nil)
	return nil
}

func normalizeProfileUpdate(upd ProfileUpdate) ProfileUpdate {
	// Required fields cannot be blanked; an empty value means unchanged.
	trim := func(p *string, keepEmpty bool) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		if v == "" && !keepEmpty {
			return nil
		}
		return &v
	}
	upd.Username = trim(upd.Username, false)
	upd.Name = trim(upd.Name, false)
	upd.PhoneNumber = trim(upd.PhoneNumber, false)
	upd.Avatar = trim(upd.Avatar, true)
	if upd.Email = trim(upd.Email, false); upd.Email != nil {
		v := normalizeEmail(*upd.Email)
		upd.Email = &v
	}
	return upd
}

// IsConflict reports whether err lists taken unique fields, and returns them.
func IsConflict(err error) ([]string, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.Fields, true
	}
	return nil, false
}
