package goAccount

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/internal/stores"
)

// storeErr passes through the errors a UserStore is allowed to return and
// wraps everything else as a transient failure.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var conflict *ConflictError
	if errors.Is(err, ErrUserNotFound) || errors.As(err, &conflict) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func bindingErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrBindingNotFound):
		return ErrVerificationNotFound
	case errors.Is(err, stores.ErrBindingCodeMismatch):
		return ErrInvalidCode
	case errors.Is(err, stores.ErrBindingAttemptsExceeded):
		return ErrVerificationAttemptsExceeded
	case errors.Is(err, stores.ErrAllocationExhausted):
		return ErrAllocationExhausted
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func limiterErr(err error, limited error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return limited
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

type uniqueFields struct {
	Username    string
	Email       string
	PhoneNumber string
}

// checkUnique probes every non-empty unique field and reports all collisions
// at once. Records owned by selfID do not count.
func (e *Engine) checkUnique(ctx context.Context, selfID string, f uniqueFields) error {
	probes := []struct {
		field  string
		filter UserFilter
	}{
		{"username", UserFilter{Username: f.Username}},
		{"email", UserFilter{Email: f.Email}},
		{"phoneNumber", UserFilter{PhoneNumber: f.PhoneNumber}},
	}

	var taken []string
	for _, p := range probes {
		if p.filter == (UserFilter{}) {
			continue
		}

		existing, err := e.users.FindOne(ctx, p.filter)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return storeErr(err)
		}
		if existing.ID != selfID {
			taken = append(taken, p.field)
		}
	}

	if len(taken) > 0 {
		return &ConflictError{Fields: taken}
	}
	return nil
}

// issueTokenPair signs a fresh pair for userID and persists the refresh token.
// Only RefreshToken is written, so no profile validation runs on this path.
func (e *Engine) issueTokenPair(ctx context.Context, userID string) (User, TokenPair, error) {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, TokenPair{}, storeErr(err)
	}

	access, err := e.tokens.CreateAccess(user.ID, user.Email, user.Username)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	refresh, err := e.tokens.CreateRefresh(user.ID)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	updated, err := e.users.Update(ctx, user.ID, UserPatch{RefreshToken: &refresh})
	if err != nil {
		return User{}, TokenPair{}, storeErr(err)
	}

	return updated, TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) clearRefreshToken(ctx context.Context, userID string) (User, error) {
	empty := ""
	user, err := e.users.Update(ctx, userID, UserPatch{RefreshToken: &empty})
	return user, storeErr(err)
}
