package goAccount

import (
	"context"
	"time"
)

// Role is the account role stored on every user.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is the persisted account record.
//
// PasswordHash and RefreshToken never leave the process in JSON.
type User struct {
	ID            string    `json:"_id"`
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	PhoneNumber   string    `json:"phoneNumber"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	PasswordSetAt time.Time `json:"passwordSetDate,omitempty"`
	IsVerified    bool      `json:"isVerified"`
	Avatar        string    `json:"avatar,omitempty"`
	Role          Role      `json:"role"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserFilter selects a single user by one unique field. Exactly one field
// should be set.
type UserFilter struct {
	Username    string
	Email       string
	PhoneNumber string
}

// UserPatch is a partial update. Nil fields are left untouched; a non-nil
// RefreshToken pointing at "" clears the stored token.
type UserPatch struct {
	Username      *string
	Name          *string
	PhoneNumber   *string
	Email         *string
	Avatar        *string
	PasswordHash  *string
	PasswordSetAt *time.Time
	IsVerified    *bool
	RefreshToken  *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Name == nil && p.PhoneNumber == nil &&
		p.Email == nil && p.Avatar == nil && p.PasswordHash == nil &&
		p.PasswordSetAt == nil && p.IsVerified == nil && p.RefreshToken == nil
}

// Apply merges p into u and returns the result. UpdatedAt is not touched.
func (p UserPatch) Apply(u User) User {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.PasswordSetAt != nil {
		u.PasswordSetAt = *p.PasswordSetAt
	}
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
	if p.RefreshToken != nil {
		u.RefreshToken = *p.RefreshToken
	}
	return u
}

// UserStore is the durable credential store.
//
// Implementations return ErrUserNotFound when nothing matches and a
// *ConflictError when a unique field collides. Any other error is treated as
// a transient backend failure.
type UserStore interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindOne(ctx context.Context, filter UserFilter) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, id string, patch UserPatch) (User, error)
}

// Message is one outbound verification mail.
type Message struct {
	Recipient string
	Subject   string
	Code      string
}

// Mailer delivers verification codes. Delivery is best effort; errors are
// logged by the Engine and never surfaced to the caller.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Name        string `json:"name" validate:"required,min=3,max=50"`
	PhoneNumber string `json:"phoneNumber" validate:"required,min=10,max=15"`
	Email       string `json:"email" validate:"required,min=5,max=255,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Avatar      string `json:"avatar" validate:"omitempty,max=2048"`
	Role        Role   `json:"role" validate:"omitempty,oneof=user admin"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate carries the optional profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Username    *string `json:"username" validate:"omitempty,min=3,max=50"`
	Name        *string `json:"name" validate:"omitempty,min=3,max=50"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,min=10,max=15"`
	Email       *string `json:"email" validate:"omitempty,min=5,max=255,email"`
	Avatar      *string `json:"avatar" validate:"omitempty,max=2048"`
}

// PasswordChange is the change-password payload.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// VerifyRequest is the OTP confirmation payload.
type VerifyRequest struct {
	ID   string `json:"id" validate:"required"`
	Code string `json:"code" validate:"required"`
}

// TokenPair is an access token plus its refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterResult is returned by Register. VerificationID is empty when the
// verification binding could not be started.
type RegisterResult struct {
	User           User   `json:"user"`
	AccessToken    string `json:"accessToken"`
	RefreshToken   string `json:"refreshToken"`
	VerificationID string `json:"id"`
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Tokens returns the pair carried by r.
func (r *LoginResult) Tokens() TokenPair {
	return TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// Session is the authenticated request context produced by Authenticate.
type Session struct {
	UserID    string
	Email     string
	Username  string
	User      User
	ExpiresAt time.Time
}
