package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/envelope"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/rs/zerolog/hlog"
)

const refreshCookie = "refreshToken"

var (
	errInvalidBody  = errors.New("invalid JSON body")
	errBodyTooLarge = errors.New("request body too large")
)

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req goAccount.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.Register(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_ = envelope.WriteData(w, http.StatusCreated, res, "User created successfully")
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req goAccount.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setTokenCookies(w, res.Tokens())
	_ = envelope.WriteData(w, http.StatusOK, res, "User logged in successfully")
}

func (s *server) refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if !s.decode(w, r, &body) {
			return
		}
		token = body.RefreshToken
	}

	res, err := s.engine.Refresh(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setTokenCookies(w, res.Tokens())
	_ = envelope.WriteData(w, http.StatusOK, res, "Access token refreshed")
}

func (s *server) verify(w http.ResponseWriter, r *http.Request) {
	var req goAccount.VerifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.engine.ConfirmVerification(r.Context(), req.ID, req.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_ = envelope.WriteData(w, http.StatusOK, user, "Email verified successfully")
}

func (s *server) showMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.engine.CurrentSession(goAccount.SessionFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_ = envelope.WriteData(w, http.StatusOK, user, "User fetched successfully")
}

func (s *server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var upd goAccount.ProfileUpdate
	if !s.decode(w, r, &upd) {
		return
	}

	user, err := s.engine.UpdateProfile(r.Context(), goAccount.SessionFromContext(r.Context()), upd)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_ = envelope.WriteData(w, http.StatusOK, user, "User updated successfully")
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Logout(r.Context(), goAccount.SessionFromContext(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	s.clearTokenCookies(w)
	_ = envelope.WriteData(w, http.StatusOK, nil, "User logged out successfully")
}

func (s *server) resendVerification(w http.ResponseWriter, r *http.Request) {
	id, err := s.engine.ResendVerification(r.Context(), goAccount.SessionFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_ = envelope.WriteData(w, http.StatusOK, map[string]string{"id": id}, "Verification code sent")
}

func (s *server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req goAccount.PasswordChange
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.engine.ChangePassword(r.Context(), goAccount.SessionFromContext(r.Context()), req); err != nil {
		s.fail(w, r, err)
		return
	}
	// The stored refresh token is gone; drop the stale cookies too.
	s.clearTokenCookies(w)
	_ = envelope.WriteData(w, http.StatusOK, nil, "Password changed successfully")
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	h := s.engine.Health(r.Context())
	status := http.StatusOK
	if !h.RedisAvailable {
		status = http.StatusServiceUnavailable
	}
	_ = envelope.WriteData(w, status, h, http.StatusText(status))
}

func (s *server) notFound(w http.ResponseWriter, _ *http.Request) {
	_ = envelope.WriteError(w, http.StatusNotFound, "route not found")
}

// decode reads one JSON object into dst. An empty body leaves dst untouched
// so that validation reports the missing fields.
func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return true
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = envelope.WriteError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge.Error())
			return false
		}
		_ = envelope.WriteError(w, http.StatusBadRequest, errInvalidBody.Error())
		return false
	}
}

// fail writes err as an envelope. Internal errors are logged and replaced by
// a generic message.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := goAccount.StatusCode(err)
	msg := err.Error()
	if goAccount.IsInternal(err) {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		msg = "Something went wrong"
	}
	_ = envelope.WriteError(w, status, msg)
}

func (s *server) setTokenCookies(w http.ResponseWriter, pair goAccount.TokenPair) {
	accessTTL, refreshTTL := s.engine.TokenTTLs()
	http.SetCookie(w, s.cookie(middleware.AccessCookie, pair.AccessToken, int(accessTTL.Seconds())))
	http.SetCookie(w, s.cookie(refreshCookie, pair.RefreshToken, int(refreshTTL.Seconds())))
}

func (s *server) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(middleware.AccessCookie, "", -1))
	http.SetCookie(w, s.cookie(refreshCookie, "", -1))
}

func (s *server) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
