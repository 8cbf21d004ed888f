package goAccount

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/goAccount/internal"
)

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.register(t, validRegistration())

	if res.User.ID == "" {
		t.Fatal("expected user id")
	}
	if res.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if res.User.IsVerified {
		t.Fatal("new accounts must start unverified")
	}
	if res.User.Role != RoleUser {
		t.Fatalf("expected default role user, got %q", res.User.Role)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if res.VerificationID == "" || len(res.VerificationID) != internal.OpaqueIDLength {
		t.Fatalf("unexpected verification id %q", res.VerificationID)
	}

	stored := env.store.get(t, res.User.ID)
	if stored.PasswordHash == "" || stored.PasswordHash == "wonderland" {
		t.Fatal("password must be stored as a digest")
	}
	if stored.PasswordSetAt.IsZero() {
		t.Fatal("expected PasswordSetAt to be set")
	}
	if stored.RefreshToken != res.RefreshToken {
		t.Fatal("expected issued refresh token to be persisted")
	}

	if !env.mr.Exists("emailId::" + res.VerificationID) {
		t.Fatal("expected binding key in redis")
	}
	if ttl := env.mr.TTL("emailId::" + res.VerificationID); ttl != env.engine.config.Verification.RegistrationTTL {
		t.Fatalf("expected registration ttl, got %v", ttl)
	}

	msg := env.mailer.last(t)
	if msg.Recipient != "alice@example.com" || !internal.IsOTP(msg.Code) {
		t.Fatalf("unexpected mail: %+v", msg)
	}
}

func TestRegisterResultHidesSecrets(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.register(t, validRegistration())

	data, err := json.Marshal(res.User)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	if strings.Contains(body, "$2a$") || strings.Contains(body, res.RefreshToken) {
		t.Fatalf("user JSON leaks secrets: %s", body)
	}
}

func TestRegisterReportsEveryConflictWithoutWriting(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, validRegistration())

	dup := validRegistration()
	dup.Email = "ALICE@example.com"
	_, err := env.engine.Register(context.Background(), dup)

	requireKind(t, err, ErrConflict, http.StatusBadRequest)
	fields, ok := IsConflict(err)
	if !ok {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	for _, want := range []string{"username", "email", "phoneNumber"} {
		if !slices.Contains(fields, want) {
			t.Fatalf("expected %s in conflict fields %v", want, fields)
		}
	}
	if env.store.count() != 1 {
		t.Fatalf("conflicting registration must not write, have %d users", env.store.count())
	}
	if env.mailer.count() != 1 {
		t.Fatal("conflicting registration must not send mail")
	}
}

func TestRegisterValidationJoinsViolations(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Register(context.Background(), RegisterRequest{
		Username: "al",
		Email:    "not-an-email",
		Password: "123",
	})

	requireKind(t, err, ErrValidation, http.StatusBadRequest)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Violations) < 4 {
		t.Fatalf("expected every violation reported, got %v", ve.Violations)
	}
	if !strings.Contains(err.Error(), `"username" length must be at least 3 characters long`) {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), ", ") {
		t.Fatalf("violations must be joined with \", \": %s", err.Error())
	}
	if env.store.count() != 0 {
		t.Fatal("invalid registration must not write")
	}
}

func TestRegisterRejectsPrivilegedRole(t *testing.T) {
	env := newTestEnv(t, nil)

	req := validRegistration()
	req.Role = RoleSuperAdmin
	_, err := env.engine.Register(context.Background(), req)
	requireKind(t, err, ErrValidation, http.StatusBadRequest)

	req.Role = RoleAdmin
	res := env.register(t, req)
	if res.User.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %q", res.User.Role)
	}
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	env := newTestEnv(t, nil)

	req := validRegistration()
	req.Password = strings.Repeat("é", 40) // 40 runes, 80 bytes
	_, err := env.engine.Register(context.Background(), req)
	requireKind(t, err, ErrValidation, http.StatusBadRequest)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mailer.err = errors.New("smtp down")

	res := env.register(t, validRegistration())
	if res.VerificationID == "" {
		t.Fatal("mail failure must not drop the verification id")
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricMailFailure]; got != 1 {
		t.Fatalf("expected mail failure metric, got %d", got)
	}
}

func TestRegisterDegradesWhenBindingFails(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mr.Close()

	res := env.register(t, validRegistration())
	if res.VerificationID != "" {
		t.Fatalf("expected empty verification id, got %q", res.VerificationID)
	}
	if env.store.count() != 1 {
		t.Fatal("account must remain after binding failure")
	}
	if env.mailer.count() != 0 {
		t.Fatal("no code must be mailed without a binding")
	}
}

func TestRegisterStoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.failAll = errors.New("connection reset")

	_, err := env.engine.Register(context.Background(), validRegistration())
	requireKind(t, err, ErrUnavailable, http.StatusInternalServerError)
}

func TestConcurrentRegistrationsGetDistinctIDs(t *testing.T) {
	env := newTestEnv(t, nil)

	const n = 25
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRegistration()
			req.Username = "user" + string(rune('a'+i))
			req.Email = "user" + string(rune('a'+i)) + "@example.com"
			req.PhoneNumber = "98765432" + string(rune('a'+i)) + "0"
			res, err := env.engine.Register(context.Background(), req)
			errs[i] = err
			if res != nil {
				ids[i] = res.VerificationID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("registration %d failed: %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Fatalf("verification id %q issued twice", ids[i])
		}
		seen[ids[i]] = true
	}
}

func TestEngineNotReady(t *testing.T) {
	var nilEngine *Engine
	if _, err := nilEngine.Register(context.Background(), validRegistration()); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady on nil engine, got %v", err)
	}

	env := newTestEnv(t, nil)
	env.engine.Close()
	env.engine.Close()
	if _, err := env.engine.Login(context.Background(), "a@example.com", "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady after Close, got %v", err)
	}
}
