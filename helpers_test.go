package goAccount

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockUserStore struct {
	mu      sync.Mutex
	nextID  int
	users   map[string]User
	creates int
	updates int
	failAll error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]User{}}
}

func (m *mockUserStore) FindByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return User{}, m.failAll
	}

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserStore) FindOne(_ context.Context, f UserFilter) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return User{}, m.failAll
	}

	for _, u := range m.users {
		switch {
		case f.Username != "" && u.Username == f.Username,
			f.Email != "" && u.Email == f.Email,
			f.PhoneNumber != "" && u.PhoneNumber == f.PhoneNumber:
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *mockUserStore) Create(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return User{}, m.failAll
	}

	if err := m.conflictsLocked("", u); err != nil {
		return User{}, err
	}
	m.nextID++
	u.ID = "u" + strconv.Itoa(m.nextID)
	m.users[u.ID] = u
	m.creates++
	return u, nil
}

func (m *mockUserStore) Update(_ context.Context, id string, p UserPatch) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return User{}, m.failAll
	}

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	next := p.Apply(u)
	if err := m.conflictsLocked(id, next); err != nil {
		return User{}, err
	}
	next.UpdatedAt = time.Now().UTC()
	m.users[id] = next
	m.updates++
	return next, nil
}

func (m *mockUserStore) conflictsLocked(selfID string, u User) error {
	var fields []string
	for id, other := range m.users {
		if id == selfID {
			continue
		}
		if other.Username == u.Username {
			fields = append(fields, "username")
		}
		if other.Email == u.Email {
			fields = append(fields, "email")
		}
		if other.PhoneNumber == u.PhoneNumber {
			fields = append(fields, "phoneNumber")
		}
	}
	if len(fields) > 0 {
		return &ConflictError{Fields: fields}
	}
	return nil
}

func (m *mockUserStore) get(t *testing.T, id string) User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		t.Fatalf("user %s not in store", id)
	}
	return u
}

func (m *mockUserStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

type mockMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *mockMailer) last(t *testing.T) Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected a mail to be sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret-0123456789")
	cfg.Password.Rounds = 4
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *mockUserStore
	mailer *mockMailer
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	store := newMockUserStore()
	mailer := &mockMailer{}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, store: store, mailer: mailer, mr: mr, rdb: rdb}
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Username:    "alice",
		Name:        "Alice Liddell",
		PhoneNumber: "9876543210",
		Email:       "Alice@Example.com",
		Password:    "wonderland",
	}
}

func (env *testEnv) register(t *testing.T, req RegisterRequest) *RegisterResult {
	t.Helper()
	res, err := env.engine.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return res
}

func requireKind(t *testing.T, err, kind error, status int) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected error kind %v, got %v", kind, err)
	}
	if got := StatusCode(err); got != status {
		t.Fatalf("expected status %d, got %d (%v)", status, got, err)
	}
}

func newHasherForTest(rounds int) (*password.Bcrypt, error) {
	return password.NewBcrypt(rounds)
}
