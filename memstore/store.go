// Package memstore is an in-process goAccount.UserStore for tests, demos and
// single-node development. It enforces the same unique fields as the Mongo
// store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/google/uuid"
)

// Store is an in-memory UserStore enforcing the same uniqueness rules as the
// MongoDB store. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[string]goAccount.User
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users: make(map[string]goAccount.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// FindByID returns the user with the given id.
func (s *Store) FindByID(_ context.Context, id string) (goAccount.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return goAccount.User{}, goAccount.ErrUserNotFound
	}
	return u, nil
}

// FindOne returns the first user matching the field set in f.
func (s *Store) FindOne(_ context.Context, f goAccount.UserFilter) (goAccount.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if matches(u, f) {
			return u, nil
		}
	}
	return goAccount.User{}, goAccount.ErrUserNotFound
}

// Create assigns a fresh ID and timestamps and stores u.
func (s *Store) Create(_ context.Context, u goAccount.User) (goAccount.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conflictsLocked("", u); err != nil {
		return goAccount.User{}, err
	}

	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

// Update applies p and returns the stored record after the write.
func (s *Store) Update(_ context.Context, id string, p goAccount.UserPatch) (goAccount.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return goAccount.User{}, goAccount.ErrUserNotFound
	}
	if p.Empty() {
		return u, nil
	}

	next := p.Apply(u)
	if err := s.conflictsLocked(id, next); err != nil {
		return goAccount.User{}, err
	}
	next.UpdatedAt = s.now()
	s.users[id] = next
	return next, nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Store) conflictsLocked(selfID string, u goAccount.User) error {
	taken := map[string]bool{}
	for id, other := range s.users {
		if id == selfID {
			continue
		}
		if other.Username == u.Username {
			taken["username"] = true
		}
		if other.Email == u.Email {
			taken["email"] = true
		}
		if other.PhoneNumber == u.PhoneNumber {
			taken["phoneNumber"] = true
		}
	}
	if len(taken) == 0 {
		return nil
	}

	fields := make([]string, 0, len(taken))
	for f := range taken {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return &goAccount.ConflictError{Fields: fields}
}

func matches(u goAccount.User, f goAccount.UserFilter) bool {
	switch {
	case f.Username != "":
		return u.Username == f.Username
	case f.Email != "":
		return u.Email == f.Email
	case f.PhoneNumber != "":
		return u.PhoneNumber == f.PhoneNumber
	default:
		return false
	}
}
