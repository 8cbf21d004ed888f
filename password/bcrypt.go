package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the bcrypt input limit; longer input would be truncated silently.
const maxPasswordBytes = 72

var (
	// ErrPasswordTooLong is returned by Hash for input longer than bcrypt accepts.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	// ErrEmptyPassword is returned by Hash for empty input.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrInvalidRounds is returned by NewBcrypt when the cost is out of range.
	ErrInvalidRounds = fmt.Errorf("rounds must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
)

// Bcrypt hashes and verifies passwords at a fixed work factor.
//
// A Bcrypt is immutable after construction and safe for concurrent use.
type Bcrypt struct {
	rounds int
}

// NewBcrypt returns a hasher producing digests at the given cost.
func NewBcrypt(rounds int) (*Bcrypt, error) {
	if rounds < bcrypt.MinCost || rounds > bcrypt.MaxCost {
		return nil, ErrInvalidRounds
	}
	return &Bcrypt{rounds: rounds}, nil
}

// Rounds reports the configured cost factor.
func (b *Bcrypt) Rounds() int {
	return b.rounds
}

// Hash computes a salted digest of plaintext. The salt is generated by bcrypt itself.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.rounds)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A mismatch is (false, nil);
// a malformed digest is returned as an error. Input longer than Hash accepts
// never matches, since bcrypt would only compare its first 72 bytes.
func (b *Bcrypt) Verify(plaintext, digest string) (bool, error) {
	if len(plaintext) > maxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// NeedsRehash reports whether digest was produced at a cost other than the
// configured one. Digests whose cost cannot be read are reported as stale.
func (b *Bcrypt) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}
	return cost != b.rounds
}

// RehashIfStale recomputes the digest when its embedded cost differs from the
// configured cost. Callers must only invoke it after a successful Verify.
// changed is false when digest is already current.
func (b *Bcrypt) RehashIfStale(plaintext, digest string) (newDigest string, changed bool, err error) {
	if !b.NeedsRehash(digest) {
		return digest, false, nil
	}

	newDigest, err = b.Hash(plaintext)
	if err != nil {
		return digest, false, err
	}
	return newDigest, true, nil
}
