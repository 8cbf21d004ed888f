package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
	"strconv"
)

const (
	// OpaqueIDAlphabet is the character set used for verification ids.
	OpaqueIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	// OpaqueIDLength gives a keyspace of 36^12.
	OpaqueIDLength = 12

	otpMin = 100000
	otpMax = 999999
)

// NewOTP returns a six-digit code drawn uniformly from [100000, 999999].
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// NewOpaqueID returns length characters drawn uniformly from alphabet.
func NewOpaqueID(alphabet string, length int) (string, error) {
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return "", errors.New("invalid opaque id alphabet")
	}
	if length <= 0 {
		return "", errors.New("invalid opaque id length")
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// IsOTP reports whether code has the exact shape produced by NewOTP.
func IsOTP(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return code[0] != '0'
}

// HashOTP binds a code to the verification id it was issued for, so a stored
// hash cannot be replayed under a different id.
func HashOTP(opaqueID, code string) [32]byte {
	return sha256.Sum256([]byte(opaqueID + ":" + code))
}
