package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// PasswordHasher wraps bcrypt with a fixed cost. bcrypt generates a fresh
// salt per call and embeds it, together with the cost, in the hash string.
type PasswordHasher struct {
	cost int

	// compared against when the account does not exist, so both login
	// failure paths pay for one bcrypt comparison
	dummyHash []byte
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		// only fails for out-of-range cost, which is clamped above
		panic(err)
	}

	return &PasswordHasher{cost: cost, dummyHash: dummy}
}

func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash hashes a plain text password with bcrypt.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify compares a bcrypt hash with a plaintext password.
// A malformed hash is reported as a mismatch.
func (h *PasswordHasher) Verify(plain, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return true
	}

	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		// still burn the comparison time for malformed hashes
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plain))
	}

	return false
}

// VerifyMissing burns the same time as a real comparison and always fails.
func (h *PasswordHasher) VerifyMissing(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plain))
	return false
}
