package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces and checks self-describing bcrypt hashes.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher clamps cost into bcrypt's accepted range; zero selects
// bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt encoding ($2a$cost$salt+digest) of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes are a
// mismatch, never an error.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
