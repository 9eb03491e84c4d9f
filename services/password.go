package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SecretHasher is the one-way hashing primitive for stored credentials
type SecretHasher interface {
	Hash(plain string) (string, error)
	Matches(plain, hash string) bool
}

// BcryptHasher implements SecretHasher with bcrypt
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost.
// Costs outside bcrypt's accepted range fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// MaxSecretBytes is the longest secret bcrypt accepts
const MaxSecretBytes = 72

// Hash returns the bcrypt hash of plain.
// Secrets longer than MaxSecretBytes return ErrSecretTooLong.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrSecretTooLong.Wrap(err).WithDetail("password", fmt.Sprintf("password must be at most %d bytes", MaxSecretBytes))
		}
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether plain hashes to hash. A malformed hash never matches.
func (h *BcryptHasher) Matches(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
