package services

import (
	"context"
	"errors"
	"sync"

	"github.com/upb/bearer-auth/models"
	"github.com/upb/bearer-auth/repositories"
	"go.uber.org/zap"
)

// CredentialVerifier checks a username and presented secret against the user store
type CredentialVerifier struct {
	users  repositories.UserRepository
	hasher SecretHasher
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialVerifier creates a new credential verifier
func NewCredentialVerifier(users repositories.UserRepository, hasher SecretHasher, logger *zap.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		users:  users,
		hasher: hasher,
		logger: logger,
	}
}

// Verify returns the user when secret matches its stored hash.
// An unknown username and a wrong secret both return ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, username, secret string) (*models.User, error) {
	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			// same hashing cost as a wrong secret
			v.hasher.Matches(secret, v.placeholderHash())
			v.logger.Debug("credential check failed", zap.String("reason", "unknown user"))
			return nil, ErrInvalidCredentials
		}
		return nil, ErrInternal.Wrap(err)
	}

	if !v.hasher.Matches(secret, user.PasswordHash) {
		v.logger.Debug("credential check failed", zap.String("reason", "secret mismatch"))
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (v *CredentialVerifier) placeholderHash() string {
	v.dummyOnce.Do(func() {
		hash, err := v.hasher.Hash("placeholder-secret-for-unknown-users")
		if err != nil {
			v.logger.Warn("failed to build placeholder hash", zap.Error(err))
			return
		}
		v.dummyHash = hash
	})
	return v.dummyHash
}
