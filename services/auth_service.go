package services

import (
	"context"
	"errors"

	"github.com/upb/bearer-auth/models"
	"github.com/upb/bearer-auth/repositories"
	"go.uber.org/zap"
)

// TokenTypeBearer is the token type reported to clients
const TokenTypeBearer = "Bearer"

// TokenIssuer signs tokens for a subject
type TokenIssuer interface {
	Issue(subject string, extra map[string]any) (string, error)
}

// RegisterRequest is the input for creating an account
type RegisterRequest struct {
	Username string `json:"username" validate:"required,notblank,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,notblank,min=6,maxbytes=72"`
}

// LoginRequest is the input for authenticating an existing account
type LoginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required,notblank"`
}

// AuthResponse carries an issued bearer token
type AuthResponse struct {
	Token    string `json:"token"`
	Type     string `json:"type"`
	Username string `json:"username"`
}

// AuthenticationService registers users and issues tokens for them
type AuthenticationService struct {
	users    repositories.UserRepository
	txMgr    repositories.TransactionManager
	hasher   SecretHasher
	verifier *CredentialVerifier
	issuer   TokenIssuer
	logger   *zap.Logger
}

// NewAuthenticationService creates a new authentication service
func NewAuthenticationService(
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
	hasher SecretHasher,
	verifier *CredentialVerifier,
	issuer TokenIssuer,
	logger *zap.Logger,
) *AuthenticationService {
	return &AuthenticationService{
		users:    users,
		txMgr:    txMgr,
		hasher:   hasher,
		verifier: verifier,
		issuer:   issuer,
		logger:   logger,
	}
}

// Register creates a user and issues a token for it.
// The username is checked before the email, so a request conflicting on both reports ErrDuplicateUsername.
func (s *AuthenticationService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	s.logger.Info("registering user", zap.String("username", req.Username))

	var user *models.User
	err := s.txMgr.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		taken, err := s.users.ExistsByUsername(ctx, req.Username)
		if err != nil {
			return ErrInternal.Wrap(err)
		}
		if taken {
			return ErrDuplicateUsername.WithDetail("username", req.Username)
		}

		taken, err = s.users.ExistsByEmail(ctx, req.Email)
		if err != nil {
			return ErrInternal.Wrap(err)
		}
		if taken {
			return ErrDuplicateEmail.WithDetail("email", req.Email)
		}

		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			if IsValidationError(err) {
				return err
			}
			return ErrInternal.Wrap(err)
		}

		user = models.NewUser(req.Username, req.Email, hash)
		if err := s.users.Create(ctx, user); err != nil {
			return mapCreateError(err, req)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("registration rejected",
			zap.String("username", req.Username),
			zap.Error(err))
		return nil, err
	}

	s.logger.Debug("user created", zap.String("id", user.ID.String()))
	return s.issue(user.Username)
}

// Login verifies credentials and issues a token.
// Every credential failure is reported as ErrAuthenticationFailed.
func (s *AuthenticationService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	s.logger.Info("login attempt", zap.String("username", req.Username))

	user, err := s.verifier.Verify(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn("login failed: invalid credentials", zap.String("username", req.Username))
			return nil, ErrAuthenticationFailed.Wrap(err)
		}
		s.logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		return nil, err
	}

	return s.issue(user.Username)
}

func (s *AuthenticationService) issue(username string) (*AuthResponse, error) {
	token, err := s.issuer.Issue(username, nil)
	if err != nil {
		s.logger.Error("token issuance failed", zap.String("username", username), zap.Error(err))
		return nil, ErrTokenIssuance.Wrap(err)
	}
	return &AuthResponse{
		Token:    token,
		Type:     TokenTypeBearer,
		Username: username,
	}, nil
}

// mapCreateError maps store uniqueness violations raised at insert time
func mapCreateError(err error, req RegisterRequest) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicateUsername):
		return ErrDuplicateUsername.Wrap(err).WithDetail("username", req.Username)
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return ErrDuplicateEmail.Wrap(err).WithDetail("email", req.Email)
	default:
		return ErrInternal.Wrap(err)
	}
}
