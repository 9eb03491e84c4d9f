package services

import (
	"context"
	"errors"

	"github.com/upb/bearer-auth/models"
	"github.com/upb/bearer-auth/repositories"
	"go.uber.org/zap"
)

// UserService resolves principals by name
type UserService struct {
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users repositories.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// LoadByUsername returns the user or ErrUserNotFound
func (s *UserService) LoadByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("user lookup failed", zap.String("username", username), zap.Error(err))
		return nil, ErrInternal.Wrap(err)
	}
	return user, nil
}
