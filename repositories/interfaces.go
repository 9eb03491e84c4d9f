package repositories

import (
	"context"
	"errors"

	"github.com/upb/bearer-auth/models"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when the username uniqueness constraint is violated
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrDuplicateEmail is returned when the email uniqueness constraint is violated
	ErrDuplicateEmail = errors.New("email already exists")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository is the principal store.
// Uniqueness of username and email is enforced by the store itself.
type UserRepository interface {
	// ExistsByUsername reports whether a user with the username exists
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether a user with the email exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create persists a new user and its roles.
	// Returns ErrDuplicateUsername or ErrDuplicateEmail on constraint violation.
	Create(ctx context.Context, user *models.User) error

	// GetByUsername retrieves a user with its roles, or ErrUserNotFound
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Users UserRepository
}
