package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
	"github.com/upb/bearer-auth/models"
	"github.com/upb/bearer-auth/repositories"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// passthroughTxManager runs fn directly and records the outcome
type passthroughTxManager struct {
	committed  int
	rolledBack int
}

func (p *passthroughTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return nil, nil
}

func (p *passthroughTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if err := fn(ctx, nil); err != nil {
		p.rolledBack++
		return err
	}
	p.committed++
	return nil
}

// plainHasher is a reversible SecretHasher that counts comparisons
type plainHasher struct {
	compares atomic.Int32
}

func (h *plainHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (h *plainHasher) Matches(plain, hash string) bool {
	h.compares.Add(1)
	return strings.TrimPrefix(hash, "hashed:") == plain && strings.HasPrefix(hash, "hashed:")
}

// memoryUserRepository is an in-memory store enforcing unique username and email
type memoryUserRepository struct {
	mu      sync.Mutex
	byName  map[string]*models.User
	byEmail map[string]*models.User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{
		byName:  make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (r *memoryUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byName[username]
	return ok, nil
}

func (r *memoryUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[user.Username]; ok {
		return repositories.ErrDuplicateUsername
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return repositories.ErrDuplicateEmail
	}
	r.byName[user.Username] = user
	r.byEmail[user.Email] = user
	return nil
}

func (r *memoryUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byName[username]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (r *memoryUserRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}
