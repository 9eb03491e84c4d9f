package app

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/bearer-auth/config"
	"github.com/upb/bearer-auth/models"
	"github.com/upb/bearer-auth/repositories"
	"github.com/upb/bearer-auth/repositories/postgres"
	"github.com/upb/bearer-auth/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewDependencies(t *testing.T) {
	t.Run("successful initialization with all components", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		logger := zaptest.NewLogger(t)

		if !isDatabaseAvailable(t, cfg) {
			t.Skip("database not available")
		}

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Users)
		assert.NotNil(t, deps.TxManager)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.AuthHandler())

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("database connection failure", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.Database.Host = "invalid-host-that-does-not-exist"
		logger := zaptest.NewLogger(t)

		deps, err := NewDependencies(ctx, cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize database")
	})
}

func TestNewDependenciesFromRepositories(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("wires the auth core", func(t *testing.T) {
		deps, err := NewDependenciesFromRepositories(testConfig(t), logger, &repositories.Repositories{Users: newStubUsers()}, stubTxManager{})
		require.NoError(t, err)

		assert.Equal(t, "HS256", deps.Tokens.Algorithm())
		assert.Equal(t, 15*time.Minute, deps.Tokens.TTL())
		assert.NotNil(t, deps.Verifier)
		assert.NotNil(t, deps.Sessions)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.AuthHandler())
		assert.NotNil(t, deps.HealthHandler)
		assert.NotNil(t, deps.UserHandler)
		assert.NoError(t, deps.Close(context.Background()))
	})

	t.Run("short secret is fatal", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.JWT.Secret = "too-short"

		deps, err := NewDependenciesFromRepositories(cfg, logger, &repositories.Repositories{Users: newStubUsers()}, stubTxManager{})
		assert.Nil(t, deps)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create token codec")
	})

	t.Run("issued tokens resolve through the middleware loader", func(t *testing.T) {
		deps, err := NewDependenciesFromRepositories(testConfig(t), logger, &repositories.Repositories{Users: newStubUsers()}, stubTxManager{})
		require.NoError(t, err)
		ctx := context.Background()

		resp, err := deps.Sessions.Register(ctx, services.RegisterRequest{
			Username: "alice", Email: "alice@example.com", Password: "s3cret!",
		})
		require.NoError(t, err)

		subject, err := deps.Tokens.ParseSubject(resp.Token)
		require.NoError(t, err)
		user, err := deps.Accounts.LoadByUsername(ctx, subject)
		require.NoError(t, err)
		assert.True(t, deps.Tokens.Validate(resp.Token, user.Username))

		_, err = deps.Sessions.Login(ctx, services.LoginRequest{Username: "alice", Password: "s3cret!"})
		assert.NoError(t, err)
	})
}

// Test helpers

type stubUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{users: make(map[string]*models.User)}
}

func (s *stubUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok, nil
}

func (s *stubUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubUsers) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return repositories.ErrDuplicateUsername
	}
	s.users[user.Username] = user
	return nil
}

func (s *stubUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

type stubTxManager struct{}

func (stubTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return nil, nil
}

func (stubTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, nil)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: config.DatabaseConfig{
			Host:            getEnvOrDefault("DB_HOST", "localhost"),
			Port:            5432,
			User:            getEnvOrDefault("DB_USER", "bearer"),
			Password:        getEnvOrDefault("DB_PASSWORD", "bearer"),
			Database:        getEnvOrDefault("DB_NAME", "bearer_auth_test"),
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		JWT: config.JWTConfig{
			Secret:     "0123456789abcdef0123456789abcdef",
			Expiration: 15 * time.Minute,
		},
		Security: config.SecurityConfig{
			BcryptCost:         4,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "json",
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func isDatabaseAvailable(t *testing.T, cfg *config.Config) bool {
	t.Helper()
	factory, err := postgres.NewRepositoryFactory(cfg, zap.NewNop())
	if err != nil {
		return false
	}
	defer factory.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return factory.GetDB().PingContext(ctx) == nil
}
