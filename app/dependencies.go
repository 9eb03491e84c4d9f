package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/bearer-auth/auth"
	"github.com/upb/bearer-auth/config"
	"github.com/upb/bearer-auth/handlers"
	"github.com/upb/bearer-auth/middleware"
	"github.com/upb/bearer-auth/repositories"
	"github.com/upb/bearer-auth/repositories/postgres"
	"github.com/upb/bearer-auth/services"
	"github.com/upb/bearer-auth/token"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	TxManager repositories.TransactionManager

	// Auth core
	Tokens   *token.Codec
	Hasher   services.SecretHasher
	Verifier *services.CredentialVerifier
	Sessions *services.AuthenticationService
	Accounts *services.UserService

	// HTTP
	authHandler    *auth.Handler
	AuthMiddleware *middleware.AuthMiddleware
	HealthHandler  *handlers.HealthHandler
	UserHandler    *handlers.UserHandler
}

// AuthHandler returns the auth handler for route wiring
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies connects to PostgreSQL, applies migrations when enabled and wires
// every component on top of the resulting repositories.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories(deps.RepoFactory.NewRepositories(), deps.RepoFactory.GetTransactionManager())

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.RepoFactory.Close()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesFromRepositories wires the auth core and HTTP handlers over
// caller-supplied repositories. No database connection is opened.
func NewDependenciesFromRepositories(
	cfg *config.Config,
	logger *zap.Logger,
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	deps.initRepositories(repos, txMgr)

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}
	deps.initHandlers()

	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if cfg.Database.AutoMigrate {
		if err := factory.Migrate(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()),
		zap.Bool("auto_migrate", cfg.Database.AutoMigrate))

	return nil
}

func (d *Dependencies) initRepositories(repos *repositories.Repositories, txMgr repositories.TransactionManager) {
	d.Users = repos.Users
	d.TxManager = txMgr
	d.Logger.Info("repositories initialized")
}

// initAuth builds the token codec and the services layered on it.
// A secret that is too short for HS256 is fatal.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	codec, err := token.NewCodec([]byte(cfg.JWT.Secret), cfg.JWT.Expiration, token.WithLogger(d.Logger))
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	d.Tokens = codec

	d.Hasher = services.NewBcryptHasher(cfg.Security.BcryptCost)
	d.Verifier = services.NewCredentialVerifier(d.Users, d.Hasher, d.Logger)
	d.Sessions = services.NewAuthenticationService(d.Users, d.TxManager, d.Hasher, d.Verifier, codec, d.Logger)
	d.Accounts = services.NewUserService(d.Users, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(codec, d.Accounts, d.Logger)

	d.Logger.Info("auth initialized",
		zap.String("algorithm", codec.Algorithm()),
		zap.Duration("token_ttl", codec.TTL()))
	return nil
}

func (d *Dependencies) initHandlers() {
	d.authHandler = auth.NewHandler(d.Sessions, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Logger)
	if d.DB != nil {
		d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Logger)
	} else {
		d.HealthHandler = handlers.NewHealthHandler(nil, d.Logger)
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
