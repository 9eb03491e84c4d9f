package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/bearer-auth/models"
	"github.com/upb/bearer-auth/utils"
	"go.uber.org/zap"
)

// BearerPrefix is the literal, case-sensitive scheme prefix of the Authorization header
const BearerPrefix = "Bearer "

// TokenAuthority parses and validates bearer tokens
type TokenAuthority interface {
	ParseSubject(token string) (string, error)
	Validate(token, expectedSubject string) bool
}

// PrincipalLoader resolves a token subject to a stored user
type PrincipalLoader interface {
	LoadByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	tokens     TokenAuthority
	principals PrincipalLoader
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(tokens TokenAuthority, principals PrincipalLoader, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:     tokens,
		principals: principals,
		logger:     logger,
	}
}

// Authenticate installs the request's principal when it presents a valid bearer token.
// It never writes a response: every failure leaves the request unauthenticated and
// the next handler always runs.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := m.authenticate(r); ok {
			r = r.WithContext(WithPrincipal(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, bool) {
	ctx := r.Context()
	requestID := GetRequestIDFromContext(ctx)

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, BearerPrefix) {
		return nil, false
	}
	raw := header[len(BearerPrefix):]

	subject, err := m.tokens.ParseSubject(raw)
	if err != nil {
		m.logger.Warn("bearer token rejected",
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, false
	}

	if _, installed := PrincipalFromContext(ctx); installed {
		return nil, false
	}

	user, err := m.principals.LoadByUsername(ctx, subject)
	if err != nil {
		m.logger.Warn("token subject could not be resolved",
			zap.String("request_id", requestID),
			zap.String("subject", subject),
			zap.Error(err))
		return nil, false
	}
	if err := ctx.Err(); err != nil {
		m.logger.Debug("request cancelled during authentication",
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, false
	}

	if !m.tokens.Validate(raw, user.Username) {
		m.logger.Warn("bearer token failed validation",
			zap.String("request_id", requestID),
			zap.String("subject", subject))
		return nil, false
	}

	m.logger.Debug("authentication successful",
		zap.String("request_id", requestID),
		zap.String("username", user.Username))
	return user, true
}

// RequireAuth rejects requests without an authenticated principal with 401.
// It must run after Authenticate.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !OutcomeFromContext(r.Context()).Authenticated() {
			m.logger.Debug("unauthenticated request to protected route",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Full authentication is required to access this resource")
			return
		}
		next.ServeHTTP(w, r)
	})
}
