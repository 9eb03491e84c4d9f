package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/bearer-auth/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for an explicitly set request ID
	RequestIDKey contextKey = "request_id"

	// PrincipalKey is the context key for the authenticated user
	PrincipalKey contextKey = "principal"
)

// AuthOutcome is the result of the authentication pass for one request.
// The zero value is Unauthenticated.
type AuthOutcome struct {
	Principal *models.User
}

// Unauthenticated is the outcome when no identity was established
var Unauthenticated = AuthOutcome{}

// Authenticated reports whether a principal was installed
func (o AuthOutcome) Authenticated() bool {
	return o.Principal != nil
}

// Username returns the principal's name, or "" when unauthenticated
func (o AuthOutcome) Username() string {
	if o.Principal == nil {
		return ""
	}
	return o.Principal.Username
}

// WithPrincipal installs an authenticated user for the rest of the request
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, PrincipalKey, user)
}

// PrincipalFromContext retrieves the authenticated user, if any
func PrincipalFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(PrincipalKey).(*models.User)
	return user, ok && user != nil
}

// OutcomeFromContext reports the authentication outcome for the request
func OutcomeFromContext(ctx context.Context) AuthOutcome {
	if user, ok := PrincipalFromContext(ctx); ok {
		return AuthOutcome{Principal: user}
	}
	return Unauthenticated
}

// GetRequestIDFromContext retrieves the request ID, falling back to chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		return requestID
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
