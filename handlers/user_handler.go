package handlers

import (
	"net/http"
	"time"

	"github.com/upb/bearer-auth/middleware"
	"github.com/upb/bearer-auth/utils"
	"go.uber.org/zap"
)

// UserProfile is the public view of the authenticated principal
type UserProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthProbeResponse reports who the request was authenticated as
type AuthProbeResponse struct {
	Message  string  `json:"message"`
	Username *string `json:"username"`
}

// UserHandler serves endpoints that read the request principal
type UserHandler struct {
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(logger *zap.Logger) *UserHandler {
	return &UserHandler{logger: logger}
}

// HandleMe handles GET /api/v1/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		// RequireAuth normally guards this route
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	profile := UserProfile{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		Roles:     user.RoleNames(),
		CreatedAt: user.CreatedAt,
	}
	if err := utils.WriteOK(w, profile); err != nil {
		h.logger.Error("failed to write profile response", zap.Error(err))
	}
}

// HandleAuthProbe handles GET /v1/user/test. It is reachable without a token
// and reports whether the middleware installed a principal.
func (h *UserHandler) HandleAuthProbe(w http.ResponseWriter, r *http.Request) {
	outcome := middleware.OutcomeFromContext(r.Context())

	resp := AuthProbeResponse{Message: "User not authenticated"}
	if outcome.Authenticated() {
		name := outcome.Username()
		resp = AuthProbeResponse{
			Message:  "Authentication working correctly!",
			Username: &name,
		}
	}

	h.logger.Debug("auth probe",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.Bool("authenticated", outcome.Authenticated()))
	if err := utils.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write probe response", zap.Error(err))
	}
}
