package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/bearer-auth/handlers"
	"github.com/upb/bearer-auth/services"
	"github.com/upb/bearer-auth/utils"
	"go.uber.org/zap"
)

// SessionIssuer registers users and logs them in, returning bearer tokens
type SessionIssuer interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.AuthResponse, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.AuthResponse, error)
}

// Handler serves the credential exchange endpoints under /auth
type Handler struct {
	issuer SessionIssuer
	logger *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(issuer SessionIssuer, logger *zap.Logger) *Handler {
	return &Handler{
		issuer: issuer,
		logger: logger,
	}
}

// HandleRegister handles POST /auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.logger.Info("received registration request", zap.String("username", req.Username))
	resp, err := h.issuer.Register(r.Context(), req)
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, resp); err != nil {
		h.logger.Error("failed to write register response", zap.Error(err))
	}
}

// HandleLogin handles POST /auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.logger.Info("received login request", zap.String("username", req.Username))
	resp, err := h.issuer.Login(r.Context(), req)
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, resp); err != nil {
		h.logger.Error("failed to write login response", zap.Error(err))
	}
}

// decode reads and validates the request body, writing a 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.DecodeJSON(w, r, dst); err != nil {
		h.logger.Debug("invalid request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		var details map[string]interface{}
		var vErr *utils.ValidationError
		if errors.As(err, &vErr) {
			details = vErr.Details()
		}
		_ = utils.WriteBadRequest(w, err.Error(), details)
		return false
	}
	return true
}
