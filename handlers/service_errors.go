package handlers

import (
	"net/http"

	"github.com/upb/bearer-auth/services"
	"github.com/upb/bearer-auth/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
// Only the client-safe Message of a DomainError is written; wrapped causes stay in the logs.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	message := services.PublicMessage(err)
	details := services.GetErrorDetails(err)

	var status int
	switch {
	case services.IsNotFoundError(err):
		status = http.StatusNotFound
	case services.IsValidationError(err):
		status = http.StatusBadRequest
	case services.IsUnauthorizedError(err):
		status = http.StatusUnauthorized
		// credential failures never say which check failed
		details = nil
	case services.IsConflictError(err):
		status = http.StatusConflict
	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		status = http.StatusInternalServerError
		message = "An internal error occurred"
		details = nil
	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		status = http.StatusInternalServerError
		message = "An unexpected error occurred"
		details = nil
	}

	if len(details) == 0 {
		details = nil
	}

	if werr := utils.WriteError(w, status, message, details); werr != nil {
		logger.Error("failed to write error response", zap.Int("status", status), zap.Error(werr))
	}

	logger.Debug("handled service error",
		zap.Int("status", status),
		zap.String("type", string(services.GetErrorType(err))),
		zap.String("message", message))
}
