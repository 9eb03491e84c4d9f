package handlers

import (
	"net/http"
	"time"

	"github.com/upb/bearer-auth/utils"
)

// Version is the reported build version, overridable with -ldflags
var Version = "0.1.0"

// StatusResponse describes the running service
type StatusResponse struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
}

// StatusHandler returns application status information
func StatusHandler(service, environment string) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, StatusResponse{
			Service:     service,
			Version:     Version,
			Environment: environment,
			Uptime:      time.Since(started).Truncate(time.Second).String(),
		})
	}
}

// NotFound writes a JSON 404 for unmatched routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteNotFound(w, "route not found: "+r.URL.Path)
}

// MethodNotAllowed writes a JSON 405 for known routes with the wrong method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed", nil)
}
