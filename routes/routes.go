package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/bearer-auth/app"
	"github.com/upb/bearer-auth/handlers"
	"github.com/upb/bearer-auth/middleware"
	"go.uber.org/zap"
)

// ServiceName is reported by the status endpoint
const ServiceName = "bearer-auth"

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout(deps)))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Security.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Every route sees the bearer-token outcome; protection is opt-in per route.
	r.Use(deps.AuthMiddleware.Authenticate)

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// Credential exchange
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", deps.AuthHandler().HandleRegister)
		r.Post("/login", deps.AuthHandler().HandleLogin)
	})

	// Authentication probe, public
	r.Get("/v1/user/test", deps.UserHandler.HandleAuthProbe)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handlers.StatusHandler(ServiceName, deps.Config.Environment))

		r.Route("/users", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/me", deps.UserHandler.HandleMe)
		})
	})

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	return r
}

func requestTimeout(deps *app.Dependencies) time.Duration {
	if d := deps.Config.Server.RequestTimeout; d > 0 {
		return d
	}
	return 60 * time.Second
}

// requestLogger logs one structured line per request with the chi request ID
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
