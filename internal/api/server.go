// Package api provides the REST API server of the sandbox job application service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/stacklok/jobtracker/internal/api/v1"
	"github.com/stacklok/jobtracker/internal/auth"
	"github.com/stacklok/jobtracker/internal/service"
)

// BasePath is the prefix of every sandbox route.
const BasePath = "/api"

// PublicPaths are served without a bearer token.
var PublicPaths = []string{
	"/health",
	"/readiness",
	"/version",
	BasePath + "/health",
	BasePath + "/readiness",
	BasePath + "/version",
	BasePath + "/User/login",
	BasePath + "/User/create",
}

// Issuer signs and validates the sandbox access tokens.
type Issuer interface {
	v1.TokenIssuer
	auth.TokenValidator
}

// ServerOption configures the sandbox API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares []func(http.Handler) http.Handler
	realm       string
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithRealm sets the realm announced in WWW-Authenticate challenges
func WithRealm(realm string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.realm = realm
	}
}

// NewServer creates the HTTP router of the sandbox. Every route outside
// PublicPaths requires a bearer token signed by issuer.
func NewServer(svc service.Service, issuer Issuer, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}
	r.Use(auth.WrapWithPublicPaths(auth.NewMiddleware(issuer, cfg.realm).Handler, PublicPaths))

	r.Mount("/", v1.HealthRouter(svc))
	r.Mount(BasePath, v1.Router(svc, issuer))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
