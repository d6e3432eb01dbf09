// Package auth issues and verifies the bearer tokens of the sandbox API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RFC 6750 Section 3 error codes
const (
	// errorCodeInvalidRequest indicates the request is missing a required parameter,
	// includes an unsupported parameter or parameter value, or is otherwise malformed.
	errorCodeInvalidRequest = "invalid_request"

	// errorCodeInvalidToken indicates the access token provided is expired, revoked,
	// malformed, or invalid for other reasons.
	errorCodeInvalidToken = "invalid_token"
)

// defaultRealm is the default protection space identifier
const defaultRealm = "jobtracker"

var errMissingBearer = errors.New("missing or malformed authorization header")

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (jwt.MapClaims, error)
}

type claimsKey struct{}

// ContextWithClaims returns ctx carrying claims
func ContextWithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// SubjectFromContext returns the "sub" claim of an authenticated request
func SubjectFromContext(ctx context.Context) (string, bool) {
	claims, ok := ctx.Value(claimsKey{}).(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// Middleware rejects requests without a valid bearer token.
type Middleware struct {
	validator TokenValidator
	realm     string
}

// NewMiddleware creates a bearer token middleware. An empty realm uses the default.
func NewMiddleware(validator TokenValidator, realm string) *Middleware {
	if realm == "" {
		realm = defaultRealm
	}
	return &Middleware{validator: validator, realm: realm}
}

// Handler returns an HTTP middleware function that performs authentication.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			slog.Warn("Token extraction failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeError(w, http.StatusUnauthorized, errorCodeInvalidRequest, errMissingBearer.Error())
			return
		}

		claims, err := m.validator.ValidateToken(r.Context(), token)
		if err != nil {
			slog.Warn("Token validation failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeError(w, http.StatusUnauthorized, errorCodeInvalidToken, "token validation failed")
			return
		}

		slog.Debug("Authentication successful", "subject", claims["sub"], "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMissingBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}

// sanitizeHeaderValue removes characters that could enable header injection attacks.
// This includes newlines, carriage returns, and unescaped quotes.
func sanitizeHeaderValue(s string) string {
	if !strings.ContainsAny(s, "\r\n\"") {
		return s
	}
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	// Escape quotes for use in quoted-string (RFC 7230)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// writeError writes an enveloped JSON error with an RFC 6750 WWW-Authenticate header.
func (m *Middleware) writeError(w http.ResponseWriter, status int, errCode, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="%s", error="%s", error_description="%s"`,
		sanitizeHeaderValue(m.realm), errCode, sanitizeHeaderValue(description)))
	w.WriteHeader(status)

	resp := struct {
		Message       string   `json:"message"`
		StatusCode    int      `json:"statusCode"`
		Success       bool     `json:"success"`
		ErrorMessages []string `json:"errorMessages"`
	}{
		Message:       "Unauthorized",
		StatusCode:    status,
		ErrorMessages: []string{description},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// WrapWithPublicPaths wraps an auth middleware to bypass authentication for public paths.
// Requests to public paths are passed directly to the next handler without authentication,
// while all other requests go through the provided auth middleware.
func WrapWithPublicPaths(
	authMw func(http.Handler) http.Handler,
	publicPaths []string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Pre-wrap the handler once during initialization, not per-request
		authWrappedNext := authMw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsPublicPath(r.URL.Path, publicPaths) {
				authWrappedNext.ServeHTTP(w, r)
			} else {
				next.ServeHTTP(w, r)
			}
		})
	}
}
