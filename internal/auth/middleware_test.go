package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte("k"), 32)

func newTestIssuer(t *testing.T, opts ...IssuerOption) *Issuer {
	t.Helper()
	i, err := NewIssuer(testKey, "sandbox", opts...)
	require.NoError(t, err)
	return i
}

func TestMiddleware_Handler(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	valid, err := issuer.Issue("alice@example.com")
	require.NoError(t, err)

	other, err := NewIssuer(bytes.Repeat([]byte("x"), 32), "sandbox")
	require.NoError(t, err)
	forged, err := other.Issue("mallory@example.com")
	require.NoError(t, err)

	tests := []struct {
		name        string
		authHeader  string
		wantStatus  int
		wantSubject string
		wantErrCode string
	}{
		{name: "missing authorization header", wantStatus: http.StatusUnauthorized, wantErrCode: errorCodeInvalidRequest},
		{name: "basic auth", authHeader: "Basic xyz", wantStatus: http.StatusUnauthorized, wantErrCode: errorCodeInvalidRequest},
		{name: "empty bearer token", authHeader: "Bearer ", wantStatus: http.StatusUnauthorized, wantErrCode: errorCodeInvalidRequest},
		{name: "garbage token", authHeader: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantErrCode: errorCodeInvalidToken},
		{name: "token signed with another key", authHeader: "Bearer " + forged, wantStatus: http.StatusUnauthorized, wantErrCode: errorCodeInvalidToken},
		{name: "valid token", authHeader: "Bearer " + valid, wantStatus: http.StatusOK, wantSubject: "alice@example.com"},
		{name: "scheme is case-insensitive", authHeader: "bearer " + valid, wantStatus: http.StatusOK, wantSubject: "alice@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotSubject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSubject, _ = SubjectFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/JobApplication", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			NewMiddleware(issuer, "").Handler(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSubject, gotSubject)
			if tt.wantErrCode != "" {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="`+tt.wantErrCode+`"`)
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `realm="jobtracker"`)
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestSanitizeHeaderValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", sanitizeHeaderValue("plain"))
	assert.Equal(t, `evilinjected: yes`, sanitizeHeaderValue("evil\r\ninjected: yes"))
	assert.Equal(t, `say \"hi\"`, sanitizeHeaderValue(`say "hi"`))
}

func TestWrapWithPublicPaths(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	mw := WrapWithPublicPaths(NewMiddleware(issuer, "").Handler, []string{"/api/User/login", "/health"})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		path string
		want int
	}{
		{path: "/api/User/login", want: http.StatusNoContent},
		{path: "/health", want: http.StatusNoContent},
		{path: "/healthz", want: http.StatusUnauthorized},
		{path: "/health/../api/JobApplication", want: http.StatusUnauthorized},
		{path: "/api/JobApplication", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestIsPublicPath(t *testing.T) {
	t.Parallel()

	public := []string{"/api/User/login", "api/User/create", "/version"}
	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "exact match", path: "/api/User/login", want: true},
		{name: "public path without leading slash", path: "/api/User/create", want: true},
		{name: "sub path", path: "/version/details", want: true},
		{name: "trailing slash", path: "/version/", want: true},
		{name: "prefix without segment boundary", path: "/versions", want: false},
		{name: "traversal out of public path", path: "/version/../api/JobApplication", want: false},
		{name: "encoded slash", path: "/api/User%2Flogin", want: false},
		{name: "encoded dot", path: "/version/%2e%2e/api", want: false},
		{name: "double slash", path: "//version", want: true},
		{name: "protected", path: "/api/JobApplication", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPublicPath(tt.path, public))
		})
	}

	assert.True(t, IsPublicPath("/anything", []string{"/"}))
}

func TestIssuer(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		issuer := newTestIssuer(t)
		token, err := issuer.Issue("alice@example.com")
		require.NoError(t, err)

		claims, err := issuer.ValidateToken(t.Context(), token)
		require.NoError(t, err)
		sub, err := claims.GetSubject()
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", sub)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		issuer := newTestIssuer(t, WithTokenTTL(time.Hour), WithClock(func() time.Time { return now }))
		token, err := issuer.Issue("alice@example.com")
		require.NoError(t, err)

		later := newTestIssuer(t, WithClock(func() time.Time { return now.Add(2 * time.Hour) }))
		_, err = later.ValidateToken(t.Context(), token)
		assert.ErrorContains(t, err, "token is expired")
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		other, err := NewIssuer(testKey, "elsewhere")
		require.NoError(t, err)
		token, err := other.Issue("alice@example.com")
		require.NoError(t, err)

		_, err = newTestIssuer(t).ValidateToken(t.Context(), token)
		assert.Error(t, err)
	})

	t.Run("unsigned token", func(t *testing.T) {
		t.Parallel()
		_, err := newTestIssuer(t).ValidateToken(t.Context(),
			"eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJhbGljZSJ9.")
		assert.Error(t, err)
	})

	t.Run("empty subject", func(t *testing.T) {
		t.Parallel()
		_, err := newTestIssuer(t).Issue("")
		assert.Error(t, err)
	})

	t.Run("short key", func(t *testing.T) {
		t.Parallel()
		_, err := NewIssuer([]byte("short"), "sandbox")
		assert.ErrorContains(t, err, "at least 32 bytes")
	})

	t.Run("generated key", func(t *testing.T) {
		t.Parallel()
		issuer, err := NewIssuer(nil, "sandbox")
		require.NoError(t, err)
		token, err := issuer.Issue("bob@example.com")
		require.NoError(t, err)
		_, err = issuer.ValidateToken(t.Context(), token)
		assert.NoError(t, err)
	})
}
