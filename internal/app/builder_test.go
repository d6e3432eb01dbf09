package app

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/jobtracker/internal/auth"
	"github.com/stacklok/jobtracker/internal/config"
	"github.com/stacklok/jobtracker/internal/service/inmemory"
)

func TestBaseConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := baseConfig()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSandboxAddress, cfg.address)
	assert.Equal(t, defaultRequestTimeout, cfg.requestTimeout)
	assert.NotNil(t, cfg.config)

	cfg, err = baseConfig(WithConfig(&config.Config{Sandbox: &config.SandboxConfig{Address: ":7000"}}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.address)

	cfg, err = baseConfig(
		WithConfig(&config.Config{Sandbox: &config.SandboxConfig{Address: ":7000"}}),
		WithAddress(":7001"),
	)
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.address)
}

func TestBaseConfig_OptionError(t *testing.T) {
	t.Parallel()

	_, err := baseConfig(WithAddress(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address cannot be empty")
}

func TestWithAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "valid address", address: ":9999", want: ":9999"},
		{name: "valid address with host", address: "127.0.0.1:9999", want: "127.0.0.1:9999"},
		{name: "valid address with localhost", address: "localhost:5000", want: "localhost:5000"},
		{name: "invalid empty address", address: "", wantErr: true},
		{name: "invalid empty port", address: ":", wantErr: true},
		{name: "invalid missing port", address: "localhost", wantErr: true},
		{name: "invalid port number", address: "localhost:999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &sandboxAppConfig{}
			err := WithAddress(tt.address)(cfg)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.address)
		})
	}
}

func TestWithMiddlewares(t *testing.T) {
	t.Parallel()

	var called bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	app, err := NewSandboxApp(context.Background(), WithAddress(":0"), WithMiddlewares(mw))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	app.httpServer.Handler.ServeHTTP(&discardWriter{header: http.Header{}}, req)
	assert.True(t, called)
}

func TestNewSandboxApp_InjectedComponents(t *testing.T) {
	t.Parallel()

	svc := inmemory.New()
	issuer, err := auth.NewIssuer(bytes.Repeat([]byte("k"), 32), TokenIssuer)
	require.NoError(t, err)

	app, err := NewSandboxApp(context.Background(),
		WithAddress(":0"),
		WithService(svc),
		WithIssuer(issuer),
	)
	require.NoError(t, err)
	assert.Same(t, issuer, app.components.Issuer)
	assert.Equal(t, svc, app.components.Service)
	assert.Nil(t, app.metricsServer)
}

func TestBuildIssuer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	keyFile := filepath.Join(dir, "signing.key")
	require.NoError(t, os.WriteFile(keyFile, append(bytes.Repeat([]byte("a"), 32), '\n'), 0600))
	shortFile := filepath.Join(dir, "short.key")
	require.NoError(t, os.WriteFile(shortFile, []byte("short"), 0600))

	tests := []struct {
		name    string
		sandbox *config.SandboxConfig
		wantErr string
	}{
		{name: "random key", sandbox: nil},
		{name: "key from file", sandbox: &config.SandboxConfig{SigningKeyFile: keyFile}},
		{name: "missing file", sandbox: &config.SandboxConfig{SigningKeyFile: filepath.Join(dir, "nope")}, wantErr: "failed to read signing key"},
		{name: "short key", sandbox: &config.SandboxConfig{SigningKeyFile: shortFile}, wantErr: "at least 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			issuer, err := buildIssuer(&config.Config{Sandbox: tt.sandbox})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			token, err := issuer.Issue("ada@example.com")
			require.NoError(t, err)
			claims, err := issuer.ValidateToken(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", claims["sub"])
		})
	}
}

func TestBuildIssuer_KeyFileIsStable(t *testing.T) {
	t.Parallel()

	keyFile := filepath.Join(t.TempDir(), "signing.key")
	require.NoError(t, os.WriteFile(keyFile, bytes.Repeat([]byte("z"), 40), 0600))
	cfg := &config.Config{Sandbox: &config.SandboxConfig{SigningKeyFile: keyFile}}

	first, err := buildIssuer(cfg)
	require.NoError(t, err)
	second, err := buildIssuer(cfg)
	require.NoError(t, err)

	token, err := first.Issue("ada@example.com")
	require.NoError(t, err)
	_, err = second.ValidateToken(context.Background(), token)
	assert.NoError(t, err, "tokens survive a restart with the same key")
}

type discardWriter struct {
	header http.Header
}

func (w *discardWriter) Header() http.Header       { return w.header }
func (*discardWriter) Write(b []byte) (int, error) { return len(b), nil }
func (*discardWriter) WriteHeader(int)             {}
