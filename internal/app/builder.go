package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/jobtracker/internal/api"
	"github.com/stacklok/jobtracker/internal/auth"
	"github.com/stacklok/jobtracker/internal/config"
	"github.com/stacklok/jobtracker/internal/service"
	"github.com/stacklok/jobtracker/internal/service/inmemory"
	"github.com/stacklok/jobtracker/internal/telemetry"
)

const (
	// TokenIssuer is the iss claim of sandbox tokens
	TokenIssuer = "jobtracker-sandbox"

	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// SandboxAppOption is a function that configures the sandbox app builder
type SandboxAppOption func(*sandboxAppConfig) error

// sandboxAppConfig collects the inputs of NewSandboxApp. Component overrides
// exist primarily for testing.
type sandboxAppConfig struct {
	config *config.Config

	service   service.Service
	issuer    *auth.Issuer
	telemetry *telemetry.Telemetry

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...SandboxAppOption) (*sandboxAppConfig, error) {
	cfg := &sandboxAppConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		cfg.config = &config.Config{}
	}
	if cfg.address == "" {
		cfg.address = cfg.config.GetSandboxAddress()
	}
	return cfg, nil
}

// NewSandboxApp builds the sandbox API server from the given options
func NewSandboxApp(ctx context.Context, opts ...SandboxAppOption) (*SandboxApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.config.Telemetry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	if cfg.service == nil {
		cfg.service = inmemory.New()
	}

	if cfg.issuer == nil {
		cfg.issuer, err = buildIssuer(cfg.config)
		if err != nil {
			return nil, fmt.Errorf("failed to build token issuer: %w", err)
		}
	}

	httpServer, err := buildHTTPServer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	var metricsServer *http.Server
	if handler := cfg.telemetry.MetricsHandler(); handler != nil && cfg.config.Sandbox != nil &&
		cfg.config.Sandbox.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		metricsServer = &http.Server{
			Addr:              cfg.config.Sandbox.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: cfg.readTimeout,
		}
		slog.Info("Prometheus metrics enabled", "address", metricsServer.Addr)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &SandboxApp{
		config: cfg.config,
		components: &AppComponents{
			Service: cfg.service,
			Issuer:  cfg.issuer,
		},
		httpServer:    httpServer,
		metricsServer: metricsServer,
		telemetry:     cfg.telemetry,
		ctx:           appCtx,
		cancelFunc:    cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SandboxAppOption {
	return func(cfg *sandboxAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) SandboxAppOption {
	return func(cfg *sandboxAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) SandboxAppOption {
	return func(cfg *sandboxAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithService allows injecting the sandbox service (for testing)
func WithService(svc service.Service) SandboxAppOption {
	return func(cfg *sandboxAppConfig) error {
		cfg.service = svc
		return nil
	}
}

// WithIssuer allows injecting the token issuer (for testing)
func WithIssuer(issuer *auth.Issuer) SandboxAppOption {
	return func(cfg *sandboxAppConfig) error {
		cfg.issuer = issuer
		return nil
	}
}

// WithTelemetry allows injecting initialized telemetry providers
func WithTelemetry(t *telemetry.Telemetry) SandboxAppOption {
	return func(cfg *sandboxAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildIssuer reads the signing key from the configured file, or lets the
// issuer generate a random one.
func buildIssuer(c *config.Config) (*auth.Issuer, error) {
	var key []byte
	if c.Sandbox != nil && c.Sandbox.SigningKeyFile != "" {
		data, err := os.ReadFile(filepath.Clean(c.Sandbox.SigningKeyFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read signing key: %w", err)
		}
		key = bytes.TrimSpace(data)
	} else {
		slog.Warn("No signing key configured, tokens will not survive a restart")
	}
	return auth.NewIssuer(key, TokenIssuer)
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *sandboxAppConfig) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// instrumentation goes first so that requests rejected later are counted
	metrics, err := telemetry.NewHTTPMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	b.middlewares = append([]func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(b.telemetry.TracerProvider()),
		metrics.Middleware,
	}, b.middlewares...)

	router := api.NewServer(b.service, b.issuer, api.WithMiddlewares(b.middlewares...))

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
