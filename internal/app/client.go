package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stacklok/jobtracker/internal/boardstate"
	"github.com/stacklok/jobtracker/internal/config"
	"github.com/stacklok/jobtracker/internal/credentials"
	"github.com/stacklok/jobtracker/internal/dashboard"
	"github.com/stacklok/jobtracker/internal/events"
	"github.com/stacklok/jobtracker/internal/httpclient"
	"github.com/stacklok/jobtracker/internal/lookup"
	"github.com/stacklok/jobtracker/internal/remote"
	appsync "github.com/stacklok/jobtracker/internal/sync"
	"github.com/stacklok/jobtracker/internal/telemetry"
)

// Tracer names of the client components.
const (
	SyncTracerName      = "github.com/stacklok/jobtracker/sync"
	DashboardTracerName = "github.com/stacklok/jobtracker/dashboard"
)

// Client groups the components used by CLI commands. The engine and the
// dashboard share one remote client and one credential provider.
type Client struct {
	Config      *config.Config
	Credentials *credentials.Provider
	Remote      *remote.Client
	Lookup      *lookup.Resolver
	Engine      appsync.Engine
	Dashboard   *dashboard.Aggregator

	// BoardState remembers the column order and the last sync per service;
	// BoardKey names this client's service in it
	BoardState boardstate.Persistence
	BoardKey   string

	events    *events.Broadcaster
	telemetry *telemetry.Telemetry
}

// ClientOption configures the client builder
type ClientOption func(*clientConfig) error

type clientConfig struct {
	config     *config.Config
	store      credentials.Store
	httpClient httpclient.Client
	telemetry  *telemetry.Telemetry
}

// WithClientConfig sets the configuration
func WithClientConfig(c *config.Config) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.config = c
		return nil
	}
}

// WithTokenStore overrides the credential store selected by the configuration
func WithTokenStore(store credentials.Store) ClientOption {
	return func(cfg *clientConfig) error {
		if store == nil {
			return fmt.Errorf("token store cannot be nil")
		}
		cfg.store = store
		return nil
	}
}

// WithHTTPClient overrides the HTTP transport (for testing)
func WithHTTPClient(c httpclient.Client) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithClientTelemetry allows injecting initialized telemetry providers
func WithClientTelemetry(t *telemetry.Telemetry) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// NewClient builds the client stack described by the configuration.
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.config == nil {
		cfg.config = &config.Config{}
	}
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var err error
	if cfg.store == nil {
		cfg.store, err = NewTokenStore(cfg.config)
		if err != nil {
			return nil, err
		}
	}
	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.config.Telemetry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	provider := credentials.NewProvider(cfg.store)
	if cfg.httpClient == nil {
		cfg.httpClient = httpclient.NewDefaultClient(
			cfg.config.GetTimeout(),
			httpclient.WithUserAgent(cfg.config.GetUserAgent()),
			httpclient.WithTokenSource(provider),
			httpclient.WithTracing(cfg.config.Telemetry != nil && cfg.config.Telemetry.Enabled),
		)
	}
	client := remote.NewClient(cfg.config.GetBaseURL(), cfg.httpClient)

	resolver := lookup.NewResolver(client,
		lookup.WithCacheTTL(cfg.config.GetCacheTTL()),
		lookup.WithMaxTries(cfg.config.GetMaxRetries()),
	)

	syncMetrics, err := telemetry.NewSyncMetrics(cfg.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	dashboardMetrics, err := telemetry.NewDashboardMetrics(cfg.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}

	broadcaster := events.NewBroadcaster()
	engine := appsync.NewEngine(client, resolver,
		appsync.WithBroadcaster(broadcaster),
		appsync.WithTracer(cfg.telemetry.Tracer(SyncTracerName)),
		appsync.WithMetrics(syncMetrics),
	)
	agg := dashboard.New(client,
		dashboard.WithTracer(cfg.telemetry.Tracer(DashboardTracerName)),
		dashboard.WithMetrics(dashboardMetrics),
	)

	slog.Debug("Client initialized",
		"base_url", cfg.config.GetBaseURL(),
		"credential_source", cfg.config.GetCredentialSource())

	return &Client{
		Config:      cfg.config,
		Credentials: provider,
		Remote:      client,
		Lookup:      resolver,
		Engine:      engine,
		Dashboard:   agg,
		BoardState:  boardstate.NewFilePersistence(cfg.config.GetStateDir()),
		BoardKey:    boardstate.KeyForURL(cfg.config.GetBaseURL()),
		events:      broadcaster,
		telemetry:   cfg.telemetry,
	}, nil
}

// Close waits for detached operations to commit, stops the dashboard and
// flushes telemetry.
func (c *Client) Close(ctx context.Context) error {
	c.Engine.Wait()
	c.Dashboard.Stop()
	c.events.Close()
	if err := c.telemetry.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown telemetry: %w", err)
	}
	return nil
}

// NewTokenStore returns the credential store selected by the configuration.
func NewTokenStore(c *config.Config) (credentials.Store, error) {
	switch source := c.GetCredentialSource(); source {
	case config.CredentialSourceNone:
		return credentials.NewMemoryStore(""), nil
	case config.CredentialSourceEnv:
		return credentials.EnvStore{Variable: c.GetTokenVariable()}, nil
	case config.CredentialSourceFile:
		return credentials.FileStore{Path: c.GetTokenFile()}, nil
	case config.CredentialSourceKeyring:
		return credentials.KeyringStore{Service: c.GetKeyringService(), User: c.GetKeyringUser()}, nil
	default:
		return nil, errors.New("unknown credential source: " + source)
	}
}
