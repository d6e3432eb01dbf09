// Package config provides configuration loading and management for jobtracker.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/jobtracker/internal/telemetry"
)

const (
	// AppName names the configuration and state directories
	AppName = "jobtracker"

	// DefaultBaseURL is the API base URL of a locally running sandbox
	DefaultBaseURL = "http://localhost:5000/api"

	// DefaultTimeout is the default timeout of a single API request
	DefaultTimeout = 10 * time.Second

	// DefaultCacheTTL is the default freshness of the lookup lists
	DefaultCacheTTL = 10 * time.Minute

	// DefaultMaxRetries is the default number of attempts to load lookups
	DefaultMaxRetries = 3

	// DefaultSandboxAddress is the default listen address of the sandbox API
	DefaultSandboxAddress = "localhost:5000"

	// DefaultTokenVariable is the environment variable read by the env source
	DefaultTokenVariable = "JOBTRACKER_TOKEN"
)

// Credential sources.
const (
	// CredentialSourceNone sends every request unauthenticated
	CredentialSourceNone = "none"

	// CredentialSourceEnv reads the token from an environment variable
	CredentialSourceEnv = "env"

	// CredentialSourceFile stores the token in a file
	CredentialSourceFile = "file"

	// CredentialSourceKeyring stores the token in the OS keyring
	CredentialSourceKeyring = "keyring"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path     string
	optional bool
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithDefaultPath loads the configuration file from the user's XDG config
// directory when it exists. A missing file yields the defaults.
func WithDefaultPath() Option {
	return func(cfg *loaderConfig) error {
		path := DefaultPath()
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				cfg.optional = true
				return nil
			}
			return fmt.Errorf("failed to stat config file: %w", err)
		}
		return WithConfigPath(path)(cfg)
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/jobtracker/config.yaml
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultTokenFile returns $XDG_STATE_HOME/jobtracker/token
func DefaultTokenFile() string {
	return filepath.Join(xdg.StateHome, AppName, "token")
}

// DefaultStateDir returns $XDG_STATE_HOME/jobtracker/boards
func DefaultStateDir() string {
	return filepath.Join(xdg.StateHome, AppName, "boards")
}

// Config represents the root configuration structure
type Config struct {
	// StateDir holds the board state remembered between invocations
	StateDir string `yaml:"stateDir,omitempty"`

	API         *APIConfig         `yaml:"api,omitempty"`
	Credentials *CredentialsConfig `yaml:"credentials,omitempty"`
	Lookup      *LookupConfig      `yaml:"lookup,omitempty"`
	Sandbox     *SandboxConfig     `yaml:"sandbox,omitempty"`
	Telemetry   *telemetry.Config  `yaml:"telemetry,omitempty"`
}

// APIConfig defines how the job application service is reached
type APIConfig struct {
	// BaseURL is the service root, e.g. "http://10.0.2.2:5000/api"
	BaseURL string `yaml:"baseURL,omitempty"`

	// Timeout bounds a single request (e.g., "10s")
	Timeout string `yaml:"timeout,omitempty"`

	// UserAgent overrides the User-Agent header
	UserAgent string `yaml:"userAgent,omitempty"`
}

// CredentialsConfig defines where the access token is kept
type CredentialsConfig struct {
	// Source is one of none, env, file or keyring. Defaults to file.
	Source string `yaml:"source,omitempty"`

	// Variable is the environment variable read by the env source
	Variable string `yaml:"variable,omitempty"`

	// File is the token file of the file source
	File string `yaml:"file,omitempty"`

	// KeyringService and KeyringUser address the keyring entry
	KeyringService string `yaml:"keyringService,omitempty"`
	KeyringUser    string `yaml:"keyringUser,omitempty"`
}

// LookupConfig defines the caching of status and contract type lookups
type LookupConfig struct {
	// CacheTTL is how long loaded lookups stay fresh (e.g., "10m")
	CacheTTL string `yaml:"cacheTTL,omitempty"`

	// MaxRetries is the number of attempts to load each lookup list
	MaxRetries uint `yaml:"maxRetries,omitempty"`
}

// SandboxConfig defines the local in-memory API server
type SandboxConfig struct {
	// Address is the listen address
	Address string `yaml:"address,omitempty"`

	// SigningKeyFile holds the HMAC key used to sign access tokens. A random
	// key is generated at startup when unset.
	SigningKeyFile string `yaml:"signingKeyFile,omitempty"`

	// MetricsAddress serves Prometheus metrics when the prometheus exporter is used
	MetricsAddress string `yaml:"metricsAddress,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		if !loaderCfg.optional {
			return nil, fmt.Errorf("path is required")
		}
		return &Config{}, nil
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate the config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetBaseURL returns the API base URL, using DefaultBaseURL if not specified
func (c *Config) GetBaseURL() string {
	if c.API == nil || c.API.BaseURL == "" {
		return DefaultBaseURL
	}
	return c.API.BaseURL
}

// GetTimeout returns the request timeout, using DefaultTimeout if not specified
func (c *Config) GetTimeout() time.Duration {
	if c.API == nil || c.API.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return DefaultTimeout
	}
	return d
}

// GetUserAgent returns the configured User-Agent, empty for the client default
func (c *Config) GetUserAgent() string {
	if c.API == nil {
		return ""
	}
	return c.API.UserAgent
}

// GetCredentialSource returns the credential source, using file if not specified
func (c *Config) GetCredentialSource() string {
	if c.Credentials == nil || c.Credentials.Source == "" {
		return CredentialSourceFile
	}
	return c.Credentials.Source
}

// GetTokenVariable returns the variable read by the env source
func (c *Config) GetTokenVariable() string {
	if c.Credentials == nil || c.Credentials.Variable == "" {
		return DefaultTokenVariable
	}
	return c.Credentials.Variable
}

// GetTokenFile returns the token file of the file source
func (c *Config) GetTokenFile() string {
	if c.Credentials == nil || c.Credentials.File == "" {
		return DefaultTokenFile()
	}
	return filepath.Clean(c.Credentials.File)
}

// GetKeyringService returns the keyring service name
func (c *Config) GetKeyringService() string {
	if c.Credentials == nil || c.Credentials.KeyringService == "" {
		return AppName
	}
	return c.Credentials.KeyringService
}

// GetKeyringUser returns the keyring user name
func (c *Config) GetKeyringUser() string {
	if c.Credentials == nil || c.Credentials.KeyringUser == "" {
		return "default"
	}
	return c.Credentials.KeyringUser
}

// GetCacheTTL returns the lookup cache TTL, using DefaultCacheTTL if not specified
func (c *Config) GetCacheTTL() time.Duration {
	if c.Lookup == nil || c.Lookup.CacheTTL == "" {
		return DefaultCacheTTL
	}
	d, err := time.ParseDuration(c.Lookup.CacheTTL)
	if err != nil {
		return DefaultCacheTTL
	}
	return d
}

// GetMaxRetries returns the lookup attempts, using DefaultMaxRetries if not specified
func (c *Config) GetMaxRetries() uint {
	if c.Lookup == nil || c.Lookup.MaxRetries == 0 {
		return DefaultMaxRetries
	}
	return c.Lookup.MaxRetries
}

// GetSandboxAddress returns the sandbox listen address
func (c *Config) GetSandboxAddress() string {
	if c.Sandbox == nil || c.Sandbox.Address == "" {
		return DefaultSandboxAddress
	}
	return c.Sandbox.Address
}

// GetStateDir returns the board state directory, using DefaultStateDir if not specified
func (c *Config) GetStateDir() string {
	if c.StateDir == "" {
		return DefaultStateDir()
	}
	return filepath.Clean(c.StateDir)
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.API != nil {
		if err := validateAPIConfig(c.API); err != nil {
			return err
		}
	}
	if c.Credentials != nil {
		if err := validateCredentialsConfig(c.Credentials); err != nil {
			return err
		}
	}
	if c.Lookup != nil && c.Lookup.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Lookup.CacheTTL); err != nil {
			return fmt.Errorf("lookup.cacheTTL must be a valid duration (e.g., '10m', '1h'): %w", err)
		}
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// validateAPIConfig validates the service endpoint settings
func validateAPIConfig(api *APIConfig) error {
	if api.BaseURL != "" {
		u, err := url.Parse(api.BaseURL)
		if err != nil {
			return fmt.Errorf("api.baseURL is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api.baseURL must use http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("api.baseURL must include a host")
		}
	}
	if api.Timeout != "" {
		d, err := time.ParseDuration(api.Timeout)
		if err != nil {
			return fmt.Errorf("api.timeout must be a valid duration (e.g., '10s', '1m'): %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("api.timeout must be positive")
		}
	}
	return nil
}

// validateCredentialsConfig validates the credential source settings
func validateCredentialsConfig(creds *CredentialsConfig) error {
	switch creds.Source {
	case "", CredentialSourceNone, CredentialSourceEnv, CredentialSourceFile, CredentialSourceKeyring:
	default:
		return fmt.Errorf("credentials.source must be one of none, env, file or keyring, got %q", creds.Source)
	}
	return nil
}
