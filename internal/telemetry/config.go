// Package telemetry provides OpenTelemetry instrumentation for jobtracker.
// Traces are exported over OTLP; metrics are exported over OTLP or exposed
// for Prometheus scraping.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName is the default service name for telemetry
	DefaultServiceName = "jobtracker"

	// DefaultEndpoint is the default OTLP endpoint for telemetry
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the default trace sampling rate (10%)
	DefaultSampling = 0.1

	// ExporterOTLP pushes metrics to the OTLP endpoint
	ExporterOTLP = "otlp"

	// ExporterPrometheus exposes metrics for scraping
	ExporterPrometheus = "prometheus"
)

// Config represents the root telemetry configuration
type Config struct {
	// Enabled controls whether telemetry is enabled globally
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies the process in traces and metrics
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion defaults to the build version
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector endpoint in "host:port" form
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure allows HTTP connections instead of HTTPS
	Insecure bool `yaml:"insecure,omitempty"`

	// Tracing contains tracing-specific configuration
	Tracing *TracingConfig `yaml:"tracing,omitempty"`

	// Metrics contains metrics-specific configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling controls the trace sampling rate (0.0 to 1.0)
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig defines metrics-specific configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is "otlp" (default) or "prometheus"
	Exporter string `yaml:"exporter,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio. 0 means unset and yields DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetExporter returns the metrics exporter, using OTLP if not specified
func (c *MetricsConfig) GetExporter() string {
	if c.Exporter == "" {
		return ExporterOTLP
	}
	return c.Exporter
}

// tracingEnabled reports whether traces should be exported
func (c *Config) tracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

// metricsEnabled reports whether metrics should be exported
func (c *Config) metricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && c.Tracing.Enabled {
		if s := c.Tracing.Sampling; s < 0 || s > 1.0 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", s))
		}
	}
	if c.Metrics != nil && c.Metrics.Enabled {
		switch c.Metrics.GetExporter() {
		case ExporterOTLP, ExporterPrometheus:
		default:
			errs = append(errs, fmt.Errorf("metrics: unsupported exporter %q", c.Metrics.Exporter))
		}
	}
	return errors.Join(errs...)
}
