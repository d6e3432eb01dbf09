package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNew_Disabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{name: "no config"},
		{name: "disabled config", opts: []Option{WithTelemetryConfig(&Config{Enabled: false})}},
		{name: "enabled without signals", opts: []Option{WithTelemetryConfig(&Config{Enabled: true})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tel, err := New(context.Background(), tt.opts...)
			require.NoError(t, err)
			assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
			assert.IsType(t, metricnoop.MeterProvider{}, tel.MeterProvider())
			assert.NotNil(t, tel.Tracer("test"))
			assert.Nil(t, tel.MetricsHandler())
			assert.NoError(t, tel.Shutdown(context.Background()))
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), WithTelemetryConfig(&Config{
		Enabled: true,
		Metrics: &MetricsConfig{Enabled: true, Exporter: "carrier-pigeon"},
	}))
	assert.ErrorContains(t, err, "invalid telemetry configuration")
}

func TestNew_PrometheusExporter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	tel, err := New(context.Background(),
		WithRegistry(reg),
		WithTelemetryConfig(&Config{
			Enabled: true,
			Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
		}),
	)
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(context.Background()) }()

	_, ok := tel.MeterProvider().(*sdkmetric.MeterProvider)
	require.True(t, ok)

	metrics, err := NewSyncMetrics(tel.MeterProvider())
	require.NoError(t, err)
	metrics.RecordBoard(context.Background(), map[string]int{"Offer": 2})

	handler := tel.MetricsHandler()
	require.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), "jobtracker_board_records")
	assert.Contains(t, string(body), `stage="Offer"`)
}
