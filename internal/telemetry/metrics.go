package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync engine meter
	SyncMetricsMeterName = "github.com/stacklok/jobtracker/sync"

	// DashboardMetricsMeterName is the name used for the dashboard meter
	DashboardMetricsMeterName = "github.com/stacklok/jobtracker/dashboard"
)

// Operation outcomes recorded as the "outcome" attribute.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
)

// SyncMetrics holds the OpenTelemetry instruments for sync operations
type SyncMetrics struct {
	opDuration metric.Float64Histogram
	pending    metric.Int64UpDownCounter
	records    metric.Int64Gauge
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	opDuration, err := meter.Float64Histogram(
		"jobtracker_sync_operation_duration_seconds",
		metric.WithDescription("Duration of sync operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	pending, err := meter.Int64UpDownCounter(
		"jobtracker_sync_pending_operations",
		metric.WithDescription("Number of mutations in flight"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Gauge(
		"jobtracker_board_records",
		metric.WithDescription("Number of applications on the board per stage"),
		metric.WithUnit("{application}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		opDuration: opDuration,
		pending:    pending,
		records:    records,
	}, nil
}

// RecordOperation records the duration and outcome of a sync operation
func (m *SyncMetrics) RecordOperation(ctx context.Context, op, outcome string, duration time.Duration) {
	if m == nil || m.opDuration == nil {
		return
	}

	m.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

// AddPending adjusts the number of in-flight mutations
func (m *SyncMetrics) AddPending(ctx context.Context, op string, delta int64) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Add(ctx, delta, metric.WithAttributes(attribute.String("operation", op)))
}

// RecordBoard records the number of applications in each stage
func (m *SyncMetrics) RecordBoard(ctx context.Context, counts map[string]int) {
	if m == nil || m.records == nil {
		return
	}
	for stage, n := range counts {
		m.records.Record(ctx, int64(n), metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// DashboardMetrics holds the OpenTelemetry instruments for aggregate refreshes
type DashboardMetrics struct {
	refreshDuration metric.Float64Histogram
}

// NewDashboardMetrics creates a new DashboardMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewDashboardMetrics(provider metric.MeterProvider) (*DashboardMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	refreshDuration, err := provider.Meter(DashboardMetricsMeterName).Float64Histogram(
		"jobtracker_dashboard_refresh_duration_seconds",
		metric.WithDescription("Duration of dashboard aggregate refreshes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	return &DashboardMetrics{refreshDuration: refreshDuration}, nil
}

// RecordRefresh records the duration of an aggregate refresh
func (m *DashboardMetrics) RecordRefresh(ctx context.Context, duration time.Duration, success bool) {
	if m == nil || m.refreshDuration == nil {
		return
	}
	m.refreshDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
}
