package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader, scopeName string) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != scopeName {
			continue
		}
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewSyncMetrics_NilProvider(t *testing.T) {
	t.Parallel()

	metrics, err := NewSyncMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)

	// nil metrics are no-ops
	metrics.RecordOperation(context.Background(), "create", OutcomeApplied, time.Second)
	metrics.AddPending(context.Background(), "create", 1)
	metrics.RecordBoard(context.Background(), map[string]int{"Applied": 1})
}

func TestSyncMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	ctx := context.Background()
	metrics.RecordOperation(ctx, "create", OutcomeApplied, 120*time.Millisecond)
	metrics.RecordOperation(ctx, "delete", OutcomeRejected, 30*time.Millisecond)
	metrics.AddPending(ctx, "create", 1)
	metrics.AddPending(ctx, "create", -1)
	metrics.AddPending(ctx, "delete", 1)
	metrics.RecordBoard(ctx, map[string]int{"Wishlist": 3, "Offer": 1})

	got := collect(t, reader, SyncMetricsMeterName)

	hist, ok := got["jobtracker_sync_operation_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)

	pending, ok := got["jobtracker_sync_pending_operations"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range pending.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(1), total)

	board, ok := got["jobtracker_board_records"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, board.DataPoints, 2)
}

func TestDashboardMetrics_Record(t *testing.T) {
	t.Parallel()

	metrics, err := NewDashboardMetrics(nil)
	require.NoError(t, err)
	metrics.RecordRefresh(context.Background(), time.Second, true)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err = NewDashboardMetrics(mp)
	require.NoError(t, err)
	metrics.RecordRefresh(context.Background(), 200*time.Millisecond, true)
	metrics.RecordRefresh(context.Background(), 2*time.Second, false)

	got := collect(t, reader, DashboardMetricsMeterName)
	hist, ok := got["jobtracker_dashboard_refresh_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}
