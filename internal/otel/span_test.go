package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/jobtracker/internal/applications"
)

// newTestTracerProvider creates a tracer provider with in-memory exporter for testing.
func newTestTracerProvider(t *testing.T) (*tracetest.InMemoryExporter, trace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (string, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value.Emit(), true
		}
	}
	return "", false
}

func TestStartSpan_NilTracer(t *testing.T) {
	t.Parallel()

	resultCtx, span := StartSpan(context.Background(), nil, "sync.Create")

	require.NotNil(t, resultCtx)
	require.NotNil(t, span)
	assert.False(t, span.SpanContext().IsValid(), "nil tracer should return no-op span")
	assert.NotPanics(t, func() { span.End() })
}

func TestStartSpan_ValidTracer(t *testing.T) {
	t.Parallel()

	exporter, tp := newTestTracerProvider(t)
	tracer := tp.Tracer("test-tracer")

	_, span := StartSpan(context.Background(), tracer, "sync.ChangeStage",
		trace.WithAttributes(
			AttrApplicationID.String("42"),
			AttrStage.String(string(applications.StageOffer)),
		),
	)
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sync.ChangeStage", spans[0].Name)

	id, ok := attrValue(spans[0].Attributes, AttrApplicationID)
	require.True(t, ok)
	assert.Equal(t, "42", id)
	stage, ok := attrValue(spans[0].Attributes, AttrStage)
	require.True(t, ok)
	assert.Equal(t, "Offer", stage)
}

func TestRecordError_NilSafety(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { RecordError(nil, errors.New("boom")) })
	assert.NotPanics(t, func() { RecordError(nil, nil) })

	exporter, tp := newTestTracerProvider(t)
	_, span := tp.Tracer("test-tracer").Start(context.Background(), "test")
	RecordError(span, nil)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Empty(t, spans[0].Events)
}

func TestRecordError_TagsKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{name: "typed conflict", err: applications.NewConflictError("1"), wantKind: "conflict"},
		{name: "typed service", err: &applications.Error{Kind: applications.KindService}, wantKind: "service"},
		{name: "plain error", err: errors.New("dial failed"), wantKind: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exporter, tp := newTestTracerProvider(t)
			_, span := tp.Tracer("test-tracer").Start(context.Background(), "test.operation")
			RecordError(span, tt.err)
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status.Code)
			assert.Equal(t, "operation failed", spans[0].Status.Description)

			kind, ok := attrValue(spans[0].Attributes, AttrErrorKind)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)

			var hasException bool
			for _, event := range spans[0].Events {
				if event.Name == "exception" {
					hasException = true
				}
			}
			assert.True(t, hasException, "should record exception event")
		})
	}
}
