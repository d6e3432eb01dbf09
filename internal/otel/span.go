// Package otel provides tracing helpers shared by the sync engine, the lookup
// resolver and the dashboard aggregator.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/jobtracker/internal/applications"
)

// Attribute keys used on spans.
const (
	AttrApplicationID = attribute.Key("application.id")
	AttrStage         = attribute.Key("application.stage")
	AttrStatusID      = attribute.Key("application.status_id")
	AttrOperation     = attribute.Key("sync.operation")
	AttrErrorKind     = attribute.Key("sync.error_kind")
	AttrResultCount   = attribute.Key("result.count")
	AttrVersion       = attribute.Key("store.version")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span, tags it with the error kind and
// sets the span status to error. Nil spans and nil errors are ignored.
// The status description stays generic; details live in the span event.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(AttrErrorKind.String(applications.KindOf(err).String()))
	span.SetStatus(codes.Error, "operation failed")
}
