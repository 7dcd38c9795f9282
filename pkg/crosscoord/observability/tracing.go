package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the crosscoord tracer instance, using the global OTel provider.
var tracer = otel.Tracer("crosscoord")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDispatchSpan starts a span for a single event dispatch.
	StartDispatchSpan(ctx context.Context, eventID, eventType string) (context.Context, trace.Span)

	// StartBatchSpan starts a span for a batch drain.
	StartBatchSpan(ctx context.Context, limit int) (context.Context, trace.Span)

	// StartValidateSpan starts a span for a validation call.
	StartValidateSpan(ctx context.Context, operation string) (context.Context, trace.Span)

	// StartAggregateSpan starts a span for a relationship aggregation.
	StartAggregateSpan(ctx context.Context, anchor string, id int64) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartDispatchSpan starts a span for a single event dispatch.
func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, eventID, eventType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "crosscoord.dispatch",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("event.type", eventType),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartBatchSpan starts a span for a batch drain.
func (m *otelSpanManager) StartBatchSpan(ctx context.Context, limit int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "crosscoord.process_batch",
		trace.WithAttributes(
			attribute.Int("batch.limit", limit),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartValidateSpan starts a span for a validation call.
func (m *otelSpanManager) StartValidateSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "crosscoord.validate",
		trace.WithAttributes(
			attribute.String("validation.operation", operation),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartAggregateSpan starts a span for a relationship aggregation.
func (m *otelSpanManager) StartAggregateSpan(ctx context.Context, anchor string, id int64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "crosscoord.aggregate",
		trace.WithAttributes(
			attribute.String("relation.anchor", anchor),
			attribute.Int64("relation.id", id),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
