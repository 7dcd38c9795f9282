package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records coordination metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records an event entering the queue.
	RecordDispatch(ctx context.Context, eventType string)

	// RecordDelivery records a listener invocation with its duration and
	// error status.
	RecordDelivery(ctx context.Context, eventType, listener string, duration time.Duration, err error)

	// RecordBatch records a completed batch drain.
	RecordBatch(ctx context.Context, processed int, duration time.Duration)

	// RecordValidation records a validate call with its violation count.
	RecordValidation(ctx context.Context, operation string, violations int, duration time.Duration, err error)

	// RecordLookup records a relationship lookup with its error status.
	RecordLookup(ctx context.Context, kind string, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatched        metric.Int64Counter
	deliveries        metric.Int64Counter
	deliveryLatency   metric.Float64Histogram
	deliveryErrors    metric.Int64Counter
	batches           metric.Int64Counter
	batchSize         metric.Int64Histogram
	batchLatency      metric.Float64Histogram
	validations       metric.Int64Counter
	validationLatency metric.Float64Histogram
	violations        metric.Int64Counter
	lookups           metric.Int64Counter
	lookupLatency     metric.Float64Histogram
	lookupErrors      metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("crosscoord")

	dispatched, err := meter.Int64Counter("crosscoord.events.dispatched",
		metric.WithDescription("Number of events dispatched"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("crosscoord.listener.deliveries",
		metric.WithDescription("Number of listener invocations"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram("crosscoord.listener.latency_ms",
		metric.WithDescription("Listener invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	deliveryErrors, err := meter.Int64Counter("crosscoord.listener.errors",
		metric.WithDescription("Number of failed listener invocations"),
	)
	if err != nil {
		return nil, err
	}

	batches, err := meter.Int64Counter("crosscoord.events.batches",
		metric.WithDescription("Number of batch drains"),
	)
	if err != nil {
		return nil, err
	}

	batchSize, err := meter.Int64Histogram("crosscoord.events.batch_size",
		metric.WithDescription("Events processed per batch"),
	)
	if err != nil {
		return nil, err
	}

	batchLatency, err := meter.Float64Histogram("crosscoord.events.batch_latency_ms",
		metric.WithDescription("Batch drain latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	validations, err := meter.Int64Counter("crosscoord.validations",
		metric.WithDescription("Number of validate calls"),
	)
	if err != nil {
		return nil, err
	}

	validationLatency, err := meter.Float64Histogram("crosscoord.validation.latency_ms",
		metric.WithDescription("Validation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	violations, err := meter.Int64Counter("crosscoord.validation.violations",
		metric.WithDescription("Number of business-rule violations returned"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter("crosscoord.relation.lookups",
		metric.WithDescription("Number of relationship lookups"),
	)
	if err != nil {
		return nil, err
	}

	lookupLatency, err := meter.Float64Histogram("crosscoord.relation.lookup_latency_ms",
		metric.WithDescription("Relationship lookup latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookupErrors, err := meter.Int64Counter("crosscoord.relation.lookup_errors",
		metric.WithDescription("Number of failed relationship lookups"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatched:        dispatched,
		deliveries:        deliveries,
		deliveryLatency:   deliveryLatency,
		deliveryErrors:    deliveryErrors,
		batches:           batches,
		batchSize:         batchSize,
		batchLatency:      batchLatency,
		validations:       validations,
		validationLatency: validationLatency,
		violations:        violations,
		lookups:           lookups,
		lookupLatency:     lookupLatency,
		lookupErrors:      lookupErrors,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records an event entering the queue.
func (m *otelMetrics) RecordDispatch(ctx context.Context, eventType string) {
	m.dispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordDelivery records a listener invocation.
func (m *otelMetrics) RecordDelivery(ctx context.Context, eventType, listener string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("event_type", eventType),
		attribute.String("listener", listener),
	}

	m.deliveries.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.deliveryLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.deliveryErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordBatch records a completed batch drain.
func (m *otelMetrics) RecordBatch(ctx context.Context, processed int, duration time.Duration) {
	m.batches.Add(ctx, 1)
	m.batchSize.Record(ctx, int64(processed))
	m.batchLatency.Record(ctx, float64(duration.Milliseconds()))
}

// RecordValidation records a validate call.
func (m *otelMetrics) RecordValidation(ctx context.Context, operation string, violationCount int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("failed", err != nil),
	}

	m.validations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.validationLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if violationCount > 0 {
		m.violations.Add(ctx, int64(violationCount), metric.WithAttributes(attrs...))
	}
}

// RecordLookup records a relationship lookup.
func (m *otelMetrics) RecordLookup(ctx context.Context, kind string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
	}

	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.lookupLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.lookupErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
