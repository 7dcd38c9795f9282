package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()

	m.RecordDispatch(ctx, "user.created")
	m.RecordDelivery(ctx, "user.created", "welcome-mail", time.Millisecond, errors.New("x"))
	m.RecordBatch(ctx, 10, time.Millisecond)
	m.RecordValidation(ctx, "lead_conversion", 2, time.Millisecond, nil)
	m.RecordLookup(ctx, "projects", time.Millisecond, nil)
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	spanCtx, span := sm.StartDispatchSpan(ctx, "evt-1", "user.created")
	assert.Equal(t, ctx, spanCtx)
	assert.False(t, span.SpanContext().IsValid())

	_, span = sm.StartBatchSpan(ctx, 5)
	sm.EndSpanWithError(span, errors.New("ignored"))

	_, span = sm.StartValidateSpan(ctx, "lead_conversion")
	sm.EndSpanWithError(span, nil)

	_, span = sm.StartAggregateSpan(ctx, "lead", 7)
	sm.EndSpanWithError(span, nil)
}
