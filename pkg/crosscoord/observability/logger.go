// Package observability provides structured logging, metrics, and tracing
// for the coordination core.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every helper is nil-safe so callers never need to guard the logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
// Returns a new logger with event_id and event_type fields.
func EnrichLogger(logger *slog.Logger, eventID, eventType string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
	)
}

// LogDispatch logs an event entering the queue.
func LogDispatch(logger *slog.Logger, eventID, eventType string, queueDepth int) {
	if logger == nil {
		return
	}
	logger.Debug("event dispatched",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.Int("queue_depth", queueDepth),
	)
}

// LogBatchComplete logs a finished batch drain.
func LogBatchComplete(logger *slog.Logger, processed, remaining int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("event batch processed",
		slog.Int("processed", processed),
		slog.Int("remaining", remaining),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogListenerFailure logs a listener error without aborting delivery.
// Both the event id and the listener identity are recorded so operators can
// correlate the failure.
func LogListenerFailure(logger *slog.Logger, eventID, eventType, listener string, err error) {
	if logger == nil {
		return
	}
	logger.Error("listener failed",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.String("listener", listener),
		slog.String("error", err.Error()),
	)
}

// LogQueueCleared logs a destructive queue wipe.
func LogQueueCleared(logger *slog.Logger, dropped int) {
	if logger == nil {
		return
	}
	logger.Warn("event queue cleared, pending events discarded",
		slog.Int("dropped", dropped),
	)
}

// LogValidation logs a completed validation call.
func LogValidation(logger *slog.Logger, operation string, violations int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("validation completed",
		slog.String("operation", operation),
		slog.Int("violations", violations),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogValidationFailure logs an internal failure inside a rule function.
// The underlying cause is for operators only; callers see a generic message.
func LogValidationFailure(logger *slog.Logger, operation string, err error) {
	if logger == nil {
		return
	}
	logger.Error("validation rule failed internally",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// LogLookupFailure logs a degraded relationship lookup.
func LogLookupFailure(logger *slog.Logger, kind, anchor string, id int64, err error) {
	if logger == nil {
		return
	}
	logger.Error("relationship lookup failed, degrading to empty",
		slog.String("kind", kind),
		slog.String("anchor", anchor),
		slog.Int64("id", id),
		slog.String("error", err.Error()),
	)
}

// LogJournalError logs a journal write failure (non-fatal).
func LogJournalError(logger *slog.Logger, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event journal write failed",
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
