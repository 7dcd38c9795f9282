// Package validation provides the cross-module validation rule registry.
//
// A Rule decides whether one cross-module operation may proceed, given a
// data snapshot assembled by the caller. Rules never load entities
// themselves; callers flatten the relevant state into the data map so
// rules stay pure and cheap to cache.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	crosserrors "github.com/suitecore/crosscoord/pkg/crosscoord/errors"
	"github.com/suitecore/crosscoord/pkg/crosscoord/observability"
	"github.com/suitecore/crosscoord/pkg/crosscoord/registry"
)

// internalFailureMessage is what API callers see when a rule itself
// fails. The underlying cause goes to the log, never to the caller.
const internalFailureMessage = "internal error during validation"

// Rule checks one operation. The returned slice lists violations; an
// empty or nil slice means the operation may proceed.
type Rule func(data, ctx map[string]any) []string

// Result is the outcome of validating one operation.
type Result struct {
	Operation  string   `json:"operation"`
	Violations []string `json:"violations"`
	FromCache  bool     `json:"from_cache,omitempty"`

	// Failure is set when validation itself could not run: either the
	// operation is unsupported or the rule failed internally.
	Failure error `json:"-"`
}

// Valid reports whether the operation may proceed.
func (r Result) Valid() bool {
	return r.Failure == nil && len(r.Violations) == 0
}

// Unsupported reports whether the operation has no registered rule.
func (r Result) Unsupported() bool {
	var unsupported *crosserrors.UnsupportedOperationError
	return errors.As(r.Failure, &unsupported)
}

// Messages renders the result as the message list callers receive.
// Internal failures collapse to a generic message.
func (r Result) Messages() []string {
	if r.Failure != nil {
		var unsupported *crosserrors.UnsupportedOperationError
		if errors.As(r.Failure, &unsupported) {
			return []string{r.Failure.Error()}
		}
		return []string{internalFailureMessage}
	}
	return r.Violations
}

// RegistryStats is a snapshot of validation activity.
type RegistryStats struct {
	RegisteredRules  int   `json:"registered_rules"`
	TotalValidations int64 `json:"total_validations"`
	TotalViolations  int64 `json:"total_violations"`
	CacheHits        int64 `json:"cache_hits"`
	InternalFailures int64 `json:"internal_failures"`
	Unsupported      int64 `json:"unsupported"`
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithSpanManager sets the trace span manager.
func WithSpanManager(sm observability.SpanManager) RegistryOption {
	return func(r *Registry) {
		r.spans = sm
	}
}

// WithCache enables result caching with the given cache.
func WithCache(c *Cache) RegistryOption {
	return func(r *Registry) {
		r.cache = c
	}
}

// Registry holds validation rules keyed by operation name.
// Registering an operation twice replaces the earlier rule.
type Registry struct {
	rules *registry.Registry[string, Rule]
	cache *Cache

	totalValidations atomic.Int64
	totalViolations  atomic.Int64
	cacheHits        atomic.Int64
	internalFailures atomic.Int64
	unsupported      atomic.Int64

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// NewRegistry creates a Registry preloaded with the built-in rules.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		rules:   registry.New[string, Rule](),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	r.rules.RegisterMany(builtinRules())
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the rule for an operation.
func (r *Registry) Register(operation string, rule Rule) {
	r.rules.Register(operation, rule)
}

// Supports reports whether the operation has a registered rule.
func (r *Registry) Supports(operation string) bool {
	return r.rules.Has(operation)
}

// Operations returns the registered operation names.
func (r *Registry) Operations() []string {
	return r.rules.Keys()
}

// Validate runs the rule for an operation against the given data and
// context. Rule panics and errors are contained: the result carries an
// internal failure and the caller-facing message stays generic.
func (r *Registry) Validate(ctx context.Context, operation string, data, opCtx map[string]any) Result {
	spanCtx, span := r.spans.StartValidateSpan(ctx, operation)
	elapsed := observability.TimedOperation()
	r.totalValidations.Add(1)

	rule, ok := r.rules.Get(operation)
	if !ok {
		r.unsupported.Add(1)
		result := Result{
			Operation: operation,
			Failure:   &crosserrors.UnsupportedOperationError{Operation: operation},
		}
		r.metrics.RecordValidation(spanCtx, operation, 0, durationOf(elapsed), result.Failure)
		r.spans.EndSpanWithError(span, result.Failure)
		return result
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(operation, data, opCtx); ok {
			r.cacheHits.Add(1)
			cached.FromCache = true
			r.metrics.RecordValidation(spanCtx, operation, len(cached.Violations), durationOf(elapsed), nil)
			r.spans.EndSpanWithError(span, nil)
			return cached
		}
	}

	result := r.runRule(operation, rule, data, opCtx)

	if result.Failure != nil {
		r.internalFailures.Add(1)
		observability.LogValidationFailure(r.logger, operation, result.Failure)
	} else {
		r.totalViolations.Add(int64(len(result.Violations)))
		observability.LogValidation(r.logger, operation, len(result.Violations), elapsed())
		if r.cache != nil {
			r.cache.Put(operation, data, opCtx, result)
		}
	}

	r.metrics.RecordValidation(spanCtx, operation, len(result.Violations), durationOf(elapsed), result.Failure)
	r.spans.EndSpanWithError(span, result.Failure)
	return result
}

// runRule executes one rule with panic containment.
func (r *Registry) runRule(operation string, rule Rule, data, opCtx map[string]any) (result Result) {
	result.Operation = operation
	defer func() {
		if rec := recover(); rec != nil {
			result.Violations = nil
			result.Failure = &crosserrors.InternalError{
				Op:  "validate " + operation,
				Err: fmt.Errorf("rule panic: %v", rec),
			}
		}
	}()
	result.Violations = rule(data, opCtx)
	return result
}

// BatchRequest is one operation in a ValidateBatch call.
type BatchRequest struct {
	Operation string         `json:"operation"`
	Data      map[string]any `json:"data"`
	Context   map[string]any `json:"context"`
}

// ValidateBatch validates several operations and returns results in
// request order. One unsupported or failing operation does not stop
// the others.
func (r *Registry) ValidateBatch(ctx context.Context, requests []BatchRequest) []Result {
	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		results = append(results, r.Validate(ctx, req.Operation, req.Data, req.Context))
	}
	return results
}

// Stats returns a snapshot of validation counters.
func (r *Registry) Stats() RegistryStats {
	return RegistryStats{
		RegisteredRules:  r.rules.Len(),
		TotalValidations: r.totalValidations.Load(),
		TotalViolations:  r.totalViolations.Load(),
		CacheHits:        r.cacheHits.Load(),
		InternalFailures: r.internalFailures.Load(),
		Unsupported:      r.unsupported.Load(),
	}
}

// ClearCache drops all cached validation results. Returns false when no
// cache is configured.
func (r *Registry) ClearCache() bool {
	if r.cache == nil {
		return false
	}
	if err := r.cache.Clear(); err != nil {
		observability.LogValidationFailure(r.logger, "cache_clear", err)
		return false
	}
	return true
}

func durationOf(elapsed func() float64) time.Duration {
	return time.Duration(elapsed() * float64(time.Millisecond))
}
