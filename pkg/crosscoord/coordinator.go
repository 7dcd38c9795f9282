// Package crosscoord coordinates communication between platform modules.
//
// It bundles three subsystems behind one facade:
//   - event: dispatch and queued delivery of domain events
//   - validation: rule checks guarding cross-module operations
//   - relation: aggregation of cross-module entity relationships
//
// Modules talk to the Coordinator instead of to each other, which keeps
// their dependencies pointed at this package only.
package crosscoord

import (
	"context"
	"log/slog"

	"github.com/suitecore/crosscoord/pkg/crosscoord/event"
	"github.com/suitecore/crosscoord/pkg/crosscoord/relation"
	"github.com/suitecore/crosscoord/pkg/crosscoord/validation"
)

// Cache scopes accepted by ClearCache.
const (
	ScopeAll         = "all"
	ScopeValidations = "validations"
	ScopeEvents      = "events"
)

// CombinedStats merges the counters of all three subsystems.
type CombinedStats struct {
	Events        event.Stats              `json:"events"`
	Validations   validation.RegistryStats `json:"validations"`
	Relationships relation.AggregatorStats `json:"relationships"`
}

// ClearResult reports what a ClearCache call removed.
type ClearResult struct {
	Scope              string `json:"scope"`
	DroppedEvents      int    `json:"dropped_events"`
	ValidationsCleared bool   `json:"validations_cleared"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDispatcher replaces the default event dispatcher.
func WithDispatcher(d *event.Dispatcher) Option {
	return func(c *Coordinator) {
		c.dispatcher = d
	}
}

// WithFactory replaces the default event factory.
func WithFactory(f *event.Factory) Option {
	return func(c *Coordinator) {
		c.factory = f
	}
}

// WithValidation replaces the default validation registry.
func WithValidation(r *validation.Registry) Option {
	return func(c *Coordinator) {
		c.validation = r
	}
}

// WithAggregator replaces the default relationship aggregator.
func WithAggregator(a *relation.Aggregator) Option {
	return func(c *Coordinator) {
		c.aggregator = a
	}
}

// WithLogger sets the logger used by default-constructed subsystems.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// Coordinator is the single entry point modules use for cross-module
// events, validations, and relationship queries.
type Coordinator struct {
	factory    *event.Factory
	dispatcher *event.Dispatcher
	validation *validation.Registry
	aggregator *relation.Aggregator
	logger     *slog.Logger
}

// New creates a Coordinator. Subsystems not supplied through options are
// constructed with defaults.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.factory == nil {
		c.factory = event.NewFactory()
	}
	if c.dispatcher == nil {
		c.dispatcher = event.NewDispatcher(event.WithLogger(c.logger))
	}
	if c.validation == nil {
		c.validation = validation.NewRegistry(validation.WithLogger(c.logger))
	}
	if c.aggregator == nil {
		c.aggregator = relation.NewAggregator(relation.WithLogger(c.logger))
	}
	return c
}

// Dispatcher exposes the event dispatcher for listener registration.
func (c *Coordinator) Dispatcher() *event.Dispatcher { return c.dispatcher }

// Validation exposes the validation registry for rule registration.
func (c *Coordinator) Validation() *validation.Registry { return c.validation }

// Aggregator exposes the relationship aggregator for lookup registration.
func (c *Coordinator) Aggregator() *relation.Aggregator { return c.aggregator }

// Factory exposes the event factory for custom type registration.
func (c *Coordinator) Factory() *event.Factory { return c.factory }

// DispatchEvent builds a typed event from a raw payload and dispatches it.
// Returns the created event so callers can report its ID.
func (c *Coordinator) DispatchEvent(ctx context.Context, eventType string, payload map[string]any, opts ...event.Option) (*event.DomainEvent, error) {
	evt, err := c.factory.Create(eventType, payload, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.dispatcher.Dispatch(ctx, evt); err != nil {
		// Immediate listener failures surface to the publisher, but the
		// event itself is already queued.
		return evt, err
	}
	return evt, nil
}

// Validate checks one operation against its registered rule.
func (c *Coordinator) Validate(ctx context.Context, operation string, data, opCtx map[string]any) validation.Result {
	return c.validation.Validate(ctx, operation, data, opCtx)
}

// ValidateBatch checks several operations, preserving request order.
func (c *Coordinator) ValidateBatch(ctx context.Context, requests []validation.BatchRequest) []validation.Result {
	return c.validation.ValidateBatch(ctx, requests)
}

// Related aggregates the relationship graph for an anchor entity.
func (c *Coordinator) Related(ctx context.Context, anchor relation.Anchor, id int64) (relation.Graph, error) {
	return c.aggregator.Related(ctx, anchor, id)
}

// ProcessEvents delivers min(limit, queue depth) queued events to batch
// listeners. A non-positive limit delivers nothing.
func (c *Coordinator) ProcessEvents(ctx context.Context, limit int) event.BatchResult {
	return c.dispatcher.ProcessBatch(ctx, limit)
}

// PendingEvents returns a copy of the queued events.
func (c *Coordinator) PendingEvents() []*event.DomainEvent {
	return c.dispatcher.PendingEvents()
}

// ClearCache clears cached state by scope: "validations" drops cached
// validation results, "events" discards the pending queue, and "all"
// does both. Unknown scopes clear nothing.
func (c *Coordinator) ClearCache(scope string) ClearResult {
	result := ClearResult{Scope: scope}
	switch scope {
	case ScopeValidations:
		result.ValidationsCleared = c.validation.ClearCache()
	case ScopeEvents:
		result.DroppedEvents = c.dispatcher.ClearQueue()
	case ScopeAll:
		result.ValidationsCleared = c.validation.ClearCache()
		result.DroppedEvents = c.dispatcher.ClearQueue()
	}
	return result
}

// Stats returns combined counters from all subsystems.
func (c *Coordinator) Stats() CombinedStats {
	return CombinedStats{
		Events:        c.dispatcher.Stats(),
		Validations:   c.validation.Stats(),
		Relationships: c.aggregator.Stats(),
	}
}
