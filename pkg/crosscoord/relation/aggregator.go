package relation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	crosserrors "github.com/suitecore/crosscoord/pkg/crosscoord/errors"
	"github.com/suitecore/crosscoord/pkg/crosscoord/observability"
)

// Lookup answers relationship queries for one kind of entity.
// Implementations typically wrap a module's repository or service client.
type Lookup interface {
	// Kind names the relationship kind this lookup serves.
	Kind() string

	// Related returns entities of this kind related to the anchor.
	Related(ctx context.Context, anchor Anchor, id int64) ([]EntityRef, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc struct {
	LookupKind string
	Fn         func(ctx context.Context, anchor Anchor, id int64) ([]EntityRef, error)
}

// Kind implements Lookup.
func (l LookupFunc) Kind() string { return l.LookupKind }

// Related implements Lookup.
func (l LookupFunc) Related(ctx context.Context, anchor Anchor, id int64) ([]EntityRef, error) {
	return l.Fn(ctx, anchor, id)
}

// AggregatorStats is a snapshot of aggregation activity.
type AggregatorStats struct {
	RegisteredKinds   int              `json:"registered_kinds"`
	TotalAggregations int64            `json:"total_aggregations"`
	TotalLookups      int64            `json:"total_lookups"`
	FailedLookups     int64            `json:"failed_lookups"`
	FailuresByKind    map[string]int64 `json:"failures_by_kind,omitempty"`
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithSpanManager sets the trace span manager.
func WithSpanManager(sm observability.SpanManager) AggregatorOption {
	return func(a *Aggregator) {
		a.spans = sm
	}
}

// WithLookupTimeout bounds each individual lookup. Zero disables the
// per-lookup deadline.
func WithLookupTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.lookupTimeout = d
	}
}

// Aggregator fans relationship queries out to registered lookups.
//
// Failure containment is per kind: when one lookup errors, panics, or
// times out, its kind appears in the result with an empty list and the
// remaining kinds are unaffected.
type Aggregator struct {
	mu      sync.RWMutex
	lookups map[string]Lookup

	totalAggregations atomic.Int64
	totalLookups      atomic.Int64
	failedLookups     atomic.Int64

	failureMu      sync.Mutex
	failuresByKind map[string]int64

	logger        *slog.Logger
	metrics       observability.MetricsRecorder
	spans         observability.SpanManager
	lookupTimeout time.Duration
}

// NewAggregator creates an Aggregator with no lookups registered.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		lookups:        make(map[string]Lookup),
		failuresByKind: make(map[string]int64),
		metrics:        observability.NoopMetrics{},
		spans:          observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterLookup adds or replaces the lookup for a kind.
func (a *Aggregator) RegisterLookup(l Lookup) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookups[l.Kind()] = l
}

// Kinds returns the registered relationship kinds.
func (a *Aggregator) Kinds() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	kinds := make([]string, 0, len(a.lookups))
	for k := range a.lookups {
		kinds = append(kinds, k)
	}
	return kinds
}

// Related aggregates all registered kinds for the anchor concurrently.
// The only error condition is an unknown anchor; lookup failures degrade
// their kind to an empty list instead.
func (a *Aggregator) Related(ctx context.Context, anchor Anchor, id int64) (Graph, error) {
	if !anchor.Valid() {
		return Graph{}, &ErrUnknownAnchor{Anchor: anchor}
	}

	ctx, span := a.spans.StartAggregateSpan(ctx, string(anchor), id)
	defer a.spans.EndSpanWithError(span, nil)
	a.totalAggregations.Add(1)

	a.mu.RLock()
	lookups := make([]Lookup, 0, len(a.lookups))
	for _, l := range a.lookups {
		lookups = append(lookups, l)
	}
	a.mu.RUnlock()

	graph := Graph{
		Anchor:   anchor,
		AnchorID: id,
		Related:  make(map[string][]EntityRef, len(lookups)),
	}

	var resultMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, l := range lookups {
		l := l
		g.Go(func() error {
			refs, err := a.runLookup(gctx, l, anchor, id)

			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				graph.Related[l.Kind()] = []EntityRef{}
				graph.Degraded = append(graph.Degraded, l.Kind())
				return nil
			}
			if refs == nil {
				refs = []EntityRef{}
			}
			graph.Related[l.Kind()] = refs
			return nil
		})
	}

	// Lookups never propagate errors through the group
	_ = g.Wait()
	return graph, nil
}

// UserRelated aggregates every registered kind for a user.
func (a *Aggregator) UserRelated(ctx context.Context, userID int64) (Graph, error) {
	return a.Related(ctx, AnchorUser, userID)
}

// ProjectRelated aggregates every registered kind for a project.
func (a *Aggregator) ProjectRelated(ctx context.Context, projectID int64) (Graph, error) {
	return a.Related(ctx, AnchorProject, projectID)
}

// LeadRelated aggregates every registered kind for a lead.
func (a *Aggregator) LeadRelated(ctx context.Context, leadID int64) (Graph, error) {
	return a.Related(ctx, AnchorLead, leadID)
}

// runLookup invokes one lookup with panic isolation, timing, and the
// optional per-lookup deadline.
func (a *Aggregator) runLookup(ctx context.Context, l Lookup, anchor Anchor, id int64) (refs []EntityRef, err error) {
	a.totalLookups.Add(1)
	start := time.Now()

	if a.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.lookupTimeout)
		defer cancel()
	}

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("lookup panic: %v", rec)
			}
		}()
		refs, err = l.Related(ctx, anchor, id)
	}()

	a.metrics.RecordLookup(ctx, l.Kind(), time.Since(start), err)

	if err != nil {
		a.failedLookups.Add(1)
		a.failureMu.Lock()
		a.failuresByKind[l.Kind()]++
		a.failureMu.Unlock()

		lerr := &crosserrors.LookupError{
			Kind:   l.Kind(),
			Anchor: string(anchor),
			ID:     id,
			Err:    err,
		}
		observability.LogLookupFailure(a.logger, l.Kind(), string(anchor), id, err)
		return nil, lerr
	}
	return refs, nil
}

// Stats returns a snapshot of aggregation counters.
func (a *Aggregator) Stats() AggregatorStats {
	a.mu.RLock()
	kinds := len(a.lookups)
	a.mu.RUnlock()

	a.failureMu.Lock()
	byKind := make(map[string]int64, len(a.failuresByKind))
	for k, v := range a.failuresByKind {
		byKind[k] = v
	}
	a.failureMu.Unlock()

	return AggregatorStats{
		RegisteredKinds:   kinds,
		TotalAggregations: a.totalAggregations.Load(),
		TotalLookups:      a.totalLookups.Load(),
		FailedLookups:     a.failedLookups.Load(),
		FailuresByKind:    byKind,
	}
}
