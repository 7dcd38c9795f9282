package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	crosserrors "github.com/suitecore/crosscoord/pkg/crosscoord/errors"
	"github.com/suitecore/crosscoord/pkg/crosscoord/observability"
)

// Listener consumes dispatched events.
type Listener interface {
	// Name identifies the listener in logs and error reports.
	Name() string

	// Handle processes one event. A non-nil error is recorded but never
	// stops delivery to other listeners.
	Handle(ctx context.Context, evt *DomainEvent) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc struct {
	ListenerName string
	Fn           func(ctx context.Context, evt *DomainEvent) error
}

// Name implements Listener.
func (l ListenerFunc) Name() string { return l.ListenerName }

// Handle implements Listener.
func (l ListenerFunc) Handle(ctx context.Context, evt *DomainEvent) error {
	return l.Fn(ctx, evt)
}

// Stats is a point-in-time snapshot of dispatcher activity.
type Stats struct {
	TotalDispatched  int64            `json:"total_dispatched"`
	TotalProcessed   int64            `json:"total_processed"`
	QueueDepth       int              `json:"queue_depth"`
	EventsByType     map[string]int64 `json:"events_by_type"`
	ListenerFailures int64            `json:"listener_failures"`
	LastError        string           `json:"last_error,omitempty"`
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithSpanManager sets the trace span manager.
func WithSpanManager(sm observability.SpanManager) DispatcherOption {
	return func(d *Dispatcher) {
		d.spans = sm
	}
}

// WithJournal attaches an event journal. Journal writes are best effort
// and never fail a dispatch.
func WithJournal(j *Journal) DispatcherOption {
	return func(d *Dispatcher) {
		d.journal = j
	}
}

// WithRetry sets the retry policy for batch listener delivery.
// Default is no retry.
func WithRetry(cfg crosserrors.RetryConfig) DispatcherOption {
	return func(d *Dispatcher) {
		d.retry = cfg
	}
}

// Dispatcher queues DomainEvents and delivers them to listeners.
//
// Two listener populations exist:
//   - immediate listeners run synchronously inside Dispatch
//   - batch listeners run when ProcessBatch drains the queue
//
// Delivery order follows dispatch order. A failing listener is isolated:
// its error is counted and logged, and delivery continues to the
// remaining listeners and events.
type Dispatcher struct {
	mu    sync.Mutex
	queue []*DomainEvent

	listenerMu sync.RWMutex
	batch      map[string][]Listener // event type -> listeners
	batchAll   []Listener            // listeners for every type
	immediate  map[string][]Listener
	immedAll   []Listener

	statsMu          sync.Mutex
	totalDispatched  int64
	totalProcessed   int64
	eventsByType     map[string]int64
	listenerFailures int64
	lastError        string

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	journal *Journal
	retry   crosserrors.RetryConfig
}

// NewDispatcher creates a Dispatcher with an empty queue.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		batch:        make(map[string][]Listener),
		immediate:    make(map[string][]Listener),
		eventsByType: make(map[string]int64),
		metrics:      observability.NoopMetrics{},
		spans:        observability.NoopSpanManager{},
		retry:        crosserrors.NoRetry,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a batch listener for the given event types. An empty
// type list subscribes the listener to every event.
func (d *Dispatcher) Register(types []string, l Listener) {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()

	if len(types) == 0 {
		d.batchAll = append(d.batchAll, l)
		return
	}
	for _, t := range types {
		d.batch[t] = append(d.batch[t], l)
	}
}

// RegisterImmediate adds a listener invoked synchronously during Dispatch,
// before the event is queued for batch consumers.
func (d *Dispatcher) RegisterImmediate(types []string, l Listener) {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()

	if len(types) == 0 {
		d.immedAll = append(d.immedAll, l)
		return
	}
	for _, t := range types {
		d.immediate[t] = append(d.immediate[t], l)
	}
}

// Dispatch runs immediate listeners for the event and appends it to the
// queue for batch processing. The event is queued even when an immediate
// listener fails.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *DomainEvent) error {
	if evt == nil {
		return &crosserrors.InternalError{Op: "dispatch", Err: fmt.Errorf("nil event")}
	}

	ctx, span := d.spans.StartDispatchSpan(ctx, evt.ID(), evt.Type())
	var firstErr error

	d.listenerMu.RLock()
	listeners := append([]Listener{}, d.immediate[evt.Type()]...)
	listeners = append(listeners, d.immedAll...)
	d.listenerMu.RUnlock()

	for _, l := range listeners {
		if err := d.deliver(ctx, l, evt, crosserrors.NoRetry); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	d.mu.Lock()
	d.queue = append(d.queue, evt)
	depth := len(d.queue)
	d.mu.Unlock()

	d.statsMu.Lock()
	d.totalDispatched++
	d.eventsByType[evt.Type()]++
	d.statsMu.Unlock()

	d.metrics.RecordDispatch(ctx, evt.Type())
	observability.LogDispatch(d.logger, evt.ID(), evt.Type(), depth)

	if d.journal != nil {
		if err := d.journal.Append(ctx, evt); err != nil {
			observability.LogJournalError(d.logger, evt.ID(), err)
		}
	}

	d.spans.EndSpanWithError(span, firstErr)
	return firstErr
}

// PendingEvents returns a copy of the queued events in dispatch order.
func (d *Dispatcher) PendingEvents() []*DomainEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*DomainEvent, len(d.queue))
	copy(out, d.queue)
	return out
}

// QueueDepth returns the number of queued events.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// BatchResult summarizes one ProcessBatch call.
type BatchResult struct {
	Processed int     `json:"processed"`
	Remaining int     `json:"remaining"`
	Failures  int     `json:"failures"`
	Errors    []error `json:"-"`
}

// ProcessBatch removes exactly min(limit, queue length) events from the
// head of the queue and delivers each to its batch listeners in order. A
// limit of zero or less removes nothing.
//
// Events are removed before delivery, so a failing listener does not put
// the event back. Failures are reported in the result, not as an error.
func (d *Dispatcher) ProcessBatch(ctx context.Context, limit int) BatchResult {
	ctx, span := d.spans.StartBatchSpan(ctx, limit)
	elapsed := observability.TimedOperation()

	d.mu.Lock()
	n := limit
	if n < 0 {
		n = 0
	}
	if n > len(d.queue) {
		n = len(d.queue)
	}
	taken := d.queue[:n]
	d.queue = append([]*DomainEvent{}, d.queue[n:]...)
	remaining := len(d.queue)
	d.mu.Unlock()

	result := BatchResult{Remaining: remaining}
	for _, evt := range taken {
		if ctx.Err() != nil {
			// Requeue what we have not touched yet.
			d.mu.Lock()
			d.queue = append(append([]*DomainEvent{}, taken[result.Processed:]...), d.queue...)
			result.Remaining = len(d.queue)
			d.mu.Unlock()
			break
		}

		d.listenerMu.RLock()
		listeners := append([]Listener{}, d.batch[evt.Type()]...)
		listeners = append(listeners, d.batchAll...)
		d.listenerMu.RUnlock()

		for _, l := range listeners {
			if err := d.deliver(ctx, l, evt, d.retry); err != nil {
				result.Failures++
				result.Errors = append(result.Errors, err)
			}
		}

		result.Processed++
		d.statsMu.Lock()
		d.totalProcessed++
		d.statsMu.Unlock()
	}

	duration := time.Duration(elapsed() * float64(time.Millisecond))
	d.metrics.RecordBatch(ctx, result.Processed, duration)
	observability.LogBatchComplete(d.logger, result.Processed, result.Remaining, elapsed())
	d.spans.EndSpanWithError(span, nil)
	return result
}

// deliver invokes one listener with panic isolation and the given retry
// policy. Panics become ListenerErrors.
func (d *Dispatcher) deliver(ctx context.Context, l Listener, evt *DomainEvent, retry crosserrors.RetryConfig) error {
	start := time.Now()

	call := func(ctx context.Context) (struct{}, error) {
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("listener panic: %v", r)
				}
			}()
			err = l.Handle(ctx, evt)
		}()
		return struct{}{}, err
	}

	var err error
	if retry.MaxAttempts > 1 {
		err = crosserrors.WithRetryContext(ctx, retry, call).Err
	} else {
		_, err = call(ctx)
	}

	d.metrics.RecordDelivery(ctx, evt.Type(), l.Name(), time.Since(start), err)

	if err != nil {
		lerr := &crosserrors.ListenerError{
			EventID:   evt.ID(),
			EventType: evt.Type(),
			Listener:  l.Name(),
			Err:       err,
		}
		observability.LogListenerFailure(d.logger, evt.ID(), evt.Type(), l.Name(), err)
		d.statsMu.Lock()
		d.listenerFailures++
		d.lastError = lerr.Error()
		d.statsMu.Unlock()
		return lerr
	}
	return nil
}

// ClearQueue discards all pending events and returns how many were dropped.
// Dispatch and processed counters are unaffected.
func (d *Dispatcher) ClearQueue() int {
	d.mu.Lock()
	dropped := len(d.queue)
	d.queue = nil
	d.mu.Unlock()

	observability.LogQueueCleared(d.logger, dropped)
	return dropped
}

// Stats returns a snapshot of dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	depth := len(d.queue)
	d.mu.Unlock()

	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	byType := make(map[string]int64, len(d.eventsByType))
	for k, v := range d.eventsByType {
		byType[k] = v
	}

	return Stats{
		TotalDispatched:  d.totalDispatched,
		TotalProcessed:   d.totalProcessed,
		QueueDepth:       depth,
		EventsByType:     byType,
		ListenerFailures: d.listenerFailures,
		LastError:        d.lastError,
	}
}
