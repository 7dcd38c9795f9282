package errors

import "fmt"

// UnsupportedOperationError indicates a validation operation that has no
// registered rule.
type UnsupportedOperationError struct {
	Operation string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation '%s' is not supported", e.Operation)
}

// UnsupportedEventTypeError indicates an event type unknown to the factory.
type UnsupportedEventTypeError struct {
	EventType string
}

// Error implements the error interface.
func (e *UnsupportedEventTypeError) Error() string {
	return fmt.Sprintf("event type '%s' is not supported", e.EventType)
}

// ListenerError indicates a listener failed while handling an event.
// The failure is isolated: it never aborts sibling listeners or the batch.
type ListenerError struct {
	EventID   string
	EventType string
	Listener  string
	Err       error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s failed for event %s (%s): %v",
		e.Listener, e.EventID, e.EventType, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// LookupError indicates a relationship lookup collaborator failed.
// The affected relation kind degrades to empty; the aggregation continues.
type LookupError struct {
	Kind   string
	Anchor string
	ID     int64
	Err    error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s failed for %s %d: %v", e.Kind, e.Anchor, e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *LookupError) Unwrap() error {
	return e.Err
}

// InternalError indicates an unexpected failure inside a rule function or
// dispatcher internals. Callers see a generic message; the underlying cause
// goes to the operator log only.
type InternalError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *InternalError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates an operation exceeded its deadline.
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}
