// Package errors provides error handling and categorization for the
// coordination core.
//
// The package implements a layered approach:
//   - Typed errors: one type per failure class in the coordination taxonomy
//     (unsupported operation/event type, listener failure, lookup failure,
//     internal error)
//   - Categorization: classify errors as transient or permanent
//   - Retry: handle transient listener failures with exponential backoff
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: timeouts, temporary downstream unavailability.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: unsupported operations, malformed payloads.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Transient creates a transient categorized error.
func Transient(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryTransient, Context: context}
}

// Permanent creates a permanent categorized error.
func Permanent(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryPermanent, Context: context}
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	// Already-categorized errors keep their category.
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	// Unsupported operations and event types never succeed on retry.
	var unsupportedOp *UnsupportedOperationError
	if errors.As(err, &unsupportedOp) {
		return CategoryPermanent
	}
	var unsupportedType *UnsupportedEventTypeError
	if errors.As(err, &unsupportedType) {
		return CategoryPermanent
	}

	// Timeouts are worth retrying.
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}
	if errors.Is(err, context.Canceled) {
		return CategoryPermanent
	}

	// Listener and lookup failures inherit the category of their cause.
	var listenerErr *ListenerError
	if errors.As(err, &listenerErr) && listenerErr.Err != nil {
		return Categorize(listenerErr.Err)
	}
	var lookupErr *LookupError
	if errors.As(err, &lookupErr) && lookupErr.Err != nil {
		return Categorize(lookupErr.Err)
	}

	// Unknown errors are permanent (fail safe).
	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
