// Package errors provides the error taxonomy shared by the data layer and the
// metrics engine.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrRateLimited      = errors.New("rate limited")
	ErrTransport        = errors.New("transport error")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCacheCorruption  = errors.New("cache corruption")
	ErrUnavailable      = errors.New("data unavailable")
	ErrNoData           = errors.New("no data returned")
)

// Kind classifies an upstream failure. The set is closed: fallback logic
// switches on it exhaustively instead of inspecting concrete error types.
type Kind int

const (
	KindOther Kind = iota
	KindRateLimited
	KindTransport
	KindNoData
	KindCacheCorruption
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTransport:
		return "transport"
	case KindNoData:
		return "no_data"
	case KindCacheCorruption:
		return "cache_corruption"
	default:
		return "other"
	}
}

// Retryable reports whether the backoff loop should try again.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindTransport
}

func (k Kind) sentinel() error {
	switch k {
	case KindRateLimited:
		return ErrRateLimited
	case KindTransport:
		return ErrTransport
	case KindNoData:
		return ErrNoData
	case KindCacheCorruption:
		return ErrCacheCorruption
	default:
		return nil
	}
}

// FetchError is returned by upstream fetchers.
type FetchError struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch error [%s] %s: %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("fetch error [%s] %s", e.Kind, e.Source)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel belonging to the error's kind, so callers can use
// errors.Is(err, ErrRateLimited) without knowing about FetchError.
func (e *FetchError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// NewFetchError creates a new FetchError.
func NewFetchError(kind Kind, source string, err error) *FetchError {
	return &FetchError{Kind: kind, Source: source, Err: err}
}

// KindOf extracts the Kind of err. Sentinels are recognised as well so plain
// wrapped errors classify the same way as FetchError values.
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	switch {
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrNoData):
		return KindNoData
	case errors.Is(err, ErrCacheCorruption):
		return KindCacheCorruption
	}
	return KindOther
}

// ValidationError represents a violated precondition of the metrics engine.
type ValidationError struct {
	Field   string
	Value   float64
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value float64, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
