package renovation

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation marks malformed or missing caller input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrProvider marks any failure of a third-party call, including timeouts,
	// unparseable responses and exhausted retries.
	ErrProvider = errors.New("provider failed")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for building a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a non-2xx response or transport failure from an external API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// TimeoutError is returned when an attempt loses the race against its deadline.
type TimeoutError struct {
	Label string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Label, e.After)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrProvider }

// ParseError is returned when a provider answers with something that is not the expected JSON.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse response: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrProvider }

// RetryError aggregates the outcome of an exhausted retry loop.
type RetryError struct {
	Label    string
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Label, e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() error { return e.Last }

func (e *RetryError) Is(target error) bool { return target == ErrProvider }
