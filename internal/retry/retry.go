// Package retry races provider calls against a deadline and retries them with
// capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"renoquote/internal/renovation"
)

const (
	DefaultAttempts  = 3
	DefaultTimeout   = 30 * time.Second
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 10 * time.Second
)

// Policy bounds a retry loop.
type Policy struct {
	Attempts  int
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Sleep waits between attempts. Tests replace it to observe backoff without waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns 3 attempts, 30s per attempt, 1s..10s backoff.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  DefaultAttempts,
		Timeout:   DefaultTimeout,
		BaseDelay: DefaultBaseDelay,
		MaxDelay:  DefaultMaxDelay,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	return p
}

// Backoff returns the wait after the given failed attempt (1-based):
// min(base * 2^(attempt-1), max).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// MaxTotalBackoff is the longest total wait a full loop can spend between attempts.
func (p Policy) MaxTotalBackoff() time.Duration {
	p = p.withDefaults()
	var total time.Duration
	for k := 1; k < p.Attempts; k++ {
		total += p.Backoff(k)
	}
	return total
}

// Do runs op at most p.Attempts times. Each attempt races a timer of p.Timeout; losing
// the race counts as a *renovation.TimeoutError. Validation errors are returned at once.
// After the last failed attempt a *renovation.RetryError naming the label is returned.
func Do[T any](ctx context.Context, p Policy, label string, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		started := time.Now()
		result, err := race(ctx, p.Timeout, label, op)
		elapsed := time.Since(started)

		if err == nil {
			log.Debug().
				Str("label", label).
				Int("attempt", attempt).
				Int("max_attempts", p.Attempts).
				Str("outcome", "success").
				Dur("elapsed", elapsed).
				Msg("provider call")
			return result, nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("label", label).
			Int("attempt", attempt).
			Int("max_attempts", p.Attempts).
			Str("outcome", "failure").
			Dur("elapsed", elapsed).
			Msg("provider call")

		if errors.Is(err, renovation.ErrValidation) {
			return zero, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if attempt == p.Attempts {
			break
		}
		if err := p.Sleep(ctx, p.Backoff(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, &renovation.RetryError{Label: label, Attempts: p.Attempts, Last: lastErr}
}

type outcome[T any] struct {
	value T
	err   error
}

func race[T any](ctx context.Context, timeout time.Duration, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(attemptCtx)
		done <- outcome[T]{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.value, res.err
	case <-timer.C:
		return zero, &renovation.TimeoutError{Label: label, After: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
