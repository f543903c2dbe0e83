package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/eivindbakke/merkelapp/internal/service"
)

// ErrMaxRetries indicates that all retry attempts have been exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// RetryableError marks an error as explicitly retryable or permanent,
// overriding the default classification in IsRetryable.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so WithRetry gives up on it immediately.
func Permanent(err error) error {
	return &RetryableError{Err: err, Retryable: false}
}

// IsRetryable reports whether an operation that failed with err is worth
// attempting again. Failures are retried by default; detector responses that
// fail to parse usually succeed on a fresh sample. Explicitly marked
// permanent errors and exhausted contexts are not.
func IsRetryable(err error) bool {
	var marked *RetryableError
	if errors.As(err, &marked) {
		return marked.Retryable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// WithRetry runs operation until it succeeds, fails permanently, or the
// attempt budget is spent. Waits between attempts grow exponentially with a
// little jitter so a busy detector is not hammered on a fixed cadence.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := opts.InitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	multiplier := opts.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, attempts, err)
		}

		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(delay)):
		}

		delay = time.Duration(float64(delay) * multiplier)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// jitter spreads a wait to within ±20% of the base delay.
func jitter(d time.Duration) time.Duration {
	spread := int64(d / 5)
	if spread <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(2*spread)-spread)
}
