package retry

import (
	"context"
	"time"

	"github.com/Fayeblade1488/venicebridge"
)

// Do executes the given function with retry logic.
// It respects context cancellation during backoff waits, so a caller can
// abort a long-running sequence of retries rather than letting sleeps run
// to completion.
// Returns the result on success, or the last error if all attempts fail.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	return DoWithEvents(ctx, cfg, nil, fn)
}

// DoWithEvents is Do with observable retry events sent non-blocking on ch.
func DoWithEvents[T any](ctx context.Context, cfg Config, ch chan<- Event, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		emit(ch, Event{Type: EventAttemptStart, Attempt: attempt + 1, MaxAttempts: cfg.MaxAttempts})

		result, err := fn()
		if err == nil {
			emit(ch, Event{Type: EventSuccess, Attempt: attempt + 1, MaxAttempts: cfg.MaxAttempts})
			return result, nil
		}

		lastErr = err
		retryable := IsTransient(err)
		emit(ch, Event{
			Type:        EventAttemptFailed,
			Attempt:     attempt + 1,
			MaxAttempts: cfg.MaxAttempts,
			Error:       err,
			Retryable:   retryable,
		})

		// Check if error is retryable
		if !retryable {
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			delay := cfg.Delay(attempt)

			// A server-suggested Retry-After wins over the computed backoff
			// when it is longer.
			if ra := venicebridge.RetryAfterOf(err); ra > delay {
				delay = ra
			}

			emit(ch, Event{
				Type:        EventRetrying,
				Attempt:     attempt + 1,
				MaxAttempts: cfg.MaxAttempts,
				Error:       err,
				Delay:       delay,
				Retryable:   true,
			})

			// Respect context cancellation during sleep
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				// Continue to next attempt
			}
		}
	}

	emit(ch, Event{
		Type:        EventExhausted,
		Attempt:     cfg.MaxAttempts,
		MaxAttempts: cfg.MaxAttempts,
		Error:       lastErr,
		Retryable:   true,
	})
	return zero, lastErr
}
