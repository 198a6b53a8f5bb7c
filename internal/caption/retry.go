package caption

import (
	"context"
	"log"
	"time"

	"github.com/jonathan/wcag-check/internal/types"
)

// Default retry settings for a warming-up inference service.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 5 * time.Second
)

// RetryPolicy bounds the retries made when the service answers 503.
// The delay before retry n (1-based) is InitialDelay * 2^(n-1).
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// DefaultRetryPolicy returns 3 retries starting at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
	}
}

// Delays returns the full backoff schedule.
func (p RetryPolicy) Delays() []time.Duration {
	if p.MaxRetries <= 0 {
		return nil
	}
	delays := make([]time.Duration, 0, p.MaxRetries)
	delay := p.InitialDelay
	for i := 0; i < p.MaxRetries; i++ {
		delays = append(delays, delay)
		delay *= 2
	}
	return delays
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// attemptFunc performs one inference call. retryable is true only for
// transient unavailability (HTTP 503).
type attemptFunc func(ctx context.Context) (outcome types.CaptionOutcome, retryable bool)

// withRetry runs attempt once plus at most policy.MaxRetries retries.
func withRetry(ctx context.Context, policy RetryPolicy, sleep Sleeper, verbose bool, attempt attemptFunc) types.CaptionOutcome {
	if sleep == nil {
		sleep = SleepContext
	}

	delays := policy.Delays()
	for i := 0; ; i++ {
		outcome, retryable := attempt(ctx)
		if !retryable {
			return outcome
		}
		if i >= len(delays) {
			if verbose {
				log.Printf("[CAPTION] Service unavailable after %d retries, giving up", len(delays))
			}
			return types.Failure(types.ReasonServiceError)
		}
		if verbose {
			log.Printf("[CAPTION] 503 received, retry in %v (remaining retries: %d)", delays[i], len(delays)-i)
		}
		if err := sleep(ctx, delays[i]); err != nil {
			return types.Failure(types.ReasonServiceError)
		}
	}
}
