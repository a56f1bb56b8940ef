package retry

import (
	"context"
	"log/slog"
	"time"

	awsretry "github.com/aws/aws-sdk-go-v2/aws/retry"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

const (
	// DefaultMaxAttempts is the number of attempts of the backoff policy, including the first.
	DefaultMaxAttempts = 3

	// DefaultMaxBackoff caps the delay between two attempts.
	DefaultMaxBackoff = 20 * time.Second
)

// NoRetry is the default policy: every part gets exactly one attempt.
type NoRetry struct{}

// MaxAttempts returns 1.
func (NoRetry) MaxAttempts() int { return 1 }

// RetryDelay is never consulted for a single attempt.
func (NoRetry) RetryDelay(int, error) (time.Duration, error) { return 0, nil }

// IsErrorRetryable returns false.
func (NoRetry) IsErrorRetryable(error) bool { return false }

// Backoff retries transient failures with exponential jitter backoff.
type Backoff struct {
	maxAttempts int
	backoff     *awsretry.ExponentialJitterBackoff
}

// NewBackoff creates a Backoff policy. Non-positive arguments select the defaults.
func NewBackoff(maxAttempts int, maxBackoff time.Duration) *Backoff {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	return &Backoff{
		maxAttempts: maxAttempts,
		backoff:     awsretry.NewExponentialJitterBackoff(maxBackoff),
	}
}

// MaxAttempts returns the configured attempt limit.
func (b *Backoff) MaxAttempts() int {
	return b.maxAttempts
}

// RetryDelay returns the jittered backoff for attempt, or the service's
// Retry-After when that is longer.
func (b *Backoff) RetryDelay(attempt int, err error) (time.Duration, error) {
	delay, derr := b.backoff.BackoffDelay(attempt, err)
	if derr != nil {
		return 0, derr
	}

	var svc *errors.ServiceError
	if errors.As(err, &svc) && svc.RetryAfter > delay {
		delay = svc.RetryAfter
	}
	return delay, nil
}

// IsErrorRetryable reports whether err is transient.
func (b *Backoff) IsErrorRetryable(err error) bool {
	return errors.IsRetryable(err)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts of r are exhausted. The last error is returned unchanged.
func Do(ctx context.Context, r chunktypes.Retryer, logger *slog.Logger, fn func(ctx context.Context) error) error {
	if r == nil {
		r = NoRetry{}
	}
	maxAttempts := r.MaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts || ctx.Err() != nil || !r.IsErrorRetryable(err) {
			return err
		}

		delay, derr := r.RetryDelay(attempt, err)
		if derr != nil {
			return err
		}

		if logger != nil {
			logger.Warn("retrying request",
				"attempt", attempt,
				"delay", delay,
				"error", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
