package scoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/internal/config"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds the calls made to a provider for one scoring request.
type RetryPolicy struct {
	MaxAttempts       int
	FixedDelay        time.Duration
	PerAttemptTimeout time.Duration
	Sleep             Sleeper
}

// DefaultRetryPolicy is three attempts, one second apart, two minutes each.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, FixedDelay: time.Second, PerAttemptTimeout: 120 * time.Second}
}

func PolicyFromConfig(c config.RetryConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.FixedDelay >= 0 {
		p.FixedDelay = c.FixedDelay
	}
	if c.PerAttemptTimeout > 0 {
		p.PerAttemptTimeout = c.PerAttemptTimeout
	}
	return p
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

// permanentError stops the retry loop immediately.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

// retryable reports whether another attempt may succeed: transport failures,
// attempt timeouts, 5xx and 429. Other 4xx replies are final.
func retryable(err error) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests
	}
	// transport errors and attempt deadlines
	return true
}

// Do runs attempt until it succeeds, fails permanently, the caller's context
// ends or MaxAttempts is reached. Each attempt gets its own timeout. Every
// failure is returned wrapped in apperr.ErrScoringUnavailable.
func (p RetryPolicy) Do(ctx context.Context, attempt func(ctx context.Context) (string, error)) (string, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = contextSleep
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		out, err := p.once(ctx, attempt)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", apperr.ErrScoringUnavailable, ctx.Err())
		}
		if !retryable(err) {
			return "", fmt.Errorf("%w: %w", apperr.ErrScoringUnavailable, err)
		}
		if i == attempts {
			break
		}

		logger.Warn("scoring attempt failed, retrying", "attempt", i, "max_attempts", attempts, "delay", p.FixedDelay, "err", err)
		if err := sleep(ctx, p.FixedDelay); err != nil {
			return "", fmt.Errorf("%w: %w", apperr.ErrScoringUnavailable, err)
		}
	}

	return "", fmt.Errorf("%w: giving up after %d attempts: %w", apperr.ErrScoringUnavailable, attempts, lastErr)
}

func (p RetryPolicy) once(ctx context.Context, attempt func(ctx context.Context) (string, error)) (string, error) {
	if p.PerAttemptTimeout <= 0 {
		return attempt(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.PerAttemptTimeout)
	defer cancel()
	return attempt(actx)
}
