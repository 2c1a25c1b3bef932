// Package retry implements bounded retries with exponential backoff.
// The ad hoc retry counters scattered through the original ingestion and
// image-download flows are replaced by a single policy object plus a generic
// attempt-with-retry combinator.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"votewallet/internal/logging"
)

// Config configures retry behavior.
type Config struct {
	MaxAttempts    int           // Total attempts including the first
	InitialBackoff time.Duration // Initial backoff duration (doubles each retry)
	MaxBackoff     time.Duration // Maximum backoff duration
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     8 * time.Second,
	}
}

// ErrMaxRetriesExceeded indicates all retry attempts failed.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

// Permanent wraps an error to signal the combinator that retrying is
// pointless (e.g. a 404 or a validation failure).
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Do executes fn with exponential backoff retry. Returns the result on
// success, or an error wrapping ErrMaxRetriesExceeded after all attempts are
// exhausted. Context cancellation interrupts both execution and backoff
// sleeps.
func Do[T any](ctx context.Context, cfg Config, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logging.SourcesDebug("Retry succeeded for %s on attempt %d", operation, attempt+1)
			}
			return result, nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return zero, perm.Err
		}

		lastErr = err
		logging.SourcesDebug("Attempt %d/%d for %s failed: %v", attempt+1, cfg.MaxAttempts, operation, err)

		// Don't sleep after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			backoff := calculateBackoff(cfg, attempt)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return zero, fmt.Errorf("%w for %s: %v", ErrMaxRetriesExceeded, operation, lastErr)
}

// calculateBackoff computes exponential backoff: initial * 2^attempt, capped.
func calculateBackoff(cfg Config, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))

	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	return time.Duration(backoff)
}
