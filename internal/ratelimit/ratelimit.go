// Package ratelimit throttles outbound requests per data source.
//
// Each source gets its own hourly budget; the limiter converts it to a
// minimum interval between calls and blocks until the interval has
// elapsed since the previous call for that source.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"votewallet/internal/logging"
)

// Limiter enforces per-source minimum intervals between requests.
// Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	intervals map[string]time.Duration
	lastCall  map[string]time.Time
	counts    map[string]int64
}

// SourceStats is a point-in-time view of one source's throttle state.
type SourceStats struct {
	RequestsPerHour int           `json:"requests_per_hour"`
	Interval        time.Duration `json:"interval"`
	Requests        int64         `json:"requests"`
	LastCall        time.Time     `json:"last_call"`
}

func New() *Limiter {
	return &Limiter{
		intervals: make(map[string]time.Duration),
		lastCall:  make(map[string]time.Time),
		counts:    make(map[string]int64),
	}
}

// SetLimit configures the hourly request budget for a source. A budget
// of N requests per hour becomes a minimum interval of 3600000/N
// milliseconds between calls.
func (l *Limiter) SetLimit(source string, requestsPerHour int) error {
	if requestsPerHour <= 0 {
		return fmt.Errorf("ratelimit: invalid budget %d for source %s", requestsPerHour, source)
	}

	interval := time.Duration(3600000/requestsPerHour) * time.Millisecond

	l.mu.Lock()
	l.intervals[source] = interval
	l.mu.Unlock()

	logging.RateLimitDebug("source %s: %d req/hour, interval %v", source, requestsPerHour, interval)
	return nil
}

// Interval reports the configured minimum interval for a source.
// Sources without a configured limit get a zero interval.
func (l *Limiter) Interval(source string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intervals[source]
}

// Throttle blocks until the source's minimum interval has elapsed since
// its previous call, then records the call. Returns early with the
// context error if ctx is cancelled while waiting.
func (l *Limiter) Throttle(ctx context.Context, source string) error {
	l.mu.Lock()
	interval := l.intervals[source]
	last, called := l.lastCall[source]
	l.mu.Unlock()

	if called && interval > 0 {
		wait := interval - time.Since(last)
		if wait > 0 {
			logging.RateLimitDebug("source %s: waiting %v", source, wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	l.mu.Lock()
	l.lastCall[source] = time.Now()
	l.counts[source]++
	l.mu.Unlock()
	return nil
}

// Snapshot returns per-source throttle state, keyed by source name.
func (l *Limiter) Snapshot() map[string]SourceStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]SourceStats, len(l.intervals))
	for source, interval := range l.intervals {
		rph := 0
		if interval > 0 {
			rph = int(time.Hour / interval)
		}
		out[source] = SourceStats{
			RequestsPerHour: rph,
			Interval:        interval,
			Requests:        l.counts[source],
			LastCall:        l.lastCall[source],
		}
	}
	return out
}
