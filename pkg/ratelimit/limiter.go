// Package ratelimit enforces "at most N calls per period" across all workers
// that share one limiter instance.
//
// Limiters never sleep on behalf of the caller. When the window is full,
// Acquire returns a *RateLimitError and the caller decides how to back off,
// which keeps retry and backoff policy in one place (pkg/retry).
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for rate limiting.
var (
	rateLimitAcquiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nlp_rate_limit_acquired_total",
		Help: "Total number of call slots granted by limiter",
	}, []string{"limiter"})

	rateLimitRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nlp_rate_limit_rejections_total",
		Help: "Total number of calls rejected because the window was full",
	}, []string{"limiter"})
)

var (
	// ErrRateLimited is matched by every *RateLimitError via errors.Is.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBackend is matched by limiter errors caused by the shared store.
	ErrBackend = errors.New("rate limit backend unavailable")
)

// Limiter grants call slots.
type Limiter interface {
	// Acquire takes one slot in the current window or returns a *RateLimitError
	// when the window is full.
	Acquire(ctx context.Context) error

	// Period returns the length of the window, 0 when unlimited.
	Period() time.Duration
}

// Config describes a rate limit budget.
type Config struct {
	// Calls is the maximum number of calls allowed within Period.
	Calls int

	// Period is the length of the rolling window.
	Period time.Duration
}

// Validate checks the budget is usable.
func (c Config) Validate() error {
	if c.Calls < 1 {
		return fmt.Errorf("rate limit calls must be >= 1 (got %d)", c.Calls)
	}
	if c.Period <= 0 {
		return fmt.Errorf("rate limit period must be > 0 (got %s)", c.Period)
	}
	return nil
}

// RateLimitError is returned by Acquire when the window is full.
type RateLimitError struct {
	Calls      int
	Period     time.Duration
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d calls per %s (retry after %s)",
		e.Calls, e.Period, e.RetryAfter.Round(time.Millisecond))
}

// Is makes errors.Is(err, ErrRateLimited) true.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// ErrorType names the error for result columns.
func (e *RateLimitError) ErrorType() string {
	return "ratelimit.RateLimitError"
}

// IsRateLimited reports whether err is a limiter rejection.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTransient reports whether err is expected to clear on retry: a
// rejection or a failure of the shared store.
func IsTransient(err error) bool {
	return IsRateLimited(err) || errors.Is(err, ErrBackend)
}

// Unlimited is a Limiter that always grants.
type Unlimited struct{}

// Acquire always succeeds.
func (Unlimited) Acquire(context.Context) error { return nil }

// Period is always 0.
func (Unlimited) Period() time.Duration { return 0 }
