// Package retry wraps a call with a bounded number of attempts and a fixed
// delay between them.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nlp_retries_total",
		Help: "Total number of retry attempts by operation",
	}, []string{"name"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nlp_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by operation",
	}, []string{"name"})
)

// DefaultMaxAttempts is the number of attempts, including the first call.
const DefaultMaxAttempts = 5

// Policy holds the configuration for retry logic.
type Policy struct {
	// Name labels metrics and log lines.
	Name string

	// MaxAttempts is the maximum number of attempts (including the initial call).
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration

	// Retryable reports whether an error is transient. Nil retries nothing.
	Retryable func(error) bool
}

// DefaultPolicy returns a policy with DefaultMaxAttempts attempts spaced by delay.
func DefaultPolicy(name string, delay time.Duration, retryable func(error) bool) Policy {
	return Policy{
		Name:        name,
		MaxAttempts: DefaultMaxAttempts,
		Delay:       delay,
		Retryable:   retryable,
	}
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1 (got %d)", p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry delay must be >= 0 (got %s)", p.Delay)
	}
	return nil
}

// Do runs fn until it succeeds, returns a non-retryable error, or MaxAttempts
// is reached. The error of the last attempt is returned unchanged so callers
// can classify it. A cancelled ctx during the wait returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Debug().
					Str("name", p.Name).
					Int("attempt", attempt).
					Msg("Call succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}

		if attempt >= attempts {
			break
		}

		retriesTotal.WithLabelValues(p.Name).Inc()
		log.Debug().
			Err(err).
			Str("name", p.Name).
			Int("attempt", attempt).
			Dur("delay", p.Delay).
			Msg("Retrying call after delay")

		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}

	retryExhaustedTotal.WithLabelValues(p.Name).Inc()
	log.Warn().
		Err(lastErr).
		Str("name", p.Name).
		Int("max_attempts", attempts).
		Msg("Retry attempts exhausted")

	return lastErr
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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
