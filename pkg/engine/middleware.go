package engine

import (
	"context"

	"github.com/Sternrassler/nlp-enricher/pkg/ratelimit"
	"github.com/Sternrassler/nlp-enricher/pkg/retry"
)

// Invoker performs one remote call for the rows of a unit.
type Invoker[T any] func(ctx context.Context, rows []Row) (T, error)

// WithRateLimit consumes one limiter slot before every call. A rejection is
// returned without calling next.
func WithRateLimit[T any](limiter ratelimit.Limiter, next Invoker[T]) Invoker[T] {
	return func(ctx context.Context, rows []Row) (T, error) {
		if err := limiter.Acquire(ctx); err != nil {
			var zero T
			return zero, err
		}
		return next(ctx, rows)
	}
}

// WithRetry re-runs next while it fails with a transient error. Each attempt
// goes through next again, so a rate limited invoker consumes a slot per try.
func WithRetry[T any](policy retry.Policy, classify Classifier, next Invoker[T]) Invoker[T] {
	policy.Retryable = func(err error) bool {
		return classify(err) == ClassTransient
	}
	return func(ctx context.Context, rows []Row) (T, error) {
		var out T
		err := policy.Do(ctx, func(ctx context.Context) error {
			var callErr error
			out, callErr = next(ctx, rows)
			return callErr
		})
		return out, err
	}
}
