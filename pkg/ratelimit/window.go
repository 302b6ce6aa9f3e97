package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is an in-memory sliding-window limiter safe for concurrent use.
// It records the time of every granted slot and rejects once Calls slots were
// granted within the trailing Period.
type Window struct {
	name   string
	config Config
	now    func() time.Time

	mu      sync.Mutex
	granted []time.Time // ascending
}

// NewWindow creates a sliding-window limiter.
func NewWindow(name string, cfg Config) (*Window, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Window{
		name:    name,
		config:  cfg,
		now:     time.Now,
		granted: make([]time.Time, 0, cfg.Calls),
	}, nil
}

// Acquire implements Limiter.
func (w *Window) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.evict(now)

	if len(w.granted) >= w.config.Calls {
		rateLimitRejectionsTotal.WithLabelValues(w.name).Inc()
		return &RateLimitError{
			Calls:      w.config.Calls,
			Period:     w.config.Period,
			RetryAfter: w.granted[0].Add(w.config.Period).Sub(now),
		}
	}

	w.granted = append(w.granted, now)
	rateLimitAcquiredTotal.WithLabelValues(w.name).Inc()
	return nil
}

// Period implements Limiter.
func (w *Window) Period() time.Duration {
	return w.config.Period
}

// InFlight returns the number of slots held in the current window.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(w.now())
	return len(w.granted)
}

// evict drops slots older than the window. Caller holds mu.
func (w *Window) evict(now time.Time) {
	cutoff := now.Add(-w.config.Period)
	i := 0
	for i < len(w.granted) && !w.granted[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.granted = append(w.granted[:0], w.granted[i:]...)
	}
}
