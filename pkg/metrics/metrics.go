// Package metrics exposes the Prometheus metrics of the enricher.
// Metrics are defined in their respective packages (engine, ratelimit,
// retry, cache, textanalytics) and registered via promauto on the default
// registry; this package serves them and documents the catalogue.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the registry all enricher metrics are registered on.
var Registry = prometheus.DefaultRegisterer

// Path is the HTTP path metrics are served on.
const Path = "/metrics"

// shutdownTimeout bounds the graceful stop of the metrics server.
const shutdownTimeout = 5 * time.Second

// Handler returns the HTTP handler serving the default gatherer.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, promhttp.Handler())
	return mux
}

// Serve listens on addr and serves metrics until ctx is done.
// The returned address is the one actually bound (useful with ":0").
func Serve(ctx context.Context, addr string, logger zerolog.Logger) (string, <-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}

	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
		close(done)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}()

	bound := ln.Addr().String()
	logger.Info().Str("addr", bound).Str("path", Path).Msg("Serving metrics")
	return bound, done, nil
}

// Metrics Documentation
//
// Engine Metrics (pkg/engine):
//   - nlp_engine_runs_total{name, state} (Counter): Runs by terminal state (DONE, FAILED)
//   - nlp_engine_units_total{name, status} (Counter): Executed units (ok, error, aborted)
//   - nlp_engine_rows_total{name, outcome} (Counter): Reconciled rows (succeeded, failed)
//   - nlp_engine_call_duration_seconds{name} (Histogram): Unit call duration incl. waits
//
// Rate Limit Metrics (pkg/ratelimit):
//   - nlp_rate_limit_acquired_total{limiter} (Counter): Call slots granted
//   - nlp_rate_limit_rejections_total{limiter} (Counter): Calls rejected by a full window
//
// Retry Metrics (pkg/retry):
//   - nlp_retries_total{operation} (Counter): Retry attempts
//   - nlp_retry_exhausted_total{operation} (Counter): Calls that exhausted all attempts
//
// Cache Metrics (pkg/cache):
//   - nlp_cache_hits_total{layer="redis"} (Counter): Response cache hits
//   - nlp_cache_misses_total (Counter): Response cache misses
//   - nlp_cache_size_bytes{layer="redis"} (Gauge): Bytes written to and served from the cache
//   - nlp_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/textanalytics):
//   - nlp_textanalytics_requests_total{endpoint, status} (Counter): Requests by operation and HTTP status
//   - nlp_textanalytics_request_duration_seconds{endpoint} (Histogram): Request duration
//
// Example Prometheus Queries:
//
//   # Share of failed rows
//   sum(rate(nlp_engine_rows_total{outcome="failed"}[5m])) /
//   sum(rate(nlp_engine_rows_total[5m]))
//
//   # Throttling pressure
//   rate(nlp_rate_limit_rejections_total[5m])
//
//   # Cache Hit Rate
//   sum(rate(nlp_cache_hits_total[5m])) /
//   (sum(rate(nlp_cache_hits_total[5m])) + sum(rate(nlp_cache_misses_total[5m])))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(nlp_textanalytics_request_duration_seconds_bucket[5m]))
