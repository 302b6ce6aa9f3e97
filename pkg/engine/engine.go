package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/nlp-enricher/pkg/ratelimit"
	"github.com/Sternrassler/nlp-enricher/pkg/retry"
)

// ErrorMode selects how captured errors are handled.
type ErrorMode string

const (
	// ErrorModeLog records errors on the rows and completes the run.
	ErrorModeLog ErrorMode = "LOG"

	// ErrorModeFail aborts the run on the first captured error.
	ErrorModeFail ErrorMode = "FAIL"
)

// ParseErrorMode parses "log" or "fail", case-insensitively.
func ParseErrorMode(s string) (ErrorMode, error) {
	switch ErrorMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ErrorModeLog:
		return ErrorModeLog, nil
	case ErrorModeFail:
		return ErrorModeFail, nil
	default:
		return "", fmt.Errorf("%w: unknown error mode %q (want LOG or FAIL)", ErrInvalidConfig, s)
	}
}

// Defaults applied by New.
const (
	DefaultParallelWorkers = 4
	DefaultBatchSize       = 10
	DefaultPrefix          = "api"
)

// State is the lifecycle state of a run.
type State int

const (
	StateInit State = iota
	StateBatching
	StateDispatching
	StateReconciling
	StateDone
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateBatching:
		return "BATCHING"
	case StateDispatching:
		return "DISPATCHING"
	case StateReconciling:
		return "RECONCILING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds engine configuration.
type Config struct {
	// Name labels metrics and log lines (default: "engine").
	Name string

	// ParallelWorkers is the worker pool size (default: 4).
	ParallelWorkers int

	// BatchSize is the number of rows per batch call (default: 10).
	// Ignored when Row is set.
	BatchSize int

	// ErrorMode is LOG or FAIL (default: LOG).
	ErrorMode ErrorMode

	// Prefix namespaces the result columns (default: "api").
	Prefix string

	// Verbose keeps the error_raw column in LOG mode.
	Verbose bool

	// Row and Batch are the remote-call functions. Exactly one must be set.
	Row   RowFunc
	Batch BatchFunc

	// Classify maps errors to classes (default: DefaultClassifier).
	Classify Classifier

	// Limiter is shared by all workers. When nil, a Window is created from
	// RateLimit, or calls are unlimited if RateLimit is zero.
	Limiter   ratelimit.Limiter
	RateLimit ratelimit.Config

	// Retry wraps each call. Zero values default to DefaultMaxAttempts
	// attempts spaced by the limiter's period.
	Retry retry.Policy

	// OnProgress receives completed/total unit counts.
	OnProgress ProgressFunc

	// OnState receives every state transition of a run.
	OnState func(State)

	// Logger is the base logger (default: global logger with component=engine).
	Logger *zerolog.Logger
}

// Engine runs remote calls over tables. An Engine is safe for sequential
// reuse; the limiter is shared across runs.
type Engine struct {
	config Config
	exec   executor
	logger zerolog.Logger
}

// New validates cfg, applies defaults and composes the call middleware.
func New(cfg Config) (*Engine, error) {
	if cfg.Name == "" {
		cfg.Name = "engine"
	}
	if cfg.ParallelWorkers == 0 {
		cfg.ParallelWorkers = DefaultParallelWorkers
	}
	if cfg.ParallelWorkers < 1 {
		return nil, fmt.Errorf("%w: parallel workers must be >= 1 (got %d)", ErrInvalidConfig, cfg.ParallelWorkers)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Batch != nil && cfg.BatchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be >= 1 (got %d)", ErrInvalidConfig, cfg.BatchSize)
	}
	if cfg.ErrorMode == "" {
		cfg.ErrorMode = ErrorModeLog
	}
	if cfg.ErrorMode != ErrorModeLog && cfg.ErrorMode != ErrorModeFail {
		return nil, fmt.Errorf("%w: unknown error mode %q", ErrInvalidConfig, cfg.ErrorMode)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if (cfg.Row == nil) == (cfg.Batch == nil) {
		return nil, fmt.Errorf("%w: exactly one of Row or Batch must be set", ErrInvalidConfig)
	}
	if cfg.Classify == nil {
		cfg.Classify = DefaultClassifier
	}

	if cfg.Limiter == nil {
		if cfg.RateLimit.Calls > 0 {
			w, err := ratelimit.NewWindow(cfg.Name, cfg.RateLimit)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			}
			cfg.Limiter = w
		} else {
			cfg.Limiter = ratelimit.Unlimited{}
		}
	}

	if cfg.Retry.Name == "" {
		cfg.Retry.Name = cfg.Name
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = retry.DefaultMaxAttempts
	}
	if cfg.Retry.Delay == 0 {
		cfg.Retry.Delay = cfg.Limiter.Period()
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := log.With().Str("component", "engine").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("name", cfg.Name).Logger()

	pol := callPolicy{
		name:     cfg.Name,
		mode:     cfg.ErrorMode,
		classify: cfg.Classify,
		logger:   logger,
	}

	var exec executor
	if cfg.Row != nil {
		row := cfg.Row
		base := func(ctx context.Context, rows []Row) (any, error) {
			return row(ctx, rows[0])
		}
		exec = &rowExecutor{
			callPolicy: pol,
			call:       WithRetry(cfg.Retry, cfg.Classify, WithRateLimit[any](cfg.Limiter, base)),
		}
	} else {
		exec = &batchExecutor{
			callPolicy: pol,
			call:       WithRetry(cfg.Retry, cfg.Classify, WithRateLimit(cfg.Limiter, Invoker[*BatchResponse](cfg.Batch))),
		}
	}

	return &Engine{config: cfg, exec: exec, logger: logger}, nil
}

// Config returns the effective configuration after defaults.
func (e *Engine) Config() Config {
	return e.config
}

// Run calls the remote API for every row of t and returns the reconciled
// output. In FAIL mode, or on a fatal error, no output is returned.
func (e *Engine) Run(ctx context.Context, t *Table) (*OutputTable, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil input table", ErrInvalidConfig)
	}

	logger := e.logger.With().Str("run_id", uuid.NewString()).Logger()
	start := time.Now()

	e.transition(StateInit)
	names, err := BuildColumnNames(t.Columns, e.config.Prefix)
	if err != nil {
		return nil, e.fail(logger, err)
	}

	e.transition(StateBatching)
	batcher, err := NewBatcher(t, e.config.BatchSize, e.config.Batch != nil)
	if err != nil {
		return nil, e.fail(logger, err)
	}
	total := batcher.Len()

	chunk := batcher.size
	logger.Info().
		Int("rows", t.Len()).
		Int("units", total).
		Int("workers", e.config.ParallelWorkers).
		Msgf("Calling remote API endpoint with %d rows, chunked by %d", t.Len(), chunk)

	e.transition(StateDispatching)
	d := &dispatcher{
		workers:  e.config.ParallelWorkers,
		exec:     e.exec,
		progress: e.config.OnProgress,
		logger:   logger,
	}
	units, err := d.dispatch(ctx, batcher.Units(), total)
	if err != nil {
		return nil, e.fail(logger, err)
	}

	e.transition(StateReconciling)
	out, err := reconcile(t, units, names, e.config.ErrorMode, e.config.Verbose)
	if err != nil {
		return nil, e.fail(logger, err)
	}
	logSummary(logger, e.config.Name, out)

	e.transition(StateDone)
	runsTotal.WithLabelValues(e.config.Name, StateDone.String()).Inc()
	logger.Debug().Dur("duration", time.Since(start)).Msg("Run complete")

	return out, nil
}

func (e *Engine) transition(s State) {
	if e.config.OnState != nil {
		e.config.OnState(s)
	}
}

func (e *Engine) fail(logger zerolog.Logger, err error) error {
	e.transition(StateFailed)
	runsTotal.WithLabelValues(e.config.Name, StateFailed.String()).Inc()

	if errors.Is(err, context.Canceled) {
		logger.Warn().Err(err).Msg("Run cancelled")
		return err
	}
	logger.Error().Err(err).Msg("Run aborted")
	return err
}
