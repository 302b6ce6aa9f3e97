// Package recipe wires the Text Analytics client, the engine and a formatter
// into one call per NLP operation.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/nlp-enricher/internal/config"
	"github.com/Sternrassler/nlp-enricher/internal/dataset"
	"github.com/Sternrassler/nlp-enricher/pkg/cache"
	"github.com/Sternrassler/nlp-enricher/pkg/engine"
	"github.com/Sternrassler/nlp-enricher/pkg/format"
	"github.com/Sternrassler/nlp-enricher/pkg/ratelimit"
	"github.com/Sternrassler/nlp-enricher/pkg/textanalytics"
)

// LanguageFromColumn selects a per-row language column instead of a fixed language.
const LanguageFromColumn = "language_column"

// Options configures a Runner beyond the loaded configuration.
type Options struct {
	// HTTPClient sends API requests (default: client default).
	HTTPClient *http.Client

	// Redis is used for the shared limiter and cache when the configuration
	// enables them. When nil a client is created from the configuration.
	Redis *redis.Client

	// OnProgress receives completed/total unit counts.
	OnProgress engine.ProgressFunc

	// Logger is the base logger.
	Logger zerolog.Logger
}

// Result is a formatted output table and its column descriptions.
type Result struct {
	Table        *engine.Table
	Descriptions map[string]string
	Succeeded    int
	Failed       int
}

// Runner runs the NLP recipes. The limiter is shared by every run of a Runner.
type Runner struct {
	cfg        *config.Config
	mode       engine.ErrorMode
	client     *textanalytics.Client
	limiter    ratelimit.Limiter
	redis      *redis.Client
	ownsRedis  bool
	onProgress engine.ProgressFunc
	logger     zerolog.Logger
}

// NewRunner validates cfg and builds the client, limiter and cache.
func NewRunner(ctx context.Context, cfg *config.Config, opts Options) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := cfg.ErrorMode()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:        cfg,
		mode:       mode,
		redis:      opts.Redis,
		onProgress: opts.OnProgress,
		logger:     opts.Logger.With().Str("component", "recipe").Logger(),
	}

	useRedis := cfg.Redis.Enabled() && (cfg.Redis.Cache || cfg.Redis.SharedRateLimit)
	if useRedis && r.redis == nil {
		r.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		r.ownsRedis = true
		if err := r.redis.Ping(ctx).Err(); err != nil {
			r.Close()
			return nil, fmt.Errorf("connecting to Redis at %s: %w", cfg.Redis.Addr, err)
		}
		r.logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	var responseCache *cache.Manager
	if cfg.Redis.Cache && r.redis != nil {
		responseCache = cache.NewManager(r.redis, cfg.Redis.KeyPrefix, cfg.Redis.CacheTTL)
	}

	clientLogger := opts.Logger.With().Str("component", "textanalytics").Logger()
	r.client, err = textanalytics.New(textanalytics.Config{
		Endpoint:   cfg.Endpoint(),
		APIKey:     cfg.Preset.APIKey,
		HTTPClient: opts.HTTPClient,
		Cache:      responseCache,
		Logger:     &clientLogger,
	})
	if err != nil {
		r.Close()
		return nil, err
	}

	rl := cfg.Preset.RateLimitConfig()
	if cfg.Redis.SharedRateLimit && r.redis != nil {
		key := cfg.Redis.KeyPrefix + ":ratelimit"
		r.limiter, err = ratelimit.NewRedisWindow(r.redis, key, rl, opts.Logger.With().Str("component", "ratelimit").Logger())
	} else {
		r.limiter, err = ratelimit.NewWindow("textanalytics", rl)
	}
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	return r, nil
}

// Close releases the Redis client when the Runner created it.
func (r *Runner) Close() error {
	if r.ownsRedis && r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

// TextOptions selects the text and language of each document.
type TextOptions struct {
	// TextColumn holds the document text (REQUIRED).
	TextColumn string

	// Language is an ISO 639-1 code, or LanguageFromColumn to read it from
	// LanguageColumn. Empty lets the API detect it.
	Language string

	// LanguageColumn holds per-row language codes.
	LanguageColumn string

	// Prefix overrides the operation's default column prefix.
	Prefix string
}

func (o TextOptions) validate(t *engine.Table) error {
	if err := dataset.ValidateColumn(o.TextColumn, t.Columns); err != nil {
		return fmt.Errorf("text column: %w", err)
	}
	if o.Language == LanguageFromColumn {
		if err := dataset.ValidateColumn(o.LanguageColumn, t.Columns); err != nil {
			return fmt.Errorf("language column: %w", err)
		}
	}
	return nil
}

func (o TextOptions) document(i int, row engine.Row) textanalytics.Document {
	doc := textanalytics.NewDocument(i, row.Text(o.TextColumn))
	if o.Language == LanguageFromColumn {
		doc.Language = row.Text(o.LanguageColumn)
	} else {
		doc.Language = o.Language
	}
	return doc
}

func prefixOr(prefix, def string) string {
	if prefix != "" {
		return prefix
	}
	return def
}

// job describes one recipe run.
type job struct {
	name      string
	prefix    string
	op        textanalytics.Operation
	document  func(i int, row engine.Row) textanalytics.Document
	formatter func(existing []string, prefix string) (format.Formatter, error)
}

func (r *Runner) run(ctx context.Context, t *engine.Table, j job) (*Result, error) {
	if t == nil {
		return nil, errors.New("nil input table")
	}
	logger := r.logger.With().Str("recipe", j.name).Logger()

	call := func(ctx context.Context, rows []engine.Row) (*engine.BatchResponse, error) {
		docs := make([]textanalytics.Document, len(rows))
		for i, row := range rows {
			docs[i] = j.document(i, row)
		}
		docs, blank := textanalytics.SplitBlank(docs)
		if len(docs) == 0 {
			return &engine.BatchResponse{Errors: blank}, nil
		}
		body, err := r.client.Post(ctx, j.op, docs)
		if err != nil {
			return nil, err
		}
		resp, err := textanalytics.ParseBatch(body, len(rows))
		if err != nil {
			return nil, err
		}
		// Listed first so a batch-wide error cannot replace them.
		resp.Errors = append(blank, resp.Errors...)
		return resp, nil
	}

	p := r.cfg.Preset
	e, err := engine.New(engine.Config{
		Name:            j.name,
		ParallelWorkers: p.ParallelWorkers,
		BatchSize:       p.BatchSize,
		ErrorMode:       r.mode,
		Prefix:          j.prefix,
		Verbose:         r.cfg.Verbose,
		Batch:           call,
		Limiter:         r.limiter,
		RateLimit:       p.RateLimitConfig(),
		OnProgress:      r.onProgress,
		Logger:          &logger,
	})
	if err != nil {
		return nil, err
	}

	out, err := e.Run(ctx, t)
	if err != nil {
		return nil, err
	}

	f, err := j.formatter(out.Columns(), j.prefix)
	if err != nil {
		return nil, err
	}
	formatted, err := format.Apply(out, f, r.mode, logger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Table:        formatted,
		Descriptions: format.Descriptions(out, f),
		Succeeded:    out.Succeeded(),
		Failed:       out.Failed(),
	}, nil
}
