package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/nlp-enricher/internal/config"
	"github.com/Sternrassler/nlp-enricher/internal/dataset"
	"github.com/Sternrassler/nlp-enricher/internal/recipe"
	"github.com/Sternrassler/nlp-enricher/pkg/engine"
	"github.com/Sternrassler/nlp-enricher/pkg/logging"
	"github.com/Sternrassler/nlp-enricher/pkg/metrics"
)

// ioOptions holds the input/output flags shared by every subcommand.
type ioOptions struct {
	input          string
	output         string
	textColumn     string
	language       string
	languageColumn string
	prefix         string
}

func (o *ioOptions) register(cmd *cobra.Command, withLanguage bool) {
	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "input CSV file (REQUIRED)")
	f.StringVarP(&o.output, "output", "o", "", "output CSV file (REQUIRED)")
	f.StringVar(&o.textColumn, "text-column", "", "column holding the text (REQUIRED)")
	f.StringVar(&o.prefix, "prefix", "", "prefix of the added columns")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("text-column")
	if withLanguage {
		f.StringVar(&o.language, "language", "", "ISO 639-1 language of every row (empty: detected by the API)")
		f.StringVar(&o.languageColumn, "language-column", "", "column holding the language of each row")
		cmd.MarkFlagsMutuallyExclusive("language", "language-column")
	}
}

func (o *ioOptions) textOptions() recipe.TextOptions {
	t := recipe.TextOptions{TextColumn: o.textColumn, Language: o.language, Prefix: o.prefix}
	if o.languageColumn != "" {
		t.Language = recipe.LanguageFromColumn
		t.LanguageColumn = o.languageColumn
	}
	return t
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, g *globalOptions, e env) (*config.Config, error) {
	cfg, err := config.Load(g.configPath, e.lookup)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = g.logFormat
	}
	if changed("error-handling") {
		cfg.ErrorHandling = g.errorHandling
	}
	if changed("verbose") {
		cfg.Verbose = g.verbose
	}
	if changed("workers") {
		cfg.Preset.ParallelWorkers = g.workers
	}
	if changed("batch-size") {
		cfg.Preset.BatchSize = g.batchSize
	}
	if changed("rate-limit") {
		cfg.Preset.RateLimit = g.rateLimit
	}
	if changed("period") {
		cfg.Preset.PeriodSeconds = g.period
	}
	if changed("redis-addr") {
		cfg.Redis.Addr = g.redisAddr
	}
	if changed("cache") {
		cfg.Redis.Cache = g.cache
	}
	if changed("shared-rate-limit") {
		cfg.Redis.SharedRateLimit = g.sharedLimit
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	format, _ := logging.ParseFormat(cfg.Logging.Format)
	return logging.Setup(logging.Config{Level: level, Format: format, Output: w})
}

// recipeFunc runs one recipe on the input table.
type recipeFunc func(ctx context.Context, r *recipe.Runner, t *engine.Table) (*recipe.Result, error)

// execute is the shared body of every subcommand.
func execute(cmd *cobra.Command, g *globalOptions, e env, o *ioOptions, run recipeFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, g, e)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, cmd.ErrOrStderr()).With().Str("command", cmd.Name()).Logger()

	if g.metricsAddr != "" {
		mctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if _, _, err := metrics.Serve(mctx, g.metricsAddr, logger); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
	}

	input, err := dataset.ReadFile(o.input)
	if err != nil {
		return err
	}
	logger.Info().Str("input", o.input).Int("rows", input.Len()).Msg("Input loaded")

	progress := newProgress(cmd.ErrOrStderr())
	runner, err := recipe.NewRunner(ctx, cfg, recipe.Options{
		HTTPClient: e.httpClient,
		OnProgress: progress.update,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer runner.Close()

	start := time.Now()
	res, err := run(ctx, runner, input)
	progress.done()
	if err != nil {
		return err
	}

	if err := dataset.WriteFile(o.output, res.Table); err != nil {
		return err
	}
	descPath := dataset.DescriptionsPath(o.output)
	if err := dataset.WriteDescriptions(descPath, res.Descriptions); err != nil {
		return err
	}
	logger.Info().Str("output", o.output).Str("descriptions", descPath).Dur("duration", time.Since(start)).Msg("Output written")

	fmt.Fprintf(cmd.OutOrStdout(), "%d rows succeeded, %d rows failed -> %s\n", res.Succeeded, res.Failed, o.output)
	return nil
}

// progress renders a one-line unit counter when w is a terminal.
type progress struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	printed bool
}

func newProgress(w io.Writer) *progress {
	return &progress{w: w, enabled: logging.IsTerminal(w)}
}

func (p *progress) update(completed, total int) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\r%d/%d units (%d%%)", completed, total, completed*100/max(total, 1))
	p.printed = true
}

func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed {
		fmt.Fprintln(p.w)
	}
}
