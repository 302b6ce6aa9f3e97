// Package config loads the enricher configuration from YAML and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/nlp-enricher/pkg/cache"
	"github.com/Sternrassler/nlp-enricher/pkg/engine"
	"github.com/Sternrassler/nlp-enricher/pkg/logging"
	"github.com/Sternrassler/nlp-enricher/pkg/ratelimit"
	"github.com/Sternrassler/nlp-enricher/pkg/textanalytics"
)

// Environment variables read when the file leaves a value empty.
const (
	EnvAPIKey   = "AZURE_TEXT_ANALYTICS_KEY"
	EnvEndpoint = "AZURE_TEXT_ANALYTICS_ENDPOINT"
	EnvRegion   = "AZURE_TEXT_ANALYTICS_REGION"
	EnvRedis    = "NLP_ENRICH_REDIS_ADDR"
)

// Preset defaults.
const (
	DefaultRateLimit     = 300
	DefaultPeriodSeconds = 60
	MaxBatchSize         = 1000
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Preset is the API connection and throughput configuration.
type Preset struct {
	Endpoint        string  `yaml:"endpoint"`
	Region          string  `yaml:"region"`
	APIKey          string  `yaml:"api_key"`
	RateLimit       int     `yaml:"rate_limit"`
	PeriodSeconds   float64 `yaml:"period_seconds"`
	ParallelWorkers int     `yaml:"parallel_workers"`
	BatchSize       int     `yaml:"batch_size"`
}

// Period returns the rate limit period.
func (p Preset) Period() time.Duration {
	return time.Duration(p.PeriodSeconds * float64(time.Second))
}

// RateLimitConfig returns the limiter configuration.
func (p Preset) RateLimitConfig() ratelimit.Config {
	return ratelimit.Config{Calls: p.RateLimit, Period: p.Period()}
}

// Redis configures the optional shared limiter and response cache.
// Redis is disabled when Addr is empty.
type Redis struct {
	Addr            string        `yaml:"addr"`
	Password        string        `yaml:"password"`
	DB              int           `yaml:"db"`
	KeyPrefix       string        `yaml:"key_prefix"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	Cache           bool          `yaml:"cache"`
	SharedRateLimit bool          `yaml:"shared_rate_limit"`
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Logging configures the logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level configuration.
type Config struct {
	Preset        Preset  `yaml:"preset"`
	Redis         Redis   `yaml:"redis"`
	ErrorHandling string  `yaml:"error_handling"`
	Verbose       bool    `yaml:"verbose"`
	Logging       Logging `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Preset: Preset{
			RateLimit:       DefaultRateLimit,
			PeriodSeconds:   DefaultPeriodSeconds,
			ParallelWorkers: engine.DefaultParallelWorkers,
			BatchSize:       engine.DefaultBatchSize,
		},
		Redis: Redis{
			KeyPrefix: cache.DefaultKeyPrefix,
			CacheTTL:  cache.DefaultTTL,
		},
		ErrorHandling: string(engine.ErrorModeLog),
		Logging: Logging{
			Level:  string(logging.LevelInfo),
			Format: string(logging.FormatAuto),
		},
	}
}

// Load reads path over the defaults, then applies environment fallbacks
// through lookup (usually os.LookupEnv). An empty path loads the defaults only.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if lookup != nil {
		cfg.ApplyEnv(lookup)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ApplyEnv fills empty credentials and endpoints from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&c.Preset.APIKey, EnvAPIKey)
	fill(&c.Preset.Region, EnvRegion)
	if c.Preset.Region == "" {
		fill(&c.Preset.Endpoint, EnvEndpoint)
	}
	fill(&c.Redis.Addr, EnvRedis)
}

// Endpoint returns the resource URL: the explicit endpoint, else the
// region's public endpoint.
func (c *Config) Endpoint() string {
	if c.Preset.Endpoint != "" {
		return c.Preset.Endpoint
	}
	if c.Preset.Region != "" {
		return textanalytics.EndpointForRegion(c.Preset.Region)
	}
	return ""
}

// ErrorMode returns the parsed error handling mode.
func (c *Config) ErrorMode() (engine.ErrorMode, error) {
	return engine.ParseErrorMode(c.ErrorHandling)
}

// Validate checks every value the engine and client depend on.
func (c *Config) Validate() error {
	var errs []error
	p := c.Preset

	if p.APIKey == "" {
		errs = append(errs, fmt.Errorf("api_key is required (or set %s)", EnvAPIKey))
	}
	if c.Endpoint() == "" {
		errs = append(errs, fmt.Errorf("endpoint or region is required (or set %s)", EnvEndpoint))
	}
	if p.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("rate_limit must be >= 1 (got %d)", p.RateLimit))
	}
	if p.PeriodSeconds <= 0 {
		errs = append(errs, fmt.Errorf("period_seconds must be > 0 (got %g)", p.PeriodSeconds))
	}
	if p.ParallelWorkers < 1 {
		errs = append(errs, fmt.Errorf("parallel_workers must be >= 1 (got %d)", p.ParallelWorkers))
	}
	if p.BatchSize < 1 || p.BatchSize > MaxBatchSize {
		errs = append(errs, fmt.Errorf("batch_size must be between 1 and %d (got %d)", MaxBatchSize, p.BatchSize))
	}
	if _, err := c.ErrorMode(); err != nil {
		errs = append(errs, fmt.Errorf("error_handling: %v", err))
	}
	if c.Redis.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must be >= 0 (got %s)", c.Redis.CacheTTL))
	}
	if (c.Redis.Cache || c.Redis.SharedRateLimit) && !c.Redis.Enabled() {
		errs = append(errs, errors.New("redis.addr is required for cache or shared_rate_limit"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
