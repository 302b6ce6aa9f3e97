package textanalytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/nlp-enricher/pkg/cache"
	"github.com/Sternrassler/nlp-enricher/pkg/engine"
)

// Prometheus metrics for Text Analytics requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nlp_textanalytics_requests_total",
		Help: "Total Text Analytics requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nlp_textanalytics_request_duration_seconds",
		Help:    "Text Analytics request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

const (
	moduleName    = "nlp-enricher/textanalytics"
	moduleVersion = "v1.0.0"

	// APIVersion is the REST API version in the request path.
	APIVersion = "v3.0"

	// SubscriptionKeyHeader carries the API key.
	SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

	// DefaultTimeout bounds one HTTP request.
	DefaultTimeout = 30 * time.Second
)

// Operation is a Text Analytics endpoint below the versioned base path.
type Operation string

const (
	OpDetectLanguage    Operation = "languages"
	OpAnalyzeSentiment  Operation = "sentiment"
	OpRecognizeEntities Operation = "entities/recognition/general"
	OpRecognizePII      Operation = "entities/recognition/pii"
	OpExtractKeyPhrases Operation = "keyPhrases"
)

// Document is one input document of a request. ID is the in-batch index.
type Document struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Language    string `json:"language,omitempty"`
	CountryHint string `json:"countryHint,omitempty"`
}

// NewDocument creates a document for the row at batch index i.
func NewDocument(i int, text string) Document {
	return Document{ID: strconv.Itoa(i), Text: strings.TrimSpace(text)}
}

type documentRequest struct {
	Documents []Document `json:"documents"`
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the resource URL, e.g. "https://westeurope.api.cognitive.microsoft.com".
	// When empty it is derived from Region.
	Endpoint string

	// Region is the Azure region of the resource.
	Region string

	// APIKey is the subscription key (REQUIRED).
	APIKey string

	// HTTPClient sends requests (default: http.Client with DefaultTimeout).
	HTTPClient *http.Client

	// Cache stores successful responses when set.
	Cache *cache.Manager

	// Logger (default: global logger with component=textanalytics).
	Logger *zerolog.Logger
}

// Client calls the Text Analytics API.
type Client struct {
	pipeline runtime.Pipeline
	baseURL  string
	cache    *cache.Manager
	logger   zerolog.Logger
}

// EndpointForRegion returns the public endpoint of a region.
func EndpointForRegion(region string) string {
	return fmt.Sprintf("https://%s.api.cognitive.microsoft.com", region)
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}

	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.Region != "" {
		endpoint = EndpointForRegion(cfg.Region)
	}
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	logger := log.With().Str("component", "textanalytics").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	cred := azcore.NewKeyCredential(cfg.APIKey)
	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerCall: []policy.Policy{runtime.NewKeyCredentialPolicy(cred, SubscriptionKeyHeader, nil)},
	}, &policy.ClientOptions{
		// retries belong to the engine's retry policy
		Retry:     policy.RetryOptions{MaxRetries: -1},
		Telemetry: policy.TelemetryOptions{Disabled: true},
		Transport: httpClient,
	})

	baseURL := strings.TrimRight(endpoint, "/") + "/text/analytics/" + APIVersion + "/"

	logger.Info().Str("endpoint", endpoint).Bool("cache", cfg.Cache != nil).Msg("Credentials loaded")

	return &Client{
		pipeline: pl,
		baseURL:  baseURL,
		cache:    cfg.Cache,
		logger:   logger,
	}, nil
}

// BaseURL returns the versioned base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DetectLanguage calls the "languages" operation.
func (c *Client) DetectLanguage(ctx context.Context, docs []Document) ([]byte, error) {
	return c.Post(ctx, OpDetectLanguage, docs)
}

// AnalyzeSentiment calls the "sentiment" operation.
func (c *Client) AnalyzeSentiment(ctx context.Context, docs []Document) ([]byte, error) {
	return c.Post(ctx, OpAnalyzeSentiment, docs)
}

// RecognizeEntities calls the general named entity recognition operation.
func (c *Client) RecognizeEntities(ctx context.Context, docs []Document) ([]byte, error) {
	return c.Post(ctx, OpRecognizeEntities, docs)
}

// RecognizePII calls the personally identifiable information operation.
func (c *Client) RecognizePII(ctx context.Context, docs []Document) ([]byte, error) {
	return c.Post(ctx, OpRecognizePII, docs)
}

// ExtractKeyPhrases calls the "keyPhrases" operation.
func (c *Client) ExtractKeyPhrases(ctx context.Context, docs []Document) ([]byte, error) {
	return c.Post(ctx, OpExtractKeyPhrases, docs)
}

// Post sends docs to op and returns the raw response body.
func (c *Client) Post(ctx context.Context, op Operation, docs []Document) ([]byte, error) {
	endpoint := string(op)

	body, err := json.Marshal(documentRequest{Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("marshal documents: %w", err)
	}

	var key cache.CacheKey
	if c.cache != nil {
		key = cache.NewKey(endpoint, body)
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			c.logger.Debug().Str("endpoint", endpoint).Int("documents", len(docs)).Msg("Serving response from cache")
			return entry.Data, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req, err := runtime.NewRequest(ctx, http.MethodPost, c.baseURL+endpoint)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Raw().Header.Set("Accept", "application/json")
	if err := req.SetBody(streaming.NopCloser(bytes.NewReader(body)), "application/json"); err != nil {
		return nil, fmt.Errorf("set request body: %w", err)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("documents", len(docs)).
		Msg("Executing Text Analytics request")

	resp, err := c.pipeline.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, engine.MarkTransient(fmt.Errorf("%s request: %w", endpoint, err))
	}

	payload, err := runtime.Payload(resp)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "read_error").Inc()
		return nil, engine.MarkTransient(fmt.Errorf("read %s response: %w", endpoint, err))
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		apiErr := newAPIError(resp.StatusCode, payload, runtime.NewResponseError(resp))
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("code", apiErr.Code).
			Msg("Text Analytics request error")
		return nil, apiErr
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, engine.Declare(fmt.Errorf("%w (HTTP code: %d)", ErrEmptyResponse, resp.StatusCode))
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, cache.NewEntry(payload, resp.StatusCode, c.cache.TTL())); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
		}
	}

	return payload, nil
}
