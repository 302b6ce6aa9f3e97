package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisKey is the sorted set holding granted slots.
const DefaultRedisKey = "nlp:rate_limit:window"

// slidingWindowScript evicts expired slots, then either grants one slot or
// reports the score of the oldest slot still in the window.
// Scores are unix microseconds.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]
local ttl_ms = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, tonumber(oldest[2])}
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, ttl_ms)
return {1, 0}
`)

// RedisWindow is a sliding-window limiter whose state lives in Redis, so that
// several processes calling the same API key honour one budget.
type RedisWindow struct {
	redis  *redis.Client
	key    string
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisWindow creates a Redis-backed limiter. An empty key uses DefaultRedisKey.
func NewRedisWindow(redisClient *redis.Client, key string, cfg Config, logger zerolog.Logger) (*RedisWindow, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisWindow{
		redis:  redisClient,
		key:    key,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Acquire implements Limiter.
func (w *RedisWindow) Acquire(ctx context.Context) error {
	now := w.now()
	window := w.config.Period.Microseconds()

	res, err := slidingWindowScript.Run(ctx, w.redis, []string{w.key},
		now.UnixMicro(),
		window,
		w.config.Calls,
		uuid.NewString(),
		w.config.Period.Milliseconds()+1,
	).Int64Slice()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		w.logger.Warn().Err(err).Str("key", w.key).Msg("Shared rate limit unavailable")
		return fmt.Errorf("%w: redis rate limit script: %w", ErrBackend, err)
	}
	if len(res) != 2 {
		return fmt.Errorf("%w: redis rate limit script: unexpected reply %v", ErrBackend, res)
	}

	if res[0] == 1 {
		rateLimitAcquiredTotal.WithLabelValues(w.key).Inc()
		return nil
	}

	rateLimitRejectionsTotal.WithLabelValues(w.key).Inc()
	retryAfter := time.UnixMicro(res[1] + window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	w.logger.Debug().
		Str("key", w.key).
		Dur("retry_after", retryAfter).
		Msg("Shared rate limit window full")

	return &RateLimitError{
		Calls:      w.config.Calls,
		Period:     w.config.Period,
		RetryAfter: retryAfter,
	}
}

// Period implements Limiter.
func (w *RedisWindow) Period() time.Duration {
	return w.config.Period
}

// Reset clears the shared window.
func (w *RedisWindow) Reset(ctx context.Context) error {
	if err := w.redis.Del(ctx, w.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
