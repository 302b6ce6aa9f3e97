// Package cache provides a Redis-backed response cache for Text Analytics
// calls.
//
// Responses are keyed by endpoint and a SHA-256 digest of the request body,
// so re-running a recipe over the same documents is served from Redis until
// the entry's TTL runs out.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, "nlp", 24*time.Hour)
//
//	key := cache.NewKey("sentiment", body)
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// call the API, then
//		_ = manager.Set(ctx, key, cache.NewEntry(respBody, http.StatusOK, manager.TTL()))
//	}
//
// # Metrics
//
//   - nlp_cache_hits_total{layer="redis"} - Cache hits
//   - nlp_cache_misses_total - Cache misses
//   - nlp_cache_size_bytes{layer="redis"} - Bytes written and served
//   - nlp_cache_errors_total{operation} - Cache operation errors
package cache
