package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultKeyPrefix is used when the manager has no prefix.
const DefaultKeyPrefix = "nlp"

// CacheKey identifies a cached response.
type CacheKey struct {
	// Endpoint is the API operation (e.g. "sentiment", "entities/recognition/general").
	Endpoint string

	// BodyHash is the hex SHA-256 of the request body.
	BodyHash string
}

// NewKey builds a key for a request body sent to endpoint.
func NewKey(endpoint string, body []byte) CacheKey {
	sum := sha256.Sum256(body)
	return CacheKey{
		Endpoint: endpoint,
		BodyHash: hex.EncodeToString(sum[:]),
	}
}

// String generates a deterministic key string without prefix.
// Format: cache:endpoint:hash
//
// Example:
//
//	cache:entities/recognition/general:9f86d081...
func (k CacheKey) String() string {
	parts := []string{"cache"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}
	parts = append(parts, k.BodyHash)

	return strings.Join(parts, ":")
}
