// Package testutil provides testing utilities for the Text Analytics client.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// BasePath is the path prefix of every Text Analytics v3.0 operation.
const BasePath = "/text/analytics/v3.0/"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockTextAnalytics is a configurable TLS mock of the Text Analytics service.
// Without a custom handler every operation answers each document with a
// canned result, and documents with empty text with an InvalidDocument error.
type MockTextAnalytics struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	DocumentCount     int
	LastRequestHeader http.Header
	LastRequestBody   []byte
}

// NewMockTextAnalytics creates a new mock server.
func NewMockTextAnalytics() *MockTextAnalytics {
	mock := &MockTextAnalytics{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req documentRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)

		mock.mu.Lock()
		mock.RequestCount++
		mock.DocumentCount += len(req.Documents)
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestBody = body
		handler, exists := mock.handlers[strings.TrimPrefix(r.URL.Path, BasePath)]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r, req)
	}))

	return mock
}

// URL returns the mock server URL, usable as the client endpoint.
func (m *MockTextAnalytics) URL() string {
	return m.server.URL
}

// Client returns an HTTP client trusting the mock's certificate.
func (m *MockTextAnalytics) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockTextAnalytics) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockTextAnalytics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.DocumentCount = 0
	m.LastRequestHeader = nil
	m.LastRequestBody = nil
}

// SetHandler sets a custom handler for an operation such as "sentiment".
func (m *MockTextAnalytics) SetHandler(operation string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[operation] = handler
}

// SetResponse configures a fixed response for an operation.
func (m *MockTextAnalytics) SetResponse(operation string, resp MockResponse) {
	m.SetHandler(operation, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockTextAnalytics) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetDocumentCount returns the number of documents received.
func (m *MockTextAnalytics) GetDocumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DocumentCount
}

// GetLastRequestHeader returns the headers of the last request.
func (m *MockTextAnalytics) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// GetLastRequestBody returns the body of the last request.
func (m *MockTextAnalytics) GetLastRequestBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestBody
}

type documentRequest struct {
	Documents []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		Language string `json:"language"`
	} `json:"documents"`
}

// defaultHandler answers like the real service for known operations.
func (m *MockTextAnalytics) defaultHandler(w http.ResponseWriter, r *http.Request, req documentRequest) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	operation := strings.TrimPrefix(r.URL.Path, BasePath)
	result, known := cannedResults[operation]
	if !known {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"404","message":"Resource not found"}}`))
		return
	}

	resp := map[string]any{
		"documents":    []any{},
		"errors":       []any{},
		"modelVersion": "2020-04-01",
	}
	var documents, docErrors []any
	for _, doc := range req.Documents {
		if strings.TrimSpace(doc.Text) == "" {
			docErrors = append(docErrors, map[string]any{"id": doc.ID, "error": invalidDocument})
			continue
		}
		entry := map[string]any{"id": doc.ID, "warnings": []any{}}
		for k, v := range result {
			entry[k] = v
		}
		documents = append(documents, entry)
	}
	if documents != nil {
		resp["documents"] = documents
	}
	if docErrors != nil {
		resp["errors"] = docErrors
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

var invalidDocument = map[string]any{
	"code":    "InvalidArgument",
	"message": "Invalid document in request.",
	"innererror": map[string]any{
		"code":    "InvalidDocument",
		"message": "Document text is empty.",
	},
}

var cannedResults = map[string]map[string]any{
	"languages": {
		"detectedLanguage": map[string]any{"name": "English", "iso6391Name": "en", "confidenceScore": 0.99},
	},
	"sentiment": {
		"sentiment":        "positive",
		"confidenceScores": map[string]any{"positive": 0.9876, "neutral": 0.0101, "negative": 0.0023},
		"sentences":        []any{},
	},
	"entities/recognition/general": {
		"entities": []any{
			map[string]any{"text": "Seattle", "category": "Location", "offset": 0, "length": 7, "confidenceScore": 0.92},
			map[string]any{"text": "Microsoft", "category": "Organization", "offset": 12, "length": 9, "confidenceScore": 0.98},
			map[string]any{"text": "yesterday", "category": "DateTime", "offset": 30, "length": 9, "confidenceScore": 0.4},
		},
	},
	"entities/recognition/pii": {
		"entities": []any{
			map[string]any{"text": "555-0100", "category": "PhoneNumber", "offset": 0, "length": 8, "confidenceScore": 0.8},
		},
		"redactedText": "********",
	},
	"keyPhrases": {
		"keyPhrases": []any{"wonderful trip", "Seattle", "week"},
	},
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":{"code":"429","message":"Rate limit is exceeded. Try again in 1 seconds."}}`,
		Headers: map[string]string{
			"Retry-After":  "1",
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":{"code":"InternalServerError","message":"Internal server error"}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewUnauthorizedResponse creates a 401 response for a bad subscription key.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewEmptyResponse creates a 200 response without a body.
func NewEmptyResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusOK}
}
