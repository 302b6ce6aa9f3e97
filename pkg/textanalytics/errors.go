package textanalytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/nlp-enricher/pkg/engine"
)

// Common errors returned by the client.
var (
	// ErrMissingCredentials is returned by New without an API key.
	ErrMissingCredentials = errors.New("no Text Analytics API key provided")

	// ErrMissingEndpoint is returned by New without endpoint or region.
	ErrMissingEndpoint = errors.New("no Text Analytics endpoint or region provided")

	// ErrEmptyResponse is returned when the service answers without a body.
	ErrEmptyResponse = errors.New("empty answer from Azure Cognitive Services")

	// ErrInvalidResponse is returned when the body is not valid JSON.
	ErrInvalidResponse = errors.New("invalid API response")
)

// UndefinedErrorCode is reported when the service does not name an error.
const UndefinedErrorCode = "Undefined API error"

// APIError is a non-200 answer from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("Text Analytics error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As. The wrapped error is
// the *azcore.ResponseError when one is available.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrorType names the error for result columns.
func (e *APIError) ErrorType() string {
	if e.Code == "" {
		return UndefinedErrorCode
	}
	return e.Code
}

// Raw returns the response body.
func (e *APIError) Raw() string {
	return e.Body
}

// ErrorClass makes 429 and 5xx transient and everything else declared.
func (e *APIError) ErrorClass() engine.Class {
	if shouldRetry(e.StatusCode) {
		return engine.ClassTransient
	}
	return engine.ClassDeclared
}

// shouldRetry reports whether a status code is worth another attempt.
func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// errorBody is the service error object, possibly nesting a more specific
// innererror.
type errorBody struct {
	Code       string     `json:"code"`
	Message    string     `json:"message"`
	InnerError *errorBody `json:"innererror,omitempty"`
}

// effective returns the innermost error.
func (b *errorBody) effective() *errorBody {
	if b.InnerError != nil {
		return b.InnerError.effective()
	}
	return b
}

// newAPIError builds an APIError from a status code and body.
func newAPIError(statusCode int, body []byte, cause error) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       string(body),
		Message:    http.StatusText(statusCode),
		Err:        cause,
	}

	var envelope struct {
		Error *errorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		eb := envelope.Error.effective()
		apiErr.Code = eb.Code
		if eb.Message != "" {
			apiErr.Message = eb.Message
		}
	}
	return apiErr
}
