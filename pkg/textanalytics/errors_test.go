package textanalytics

import (
	"testing"

	"github.com/Sternrassler/nlp-enricher/pkg/engine"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		if got := shouldRetry(tt.status); got != tt.want {
			t.Errorf("shouldRetry(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAPIError(t *testing.T) {
	err := newAPIError(400, []byte(`{"error":{"code":"InvalidRequest","message":"outer","innererror":{"code":"UnsupportedLanguageCode","message":"Invalid language code."}}}`), nil)

	if err.Code != "UnsupportedLanguageCode" {
		t.Errorf("Code = %q", err.Code)
	}
	if err.Error() != "Text Analytics error (status 400): Invalid language code." {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.ErrorType() != "UnsupportedLanguageCode" {
		t.Errorf("ErrorType() = %q", err.ErrorType())
	}
	if err.Raw() == "" {
		t.Error("Raw() is empty")
	}
	if err.ErrorClass() != engine.ClassDeclared {
		t.Errorf("ErrorClass() = %v, want declared", err.ErrorClass())
	}
}

func TestAPIError_NonJSONBody(t *testing.T) {
	err := newAPIError(502, []byte("<html>Bad Gateway</html>"), nil)

	if err.Message != "Bad Gateway" {
		t.Errorf("Message = %q, want status text", err.Message)
	}
	if err.ErrorType() != UndefinedErrorCode {
		t.Errorf("ErrorType() = %q, want %q", err.ErrorType(), UndefinedErrorCode)
	}
	if err.ErrorClass() != engine.ClassTransient {
		t.Errorf("ErrorClass() = %v, want transient", err.ErrorClass())
	}
}
