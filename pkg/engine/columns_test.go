package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildColumnNames(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		prefix   string
		want     ColumnNames
	}{
		{
			name:     "no collisions",
			existing: []string{"text"},
			prefix:   "api",
			want:     ColumnNames{"api_response", "api_error_message", "api_error_type", "api_error_raw"},
		},
		{
			name:     "collision gets suffix",
			existing: []string{"text", "api_response"},
			prefix:   "api",
			want:     ColumnNames{"api_response_1", "api_error_message", "api_error_type", "api_error_raw"},
		},
		{
			name:     "multiple collisions",
			existing: []string{"sentiment_api_error_type", "sentiment_api_error_type_1"},
			prefix:   "sentiment_api",
			want: ColumnNames{
				"sentiment_api_response",
				"sentiment_api_error_message",
				"sentiment_api_error_type_2",
				"sentiment_api_error_raw",
			},
		},
		{
			name:     "empty prefix",
			existing: []string{"response"},
			prefix:   "",
			want:     ColumnNames{"response_1", "error_message", "error_type", "error_raw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildColumnNames(tt.existing, tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			for _, name := range got.All() {
				assert.NotContains(t, tt.existing, name)
			}
		})
	}
}

func TestGenerateUnique_Exhausted(t *testing.T) {
	existing := []string{"api_response"}
	for j := 1; j < maxUniqueSuffix; j++ {
		existing = append(existing, fmt.Sprintf("api_response_%d", j))
	}

	got, err := GenerateUnique("response", existing, "api")
	require.NoError(t, err)
	assert.Equal(t, "api_response_1000", got)

	existing = append(existing, "api_response_1000")
	_, err = GenerateUnique("response", existing, "api")
	assert.ErrorIs(t, err, ErrColumnNamesExhausted)
}
