package format

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/nlp-enricher/pkg/engine"
)

func quietLogger() zerolog.Logger {
	return zerolog.Nop()
}

// runEngine returns an output table whose response column is the row text,
// except rows with text "fail" which get a declared error.
func runEngine(t *testing.T, texts []string, mode engine.ErrorMode) *engine.OutputTable {
	t.Helper()
	table := engine.NewTable("id", "text")
	for i, s := range texts {
		table.Append(engine.Record{"id": i, "text": s})
	}
	logger := quietLogger()
	e, err := engine.New(engine.Config{
		ParallelWorkers: 2,
		ErrorMode:       mode,
		Logger:          &logger,
		Row: func(_ context.Context, r engine.Row) (any, error) {
			if r.Text("text") == "fail" {
				return nil, engine.Declare(errors.New("boom"))
			}
			return r.Text("text"), nil
		},
	})
	require.NoError(t, err)
	out, err := e.Run(context.Background(), table)
	require.NoError(t, err)
	return out
}

func TestSafeJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m, err := SafeJSON(`{"a": 1}`, engine.ErrorModeFail, quietLogger())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, m)
	})

	t.Run("invalid in LOG mode", func(t *testing.T) {
		m, err := SafeJSON(`{not json`, engine.ErrorModeLog, quietLogger())
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("invalid in FAIL mode", func(t *testing.T) {
		_, err := SafeJSON(`{not json`, engine.ErrorModeFail, quietLogger())
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})
}

func TestApplyLanguageDetection(t *testing.T) {
	out := runEngine(t, []string{
		`{"id":"0","detectedLanguage":{"name":"English","iso6391Name":"en","confidenceScore":0.99}}`,
		"fail",
		`{"id":"2","detectedLanguage":{"name":"French","iso6391Name":"fr","confidenceScore":1.0}}`,
	}, engine.ErrorModeLog)

	f, err := NewLanguageDetection(out.Columns(), PrefixLanguageDetection)
	require.NoError(t, err)

	got, err := Apply(out, f, engine.ErrorModeLog, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"id", "text",
		"lang_detect_api_language_name", "lang_detect_api_language_code", "lang_detect_api_language_score",
		"api_response", "api_error_message", "api_error_type",
	}, got.Columns)
	require.Len(t, got.Records, 3)

	assert.Equal(t, "English", got.Records[0]["lang_detect_api_language_name"])
	assert.Equal(t, "en", got.Records[0]["lang_detect_api_language_code"])
	assert.Equal(t, 0.99, got.Records[0]["lang_detect_api_language_score"])

	assert.Equal(t, "", got.Records[1]["lang_detect_api_language_name"])
	assert.Nil(t, got.Records[1]["lang_detect_api_language_score"])
	assert.Equal(t, "boom", got.Records[1]["api_error_message"])

	assert.Equal(t, "fr", got.Records[2]["lang_detect_api_language_code"])
	assert.Equal(t, 2, got.Records[2]["id"])
}

func TestApplyInvalidJSON(t *testing.T) {
	out := runEngine(t, []string{"not json"}, engine.ErrorModeLog)
	f, err := NewKeyPhrases(out.Columns(), PrefixKeyPhrases, 1)
	require.NoError(t, err)

	got, err := Apply(out, f, engine.ErrorModeLog, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "", got.Records[0]["keyphrase_api_keyphrase_1_text"])

	_, err = Apply(out, f, engine.ErrorModeFail, quietLogger())
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDescriptions(t *testing.T) {
	out := runEngine(t, []string{`{}`}, engine.ErrorModeLog)
	f, err := NewLanguageDetection(out.Columns(), PrefixLanguageDetection)
	require.NoError(t, err)

	d := Descriptions(out, f)
	assert.Equal(t, "Raw response from the API in JSON format", d["api_response"])
	assert.Equal(t, "Error message from the API", d["api_error_message"])
	assert.Equal(t, "Error type or code from the API", d["api_error_type"])
	assert.NotContains(t, d, "api_error_raw")
	assert.Equal(t, "Language code in ISO 639 format", d["lang_detect_api_language_code"])
}

func TestDescriptionsFailMode(t *testing.T) {
	out := runEngine(t, []string{`{}`}, engine.ErrorModeFail)
	f, err := NewSentiment(out.Columns(), PrefixSentiment)
	require.NoError(t, err)

	d := Descriptions(out, f)
	assert.Contains(t, d, "api_response")
	assert.NotContains(t, d, "api_error_message")
	assert.Len(t, d, 5)
}

func TestFormatterColumnCollision(t *testing.T) {
	existing := []string{"lang_detect_api_language_name"}
	f, err := NewLanguageDetection(existing, PrefixLanguageDetection)
	require.NoError(t, err)
	assert.Equal(t, "lang_detect_api_language_name_1", f.Columns()[0])
	assert.Equal(t, "lang_detect_api_language_code", f.Columns()[1])
}

func TestSentimentFormat(t *testing.T) {
	f, err := NewSentiment(nil, PrefixSentiment)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"sentiment_api_prediction",
		"sentiment_api_score_positive",
		"sentiment_api_score_neutral",
		"sentiment_api_score_negative",
	}, f.Columns())
	assert.Equal(t, "Confidence score in the NEUTRAL prediction from 0 to 1", f.Descriptions()["sentiment_api_score_neutral"])

	tests := []struct {
		name     string
		response map[string]any
		want     []any
	}{
		{
			name: "scores rounded",
			response: map[string]any{
				"sentiment": "positive",
				"confidenceScores": map[string]any{
					"positive": 0.98764, "neutral": 0.0101, "negative": 0.0023,
				},
			},
			want: []any{"positive", 0.988, 0.01, 0.002},
		},
		{
			name:     "missing scores",
			response: map[string]any{"sentiment": "mixed"},
			want:     []any{"mixed", nil, nil, nil},
		},
		{
			name:     "failed row",
			response: nil,
			want:     []any{"", nil, nil, nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.response))
		})
	}
}

func TestEntitiesFormat(t *testing.T) {
	f, err := NewEntities(nil, PrefixEntities, []EntityType{EntityPerson, EntityLocation, EntityPerson}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"entity_api_entity_type_location", "entity_api_entity_type_person"}, f.Columns())
	assert.Equal(t, "List of 'Location' entities recognized by the API", f.Descriptions()["entity_api_entity_type_location"])

	response := map[string]any{
		"entities": []any{
			map[string]any{"text": "Seattle", "category": "Location", "confidenceScore": 0.92},
			map[string]any{"text": "Paris", "category": "Location", "confidenceScore": 0.5},
			map[string]any{"text": "there", "category": "Location", "confidenceScore": 0.2},
			map[string]any{"text": "Microsoft", "category": "Organization", "confidenceScore": 0.98},
		},
	}
	assert.Equal(t, []any{[]string{"Seattle", "Paris"}, ""}, f.Format(response))
	assert.Equal(t, []any{"", ""}, f.Format(nil))
}

func TestNewEntitiesValidation(t *testing.T) {
	_, err := NewEntities(nil, PrefixEntities, []EntityType{EntityURL}, 1.5)
	assert.Error(t, err)

	_, err = NewEntities(nil, PrefixEntities, []EntityType{"Animal"}, 0)
	assert.Error(t, err)
}

func TestParseEntityType(t *testing.T) {
	got, err := ParseEntityType(" ipaddress ")
	require.NoError(t, err)
	assert.Equal(t, EntityIPAddress, got)

	_, err = ParseEntityType("Animal")
	assert.Error(t, err)

	types := EntityTypes()
	assert.Len(t, types, 13)
	assert.Equal(t, EntityDateTime, types[0])
}

func TestKeyPhrasesFormat(t *testing.T) {
	f, err := NewKeyPhrases(nil, PrefixKeyPhrases, 3)
	require.NoError(t, err)
	assert.Equal(t, "Keyphrase 2 extracted by the API", f.Descriptions()["keyphrase_api_keyphrase_2_text"])

	got := f.Format(map[string]any{"keyPhrases": []any{"wonderful trip", "Seattle"}})
	assert.Equal(t, []any{"wonderful trip", "Seattle", ""}, got)

	_, err = NewKeyPhrases(nil, PrefixKeyPhrases, 0)
	assert.Error(t, err)
}
