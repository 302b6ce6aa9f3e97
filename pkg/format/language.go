package format

// Default column prefixes per operation.
const (
	PrefixLanguageDetection = "lang_detect_api"
	PrefixSentiment         = "sentiment_api"
	PrefixEntities          = "entity_api"
	PrefixKeyPhrases        = "keyphrase_api"
)

// LanguageDetection extracts the detected language of each document.
type LanguageDetection struct {
	*columnSet
}

// NewLanguageDetection creates the formatter. existing are the columns
// already in the output.
func NewLanguageDetection(existing []string, prefix string) (*LanguageDetection, error) {
	cs := newColumnSet(existing, prefix)
	for _, c := range []struct{ name, desc string }{
		{"language_name", "Language name detected by the API"},
		{"language_code", "Language code in ISO 639 format"},
		{"language_score", "Confidence score of the API from 0 to 1"},
	} {
		if _, err := cs.add(c.name, c.desc); err != nil {
			return nil, err
		}
	}
	return &LanguageDetection{columnSet: cs}, nil
}

// Format implements Formatter.
func (f *LanguageDetection) Format(response map[string]any) []any {
	lang := getMap(response, "detectedLanguage")
	if lang == nil {
		return []any{"", "", nil}
	}
	return []any{
		getString(lang, "name"),
		getString(lang, "iso6391Name"),
		getFloat(lang, "confidenceScore"),
	}
}
