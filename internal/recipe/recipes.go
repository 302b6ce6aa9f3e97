package recipe

import (
	"context"
	"strings"

	"github.com/Sternrassler/nlp-enricher/pkg/engine"
	"github.com/Sternrassler/nlp-enricher/pkg/format"
	"github.com/Sternrassler/nlp-enricher/pkg/textanalytics"
)

// DefaultKeyPhrases is the number of key phrase columns when none is given.
const DefaultKeyPhrases = 3

// LanguageDetectionOptions configures DetectLanguage.
type LanguageDetectionOptions struct {
	TextColumn string

	// CountryHint is an ISO 3166-1 alpha-2 code biasing detection.
	CountryHint string

	Prefix string
}

// DetectLanguage adds the detected language of every row.
func (r *Runner) DetectLanguage(ctx context.Context, t *engine.Table, o LanguageDetectionOptions) (*Result, error) {
	text := TextOptions{TextColumn: o.TextColumn}
	if err := text.validate(t); err != nil {
		return nil, err
	}
	hint := strings.ToUpper(strings.TrimSpace(o.CountryHint))
	return r.run(ctx, t, job{
		name:   "language-detection",
		prefix: prefixOr(o.Prefix, format.PrefixLanguageDetection),
		op:     textanalytics.OpDetectLanguage,
		document: func(i int, row engine.Row) textanalytics.Document {
			doc := textanalytics.NewDocument(i, row.Text(o.TextColumn))
			doc.CountryHint = hint
			return doc
		},
		formatter: func(existing []string, prefix string) (format.Formatter, error) {
			return format.NewLanguageDetection(existing, prefix)
		},
	})
}

// AnalyzeSentiment adds the sentiment prediction and scores of every row.
func (r *Runner) AnalyzeSentiment(ctx context.Context, t *engine.Table, o TextOptions) (*Result, error) {
	if err := o.validate(t); err != nil {
		return nil, err
	}
	return r.run(ctx, t, job{
		name:     "sentiment",
		prefix:   prefixOr(o.Prefix, format.PrefixSentiment),
		op:       textanalytics.OpAnalyzeSentiment,
		document: o.document,
		formatter: func(existing []string, prefix string) (format.Formatter, error) {
			return format.NewSentiment(existing, prefix)
		},
	})
}

// EntityOptions configures RecognizeEntities.
type EntityOptions struct {
	TextOptions

	// Types selects the entity columns (default: every type).
	Types []format.EntityType

	// MinScore drops entities with a lower confidence score.
	MinScore float64
}

// RecognizeEntities adds one list column per selected entity type.
func (r *Runner) RecognizeEntities(ctx context.Context, t *engine.Table, o EntityOptions) (*Result, error) {
	if err := o.validate(t); err != nil {
		return nil, err
	}
	types := o.Types
	if len(types) == 0 {
		types = format.EntityTypes()
	}
	// validated before any call is made
	if _, err := format.NewEntities(nil, "", types, o.MinScore); err != nil {
		return nil, err
	}
	return r.run(ctx, t, job{
		name:     "entities",
		prefix:   prefixOr(o.Prefix, format.PrefixEntities),
		op:       textanalytics.OpRecognizeEntities,
		document: o.document,
		formatter: func(existing []string, prefix string) (format.Formatter, error) {
			return format.NewEntities(existing, prefix, types, o.MinScore)
		},
	})
}

// KeyPhraseOptions configures ExtractKeyPhrases.
type KeyPhraseOptions struct {
	TextOptions

	// Count is the number of key phrase columns (default: DefaultKeyPhrases).
	Count int
}

// ExtractKeyPhrases adds the first key phrases of every row.
func (r *Runner) ExtractKeyPhrases(ctx context.Context, t *engine.Table, o KeyPhraseOptions) (*Result, error) {
	if err := o.validate(t); err != nil {
		return nil, err
	}
	count := o.Count
	if count == 0 {
		count = DefaultKeyPhrases
	}
	if _, err := format.NewKeyPhrases(nil, "", count); err != nil {
		return nil, err
	}
	return r.run(ctx, t, job{
		name:     "key-phrases",
		prefix:   prefixOr(o.Prefix, format.PrefixKeyPhrases),
		op:       textanalytics.OpExtractKeyPhrases,
		document: o.document,
		formatter: func(existing []string, prefix string) (format.Formatter, error) {
			return format.NewKeyPhrases(existing, prefix, count)
		},
	})
}
