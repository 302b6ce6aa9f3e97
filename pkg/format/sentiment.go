package format

import (
	"fmt"
	"strings"
)

var sentimentLabels = []string{"positive", "neutral", "negative"}

// Sentiment extracts the document sentiment and its confidence scores.
type Sentiment struct {
	*columnSet
}

// NewSentiment creates the formatter.
func NewSentiment(existing []string, prefix string) (*Sentiment, error) {
	cs := newColumnSet(existing, prefix)
	if _, err := cs.add("prediction", "Sentiment prediction from the API (positive/neutral/negative)"); err != nil {
		return nil, err
	}
	for _, label := range sentimentLabels {
		desc := fmt.Sprintf("Confidence score in the %s prediction from 0 to 1", strings.ToUpper(label))
		if _, err := cs.add("score_"+label, desc); err != nil {
			return nil, err
		}
	}
	return &Sentiment{columnSet: cs}, nil
}

// Format implements Formatter. Scores are rounded to three digits.
func (f *Sentiment) Format(response map[string]any) []any {
	values := []any{getString(response, "sentiment")}
	scores := getMap(response, "confidenceScores")
	for _, label := range sentimentLabels {
		values = append(values, round3(getFloat(scores, label)))
	}
	return values
}
