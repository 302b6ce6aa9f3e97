package format

import (
	"fmt"
)

// KeyPhrases extracts the first n key phrases of each document.
type KeyPhrases struct {
	*columnSet
	n int
}

// NewKeyPhrases creates the formatter for n phrases.
func NewKeyPhrases(existing []string, prefix string, n int) (*KeyPhrases, error) {
	if n < 1 {
		return nil, fmt.Errorf("number of key phrases must be >= 1 (got %d)", n)
	}
	cs := newColumnSet(existing, prefix)
	for i := 1; i <= n; i++ {
		if _, err := cs.add(fmt.Sprintf("keyphrase_%d_text", i), fmt.Sprintf("Keyphrase %d extracted by the API", i)); err != nil {
			return nil, err
		}
	}
	return &KeyPhrases{columnSet: cs, n: n}, nil
}

// Format implements Formatter. Missing phrases yield "".
func (f *KeyPhrases) Format(response map[string]any) []any {
	phrases := getSlice(response, "keyPhrases")
	values := make([]any, f.n)
	for i := range values {
		values[i] = ""
		if i < len(phrases) {
			if s, ok := phrases[i].(string); ok {
				values[i] = s
			}
		}
	}
	return values
}
