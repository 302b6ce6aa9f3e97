package textanalytics

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/nlp-enricher/pkg/engine"
)

// batchEnvelope is the top level of a batch response.
type batchEnvelope struct {
	Documents []json.RawMessage `json:"documents"`
	Errors    []json.RawMessage `json:"errors"`
	Error     *errorBody        `json:"error"`
}

type documentID struct {
	ID any `json:"id"`
}

type documentError struct {
	ID    any        `json:"id"`
	Error *errorBody `json:"error"`
}

// ParseBatch maps a batch response body onto the in-batch indices of n
// documents. Documents and errors are matched by their id. A top-level error
// without documents applies to every row of the batch.
func ParseBatch(payload []byte, n int) (*engine.BatchResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, engine.Declare(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}

	var env batchEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, engine.Declare(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}

	resp := &engine.BatchResponse{}

	if _, hasDocuments := raw["documents"]; !hasDocuments && env.Error != nil {
		be := batchError(env.Error, string(payload))
		for i := 0; i < n; i++ {
			be.Index = i
			resp.Errors = append(resp.Errors, be)
		}
		return resp, nil
	}

	for _, doc := range env.Documents {
		var id documentID
		if err := json.Unmarshal(doc, &id); err != nil {
			continue
		}
		idx, ok := parseIndex(id.ID)
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, engine.BatchResult{Index: idx, Payload: doc})
	}

	for _, rawErr := range env.Errors {
		var de documentError
		if err := json.Unmarshal(rawErr, &de); err != nil {
			continue
		}
		idx, ok := parseIndex(de.ID)
		if !ok {
			continue
		}
		be := batchError(de.Error, string(rawErr))
		be.Index = idx
		resp.Errors = append(resp.Errors, be)
	}

	return resp, nil
}

// batchError converts a service error object. The innermost error names the
// message and type; the raw text stands in for a missing message.
func batchError(body *errorBody, raw string) engine.BatchError {
	be := engine.BatchError{Message: raw, Type: UndefinedErrorCode, Raw: raw}
	if body == nil {
		return be
	}
	eb := body.effective()
	if eb.Message != "" {
		be.Message = eb.Message
	}
	if eb.Code != "" {
		be.Type = eb.Code
	}
	return be
}

// Blank documents are rejected locally with the service's own error.
const (
	BlankDocumentCode    = "InvalidDocument"
	BlankDocumentMessage = "Document text is empty."
)

// SplitBlank returns the documents with text and one batch error per blank
// document, indexed by its position in docs.
func SplitBlank(docs []Document) ([]Document, []engine.BatchError) {
	send := make([]Document, 0, len(docs))
	var blank []engine.BatchError
	for i, d := range docs {
		if strings.TrimSpace(d.Text) != "" {
			send = append(send, d)
			continue
		}
		raw, _ := json.Marshal(map[string]any{
			"id":    d.ID,
			"error": errorBody{Code: BlankDocumentCode, Message: BlankDocumentMessage},
		})
		blank = append(blank, engine.BatchError{
			Index:   i,
			Message: BlankDocumentMessage,
			Type:    BlankDocumentCode,
			Raw:     string(raw),
		})
	}
	return send, blank
}

// parseIndex accepts ids sent as strings or numbers.
func parseIndex(id any) (int, bool) {
	switch v := id.(type) {
	case string:
		i, err := strconv.Atoi(v)
		return i, err == nil
	case float64:
		return int(v), v == float64(int(v))
	default:
		return 0, false
	}
}
