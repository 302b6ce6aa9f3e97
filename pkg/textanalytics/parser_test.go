package textanalytics

import (
	"errors"
	"testing"

	"github.com/Sternrassler/nlp-enricher/pkg/engine"
)

func TestParseBatch_DocumentsAndErrors(t *testing.T) {
	payload := []byte(`{
		"documents": [
			{"id": "0", "sentiment": "positive"},
			{"id": "2", "sentiment": "negative"}
		],
		"errors": [
			{"id": "1", "error": {"code": "InvalidArgument", "message": "Invalid document in request.",
				"innererror": {"code": "InvalidDocument", "message": "Document text is empty."}}}
		],
		"modelVersion": "2020-04-01"
	}`)

	resp, err := ParseBatch(payload, 3)
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[0].Index != 0 || resp.Results[1].Index != 2 {
		t.Errorf("result indices = %d, %d; want 0, 2", resp.Results[0].Index, resp.Results[1].Index)
	}

	if len(resp.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(resp.Errors))
	}
	got := resp.Errors[0]
	if got.Index != 1 {
		t.Errorf("error index = %d, want 1", got.Index)
	}
	if got.Type != "InvalidDocument" {
		t.Errorf("error type = %q, want InvalidDocument", got.Type)
	}
	if got.Message != "Document text is empty." {
		t.Errorf("error message = %q", got.Message)
	}
	if got.Raw == "" {
		t.Error("error raw is empty")
	}
}

func TestParseBatch_ErrorDefaults(t *testing.T) {
	payload := []byte(`{"documents": [], "errors": [{"id": "0"}, {"id": "1", "error": {"message": "no code"}}]}`)

	resp, err := ParseBatch(payload, 2)
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if len(resp.Errors) != 2 {
		t.Fatalf("errors = %d, want 2", len(resp.Errors))
	}

	if resp.Errors[0].Type != UndefinedErrorCode {
		t.Errorf("type = %q, want %q", resp.Errors[0].Type, UndefinedErrorCode)
	}
	if resp.Errors[0].Message != `{"id": "0"}` {
		t.Errorf("message = %q, want raw error", resp.Errors[0].Message)
	}
	if resp.Errors[1].Type != UndefinedErrorCode || resp.Errors[1].Message != "no code" {
		t.Errorf("unexpected error %+v", resp.Errors[1])
	}
}

func TestParseBatch_WholeBatchError(t *testing.T) {
	payload := []byte(`{"error": {"code": "InvalidRequest", "message": "Request body too large.",
		"innererror": {"code": "InvalidDocumentBatch", "message": "Batch request contains too many records."}}}`)

	resp, err := ParseBatch(payload, 3)
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0", len(resp.Results))
	}
	if len(resp.Errors) != 3 {
		t.Fatalf("errors = %d, want 3", len(resp.Errors))
	}
	for i, be := range resp.Errors {
		if be.Index != i {
			t.Errorf("error %d has index %d", i, be.Index)
		}
		if be.Type != "InvalidDocumentBatch" {
			t.Errorf("type = %q, want InvalidDocumentBatch", be.Type)
		}
		if be.Message != "Batch request contains too many records." {
			t.Errorf("message = %q", be.Message)
		}
	}
}

func TestParseBatch_TopLevelErrorWithDocuments(t *testing.T) {
	payload := []byte(`{"documents": [{"id": "0"}], "error": {"code": "Partial"}}`)

	resp, err := ParseBatch(payload, 1)
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if len(resp.Results) != 1 || len(resp.Errors) != 0 {
		t.Errorf("got %d results, %d errors; want 1, 0", len(resp.Results), len(resp.Errors))
	}
}

func TestParseBatch_NumericAndUnknownIDs(t *testing.T) {
	payload := []byte(`{"documents": [{"id": 1}, {"id": "x"}, {"id": 1.5}, {}]}`)

	resp, err := ParseBatch(payload, 2)
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Index != 1 {
		t.Errorf("results = %+v, want one result for index 1", resp.Results)
	}
}

func TestParseBatch_InvalidJSON(t *testing.T) {
	_, err := ParseBatch([]byte(`not json`), 1)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	if got := engine.DefaultClassifier(err); got != engine.ClassDeclared {
		t.Errorf("class = %v, want declared", got)
	}
}

func TestSplitBlank(t *testing.T) {
	docs := []Document{
		NewDocument(0, "a trip"),
		NewDocument(1, "   "),
		NewDocument(2, ""),
		NewDocument(3, "nice"),
	}

	send, blank := SplitBlank(docs)

	if len(send) != 2 || send[0].ID != "0" || send[1].ID != "3" {
		t.Fatalf("send = %+v, want ids 0 and 3", send)
	}
	if len(blank) != 2 {
		t.Fatalf("blank = %d, want 2", len(blank))
	}
	for i, want := range []int{1, 2} {
		be := blank[i]
		if be.Index != want {
			t.Errorf("blank[%d].Index = %d, want %d", i, be.Index, want)
		}
		if be.Type != BlankDocumentCode || be.Message != BlankDocumentMessage {
			t.Errorf("blank[%d] = %+v", i, be)
		}
	}
	if want := `{"error":{"code":"InvalidDocument","message":"Document text is empty."},"id":"1"}`; blank[0].Raw != want {
		t.Errorf("Raw = %s, want %s", blank[0].Raw, want)
	}
}

func TestSplitBlank_NothingBlank(t *testing.T) {
	send, blank := SplitBlank([]Document{NewDocument(0, "x")})
	if len(send) != 1 || blank != nil {
		t.Errorf("send = %+v, blank = %+v", send, blank)
	}
}
