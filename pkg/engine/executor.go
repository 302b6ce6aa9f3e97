package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RowFunc calls the remote API for a single row. A nil or empty payload is
// reported as a missing result.
type RowFunc func(ctx context.Context, row Row) (any, error)

// BatchFunc calls the remote API for a batch of rows. Entries of the response
// refer to rows by their index within the batch.
type BatchFunc func(ctx context.Context, rows []Row) (*BatchResponse, error)

// BatchResponse is the per-row outcome of one batch call.
type BatchResponse struct {
	Results []BatchResult
	Errors  []BatchError
}

// BatchResult is the payload for one row of a batch.
type BatchResult struct {
	Index   int
	Payload any
}

// BatchError is the declared error for one row of a batch.
type BatchError struct {
	Index   int
	Message string
	Type    string
	Raw     string
}

// undefinedErrorType is used when the API does not name the error.
const undefinedErrorType = "Undefined API error"

// executor runs the remote call for one unit and returns the unit with
// result columns filled. A non-nil error aborts the run.
type executor interface {
	execute(ctx context.Context, u Unit) (Unit, error)
}

type callPolicy struct {
	name     string
	mode     ErrorMode
	classify Classifier
	logger   zerolog.Logger
}

// capture decides whether err is recorded on the rows of u or aborts the run.
func (p callPolicy) capture(u Unit, err error) (Unit, error) {
	class := p.classify(err)
	if class == ClassFatal || p.mode == ErrorModeFail {
		unitsTotal.WithLabelValues(p.name, "aborted").Inc()
		return u, fmt.Errorf("unit %d: %w", u.Index, err)
	}

	msg, typ, raw := describeError(err)
	for i := range u.Rows {
		u.Rows[i].Result = Result{ErrorMessage: msg, ErrorType: typ, ErrorRaw: raw}
	}
	unitsTotal.WithLabelValues(p.name, "error").Inc()

	p.logger.Warn().
		Err(err).
		Int("unit", u.Index).
		Int("rows", len(u.Rows)).
		Str("class", class.String()).
		Msg("API call failed")

	return u, nil
}

// missing records or raises a missing result for row i of u.
func (p callPolicy) missing(u Unit, i int) error {
	err := &MissingResultError{Position: u.Rows[i].Position}
	if p.mode == ErrorModeFail {
		return fmt.Errorf("unit %d: %w", u.Index, err)
	}
	msg, typ, raw := describeError(err)
	u.Rows[i].Result = Result{ErrorMessage: msg, ErrorType: typ, ErrorRaw: raw}
	p.logger.Warn().
		Int("unit", u.Index).
		Int("position", u.Rows[i].Position).
		Msg("No result returned for row")
	return nil
}

type rowExecutor struct {
	callPolicy
	call Invoker[any]
}

func (e *rowExecutor) execute(ctx context.Context, u Unit) (Unit, error) {
	u = u.fresh()

	start := time.Now()
	payload, err := e.call(ctx, u.Rows)
	callDuration.WithLabelValues(e.name).Observe(time.Since(start).Seconds())
	if err != nil {
		return e.capture(u, err)
	}

	response, err := serialize(payload)
	if err != nil {
		return e.capture(u, Declare(err))
	}

	if response == "" {
		if err := e.missing(u, 0); err != nil {
			unitsTotal.WithLabelValues(e.name, "aborted").Inc()
			return u, err
		}
		unitsTotal.WithLabelValues(e.name, "error").Inc()
		return u, nil
	}

	u.Rows[0].Result = Result{Response: response}
	unitsTotal.WithLabelValues(e.name, "ok").Inc()
	return u, nil
}

type batchExecutor struct {
	callPolicy
	call Invoker[*BatchResponse]
}

func (e *batchExecutor) execute(ctx context.Context, u Unit) (Unit, error) {
	u = u.fresh()

	start := time.Now()
	resp, err := e.call(ctx, u.Rows)
	callDuration.WithLabelValues(e.name).Observe(time.Since(start).Seconds())
	if err != nil {
		return e.capture(u, err)
	}
	if resp == nil {
		resp = &BatchResponse{}
	}

	if e.mode == ErrorModeFail && len(resp.Errors) > 0 {
		unitsTotal.WithLabelValues(e.name, "aborted").Inc()
		return u, fmt.Errorf("unit %d: %w", u.Index, &BatchErrorsError{Unit: u.Index, Errors: resp.Errors})
	}

	if err := e.distribute(u, resp); err != nil {
		unitsTotal.WithLabelValues(e.name, "aborted").Inc()
		return u, err
	}

	status := "ok"
	for _, r := range u.Rows {
		if !r.Result.HasResponse() {
			status = "error"
			break
		}
	}
	unitsTotal.WithLabelValues(e.name, status).Inc()
	return u, nil
}

// distribute assigns batch entries to rows. Errors win over results, and the
// first entry for an index wins over later ones.
func (e *batchExecutor) distribute(u Unit, resp *BatchResponse) error {
	assigned := make([]bool, len(u.Rows))

	for _, be := range resp.Errors {
		if be.Index < 0 || be.Index >= len(u.Rows) {
			e.logger.Debug().Int("unit", u.Index).Int("index", be.Index).Msg("Ignoring error for unknown row")
			continue
		}
		if assigned[be.Index] {
			continue
		}
		res := batchErrorResult(be)
		u.Rows[be.Index].Result = res
		assigned[be.Index] = true
		e.logger.Warn().
			Int("unit", u.Index).
			Int("position", u.Rows[be.Index].Position).
			Str("error_type", res.ErrorType).
			Msg(res.ErrorMessage)
	}

	for _, br := range resp.Results {
		if br.Index < 0 || br.Index >= len(u.Rows) {
			e.logger.Debug().Int("unit", u.Index).Int("index", br.Index).Msg("Ignoring result for unknown row")
			continue
		}
		if assigned[br.Index] {
			continue
		}
		response, err := serialize(br.Payload)
		if err != nil {
			if e.mode == ErrorModeFail {
				return fmt.Errorf("unit %d: %w", u.Index, err)
			}
			msg, typ, raw := describeError(err)
			u.Rows[br.Index].Result = Result{ErrorMessage: msg, ErrorType: typ, ErrorRaw: raw}
			assigned[br.Index] = true
			e.logger.Warn().
				Err(err).
				Int("unit", u.Index).
				Int("position", u.Rows[br.Index].Position).
				Str("error_type", typ).
				Msg("Unserializable API result")
			continue
		}
		if response == "" {
			continue
		}
		u.Rows[br.Index].Result = Result{Response: response}
		assigned[br.Index] = true
	}

	for i, ok := range assigned {
		if ok {
			continue
		}
		if err := e.missing(u, i); err != nil {
			return err
		}
	}
	return nil
}

func batchErrorResult(be BatchError) Result {
	typ := be.Type
	if typ == "" {
		typ = undefinedErrorType
	}
	msg := be.Message
	if msg == "" {
		msg = be.Raw
	}
	if msg == "" {
		msg = typ
	}
	return Result{ErrorMessage: msg, ErrorType: typ, ErrorRaw: be.Raw}
}

// serialize renders a payload as the response column value.
func serialize(payload any) (string, error) {
	switch v := payload.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	case []byte:
		return string(v), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize response: %w", err)
	}
	return string(b), nil
}
