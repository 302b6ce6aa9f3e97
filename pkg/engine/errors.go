package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/Sternrassler/nlp-enricher/pkg/ratelimit"
)

// Common errors returned by the engine.
var (
	// ErrInvalidConfig is returned by New for unusable configuration.
	ErrInvalidConfig = errors.New("invalid engine config")

	// ErrColumnNamesExhausted is returned when no unique result column name could be found.
	ErrColumnNamesExhausted = errors.New("failed to generate a unique column name")

	// ErrMissingResult is matched by *MissingResultError.
	ErrMissingResult = errors.New("missing result")

	// ErrBatchErrors is matched by *BatchErrorsError.
	ErrBatchErrors = errors.New("API returned errors")

	// ErrRowCountMismatch is returned when reconciled rows do not line up with the input.
	ErrRowCountMismatch = errors.New("row count mismatch")
)

// Class is the error taxonomy used to decide retry and capture.
type Class int

const (
	// ClassFatal errors abort the run in every mode.
	ClassFatal Class = iota

	// ClassTransient errors are retried, then recorded once attempts run out.
	ClassTransient

	// ClassDeclared errors are business failures: recorded, never retried.
	ClassDeclared
)

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassDeclared:
		return "declared"
	default:
		return "fatal"
	}
}

// Classifier maps an error to its Class.
type Classifier func(err error) Class

// ClassifiedError tags an error with a Class.
type ClassifiedError struct {
	Class Class
	Err   error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	return e.Err.Error()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// ErrorClass returns the tag.
func (e *ClassifiedError) ErrorClass() Class {
	return e.Class
}

// Declare tags err as a declared API error.
func Declare(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: ClassDeclared, Err: err}
}

// MarkTransient tags err as transient.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: ClassTransient, Err: err}
}

// classer is implemented by errors that know their own class.
type classer interface {
	ErrorClass() Class
}

// DefaultClassifier resolves ErrorClass tags, treats rate limit rejections,
// deadlines and network errors as transient, and everything else as fatal.
// Cancellation is always fatal so an aborted run is never retried.
func DefaultClassifier(err error) Class {
	if err == nil || errors.Is(err, context.Canceled) {
		return ClassFatal
	}

	var c classer
	if errors.As(err, &c) {
		return c.ErrorClass()
	}

	if ratelimit.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	return ClassFatal
}

// MissingResultError marks a row that received neither a result nor an error.
type MissingResultError struct {
	Position int
}

// Error implements the error interface.
func (e *MissingResultError) Error() string {
	return fmt.Sprintf("no result or error returned for row %d", e.Position)
}

// Is makes errors.Is(err, ErrMissingResult) true.
func (e *MissingResultError) Is(target error) bool {
	return target == ErrMissingResult
}

// ErrorType names the error for result columns.
func (e *MissingResultError) ErrorType() string {
	return "engine.MissingResult"
}

// BatchErrorsError is raised in FAIL mode when a batch response carries errors.
type BatchErrorsError struct {
	Unit   int
	Errors []BatchError
}

// Error implements the error interface.
func (e *BatchErrorsError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, be := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("row %d: %s", be.Index, be.Message))
	}
	return fmt.Sprintf("API returned errors in unit %d: %s", e.Unit, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrBatchErrors) true.
func (e *BatchErrorsError) Is(target error) bool {
	return target == ErrBatchErrors
}

// typedError lets an error choose its error_type column value.
type typedError interface {
	ErrorType() string
}

// rawError lets an error choose its error_raw column value.
type rawError interface {
	Raw() string
}

// wrapperTypes are skipped when naming an error's type.
var wrapperTypes = map[string]struct{}{
	"*fmt.wrapError":          {},
	"*fmt.wrapErrors":         {},
	"*engine.ClassifiedError": {},
}

// describeError builds the error triple for a captured error.
func describeError(err error) (message, typ, raw string) {
	return err.Error(), errorTypeName(err), errorRaw(err)
}

func errorTypeName(err error) string {
	var te typedError
	if errors.As(err, &te) {
		return te.ErrorType()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		name := fmt.Sprintf("%T", e)
		if _, wrapper := wrapperTypes[name]; wrapper {
			continue
		}
		return strings.TrimPrefix(name, "*")
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

func errorRaw(err error) string {
	var re rawError
	if errors.As(err, &re) {
		return re.Raw()
	}

	var msgs []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		if _, ok := e.(*ClassifiedError); ok {
			continue
		}
		msgs = append(msgs, e.Error())
	}
	b, mErr := json.Marshal(msgs)
	if mErr != nil {
		return fmt.Sprintf("%q", msgs)
	}
	return string(b)
}
