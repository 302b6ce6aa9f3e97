// Package format turns the raw JSON response column of an engine run into
// typed columns, one formatter per Text Analytics operation.
//
// Formatters run after the engine and never change the rows it produced:
// they add their own columns between the input columns and the API result
// columns, which always come last.
package format

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/nlp-enricher/pkg/engine"
)

// ErrInvalidJSON is returned in FAIL mode for an undecodable response.
var ErrInvalidJSON = errors.New("invalid JSON response")

// Formatter extracts columns from one decoded response.
type Formatter interface {
	// Columns returns the output columns in order.
	Columns() []string

	// Descriptions maps each output column to a human readable description.
	Descriptions() map[string]string

	// Format returns one value per column. response is nil for failed rows.
	Format(response map[string]any) []any
}

// apiDescriptions describes the engine's result columns.
var apiDescriptions = map[string]string{
	engine.ColumnResponse:     "Raw response from the API in JSON format",
	engine.ColumnErrorMessage: "Error message from the API",
	engine.ColumnErrorType:    "Error type or code from the API",
	engine.ColumnErrorRaw:     "Raw error from the API",
}

// SafeJSON decodes a response object. In LOG mode invalid JSON is logged and
// yields an empty object; in FAIL mode it is an error.
func SafeJSON(s string, mode engine.ErrorMode, logger zerolog.Logger) (map[string]any, error) {
	var out map[string]any
	err := json.Unmarshal([]byte(s), &out)
	if err == nil {
		return out, nil
	}
	if mode == engine.ErrorModeFail {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	logger.Warn().Str("response", s).Msg("Invalid JSON")
	return map[string]any{}, nil
}

// Apply formats every row of out and returns the final table: input
// columns, formatter columns, then the kept API result columns.
func Apply(out *engine.OutputTable, f Formatter, mode engine.ErrorMode, logger zerolog.Logger) (*engine.Table, error) {
	logger.Info().Msg("Formatting API results...")

	fcols := f.Columns()
	cols := slices.Concat(out.InputColumns, fcols, out.ResultColumns())
	t := &engine.Table{Columns: cols, Records: make([]engine.Record, 0, out.Len())}

	for i, row := range out.Rows {
		var resp map[string]any
		if row.Result.HasResponse() {
			var err error
			resp, err = SafeJSON(row.Result.Response, mode, logger)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}

		rec := out.Record(i)
		for j, v := range f.Format(resp) {
			rec[fcols[j]] = v
		}
		t.Records = append(t.Records, rec)
	}

	logger.Info().Msg("Formatting API results: Done.")
	return t, nil
}

// Descriptions merges the formatter's descriptions with those of the kept
// API result columns.
func Descriptions(out *engine.OutputTable, f Formatter) map[string]string {
	d := make(map[string]string)
	names := out.Names
	for col, base := range map[string]string{
		names.Response:     engine.ColumnResponse,
		names.ErrorMessage: engine.ColumnErrorMessage,
		names.ErrorType:    engine.ColumnErrorType,
		names.ErrorRaw:     engine.ColumnErrorRaw,
	} {
		if slices.Contains(out.ResultColumns(), col) {
			d[col] = apiDescriptions[base]
		}
	}
	for col, desc := range f.Descriptions() {
		d[col] = desc
	}
	return d
}

// columnSet allocates unique output column names.
type columnSet struct {
	names        []string
	descriptions map[string]string
	taken        []string
	prefix       string
}

func newColumnSet(existing []string, prefix string) *columnSet {
	return &columnSet{
		descriptions: make(map[string]string),
		taken:        slices.Clone(existing),
		prefix:       prefix,
	}
}

func (c *columnSet) add(name, description string) (string, error) {
	col, err := engine.GenerateUnique(name, c.taken, c.prefix)
	if err != nil {
		return "", err
	}
	c.taken = append(c.taken, col)
	c.names = append(c.names, col)
	c.descriptions[col] = description
	return col, nil
}

// Columns implements Formatter.
func (c *columnSet) Columns() []string {
	return c.names
}

// Descriptions implements Formatter.
func (c *columnSet) Descriptions() map[string]string {
	return c.descriptions
}

func getMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func getSlice(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func getString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// getFloat returns nil when key is missing or not a number.
func getFloat(m map[string]any, key string) any {
	v, ok := m[key].(float64)
	if !ok {
		return nil
	}
	return v
}

func round3(v any) any {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return math.Round(f*1000) / 1000
}
