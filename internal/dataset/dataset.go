// Package dataset reads and writes engine tables as CSV files.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Sternrassler/nlp-enricher/pkg/engine"
)

// DescriptionsSuffix is appended to the output path for the column
// descriptions sidecar.
const DescriptionsSuffix = ".columns.json"

var (
	// ErrNoHeader is returned for an input without a header row.
	ErrNoHeader = errors.New("missing CSV header")

	// ErrColumnNotFound is returned when a selected column is not in the input.
	ErrColumnNotFound = errors.New("column not found")
)

// ReadCSV reads a table whose first record is the header. Every value is
// kept as a string.
func ReadCSV(r io.Reader) (*engine.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, c := range header {
		header[i] = strings.TrimPrefix(c, "\ufeff")
		if slices.Index(header, header[i]) < i {
			return nil, fmt.Errorf("duplicate column %q", header[i])
		}
	}

	t := engine.NewTable(header...)
	for {
		values, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		rec := make(engine.Record, len(header))
		for i, c := range header {
			rec[c] = values[i]
		}
		t.Append(rec)
	}
	return t, nil
}

// ReadFile reads a CSV table from path.
func ReadFile(path string) (*engine.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes t with a header row. Scalars are written as text, lists
// and objects as JSON, nil as an empty cell.
func WriteCSV(w io.Writer, t *engine.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}

	values := make([]string, len(t.Columns))
	for _, rec := range t.Records {
		for i, c := range t.Columns {
			s, err := Cell(rec[c])
			if err != nil {
				return fmt.Errorf("column %q: %w", c, err)
			}
			values[i] = s
		}
		if err := cw.Write(values); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes t to path, replacing any existing file.
func WriteFile(path string, t *engine.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// Cell renders one value as CSV text.
func Cell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.RawMessage:
		return string(x), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// ValidateColumn checks that name is one of columns.
func ValidateColumn(name string, columns []string) error {
	if name == "" {
		return fmt.Errorf("%w: no column selected", ErrColumnNotFound)
	}
	if !slices.Contains(columns, name) {
		return fmt.Errorf("%w: %q (available: %s)", ErrColumnNotFound, name, strings.Join(columns, ", "))
	}
	return nil
}

// DescriptionsPath returns the sidecar path for an output file.
func DescriptionsPath(output string) string {
	return output + DescriptionsSuffix
}

// WriteDescriptions writes the column descriptions as indented JSON.
func WriteDescriptions(path string, descriptions map[string]string) error {
	b, err := json.MarshalIndent(descriptions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ReadDescriptions reads a descriptions sidecar.
func ReadDescriptions(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d map[string]string
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
