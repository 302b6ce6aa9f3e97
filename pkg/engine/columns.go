package engine

import (
	"fmt"
)

// Base names of the result columns, before prefixing.
const (
	ColumnResponse     = "response"
	ColumnErrorMessage = "error_message"
	ColumnErrorType    = "error_type"
	ColumnErrorRaw     = "error_raw"
)

// maxUniqueSuffix bounds the numeric suffixes tried by GenerateUnique.
const maxUniqueSuffix = 1000

// ColumnNames are the four result column names of one run.
type ColumnNames struct {
	Response     string
	ErrorMessage string
	ErrorType    string
	ErrorRaw     string
}

// All returns the names in fixed order.
func (c ColumnNames) All() []string {
	return []string{c.Response, c.ErrorMessage, c.ErrorType, c.ErrorRaw}
}

// BuildColumnNames computes result column names that collide neither with
// existing nor with each other.
func BuildColumnNames(existing []string, prefix string) (ColumnNames, error) {
	taken := make(map[string]struct{}, len(existing)+4)
	for _, name := range existing {
		taken[name] = struct{}{}
	}

	var names [4]string
	for i, base := range []string{ColumnResponse, ColumnErrorMessage, ColumnErrorType, ColumnErrorRaw} {
		name, err := uniqueName(base, taken, prefix)
		if err != nil {
			return ColumnNames{}, err
		}
		taken[name] = struct{}{}
		names[i] = name
	}

	return ColumnNames{
		Response:     names[0],
		ErrorMessage: names[1],
		ErrorType:    names[2],
		ErrorRaw:     names[3],
	}, nil
}

// GenerateUnique returns "<prefix>_<name>" (or name when prefix is empty),
// suffixed with "_1", "_2", ... until it is not in existing.
func GenerateUnique(name string, existing []string, prefix string) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}
	return uniqueName(name, taken, prefix)
}

func uniqueName(name string, taken map[string]struct{}, prefix string) (string, error) {
	base := name
	if prefix != "" {
		base = prefix + "_" + name
	}

	candidate := base
	for j := 1; ; j++ {
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
		if j > maxUniqueSuffix {
			return "", fmt.Errorf("%w: %q", ErrColumnNamesExhausted, base)
		}
		candidate = fmt.Sprintf("%s_%d", base, j)
	}
}
