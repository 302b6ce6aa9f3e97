package engine

import (
	"fmt"

	"github.com/rs/zerolog"
)

// reconcile places the rows of completed units back at their original
// positions. Every input row must appear exactly once.
func reconcile(input *Table, units []Unit, names ColumnNames, mode ErrorMode, verbose bool) (*OutputTable, error) {
	n := input.Len()
	rows := make([]Row, n)
	placed := make([]bool, n)

	count := 0
	for _, u := range units {
		for _, r := range u.Rows {
			if r.Position < 0 || r.Position >= n {
				return nil, fmt.Errorf("%w: row position %d out of range [0, %d)", ErrRowCountMismatch, r.Position, n)
			}
			if placed[r.Position] {
				return nil, fmt.Errorf("%w: row %d returned more than once", ErrRowCountMismatch, r.Position)
			}
			rows[r.Position] = r
			placed[r.Position] = true
			count++
		}
	}
	if count != n {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrRowCountMismatch, count, n)
	}

	return &OutputTable{
		InputColumns: input.Columns,
		Names:        names,
		Rows:         rows,
		mode:         mode,
		verbose:      verbose,
	}, nil
}

// logSummary reports success and failure counts of a reconciled run.
func logSummary(logger zerolog.Logger, name string, out *OutputTable) {
	succeeded, failed := out.Succeeded(), out.Failed()
	rowsTotal.WithLabelValues(name, "succeeded").Add(float64(succeeded))
	rowsTotal.WithLabelValues(name, "failed").Add(float64(failed))

	logger.Info().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Msgf("Remote API call results: %d rows succeeded, %d rows failed", succeeded, failed)
}
