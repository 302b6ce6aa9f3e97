package engine

import (
	"fmt"
	"iter"
)

// Batcher splits a table into units of consecutive rows.
type Batcher struct {
	table *Table
	size  int
}

// NewBatcher returns a batcher producing units of batchSize rows, or of one
// row each when batched is false.
func NewBatcher(t *Table, batchSize int, batched bool) (*Batcher, error) {
	if !batched {
		batchSize = 1
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be >= 1 (got %d)", ErrInvalidConfig, batchSize)
	}
	return &Batcher{table: t, size: batchSize}, nil
}

// Len returns the number of units the table splits into.
func (b *Batcher) Len() int {
	n := b.table.Len()
	return (n + b.size - 1) / b.size
}

// Units yields every unit in order. Only the last unit may be short. The
// sequence is lazy and can be iterated more than once.
func (b *Batcher) Units() iter.Seq[Unit] {
	return func(yield func(Unit) bool) {
		n := b.table.Len()
		for idx, start := 0, 0; start < n; idx, start = idx+1, start+b.size {
			end := min(start+b.size, n)
			rows := make([]Row, 0, end-start)
			for pos := start; pos < end; pos++ {
				rows = append(rows, Row{Position: pos, Values: b.table.Records[pos]})
			}
			if !yield(Unit{Index: idx, Rows: rows}) {
				return
			}
		}
	}
}
