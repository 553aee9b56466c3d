package ranking

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for ranking errors. These allow errors.Is/As from callers.
var (
	ErrEmptyDataset     = errors.New("dataset has no records")
	ErrNoCriteria       = errors.New("no metrics selected")
	ErrDuplicateMetric  = errors.New("metric selected more than once")
	ErrMissingColumn    = errors.New("missing columns")
	ErrNonNumericColumn = errors.New("non-numeric columns")
	ErrWeightSum        = errors.New("weights must sum to 1.0")
	ErrNegativeWeight   = errors.New("negative weight")
)

// ColumnError names the requested columns that failed validation.
// Kind is ErrMissingColumn or ErrNonNumericColumn.
type ColumnError struct {
	Kind    error
	Columns []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, strings.Join(quote(e.Columns), ", "))
}

func (e *ColumnError) Unwrap() error { return e.Kind }

func quote(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}
