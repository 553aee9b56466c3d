package service

import (
	"errors"
	"fmt"

	"github.com/okian/sqxrank/internal/adapters/table"
	"github.com/okian/sqxrank/internal/config"
	"github.com/okian/sqxrank/internal/domain/ranking"
)

// Sentinel error kinds for a ranking run.
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrDestination    = errors.New("destination write failed")
)

// Kind labels returned by KindOf.
const (
	KindMissingColumn    = "missing_column"
	KindNonNumericColumn = "non_numeric_column"
	KindSourceNotFound   = "source_not_found"
	KindDestination      = "destination"
	KindValidation       = "validation"
	KindInternal         = "internal"
)

// Error is a failed step of a run. Kind is one of the sentinels above or
// nil; Err is the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func wrap(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf classifies err into a stable label for metrics and messages.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ranking.ErrMissingColumn):
		return KindMissingColumn
	case errors.Is(err, ranking.ErrNonNumericColumn):
		return KindNonNumericColumn
	case errors.Is(err, ErrSourceNotFound):
		return KindSourceNotFound
	case errors.Is(err, ErrDestination):
		return KindDestination
	case errors.Is(err, ranking.ErrEmptyDataset),
		errors.Is(err, ranking.ErrNoCriteria),
		errors.Is(err, ranking.ErrDuplicateMetric),
		errors.Is(err, ranking.ErrWeightSum),
		errors.Is(err, ranking.ErrNegativeWeight),
		errors.Is(err, table.ErrParse),
		errors.Is(err, table.ErrDelimiter),
		errors.Is(err, config.ErrInvalidConfig):
		return KindValidation
	default:
		return KindInternal
	}
}
