// Package ranking scores strategy records by a weighted aggregate of their
// per-metric competition ranks and selects the top of the resulting order.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/sqxrank/internal/domain/model"
)

// DefaultTopK is the size of the top-ranked table.
const DefaultTopK = 100

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithDirections replaces the lower-is-better table.
func WithDirections(d Directions) Option {
	return func(e *Engine) {
		e.directions = d
	}
}

// WithTopK sets how many records the top-ranked table keeps.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// Entry is one row of the top-ranked table.
type Entry struct {
	Position int // 1 = best
	ID       string
	Values   []float64 // aligned with Result.Metrics
	Ranks    []int     // aligned with Result.Metrics, 0 = unranked (missing value)
	Score    float64   // NaN when any selected value is missing
}

// Result is the top-ranked table plus the run parameters that produced it.
type Result struct {
	Metrics   []string
	Weights   []float64
	Ascending []bool // true for lower-is-better metrics
	Total     int    // records in the dataset
	Entries   []Entry
}

// Len returns the number of ranked entries.
func (r *Result) Len() int {
	return len(r.Entries)
}

// Head returns at most n leading entries.
func (r *Result) Head(n int) []Entry {
	if n < 0 || n > len(r.Entries) {
		n = len(r.Entries)
	}
	return r.Entries[:n]
}

// MetricIndex returns the column index of metric in Values, or -1.
func (r *Result) MetricIndex(metric string) int {
	for i, m := range r.Metrics {
		if m == metric {
			return i
		}
	}
	return -1
}

// Engine computes rankings. It holds no state between runs.
type Engine struct {
	directions Directions
	topK       int
}

// NewEngine creates a ranking engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		directions: DefaultDirections(),
		topK:       DefaultTopK,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Directions returns the lower-is-better table used by the engine.
func (e *Engine) Directions() Directions {
	return e.directions
}

// Validate checks the dataset and criteria without ranking. Missing and
// non-numeric columns are reported together, each listing every offender.
func (e *Engine) Validate(ds *model.Dataset, criteria Criteria) error {
	if ds == nil || ds.Len() == 0 {
		return ErrEmptyDataset
	}
	if len(criteria) == 0 {
		return ErrNoCriteria
	}

	seen := make(map[string]struct{}, len(criteria))
	var missing, nonNumeric []string
	for _, cr := range criteria {
		if _, dup := seen[cr.Metric]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateMetric, cr.Metric)
		}
		seen[cr.Metric] = struct{}{}

		col, ok := ds.Column(cr.Metric)
		switch {
		case !ok:
			missing = append(missing, cr.Metric)
		case !col.Numeric:
			nonNumeric = append(nonNumeric, cr.Metric)
		}
	}

	if len(missing) > 0 {
		return &ColumnError{Kind: ErrMissingColumn, Columns: missing}
	}
	if len(nonNumeric) > 0 {
		return &ColumnError{Kind: ErrNonNumericColumn, Columns: nonNumeric}
	}
	return nil
}

// Rank validates the input, scores every record and returns the top of the
// order. Records with equal scores keep their input order.
func (e *Engine) Rank(ctx context.Context, ds *model.Dataset, criteria Criteria) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	if err := e.Validate(ds, criteria); err != nil {
		return nil, err
	}

	n := ds.Len()
	res := &Result{
		Metrics:   criteria.Metrics(),
		Weights:   make([]float64, len(criteria)),
		Ascending: make([]bool, len(criteria)),
		Total:     n,
	}

	ranks := make([][]int, len(criteria))
	for m, cr := range criteria {
		res.Weights[m] = cr.Weight
		res.Ascending[m] = e.directions.LowerIsBetter(cr.Metric)
		ranks[m] = CompetitionRanks(ds.Values(cr.Metric), res.Ascending[m])
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = compositeScore(ranks, res.Weights, i, n)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scoreBefore(scores[order[a]], scores[order[b]])
	})

	k := min(e.topK, n)
	res.Entries = make([]Entry, k)
	for pos, idx := range order[:k] {
		rec := ds.Records[idx]
		entry := Entry{
			Position: pos + 1,
			ID:       rec.ID,
			Values:   make([]float64, len(criteria)),
			Ranks:    make([]int, len(criteria)),
			Score:    scores[idx],
		}
		for m, cr := range criteria {
			entry.Values[m] = rec.Value(cr.Metric)
			entry.Ranks[m] = ranks[m][idx]
		}
		res.Entries[pos] = entry
	}

	return res, nil
}

// compositeScore sums weight * (N - rank) / N over the selected metrics.
// An unranked metric makes the score NaN.
func compositeScore(ranks [][]int, weights []float64, i, n int) float64 {
	var score float64
	for m := range ranks {
		r := ranks[m][i]
		if r == 0 {
			return math.NaN()
		}
		score += float64(n-r) / float64(n) * weights[m]
	}
	return score
}

// scoreBefore orders scores descending with NaN last.
func scoreBefore(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}

// TopByMetric returns at most n entries ordered by the raw value of the
// metric at index idx, best first according to ascending. Equal values
// keep their table order and missing values go last.
func TopByMetric(entries []Entry, idx, n int, ascending bool) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(a, b int) bool {
		va, vb := out[a].Values[idx], out[b].Values[idx]
		switch {
		case math.IsNaN(va):
			return false
		case math.IsNaN(vb):
			return true
		case ascending:
			return va < vb
		default:
			return va > vb
		}
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
