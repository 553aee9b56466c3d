package ranking

import (
	"fmt"
	"math"
	"slices"
)

// defaultLowerIsBetter lists the StrategyQuant databank metrics where a
// smaller value is the better one.
var defaultLowerIsBetter = []string{ //nolint:gochecknoglobals // read-only default table
	"Stagnation (IS)",
	"Drawdown (IS)",
	"Exposure (IS)",
	"Avg. Loss (IS)",
	"Avg. Loss (OOS)",
}

// DefaultLowerIsBetter returns a copy of the built-in lower-is-better table.
func DefaultLowerIsBetter() []string {
	return slices.Clone(defaultLowerIsBetter)
}

// Directions decides, per metric name, whether rank 1 goes to the smallest
// value (lower is better) or to the largest one. Metrics not in the table
// are higher-is-better. The zero value treats every metric as higher-is-better.
type Directions struct {
	lower map[string]struct{}
}

// NewDirections builds a direction table from the lower-is-better metric names.
func NewDirections(lowerIsBetter []string) Directions {
	d := Directions{lower: make(map[string]struct{}, len(lowerIsBetter))}
	for _, name := range lowerIsBetter {
		d.lower[name] = struct{}{}
	}
	return d
}

// DefaultDirections returns the built-in direction table.
func DefaultDirections() Directions {
	return NewDirections(defaultLowerIsBetter)
}

// LowerIsBetter reports whether metric ranks ascending.
func (d Directions) LowerIsBetter(metric string) bool {
	_, ok := d.lower[metric]
	return ok
}

// LowerIsBetterMetrics returns the table entries in sorted order.
func (d Directions) LowerIsBetterMetrics() []string {
	out := make([]string, 0, len(d.lower))
	for name := range d.lower {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Criterion is one selected metric and its weight.
type Criterion struct {
	Metric string
	Weight float64
}

// Criteria is the ordered set of selected metrics. Order decides the
// column order of the output table.
type Criteria []Criterion

// Metrics returns the metric names in order.
func (c Criteria) Metrics() []string {
	out := make([]string, len(c))
	for i, cr := range c {
		out[i] = cr.Metric
	}
	return out
}

// Sum returns the total weight.
func (c Criteria) Sum() float64 {
	var sum float64
	for _, cr := range c {
		sum += cr.Weight
	}
	return sum
}

// CheckWeights verifies that no weight is negative and that the weights sum
// to 1.0 within tolerance. The engine never calls it: keeping the weight set
// normalized is the caller's job.
func (c Criteria) CheckWeights(tolerance float64) error {
	for _, cr := range c {
		if cr.Weight < 0 {
			return fmt.Errorf("%w: %q has %g", ErrNegativeWeight, cr.Metric, cr.Weight)
		}
	}
	if sum := c.Sum(); math.Abs(sum-1.0) > tolerance {
		return fmt.Errorf("%w: got %.4f", ErrWeightSum, sum)
	}
	return nil
}
