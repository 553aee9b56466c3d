package ranking

import (
	"math"
	"sort"
)

// CompetitionRanks assigns 1-based competition ranks ("min" method): tied
// values share the lowest rank of their group and the next distinct value
// skips ahead by the group size, so [5, 5, 7] ascending ranks [1, 1, 3].
// With ascending=false the largest value gets rank 1. NaN values are left
// unranked with rank 0.
func CompetitionRanks(values []float64, ascending bool) []int {
	ranks := make([]int, len(values))

	order := make([]int, 0, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := values[order[a]], values[order[b]]
		if ascending {
			return va < vb
		}
		return va > vb
	})

	for pos, idx := range order {
		if pos > 0 && values[idx] == values[order[pos-1]] {
			ranks[idx] = ranks[order[pos-1]]
			continue
		}
		ranks[idx] = pos + 1
	}
	return ranks
}
