package usecase

import "sort"

// RankDescending ranks values high to low with minimum-rank ties: [80 80 70]
// ranks as [1 1 3]. Missing values get a missing rank and take no slot.
func RankDescending(values []*float64) []*int {
	ranks := make([]*int, len(values))
	order := make([]int, 0, len(values))
	for i, v := range values {
		if v != nil {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return *values[order[a]] > *values[order[b]]
	})

	for pos, idx := range order {
		rank := pos + 1
		if pos > 0 && *values[order[pos-1]] == *values[idx] {
			rank = *ranks[order[pos-1]]
		}
		ranks[idx] = &rank
	}
	return ranks
}

// rankWithin applies RankDescending separately to each group of record
// indexes and scatters the ranks back by index.
func rankWithin(groups map[string][]int, scores []*float64) []*int {
	out := make([]*int, len(scores))
	for _, members := range groups {
		values := make([]*float64, len(members))
		for i, idx := range members {
			values[i] = scores[idx]
		}
		for i, rank := range RankDescending(values) {
			out[members[i]] = rank
		}
	}
	return out
}
