//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package report

import (
	"math"
	"sort"
)

// Customer segments, in the order they are summarized.
const (
	SegmentHighValue = "High-Value"
	SegmentLoyal     = "Loyal"
	SegmentAtRisk    = "At-Risk"
	SegmentOneTime   = "One-Time"
	SegmentOther     = "Other"
)

// Segments lists every segment name.
var Segments = []string{SegmentHighValue, SegmentLoyal, SegmentAtRisk, SegmentOneTime, SegmentOther}

// Segment assigns a customer segment from the R, F and M scores.
func Segment(r, f, m int) string {
	switch {
	case r+f+m >= 9:
		return SegmentHighValue
	case r >= 3 && f >= 3:
		return SegmentLoyal
	case r == 1:
		return SegmentAtRisk
	case f == 1 && m == 1:
		return SegmentOneTime
	default:
		return SegmentOther
	}
}

// quantile returns the q-th quantile of sorted by linear interpolation
// between the closest ranks.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	t := pos - float64(lo)
	a, b := sorted[lo], sorted[lo+1]
	// Interpolate from the nearer end to keep the result monotone.
	if t >= 0.5 {
		return b - (b-a)*(1-t)
	}
	return a + (b-a)*t
}

// quartileEdges returns the five bin edges splitting values into quartiles.
func quartileEdges(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	edges := make([]float64, 5)
	for i := range edges {
		edges[i] = quantile(sorted, float64(i)/4)
	}
	return edges
}

func uniqueEdges(edges []float64) bool {
	for i := 1; i < len(edges); i++ {
		if edges[i] == edges[i-1] {
			return false
		}
	}
	return true
}

// rankFirst ranks values from 1, breaking ties by position.
func rankFirst(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, len(values))
	for r, i := range order {
		ranks[i] = float64(r + 1)
	}
	return ranks
}

// quartile assigns each value a bin index 0..3. Bins are closed on the
// right and the lowest edge is included in the first bin. When the data
// has too few distinct values to form four distinct edges, the values are
// replaced by their first-occurrence ranks.
func quartile(values []float64) []int {
	bins := make([]int, len(values))
	if len(values) < 2 {
		return bins
	}

	edges := quartileEdges(values)
	if !uniqueEdges(edges) {
		values = rankFirst(values)
		edges = quartileEdges(values)
	}

	for i, v := range values {
		b := 0
		for b < 3 && v > edges[b+1] {
			b++
		}
		bins[i] = b
	}
	return bins
}

// scoreRFM computes the R, F and M scores for customers already ordered
// by customer id.
func scoreRFM(recency []int64, frequency []int64, monetary []float64) (r, f, m []int) {
	rec := make([]float64, len(recency))
	for i, v := range recency {
		rec[i] = float64(v)
	}
	freq := make([]float64, len(frequency))
	for i, v := range frequency {
		freq[i] = float64(v)
	}

	rb := quartile(rec)
	fb := quartile(rankFirst(freq))
	mb := quartile(monetary)

	r = make([]int, len(rb))
	f = make([]int, len(fb))
	m = make([]int, len(mb))
	for i := range rb {
		r[i] = 4 - rb[i]
		f[i] = fb[i] + 1
		m[i] = mb[i] + 1
	}
	return r, f, m
}
