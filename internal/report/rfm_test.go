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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuartile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []int
	}{
		{"evenly spread", []float64{1, 2, 3, 4, 5, 6, 7, 8}, []int{0, 0, 1, 1, 2, 2, 3, 3}},
		{"unsorted", []float64{30, 0, 20, 10}, []int{3, 0, 2, 1}},
		{"duplicate edges fall back to ranks", []float64{1, 1, 1, 2}, []int{0, 1, 2, 3}},
		{"single value", []float64{42}, []int{0}},
		{"empty", nil, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quartile(tt.values))
		})
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	assert.Equal(t, []float64{1, 2.75, 4.5, 6.25, 8}, quartileEdges(sorted))
	assert.Equal(t, 15.0, quantile([]float64{2, 15, 30}, 0.5))
	assert.Equal(t, 8.5, quantile([]float64{2, 15, 30}, 0.25))
}

func TestRankFirst(t *testing.T) {
	assert.Equal(t, []float64{3, 1, 2}, rankFirst([]float64{2, 1, 1}))
	assert.Equal(t, []float64{1, 2, 3, 4}, rankFirst([]float64{5, 5, 5, 5}))
}

func TestScoreRFM(t *testing.T) {
	r, f, m := scoreRFM([]int64{0, 10, 20, 30}, []int64{1, 1, 1, 1}, []float64{10, 20, 30, 40})
	assert.Equal(t, []int{4, 3, 2, 1}, r)
	assert.Equal(t, []int{1, 2, 3, 4}, f)
	assert.Equal(t, []int{1, 2, 3, 4}, m)
}

func TestSegment(t *testing.T) {
	tests := []struct {
		r, f, m int
		want    string
	}{
		{4, 4, 4, SegmentHighValue},
		{1, 4, 4, SegmentHighValue},
		{3, 3, 1, SegmentLoyal},
		{4, 3, 1, SegmentLoyal},
		{1, 2, 2, SegmentAtRisk},
		{1, 1, 1, SegmentAtRisk},
		{2, 1, 1, SegmentOneTime},
		{3, 1, 4, SegmentOther},
		{2, 2, 2, SegmentOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Segment(tt.r, tt.f, tt.m), "R=%d F=%d M=%d", tt.r, tt.f, tt.m)
	}
}
