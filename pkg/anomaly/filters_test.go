package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdFilter(t *testing.T) {
	t.Parallel()

	window := []float64{1, 5, 2, 6, 3, 7, 4, 8}
	indices := []int{1, 3, 5, 7}

	tests := []struct {
		name      string
		threshold Threshold
		want      []int
	}{
		// Chunk maxima for period 3 are [5, 7, 8].
		{name: "med_max_keeps_values_at_or_above_seven", threshold: ThresholdMedMax, want: []int{5, 7}},
		{name: "p95_keeps_only_the_top", threshold: ThresholdP95, want: []int{7}},
		{name: "p99_keeps_only_the_top", threshold: ThresholdP99, want: []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := thresholdFilter(window, indices, 3, tt.threshold)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThresholdFilterDisabled(t *testing.T) {
	t.Parallel()

	window := []float64{1, 5, 2}
	indices := []int{1}

	got := thresholdFilter(window, indices, 3, ThresholdNone)

	assert.Equal(t, indices, got)
}

func TestThresholdFilterNoIndices(t *testing.T) {
	t.Parallel()

	got := thresholdFilter([]float64{1, 5, 2}, nil, 3, ThresholdMedMax)

	assert.Empty(t, got)
}

func TestChunkMaxima(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		window []float64
		period int
		want   []float64
	}{
		{name: "exact_chunks", window: []float64{1, 5, 2, 6, 3, 7}, period: 3, want: []float64{5, 7}},
		{name: "short_tail_chunk", window: []float64{2, 9, 4, 1}, period: 3, want: []float64{9, 1}},
		{name: "period_longer_than_window", window: []float64{2, 9}, period: 5, want: []float64{9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := chunkMaxima(tt.window, tt.period)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecencyFilter(t *testing.T) {
	t.Parallel()

	indices := []int{1, 5, 8, 9}

	tests := []struct {
		name     string
		onlyLast int
		want     []int
	}{
		{name: "disabled", onlyLast: 0, want: []int{1, 5, 8, 9}},
		{name: "trailing_two", onlyLast: 2, want: []int{8, 9}},
		{name: "boundary_is_inclusive", onlyLast: 5, want: []int{5, 8, 9}},
		{name: "wider_than_series", onlyLast: 20, want: []int{1, 5, 8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := recencyFilter(indices, 10, tt.onlyLast)

			assert.Equal(t, tt.want, got)
		})
	}
}
