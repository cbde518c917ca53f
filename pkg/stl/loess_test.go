package stl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoessSmoothConstant(t *testing.T) {
	t.Parallel()

	ys := []float64{3, 3, 3, 3, 3, 3, 3}

	for _, degree := range []int{0, 1} {
		got := loessSmooth(ys, 5, degree, nil, 0, len(ys)-1)

		for i, v := range got {
			assert.InDelta(t, 3.0, v, 1e-12, "degree %d index %d", degree, i)
		}
	}
}

func TestLoessSmoothLinear(t *testing.T) {
	t.Parallel()

	ys := make([]float64, 9)
	for i := range ys {
		ys[i] = 2*float64(i) + 1
	}

	// A degree-1 fit reproduces globally linear data everywhere, including
	// the extrapolated positions outside the grid.
	got := loessSmooth(ys, 5, 1, nil, -1, len(ys))

	for i, v := range got {
		pos := float64(i - 1)
		assert.InDelta(t, 2*pos+1, v, 1e-9, "position %v", pos)
	}
}

func TestLoessSmoothSpanWiderThanData(t *testing.T) {
	t.Parallel()

	ys := []float64{1, 2, 3, 4}

	got := loessSmooth(ys, 101, 0, nil, 0, len(ys)-1)

	// With a span far wider than the data the kernel flattens and every fit
	// approaches the plain mean.
	for _, v := range got {
		assert.InDelta(t, 2.5, v, 0.05)
	}
}

func TestLoessSmoothZeroWeightsFallBack(t *testing.T) {
	t.Parallel()

	ys := []float64{1, 2, 3, 4, 5}
	rw := []float64{0, 0, 0, 0, 0}

	got := loessSmooth(ys, 5, 0, rw, 2, 2)

	assert.InDelta(t, 3.0, got[0], 1e-12)
}

func TestMovingAverage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		values   []float64
		k        int
		expected []float64
	}{
		{name: "window_two", values: []float64{1, 2, 3, 4}, k: 2, expected: []float64{1.5, 2.5, 3.5}},
		{name: "window_three", values: []float64{3, 6, 9, 12, 15}, k: 3, expected: []float64{6, 9, 12}},
		{name: "window_equals_length", values: []float64{2, 4, 6}, k: 3, expected: []float64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := movingAverage(tt.values, tt.k)
			assert.InDeltaSlice(t, tt.expected, got, 1e-12)
		})
	}
}

func TestNextOdd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    float64
		expected int
	}{
		{name: "odd_integer_unchanged", input: 7.0, expected: 7},
		{name: "even_integer_bumped", input: 14.0, expected: 15},
		{name: "fraction_rounds_up", input: 18.02, expected: 19},
		{name: "fraction_to_even_bumped", input: 3.5, expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, nextOdd(tt.input))
		})
	}
}
