package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedianBaseline(t *testing.T) {
	t.Parallel()

	got := medianBaseline([]float64{3, 1, 4, 1, 5})

	assert.Equal(t, []float64{3, 3, 3, 3, 3}, got)
}

func TestMedianBaselineEvenCount(t *testing.T) {
	t.Parallel()

	got := medianBaseline([]float64{1, 2, 3, 4})

	assert.Equal(t, []float64{2.5, 2.5, 2.5, 2.5}, got)
}

func TestSegmentedBaseline(t *testing.T) {
	t.Parallel()

	window := []float64{10, 12, 14, 40, 42, 44}

	tests := []struct {
		name string
		locs []int
		want []float64
	}{
		{
			name: "interior_breakpoint",
			locs: []int{3},
			want: []float64{12, 12, 12, 42, 42, 42},
		},
		{
			name: "breakpoint_list_already_closed",
			locs: []int{3, 6},
			want: []float64{12, 12, 12, 42, 42, 42},
		},
		{
			name: "no_breakpoints",
			locs: nil,
			want: []float64{27, 27, 27, 27, 27, 27},
		},
		{
			name: "two_breakpoints",
			locs: []int{2, 4},
			want: []float64{11, 11, 27, 27, 43, 43},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			detector := &Detector{Breakouts: &fixedBreaks{locs: tt.locs}}

			got, err := detector.segmentedBaseline(window, BreakoutConfig{})

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSegmentedBaselineError(t *testing.T) {
	t.Parallel()

	detector := &Detector{Breakouts: failingBreaks{}}

	_, err := detector.segmentedBaseline([]float64{1, 2, 3}, BreakoutConfig{})

	require.ErrorContains(t, err, "segmentation")
}
