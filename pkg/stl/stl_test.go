package stl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seasonalSeries builds n points of a sine seasonal pattern with the given
// period and amplitude on top of a linear trend.
func seasonalSeries(n, period int, amplitude, slope float64) []float64 {
	series := make([]float64, n)

	for i := range series {
		series[i] = amplitude*math.Sin(2*math.Pi*float64(i)/float64(period)) + slope*float64(i)
	}

	return series
}

func TestDecomposeValidation(t *testing.T) {
	t.Parallel()

	t.Run("period_below_two", func(t *testing.T) {
		t.Parallel()

		_, err := Decompose([]float64{1, 2, 3, 4}, 1)
		require.ErrorIs(t, err, ErrPeriodTooSmall)
	})

	t.Run("series_shorter_than_two_periods", func(t *testing.T) {
		t.Parallel()

		_, err := Decompose(make([]float64, 13), 7)
		require.ErrorIs(t, err, ErrSeriesTooShort)
	})

	t.Run("exactly_two_periods_accepted", func(t *testing.T) {
		t.Parallel()

		res, err := Decompose(seasonalSeries(14, 7, 5, 0), 7)
		require.NoError(t, err)
		assert.Len(t, res.Seasonal, 14)
	})
}

func TestDecomposeComponentLengths(t *testing.T) {
	t.Parallel()

	series := seasonalSeries(60, 12, 10, 0.1)

	res, err := Decompose(series, 12)
	require.NoError(t, err)

	assert.Len(t, res.Seasonal, len(series))
	assert.Len(t, res.Trend, len(series))
	assert.Len(t, res.Remainder, len(series))
	assert.Len(t, res.Weights, len(series))
}

func TestDecomposeAdditive(t *testing.T) {
	t.Parallel()

	series := seasonalSeries(84, 7, 20, 0.5)

	res, err := Decompose(series, 7)
	require.NoError(t, err)

	for i := range series {
		assert.InDelta(t, series[i], res.Seasonal[i]+res.Trend[i]+res.Remainder[i], 1e-9)
	}
}

func TestDecomposeConstantSeries(t *testing.T) {
	t.Parallel()

	series := make([]float64, 1000)
	for i := range series {
		series[i] = 1.0
	}

	res, err := Decompose(series, 14)
	require.NoError(t, err)

	for i := range series {
		assert.InDelta(t, 0, res.Seasonal[i], 1e-9)
		assert.InDelta(t, 1.0, res.Trend[i], 1e-9)
		assert.InDelta(t, 0, res.Remainder[i], 1e-9)
	}
}

func TestDecomposeDeterministic(t *testing.T) {
	t.Parallel()

	series := seasonalSeries(70, 7, 15, 0.3)

	first, err := Decompose(series, 7)
	require.NoError(t, err)

	second, err := Decompose(series, 7)
	require.NoError(t, err)

	assert.Equal(t, first.Seasonal, second.Seasonal)
	assert.Equal(t, first.Trend, second.Trend)
	assert.Equal(t, first.Remainder, second.Remainder)
}

func TestDecomposeRecoversSeasonalPattern(t *testing.T) {
	t.Parallel()

	const (
		n         = 120
		period    = 12
		amplitude = 10.0
	)

	series := seasonalSeries(n, period, amplitude, 0.05)

	res, err := Decompose(series, period)
	require.NoError(t, err)

	// Away from the boundaries the seasonal should track the sine closely.
	for i := 2 * period; i < n-2*period; i++ {
		want := amplitude * math.Sin(2*math.Pi*float64(i)/float64(period))
		assert.InDelta(t, want, res.Seasonal[i], 1.5, "index %d", i)
	}
}

func TestDecomposeRobustToSpike(t *testing.T) {
	t.Parallel()

	const (
		n      = 84
		period = 7
		spike  = 40
	)

	clean := seasonalSeries(n, period, 8, 0.2)
	spiked := make([]float64, n)
	copy(spiked, clean)
	spiked[spike] += 100

	cleanRes, err := Decompose(clean, period)
	require.NoError(t, err)

	spikedRes, err := Decompose(spiked, period)
	require.NoError(t, err)

	// The spike must be discounted rather than smeared into the components.
	assert.Less(t, spikedRes.Weights[spike], 0.5)
	assert.InDelta(t, cleanRes.Trend[spike], spikedRes.Trend[spike], 5.0)

	for i := 2 * period; i < n-2*period; i++ {
		assert.InDelta(t, cleanRes.Seasonal[i], spikedRes.Seasonal[i], 2.0, "index %d", i)
	}

	// Most of the spike lands in the remainder.
	assert.Greater(t, spikedRes.Remainder[spike], 80.0)
}
