package anomaly

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/spikefang/pkg/alg/stats"
)

// indeedSeries is a month of daily click counts for a job listings page
// with a strong weekly cycle. The final value is a holiday drop.
var indeedSeries = []float64{
	534592, 854369, 868702, 852728, 773757, 618216, 423549,
	497898, 836237, 883591, 888337, 818443, 660449, 482778,
	477392, 904671, 943225, 918105, 843145, 685644, 511239,
	558484, 894195, 927928, 919406, 852359, 658974, 473478,
	458006, 587811,
}

// levelShiftSeries is a weekly-seasonal series whose level jumps at index
// 32 and keeps climbing. Sliding 30-point windows over it show the
// difference between a fresh level shift and a stale one.
var levelShiftSeries = []float64{
	521, 608, 653, 630, 579, 542, 477,
	522, 610, 648, 631, 583, 539, 480,
	518, 611, 652, 627, 580, 541, 479,
	522, 610, 648, 633, 581, 537, 480,
	522, 609, 651, 628,
	980, 948, 896, 944, 1042, 1090, 1078,
	1036, 1004, 952, 1000, 1098, 1146, 1134,
}

type zeroDecomposer struct{}

func (zeroDecomposer) Decompose(window []float64, _ int) ([]float64, []float64, error) {
	return make([]float64, len(window)), make([]float64, len(window)), nil
}

// trendQueueDecomposer hands out a flat trend level per call, in order.
type trendQueueDecomposer struct {
	levels []float64
	calls  int
}

func (d *trendQueueDecomposer) Decompose(window []float64, _ int) ([]float64, []float64, error) {
	level := d.levels[d.calls]
	d.calls++

	trend := make([]float64, len(window))
	for i := range trend {
		trend[i] = level
	}

	return make([]float64, len(window)), trend, nil
}

type failingDecomposer struct{}

func (failingDecomposer) Decompose([]float64, int) ([]float64, []float64, error) {
	return nil, nil, errors.New("decompose failed")
}

// fixedBreaks returns canned breakpoints and records the config it saw.
type fixedBreaks struct {
	locs []int
	cfg  BreakoutConfig
}

func (f *fixedBreaks) Breakpoints(_ []float64, cfg BreakoutConfig) ([]int, error) {
	f.cfg = cfg

	return f.locs, nil
}

type failingBreaks struct{}

func (failingBreaks) Breakpoints([]float64, BreakoutConfig) ([]int, error) {
	return nil, errors.New("segmentation failed")
}

func constantSeries(n int, v float64) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = v
	}

	return series
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	assert.InEpsilon(t, 0.10, opts.MaxAnoms, 1e-15)
	assert.InEpsilon(t, 0.05, opts.Alpha, 1e-15)
	assert.Equal(t, DirectionBoth, opts.Direction)
	assert.Equal(t, ThresholdNone, opts.Threshold)
	assert.Zero(t, opts.LongtermPeriod)
	assert.Nil(t, opts.Breakout)
}

func TestDetectValidation(t *testing.T) {
	t.Parallel()

	base := constantSeries(1000, 1)

	nanSeries := constantSeries(1000, 1)
	nanSeries[999] = math.NaN()

	infSeries := constantSeries(1000, 1)
	infSeries[999] = math.Inf(1)

	tests := []struct {
		name    string
		series  []float64
		period  int
		opts    Options
		wantErr error
	}{
		{
			name:    "max_anoms_above_limit",
			series:  base,
			period:  14,
			opts:    Options{MaxAnoms: 0.5, Alpha: 0.05},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "max_anoms_zero",
			series:  base,
			period:  14,
			opts:    Options{MaxAnoms: 0, Alpha: 0.05},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "alpha_zero",
			series:  base,
			period:  14,
			opts:    Options{MaxAnoms: 0.1, Alpha: 0},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "alpha_one",
			series:  base,
			period:  14,
			opts:    Options{MaxAnoms: 0.1, Alpha: 1},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "series_shorter_than_two_periods",
			series:  constantSeries(27, 1),
			period:  14,
			opts:    DefaultOptions(),
			wantErr: ErrInsufficientData,
		},
		{
			name:    "empty_series",
			series:  nil,
			period:  2,
			opts:    DefaultOptions(),
			wantErr: ErrInsufficientData,
		},
		{
			name:    "nan_value",
			series:  nanSeries,
			period:  14,
			opts:    DefaultOptions(),
			wantErr: ErrInvalidData,
		},
		{
			name:    "inf_value",
			series:  infSeries,
			period:  14,
			opts:    DefaultOptions(),
			wantErr: ErrInvalidData,
		},
		{
			name:    "period_one",
			series:  base,
			period:  1,
			opts:    DefaultOptions(),
			wantErr: ErrInvalidParameter,
		},
		{
			name:   "longterm_exceeds_series",
			series: base,
			period: 14,
			opts: Options{
				MaxAnoms: 0.1, Alpha: 0.05, LongtermPeriod: 1001,
			},
			wantErr: ErrInvalidParameter,
		},
		{
			name:   "longterm_below_two_periods",
			series: base,
			period: 14,
			opts: Options{
				MaxAnoms: 0.1, Alpha: 0.05, LongtermPeriod: 27,
			},
			wantErr: ErrInsufficientData,
		},
		{
			name:   "negative_only_last",
			series: base,
			period: 14,
			opts: Options{
				MaxAnoms: 0.1, Alpha: 0.05, OnlyLast: -1,
			},
			wantErr: ErrInvalidParameter,
		},
		{
			name:   "unknown_direction",
			series: base,
			period: 14,
			opts: Options{
				MaxAnoms: 0.1, Alpha: 0.05, Direction: "up",
			},
			wantErr: ErrInvalidParameter,
		},
		{
			name:   "unknown_threshold",
			series: base,
			period: 14,
			opts: Options{
				MaxAnoms: 0.1, Alpha: 0.05, Threshold: "p50",
			},
			wantErr: ErrInvalidParameter,
		},
		{
			name:   "unknown_breakout_method",
			series: base,
			period: 14,
			opts: Options{
				MaxAnoms: 0.1, Alpha: 0.05,
				Breakout: &BreakoutConfig{Method: "edm"},
			},
			wantErr: ErrInvalidParameter,
		},
		{
			name:   "breakout_degree_out_of_range",
			series: base,
			period: 14,
			opts: Options{
				MaxAnoms: 0.1, Alpha: 0.05,
				Breakout: &BreakoutConfig{Degree: 3},
			},
			wantErr: ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Detect(context.Background(), tt.series, tt.period, tt.opts)

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDetectSeasonalSpike(t *testing.T) {
	t.Parallel()

	result, err := Detect(context.Background(), indeedSeries, 7, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, []int{29}, result.Indices)
	assert.Equal(t, 1, result.Windows)
	assert.Len(t, result.WindowDurations, 1)
	assert.Nil(t, result.Expected)
}

func TestDetectConstantSeries(t *testing.T) {
	t.Parallel()

	result, err := Detect(context.Background(), constantSeries(1000, 1), 14, DefaultOptions())

	require.NoError(t, err)
	assert.Empty(t, result.Indices)
}

func TestDetectDirections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		direction Direction
		want      []int
	}{
		{name: "both_flags_the_drop", direction: DirectionBoth, want: []int{29}},
		{name: "neg_flags_the_drop", direction: DirectionNegative, want: []int{29}},
		{name: "pos_sees_nothing", direction: DirectionPositive, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := DefaultOptions()
			opts.Direction = tt.direction

			result, err := Detect(context.Background(), indeedSeries, 7, opts)

			require.NoError(t, err)
			assert.Equal(t, tt.want, nonEmpty(result.Indices))
		})
	}
}

// Negating the series swaps the roles of the positive and negative tests
// point for point.
func TestDetectNegationSymmetry(t *testing.T) {
	t.Parallel()

	negated := make([]float64, len(indeedSeries))
	for i, v := range indeedSeries {
		negated[i] = -v
	}

	negOpts := DefaultOptions()
	negOpts.Direction = DirectionNegative

	posOpts := DefaultOptions()
	posOpts.Direction = DirectionPositive

	onOriginal, err := Detect(context.Background(), indeedSeries, 7, negOpts)
	require.NoError(t, err)

	onNegated, err := Detect(context.Background(), negated, 7, posOpts)
	require.NoError(t, err)

	assert.Equal(t, onOriginal.Indices, onNegated.Indices)
}

func TestDetectThreshold(t *testing.T) {
	t.Parallel()

	t.Run("med_max_drops_the_low_spike", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.Threshold = ThresholdMedMax

		result, err := Detect(context.Background(), indeedSeries, 7, opts)

		require.NoError(t, err)
		assert.Empty(t, result.Indices)
	})

	t.Run("no_threshold_keeps_it", func(t *testing.T) {
		t.Parallel()

		result, err := Detect(context.Background(), indeedSeries, 7, DefaultOptions())

		require.NoError(t, err)
		assert.Equal(t, []int{29}, result.Indices)
	})
}

func TestDetectOnlyLast(t *testing.T) {
	t.Parallel()

	series := []float64{1, 2, 1, 2, 1, 100, 2, 1, 2, 1}
	detector := &Detector{Decomposer: zeroDecomposer{}}

	tests := []struct {
		name     string
		onlyLast int
		want     []int
	}{
		{name: "disabled_keeps_all", onlyLast: 0, want: []int{5}},
		{name: "window_reaching_the_spike", onlyLast: 5, want: []int{5}},
		{name: "window_past_the_spike", onlyLast: 4, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := Options{MaxAnoms: 0.49, Alpha: 0.05, OnlyLast: tt.onlyLast}

			result, err := detector.Detect(context.Background(), series, 2, opts)

			require.NoError(t, err)
			assert.Equal(t, tt.want, nonEmpty(result.Indices))
		})
	}
}

func TestDetectWindowedSeries(t *testing.T) {
	t.Parallel()

	opts := Options{
		MaxAnoms:       0.01,
		Alpha:          0.05,
		LongtermPeriod: 30,
		OnlyLast:       1,
	}

	result, err := Detect(context.Background(), levelShiftSeries, 7, opts)

	require.NoError(t, err)
	assert.Equal(t, []int{45}, result.Indices)
	assert.Equal(t, 2, result.Windows)
}

func TestDetectLevelShift(t *testing.T) {
	t.Parallel()

	opts := Options{MaxAnoms: 0.01, Alpha: 0.05, OnlyLast: 1}

	segmented := opts
	segmented.Breakout = &BreakoutConfig{MinSize: 7, Method: BreakoutMulti, Beta: 0.008, Degree: 1}

	t.Run("fresh_shift_is_an_anomaly", func(t *testing.T) {
		t.Parallel()

		result, err := Detect(context.Background(), levelShiftSeries[3:33], 7, opts)

		require.NoError(t, err)
		assert.Equal(t, []int{29}, result.Indices)
	})

	t.Run("fresh_shift_survives_segmentation", func(t *testing.T) {
		t.Parallel()

		result, err := Detect(context.Background(), levelShiftSeries[3:33], 7, segmented)

		require.NoError(t, err)
		assert.Equal(t, []int{29}, result.Indices)
	})

	t.Run("stale_shift_keeps_alarming_without_segmentation", func(t *testing.T) {
		t.Parallel()

		result, err := Detect(context.Background(), levelShiftSeries[8:38], 7, opts)

		require.NoError(t, err)
		assert.Equal(t, []int{29}, result.Indices)
	})

	t.Run("stale_shift_absorbed_by_segmentation", func(t *testing.T) {
		t.Parallel()

		result, err := Detect(context.Background(), levelShiftSeries[8:38], 7, segmented)

		require.NoError(t, err)
		assert.Empty(t, result.Indices)
	})
}

func TestDetectExpectedValues(t *testing.T) {
	t.Parallel()

	series := []float64{1, 2, 1, 2, 100, 1, 2, 1, 2, 50}
	detector := &Detector{
		Decomposer: &trendQueueDecomposer{levels: []float64{10.6, 99.9}},
	}
	opts := Options{
		MaxAnoms:       0.49,
		Alpha:          0.05,
		LongtermPeriod: 6,
		Expected:       true,
	}

	result, err := detector.Detect(context.Background(), series, 2, opts)

	require.NoError(t, err)
	assert.Equal(t, []int{4, 9}, result.Indices)

	// Index 4 sits in both windows: the first window wrote its expected
	// value and the second must not overwrite it.
	assert.Equal(t, []float64{10, 99}, result.Expected)
}

func TestDetectExpectedDisabled(t *testing.T) {
	t.Parallel()

	detector := &Detector{Decomposer: zeroDecomposer{}}
	series := []float64{1, 2, 1, 2, 1, 100, 2, 1, 2, 1}

	result, err := detector.Detect(context.Background(), series, 2, Options{MaxAnoms: 0.49, Alpha: 0.05})

	require.NoError(t, err)
	assert.Nil(t, result.Expected)
}

func TestDetectDeduplicatesOverlap(t *testing.T) {
	t.Parallel()

	series := []float64{1, 2, 1, 2, 1, 100, 2, 1, 2, 1}
	detector := &Detector{Decomposer: zeroDecomposer{}}
	opts := Options{MaxAnoms: 0.49, Alpha: 0.05, LongtermPeriod: 6}

	result, err := detector.Detect(context.Background(), series, 2, opts)

	require.NoError(t, err)

	// The spike at index 5 falls in both the [0:6) and the back-aligned
	// [4:10) window.
	assert.Equal(t, []int{5}, result.Indices)
	assert.Equal(t, 2, result.Windows)
}

func TestDetectSegmentedBaseline(t *testing.T) {
	t.Parallel()

	series := []float64{10, 11, 10, 20, 21, 80}

	tests := []struct {
		name string
		locs []int
		want []int
	}{
		{name: "open_tail_segment_gets_closed", locs: []int{3}, want: []int{5}},
		{name: "closed_tail_segment_stays", locs: []int{3, 6}, want: []int{5}},
		{name: "no_breakpoints_mean_one_segment", locs: nil, want: []int{4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			detector := &Detector{
				Decomposer: zeroDecomposer{},
				Breakouts:  &fixedBreaks{locs: tt.locs},
			}
			opts := Options{
				MaxAnoms: 0.49,
				Alpha:    0.05,
				Breakout: &BreakoutConfig{MinSize: 2},
			}

			result, err := detector.Detect(context.Background(), series, 2, opts)

			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Indices)
		})
	}
}

func TestDetectBreakoutConfigReachesOracle(t *testing.T) {
	t.Parallel()

	breaks := &fixedBreaks{}
	detector := &Detector{Decomposer: zeroDecomposer{}, Breakouts: breaks}

	cfg := &BreakoutConfig{Method: BreakoutAmoc, MinSize: 3, Beta: 0.5, Degree: 2}
	opts := Options{MaxAnoms: 0.49, Alpha: 0.05, Breakout: cfg}

	_, err := detector.Detect(context.Background(), []float64{1, 2, 1, 2, 1, 9}, 2, opts)

	require.NoError(t, err)
	assert.Equal(t, *cfg, breaks.cfg)
}

func TestDetectContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Detect(ctx, indeedSeries, 7, DefaultOptions())

	require.ErrorIs(t, err, context.Canceled)
}

func TestDetectDecomposeError(t *testing.T) {
	t.Parallel()

	detector := &Detector{Decomposer: failingDecomposer{}}

	_, err := detector.Detect(context.Background(), indeedSeries, 7, DefaultOptions())

	require.ErrorContains(t, err, "decompose")
}

func TestDetectBreakoutError(t *testing.T) {
	t.Parallel()

	detector := &Detector{Decomposer: zeroDecomposer{}, Breakouts: failingBreaks{}}

	opts := DefaultOptions()
	opts.Breakout = &BreakoutConfig{MinSize: 7}

	_, err := detector.Detect(context.Background(), indeedSeries, 7, opts)

	require.ErrorContains(t, err, "segmentation")
}

func TestDetectDeterministic(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Expected = true

	first, err := Detect(context.Background(), indeedSeries, 7, opts)
	require.NoError(t, err)

	second, err := Detect(context.Background(), indeedSeries, 7, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// spikedSeries alternates between 1 and 2 with spikes of descending
// magnitude planted every ten points.
func spikedSeries(n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = float64(1 + i%2)
	}

	series[10] = 100
	series[20] = 80
	series[30] = 60
	series[40] = 40

	return series
}

func TestDetectMaxAnomsMonotone(t *testing.T) {
	t.Parallel()

	series := spikedSeries(50)
	detector := &Detector{Decomposer: zeroDecomposer{}}

	var prev []int

	for _, maxAnoms := range []float64{0.02, 0.04, 0.08, 0.2, 0.49} {
		opts := Options{MaxAnoms: maxAnoms, Alpha: 0.05}

		result, err := detector.Detect(context.Background(), series, 2, opts)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(result.Indices), len(prev))

		if len(prev) > 0 {
			assert.Subset(t, result.Indices, prev)
		}

		prev = result.Indices
	}
}

// A p99 threshold admits only raw values at or above the 99th percentile
// of the per-period chunk maxima.
func TestDetectThresholdP99Property(t *testing.T) {
	t.Parallel()

	series := spikedSeries(50)
	detector := &Detector{Decomposer: zeroDecomposer{}}

	opts := Options{MaxAnoms: 0.2, Alpha: 0.05, Threshold: ThresholdP99}

	result, err := detector.Detect(context.Background(), series, 5, opts)
	require.NoError(t, err)

	cutoff := stats.Percentile(chunkMaxima(series, 5), stats.PercentileP99)

	require.NotEmpty(t, result.Indices)

	for _, idx := range result.Indices {
		assert.GreaterOrEqual(t, series[idx], cutoff)
	}

	assert.Equal(t, []int{10}, result.Indices)
}

func TestDetectEmitsWindowSpans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	detector := New()
	detector.Tracer = tp.Tracer("spikefang")

	opts := DefaultOptions()
	opts.LongtermPeriod = 15

	result, err := detector.Detect(context.Background(), indeedSeries, 7, opts)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, result.Windows)

	for i, s := range spans {
		assert.Equal(t, "spikefang.detect.window", s.Name)

		attrs := make(map[string]int64, len(s.Attributes))
		for _, kv := range s.Attributes {
			attrs[string(kv.Key)] = kv.Value.AsInt64()
		}

		assert.EqualValues(t, i, attrs["window.index"])
		assert.Contains(t, attrs, "window.outliers")
		assert.Contains(t, attrs, "window.kept")
	}
}

func TestDetectWindowSpanRecordsError(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	detector := &Detector{
		Decomposer: failingDecomposer{},
		Tracer:     tp.Tracer("spikefang"),
	}

	_, err := detector.Detect(context.Background(), indeedSeries, 7, DefaultOptions())
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

// nonEmpty normalizes empty slices to nil so expectations can use nil for
// the no-anomalies case.
func nonEmpty(indices []int) []int {
	if len(indices) == 0 {
		return nil
	}

	return indices
}
