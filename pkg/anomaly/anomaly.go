// Package anomaly implements seasonal hybrid ESD anomaly detection for
// univariate time series.
//
// A series is split into windows of at most LongtermPeriod points. Each
// window is decomposed into seasonal and trend components, a robust
// baseline is subtracted, and the residuals are screened with a
// generalized extreme studentized deviate test using median and MAD in
// place of mean and standard deviation. Window results are merged,
// optionally filtered by magnitude and recency, and returned as indices
// into the original series.
package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/spikefang/pkg/observability"
)

// Direction selects which side of the residual distribution is tested.
type Direction string

const (
	// DirectionBoth tests positive and negative deviations.
	DirectionBoth Direction = "both"
	// DirectionPositive tests only upward deviations.
	DirectionPositive Direction = "pos"
	// DirectionNegative tests only downward deviations.
	DirectionNegative Direction = "neg"
)

// Threshold selects an optional magnitude filter applied to each window
// before results are merged. The filter compares raw series values against
// an aggregate of per-period chunk maxima.
type Threshold string

const (
	// ThresholdNone disables the magnitude filter.
	ThresholdNone Threshold = ""
	// ThresholdMedMax keeps values at or above the median chunk maximum.
	ThresholdMedMax Threshold = "med_max"
	// ThresholdP95 keeps values at or above the 95th percentile of chunk maxima.
	ThresholdP95 Threshold = "p95"
	// ThresholdP99 keeps values at or above the 99th percentile of chunk maxima.
	ThresholdP99 Threshold = "p99"
)

// Default detection parameters.
const (
	// DefaultMaxAnoms caps detected anomalies at 10% of each window.
	DefaultMaxAnoms = 0.10
	// DefaultAlpha is the significance level of the ESD test.
	DefaultAlpha = 0.05

	// MaxAnomsLimit is the largest accepted MaxAnoms. The test needs a
	// majority of inliers to estimate location and scale from.
	MaxAnomsLimit = 0.49

	minPeriod = 2
)

const tracerName = "spikefang"

// Options controls a detection run. The zero value is not usable; start
// from DefaultOptions.
type Options struct {
	// MaxAnoms bounds the fraction of each window reported as anomalous.
	// Must be in (0, MaxAnomsLimit].
	MaxAnoms float64

	// Alpha is the significance level for critical values. Must be in (0, 1).
	Alpha float64

	// Direction selects the tested deviation side. Empty means DirectionBoth.
	Direction Direction

	// LongtermPeriod is the window length in points. Zero means a single
	// window over the whole series. Must not exceed the series length and
	// must cover at least two seasonal periods.
	LongtermPeriod int

	// OnlyLast, when positive, keeps only anomalies within the trailing
	// OnlyLast points of the series.
	OnlyLast int

	// Threshold optionally drops low-magnitude anomalies per window.
	Threshold Threshold

	// Expected requests per-anomaly expected values computed from the
	// seasonal and trend components.
	Expected bool

	// Breakout, when set, replaces the per-window median baseline with
	// per-segment medians between detected level shifts.
	Breakout *BreakoutConfig
}

// DefaultOptions returns the standard detection parameters: two-sided
// testing over a single window with a 10% anomaly cap at significance 0.05.
func DefaultOptions() Options {
	return Options{
		MaxAnoms:  DefaultMaxAnoms,
		Alpha:     DefaultAlpha,
		Direction: DirectionBoth,
	}
}

// Result holds the outcome of a detection run.
type Result struct {
	// Indices lists anomalous positions in the input series, ascending.
	Indices []int `json:"indices"`

	// Expected holds the floored seasonal-plus-trend value for each entry
	// of Indices. Nil unless Options.Expected was set.
	Expected []float64 `json:"expected,omitempty"`

	// Windows is the number of windows processed.
	Windows int `json:"windows"`

	// WindowDurations records the processing time of each window in
	// order. Not serialized.
	WindowDurations []time.Duration `json:"-"`
}

// Detector runs seasonal hybrid ESD detection with pluggable seasonal
// decomposition and breakout segmentation. The zero value is not usable;
// construct with New and override fields as needed.
type Detector struct {
	// Decomposer splits a window into seasonal and trend components.
	Decomposer Decomposer

	// Breakouts locates level shifts for segmented baselines. Only used
	// when Options.Breakout is set.
	Breakouts BreakoutDetector

	// Tracer is the OTel tracer for per-window spans.
	// When nil, falls back to otel.Tracer("spikefang").
	Tracer trace.Tracer

	// Logger receives debug diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// New returns a Detector wired to the built-in STL decomposer and EDM
// breakout detector.
func New() *Detector {
	return &Detector{
		Decomposer: STLDecomposer{},
		Breakouts:  EDMDetector{},
	}
}

// Detect runs detection with default oracles. See Detector.Detect.
func Detect(ctx context.Context, series []float64, period int, opts Options) (*Result, error) {
	return New().Detect(ctx, series, period, opts)
}

// Detect locates anomalies in series given its seasonal period. The
// returned indices are ascending positions into series. The context is
// checked between windows.
func (d *Detector) Detect(ctx context.Context, series []float64, period int, opts Options) (*Result, error) {
	opts = normalize(opts)

	longterm := opts.LongtermPeriod
	if longterm == 0 {
		longterm = len(series)
	}

	if err := validate(series, period, longterm, opts); err != nil {
		return nil, err
	}

	logger := d.logger()
	spans := windowSpans(len(series), longterm)

	var (
		anomalous = make(map[int]struct{})
		expected  []float64
		written   []bool
		durations = make([]time.Duration, 0, len(spans))
	)

	if opts.Expected {
		expected = make([]float64, len(series))
		written = make([]bool, len(series))
	}

	for wi, sp := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wctx, span := d.tracer().Start(ctx, "spikefang.detect.window",
			trace.WithAttributes(
				attribute.Int("window.index", wi),
				attribute.Int("window.start", sp.start),
				attribute.Int("window.end", sp.end),
			))

		startedAt := time.Now()
		window := series[sp.start:sp.end]

		wr, err := d.processWindow(wctx, window, period, opts, logger)
		if err != nil {
			observability.RecordSpanError(span, err, observability.ErrTypeInternal, observability.ErrSourceServer)
			span.End()

			return nil, fmt.Errorf("window [%d:%d]: %w", sp.start, sp.end, err)
		}

		kept := thresholdFilter(window, wr.outliers, period, opts.Threshold)
		for _, idx := range kept {
			anomalous[sp.start+idx] = struct{}{}
		}

		if opts.Expected {
			for i, ev := range wr.expected {
				global := sp.start + i
				if !written[global] {
					expected[global] = ev
					written[global] = true
				}
			}
		}

		durations = append(durations, time.Since(startedAt))

		span.SetAttributes(
			attribute.Int("window.outliers", len(wr.outliers)),
			attribute.Int("window.kept", len(kept)),
		)
		span.End()

		if logger.Enabled(ctx, slog.LevelDebug) {
			logger.DebugContext(ctx, "window processed",
				slog.Int("start", sp.start),
				slog.Int("end", sp.end),
				slog.Int("outliers", len(wr.outliers)),
				slog.Int("kept", len(kept)))
		}
	}

	indices := make([]int, 0, len(anomalous))
	for idx := range anomalous {
		indices = append(indices, idx)
	}

	slices.Sort(indices)
	indices = recencyFilter(indices, len(series), opts.OnlyLast)

	result := &Result{Indices: indices, Windows: len(spans), WindowDurations: durations}
	if opts.Expected {
		result.Expected = make([]float64, len(indices))
		for i, idx := range indices {
			result.Expected[i] = expected[idx]
		}
	}

	return result, nil
}

func (d *Detector) tracer() trace.Tracer {
	if d.Tracer != nil {
		return d.Tracer
	}

	return otel.Tracer(tracerName)
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.New(slog.DiscardHandler)
}

// normalize fills defaulted enum fields. Numeric fields are not defaulted:
// a zero MaxAnoms or Alpha is a caller bug and fails validation.
func normalize(opts Options) Options {
	if opts.Direction == "" {
		opts.Direction = DirectionBoth
	}

	if opts.Breakout != nil && opts.Breakout.Method == "" {
		cfg := *opts.Breakout
		cfg.Method = BreakoutMulti
		opts.Breakout = &cfg
	}

	return opts
}

func validate(series []float64, period, longterm int, opts Options) error {
	if opts.MaxAnoms <= 0 || opts.MaxAnoms > MaxAnomsLimit {
		return fmt.Errorf("%w: max_anoms %v outside (0, %v]", ErrInvalidParameter, opts.MaxAnoms, MaxAnomsLimit)
	}

	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		return fmt.Errorf("%w: alpha %v outside (0, 1)", ErrInvalidParameter, opts.Alpha)
	}

	switch opts.Direction {
	case DirectionBoth, DirectionPositive, DirectionNegative:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidParameter, opts.Direction)
	}

	switch opts.Threshold {
	case ThresholdNone, ThresholdMedMax, ThresholdP95, ThresholdP99:
	default:
		return fmt.Errorf("%w: unknown threshold %q", ErrInvalidParameter, opts.Threshold)
	}

	if period < minPeriod {
		return fmt.Errorf("%w: period %d below %d", ErrInvalidParameter, period, minPeriod)
	}

	if opts.LongtermPeriod < 0 || opts.LongtermPeriod > len(series) {
		return fmt.Errorf("%w: longterm_period %d outside [0, %d]", ErrInvalidParameter, opts.LongtermPeriod, len(series))
	}

	if opts.OnlyLast < 0 {
		return fmt.Errorf("%w: only_last %d is negative", ErrInvalidParameter, opts.OnlyLast)
	}

	if opts.Breakout != nil {
		if err := validateBreakout(*opts.Breakout); err != nil {
			return err
		}
	}

	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidData, i)
		}
	}

	if longterm < minPeriod*period {
		return fmt.Errorf("%w: window of %d points cannot cover two periods of %d", ErrInsufficientData, longterm, period)
	}

	return nil
}
