package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

type windowSpan struct {
	start, end int
}

// windowSpans chunks n points into runs of longterm points. When the final
// run would fall short it is back-aligned to end at n, overlapping its
// predecessor so every window carries a full longterm of context.
func windowSpans(n, longterm int) []windowSpan {
	var spans []windowSpan

	for start := 0; start < n; start += longterm {
		end := min(n, start+longterm)
		if end-start < longterm {
			start = end - longterm
		}

		spans = append(spans, windowSpan{start: start, end: end})
	}

	return spans
}

type windowResult struct {
	// outliers holds window-local indices surviving the ESD test.
	outliers []int

	// expected holds floor(seasonal+trend) per window position. Nil unless
	// requested.
	expected []float64
}

// processWindow decomposes one window, subtracts the robust baseline and
// screens the residuals.
func (d *Detector) processWindow(ctx context.Context, window []float64, period int, opts Options, logger *slog.Logger) (windowResult, error) {
	seasonal, trend, err := d.Decomposer.Decompose(window, period)
	if err != nil {
		return windowResult{}, fmt.Errorf("decompose: %w", err)
	}

	baseline, err := d.baseline(window, opts)
	if err != nil {
		return windowResult{}, err
	}

	residuals := make([]float64, len(window))
	for i := range window {
		residuals[i] = window[i] - seasonal[i] - baseline[i]
	}

	maxOutliers := max(1, int(float64(len(window))*opts.MaxAnoms))
	outliers := esdTest(ctx, residuals, maxOutliers, opts.Alpha, opts.Direction, logger)

	result := windowResult{outliers: outliers}
	if opts.Expected {
		result.expected = make([]float64, len(window))
		for i := range window {
			result.expected[i] = math.Floor(seasonal[i] + trend[i])
		}
	}

	return result, nil
}
