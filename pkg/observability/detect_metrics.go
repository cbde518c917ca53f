package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSeriesTotal    = "spikefang.detect.series.total"
	metricPointsTotal    = "spikefang.detect.points.total"
	metricWindowsTotal   = "spikefang.detect.windows.total"
	metricWindowDuration = "spikefang.detect.window.duration.seconds"
	metricAnomaliesTotal = "spikefang.detect.anomalies.total"

	attrDirection = "detect.direction"
)

// DetectionMetrics holds OTel instruments for detection-specific metrics.
type DetectionMetrics struct {
	seriesTotal    metric.Int64Counter
	pointsTotal    metric.Int64Counter
	windowsTotal   metric.Int64Counter
	windowDuration metric.Float64Histogram
	anomaliesTotal metric.Int64Counter
}

// DetectionStats holds the statistics for a single detection run,
// decoupled from the detector types.
type DetectionStats struct {
	Points          int64
	Windows         int
	WindowDurations []time.Duration
	Anomalies       int64
	Direction       string
}

// NewDetectionMetrics creates detection metric instruments from the given meter.
func NewDetectionMetrics(mt metric.Meter) (*DetectionMetrics, error) {
	b := newMetricBuilder(mt)

	dm := &DetectionMetrics{
		seriesTotal:    b.counter(metricSeriesTotal, "Total series analyzed", "{series}"),
		pointsTotal:    b.counter(metricPointsTotal, "Total series points processed", "{point}"),
		windowsTotal:   b.counter(metricWindowsTotal, "Total detection windows processed", "{window}"),
		windowDuration: b.histogram(metricWindowDuration, "Per-window processing duration in seconds", "s", durationBucketBoundaries...),
		anomaliesTotal: b.counter(metricAnomaliesTotal, "Total anomalies flagged", "{anomaly}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return dm, nil
}

// RecordRun records statistics for a completed detection run.
// Safe to call on a nil receiver (no-op).
func (dm *DetectionMetrics) RecordRun(ctx context.Context, stats DetectionStats) {
	if dm == nil {
		return
	}

	dm.seriesTotal.Add(ctx, 1)
	dm.pointsTotal.Add(ctx, stats.Points)
	dm.windowsTotal.Add(ctx, int64(stats.Windows))

	for _, d := range stats.WindowDurations {
		dm.windowDuration.Record(ctx, d.Seconds())
	}

	dm.anomaliesTotal.Add(ctx, stats.Anomalies, metric.WithAttributes(
		attribute.String(attrDirection, stats.Direction),
	))
}
