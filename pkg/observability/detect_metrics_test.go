package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/spikefang/pkg/observability"
)

func setupDetectionMeter(t *testing.T) (*observability.DetectionMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	dm, err := observability.NewDetectionMetrics(meter)
	require.NoError(t, err)

	return dm, reader
}

func TestNewDetectionMetrics(t *testing.T) {
	t.Parallel()

	dm, _ := setupDetectionMeter(t)
	assert.NotNil(t, dm)
}

func TestDetectionMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	dm, reader := setupDetectionMeter(t)
	ctx := context.Background()

	dm.RecordRun(ctx, observability.DetectionStats{
		Points:          1000,
		Windows:         4,
		WindowDurations: []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond},
		Anomalies:       12,
		Direction:       "both",
	})

	rm := collectMetrics(t, reader)

	series := findMetric(rm, "spikefang.detect.series.total")
	require.NotNil(t, series, "series counter should exist")

	points := findMetric(rm, "spikefang.detect.points.total")
	require.NotNil(t, points, "points counter should exist")

	windows := findMetric(rm, "spikefang.detect.windows.total")
	require.NotNil(t, windows, "windows counter should exist")

	windowDur := findMetric(rm, "spikefang.detect.window.duration.seconds")
	require.NotNil(t, windowDur, "window duration histogram should exist")

	// Verify histogram has data points with correct count.
	hist, ok := windowDur.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram data type")
	require.NotEmpty(t, hist.DataPoints)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count, "should have 3 duration recordings")

	anomalies := findMetric(rm, "spikefang.detect.anomalies.total")
	require.NotNil(t, anomalies, "anomalies counter should exist")

	// The anomalies counter carries the detection direction.
	sum, ok := anomalies.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data type")
	require.NotEmpty(t, sum.DataPoints)
	assert.Equal(t, int64(12), sum.DataPoints[0].Value)

	dir, ok := sum.DataPoints[0].Attributes.Value("detect.direction")
	require.True(t, ok, "detect.direction attribute should be set")
	assert.Equal(t, "both", dir.AsString())
}

func TestDetectionMetrics_RecordRun_NilReceiver(t *testing.T) {
	t.Parallel()

	var dm *observability.DetectionMetrics

	// Should not panic.
	dm.RecordRun(context.Background(), observability.DetectionStats{
		Points:  10,
		Windows: 1,
	})
}
