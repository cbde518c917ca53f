package observability

import (
	"context"
	"fmt"
	"math"
	runtimemetrics "runtime/metrics"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricGoroutines = "spikefang.runtime.goroutines"
	metricGomaxprocs = "spikefang.runtime.gomaxprocs"

	// runtime/metrics sample names.
	sampleGoroutines = "/sched/goroutines:goroutines"
	sampleGomaxprocs = "/sched/gomaxprocs:threads"
)

// SchedulerMetrics exposes Go runtime scheduler metrics as OTel instruments.
// Goroutine and GOMAXPROCS values are read from runtime/metrics on each
// collection cycle.
type SchedulerMetrics struct {
	goroutines metric.Int64ObservableGauge
	gomaxprocs metric.Int64ObservableGauge
}

// NewSchedulerMetrics creates OTel instruments backed by runtime/metrics.
// The meter's periodic reader invokes the callback automatically; no manual
// polling is needed.
func NewSchedulerMetrics(mt metric.Meter) (*SchedulerMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &SchedulerMetrics{
		goroutines: b.gauge(metricGoroutines, "Current number of live goroutines", "{goroutine}"),
		gomaxprocs: b.gauge(metricGomaxprocs, "Current GOMAXPROCS setting", "{thread}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	_, err := mt.RegisterCallback(sm.observe, sm.goroutines, sm.gomaxprocs)
	if err != nil {
		return nil, fmt.Errorf("register scheduler metrics callback: %w", err)
	}

	return sm, nil
}

// observe reads runtime/metrics samples and reports them to the OTel observer.
func (sm *SchedulerMetrics) observe(_ context.Context, obs metric.Observer) error {
	samples := []runtimemetrics.Sample{
		{Name: sampleGoroutines},
		{Name: sampleGomaxprocs},
	}

	runtimemetrics.Read(samples)

	for idx := range samples {
		val, ok := sampleInt64Value(samples[idx].Value)
		if !ok {
			continue
		}

		switch samples[idx].Name {
		case sampleGoroutines:
			obs.ObserveInt64(sm.goroutines, val)
		case sampleGomaxprocs:
			obs.ObserveInt64(sm.gomaxprocs, val)
		}
	}

	return nil
}

// sampleInt64Value extracts an int64 from a runtime/metrics value,
// handling both Uint64 and Float64 kinds.
func sampleInt64Value(val runtimemetrics.Value) (int64, bool) {
	switch val.Kind() {
	case runtimemetrics.KindUint64:
		u := val.Uint64()
		if u > uint64(math.MaxInt64) {
			return math.MaxInt64, true
		}

		return int64(u), true
	case runtimemetrics.KindFloat64:
		return int64(val.Float64()), true
	case runtimemetrics.KindBad, runtimemetrics.KindFloat64Histogram:
		return 0, false
	default:
		return 0, false
	}
}
