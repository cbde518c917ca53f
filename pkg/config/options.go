package config

import (
	"log/slog"

	"github.com/Sumatoshi-tech/spikefang/pkg/anomaly"
	"github.com/Sumatoshi-tech/spikefang/pkg/observability"
)

// DetectOptions converts the detection and breakout sections into detector
// options. Zero numeric fields keep the detector defaults, so a partial
// config only overrides what it names.
func (c *Config) DetectOptions() anomaly.Options {
	opts := anomaly.DefaultOptions()

	d := c.Detection

	if d.MaxAnoms > 0 {
		opts.MaxAnoms = d.MaxAnoms
	}

	if d.Alpha > 0 {
		opts.Alpha = d.Alpha
	}

	if d.Direction != "" {
		opts.Direction = anomaly.Direction(d.Direction)
	}

	opts.LongtermPeriod = d.LongtermPeriod
	opts.OnlyLast = d.OnlyLast
	opts.Threshold = anomaly.Threshold(d.Threshold)
	opts.Expected = d.Expected

	if c.Breakout.Enabled {
		opts.Breakout = c.breakoutConfig()
	}

	return opts
}

func (c *Config) breakoutConfig() *anomaly.BreakoutConfig {
	bc := anomaly.DefaultBreakoutConfig()

	b := c.Breakout

	if b.Method != "" {
		bc.Method = b.Method
	}

	if b.MinSize > 0 {
		bc.MinSize = b.MinSize
	}

	if b.Beta > 0 {
		bc.Beta = b.Beta
	}

	// Degree is always applied because 0 selects the constant penalty.
	bc.Degree = b.Degree

	return &bc
}

// TelemetryOptions converts the telemetry section into an observability
// config for the given application mode and binary version.
func (c *Config) TelemetryOptions(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()

	t := c.Telemetry

	obs.ServiceVersion = version
	obs.Mode = mode
	obs.OTLPEndpoint = t.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(t.OTLPHeaders)
	obs.OTLPInsecure = t.OTLPInsecure
	obs.SampleRatio = t.SampleRatio
	obs.DebugTrace = t.DebugTrace
	obs.TraceVerbose = t.TraceVerbose
	obs.LogLevel = ParseLogLevel(t.LogLevel)
	obs.LogJSON = t.LogJSON

	return obs
}

// ParseLogLevel maps a config log level string to a slog level. Unknown
// strings map to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
