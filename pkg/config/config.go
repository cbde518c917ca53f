// Package config provides YAML-based project configuration for spikefang.
package config

import (
	"errors"

	"github.com/Sumatoshi-tech/spikefang/pkg/breakout"
)

// Config is the top-level configuration struct for spikefang.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Detection DetectionConfig `mapstructure:"detection"`
	Breakout  BreakoutConfig  `mapstructure:"breakout"`
	Input     InputConfig     `mapstructure:"input"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DetectionConfig holds detection parameters used when the matching CLI
// flag is not given.
type DetectionConfig struct {
	MaxAnoms       float64 `mapstructure:"max_anoms"`
	Alpha          float64 `mapstructure:"alpha"`
	Direction      string  `mapstructure:"direction"`
	Period         int     `mapstructure:"period"`
	LongtermPeriod int     `mapstructure:"longterm_period"`
	OnlyLast       int     `mapstructure:"only_last"`
	Threshold      string  `mapstructure:"threshold"`
	Expected       bool    `mapstructure:"expected"`
}

// BreakoutConfig holds baseline segmentation settings.
type BreakoutConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Method  string  `mapstructure:"method"`
	MinSize int     `mapstructure:"min_size"`
	Beta    float64 `mapstructure:"beta"`
	Degree  int     `mapstructure:"degree"`
}

// InputConfig holds series loading settings.
type InputConfig struct {
	MaxBytes int64  `mapstructure:"max_bytes"`
	DuckDB   string `mapstructure:"duckdb"`
	Query    string `mapstructure:"query"`
}

// ReportsConfig holds report store and rendering settings.
type ReportsConfig struct {
	Dir      string `mapstructure:"dir"`
	Compress bool   `mapstructure:"compress"`
	Format   string `mapstructure:"format"`
}

// TelemetryConfig holds OTLP export and logging settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
	TraceVerbose bool    `mapstructure:"trace_verbose"`
	LogLevel     string  `mapstructure:"log_level"`
	LogJSON      bool    `mapstructure:"log_json"`
	DiagAddr     string  `mapstructure:"diag_addr"`
}

// maxAnomsLimit is the upper bound for the anomaly fraction.
const maxAnomsLimit = 0.49

// maxBreakoutDegree is the highest supported penalty degree.
const maxBreakoutDegree = 2

// Sentinel errors for configuration validation.
var (
	// ErrInvalidMaxAnoms indicates the anomaly fraction is out of range.
	ErrInvalidMaxAnoms = errors.New("detection.max_anoms must be in (0, 0.49]")
	// ErrInvalidAlpha indicates the significance level is out of range.
	ErrInvalidAlpha = errors.New("detection.alpha must be in (0, 1)")
	// ErrInvalidDirection indicates an unknown detection direction.
	ErrInvalidDirection = errors.New("detection.direction must be both, pos or neg")
	// ErrInvalidPeriod indicates the seasonal period is below 2.
	ErrInvalidPeriod = errors.New("detection.period must be at least 2")
	// ErrInvalidLongtermPeriod indicates a negative window length.
	ErrInvalidLongtermPeriod = errors.New("detection.longterm_period must be non-negative")
	// ErrInvalidOnlyLast indicates a negative recency filter.
	ErrInvalidOnlyLast = errors.New("detection.only_last must be non-negative")
	// ErrInvalidThreshold indicates an unknown magnitude threshold.
	ErrInvalidThreshold = errors.New("detection.threshold must be empty, med_max, p95 or p99")
	// ErrInvalidBreakoutMethod indicates an unknown segmentation method.
	ErrInvalidBreakoutMethod = errors.New("breakout.method must be multi or amoc")
	// ErrInvalidBreakoutMinSize indicates the segment length is below the floor.
	ErrInvalidBreakoutMinSize = errors.New("breakout.min_size must be at least 2")
	// ErrInvalidBreakoutBeta indicates a negative segment penalty.
	ErrInvalidBreakoutBeta = errors.New("breakout.beta must be non-negative")
	// ErrInvalidBreakoutDegree indicates a penalty degree outside [0, 2].
	ErrInvalidBreakoutDegree = errors.New("breakout.degree must be between 0 and 2")
	// ErrInvalidMaxBytes indicates a negative input size cap.
	ErrInvalidMaxBytes = errors.New("input.max_bytes must be non-negative")
	// ErrInvalidReportFormat indicates an unknown report format.
	ErrInvalidReportFormat = errors.New("reports.format must be table, json or yaml")
	// ErrInvalidSampleRatio indicates a trace sampling ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("telemetry.log_level must be debug, info, warn or error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}

	if err := c.validateBreakout(); err != nil {
		return err
	}

	if c.Input.MaxBytes < 0 {
		return ErrInvalidMaxBytes
	}

	if err := c.validateReports(); err != nil {
		return err
	}

	return c.validateTelemetry()
}

func (c *Config) validateDetection() error {
	d := c.Detection

	// Zero numeric values mean "use the default" and pass validation.
	if d.MaxAnoms < 0 || d.MaxAnoms > maxAnomsLimit {
		return ErrInvalidMaxAnoms
	}

	if d.Alpha < 0 || d.Alpha >= 1 {
		return ErrInvalidAlpha
	}

	switch d.Direction {
	case "", "both", "pos", "neg":
	default:
		return ErrInvalidDirection
	}

	if d.Period != 0 && d.Period < 2 {
		return ErrInvalidPeriod
	}

	if d.LongtermPeriod < 0 {
		return ErrInvalidLongtermPeriod
	}

	if d.OnlyLast < 0 {
		return ErrInvalidOnlyLast
	}

	switch d.Threshold {
	case "", "med_max", "p95", "p99":
	default:
		return ErrInvalidThreshold
	}

	return nil
}

func (c *Config) validateBreakout() error {
	b := c.Breakout

	switch b.Method {
	case "", "multi", "amoc":
	default:
		return ErrInvalidBreakoutMethod
	}

	if b.MinSize != 0 && b.MinSize < breakout.MinSegmentFloor {
		return ErrInvalidBreakoutMinSize
	}

	if b.Beta < 0 {
		return ErrInvalidBreakoutBeta
	}

	if b.Degree < 0 || b.Degree > maxBreakoutDegree {
		return ErrInvalidBreakoutDegree
	}

	return nil
}

func (c *Config) validateReports() error {
	switch c.Reports.Format {
	case "", "table", "json", "yaml":
	default:
		return ErrInvalidReportFormat
	}

	return nil
}

func (c *Config) validateTelemetry() error {
	t := c.Telemetry

	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	switch t.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}
