package config

import (
	"github.com/Sumatoshi-tech/spikefang/pkg/breakout"
	"github.com/Sumatoshi-tech/spikefang/pkg/timeseries"
)

// Detection default values.
const (
	DefaultDetectionMaxAnoms       = 0.10
	DefaultDetectionAlpha          = 0.05
	DefaultDetectionDirection      = "both"
	DefaultDetectionPeriod         = 0
	DefaultDetectionLongtermPeriod = 0
	DefaultDetectionOnlyLast       = 0
	DefaultDetectionThreshold      = ""
	DefaultDetectionExpected       = false
)

// Breakout segmentation defaults.
const (
	DefaultBreakoutEnabled = false
	DefaultBreakoutMethod  = "multi"
	DefaultBreakoutMinSize = breakout.DefaultMinSize
	DefaultBreakoutBeta    = breakout.DefaultBeta
	DefaultBreakoutDegree  = breakout.DefaultDegree
)

// Input defaults.
const (
	DefaultInputMaxBytes = timeseries.DefaultMaxBytes
	DefaultInputDuckDB   = ""
	DefaultInputQuery    = ""
)

// Report defaults.
const (
	DefaultReportsDir      = ".spikefang/reports"
	DefaultReportsCompress = false
	DefaultReportsFormat   = "table"
)

// Telemetry defaults.
const (
	DefaultTelemetryOTLPEndpoint = ""
	DefaultTelemetryOTLPHeaders  = ""
	DefaultTelemetryOTLPInsecure = false
	DefaultTelemetrySampleRatio  = 1.0
	DefaultTelemetryDebugTrace   = false
	DefaultTelemetryTraceVerbose = false
	DefaultTelemetryLogLevel     = "info"
	DefaultTelemetryLogJSON      = false
	DefaultTelemetryDiagAddr     = ""
)
