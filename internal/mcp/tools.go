package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameDetect    = "spikefang_detect"
	ToolNameDecompose = "spikefang_decompose"
)

// Input size limits.
const (
	// MaxSeriesPoints is the maximum accepted series length per tool call.
	MaxSeriesPoints = 1 << 20
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptySeries indicates the series parameter is empty.
	ErrEmptySeries = errors.New("series parameter is required and must not be empty")
	// ErrSeriesTooLarge indicates the series exceeds the length limit.
	ErrSeriesTooLarge = errors.New("series exceeds maximum length")
	// ErrPeriodTooSmall indicates the period parameter is below the minimum.
	ErrPeriodTooSmall = errors.New("period must be at least 2")
)

// Input types (auto-generate JSON schemas via struct tags).

// DetectInput is the input schema for the spikefang_detect tool.
type DetectInput struct {
	Alpha          float64   `json:"alpha,omitempty"           jsonschema:"significance level of the ESD test (default 0.05)"`
	Breakout       bool      `json:"breakout,omitempty"        jsonschema:"use piecewise median baselines between detected level shifts"`
	Direction      string    `json:"direction,omitempty"       jsonschema:"deviation side to test: both pos or neg (default both)"`
	Expected       bool      `json:"expected,omitempty"        jsonschema:"include expected values derived from seasonal plus trend"`
	LongtermPeriod int       `json:"longterm_period,omitempty" jsonschema:"window length in points for piecewise detection (default: whole series)"`
	MaxAnoms       float64   `json:"max_anoms,omitempty"       jsonschema:"maximum fraction of each window reported anomalous (default 0.1)"`
	OnlyLast       int       `json:"only_last,omitempty"       jsonschema:"report only anomalies within the trailing N points"`
	Period         int       `json:"period"                    jsonschema:"seasonal period of the series in points"`
	Series         []float64 `json:"series"                    jsonschema:"time series values in observation order"`
	Threshold      string    `json:"threshold,omitempty"       jsonschema:"optional magnitude filter: med_max p95 or p99"`
}

// DecomposeInput is the input schema for the spikefang_decompose tool.
type DecomposeInput struct {
	Period int       `json:"period" jsonschema:"seasonal period of the series in points"`
	Series []float64 `json:"series" jsonschema:"time series values in observation order"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateSeriesInput checks common series input constraints.
func validateSeriesInput(series []float64, period int) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}

	if len(series) > MaxSeriesPoints {
		return fmt.Errorf("%w: %d points (max %d)", ErrSeriesTooLarge, len(series), MaxSeriesPoints)
	}

	if period < 2 {
		return fmt.Errorf("%w: got %d", ErrPeriodTooSmall, period)
	}

	return nil
}
