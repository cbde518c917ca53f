package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/spikefang/pkg/anomaly"
)

// handleDetect processes spikefang_detect tool calls.
func handleDetect(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input DetectInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateSeriesInput(input.Series, input.Period)
	if err != nil {
		return errorResult(err)
	}

	result, err := anomaly.Detect(ctx, input.Series, input.Period, detectOptions(input))
	if err != nil {
		return errorResult(fmt.Errorf("detect: %w", err))
	}

	return jsonResult(result)
}

// detectOptions maps tool input onto detection options. Zero-valued
// numeric fields keep the defaults.
func detectOptions(input DetectInput) anomaly.Options {
	opts := anomaly.DefaultOptions()

	if input.MaxAnoms > 0 {
		opts.MaxAnoms = input.MaxAnoms
	}

	if input.Alpha > 0 {
		opts.Alpha = input.Alpha
	}

	if input.Direction != "" {
		opts.Direction = anomaly.Direction(input.Direction)
	}

	opts.LongtermPeriod = input.LongtermPeriod
	opts.OnlyLast = input.OnlyLast
	opts.Threshold = anomaly.Threshold(input.Threshold)
	opts.Expected = input.Expected

	if input.Breakout {
		cfg := anomaly.DefaultBreakoutConfig()
		opts.Breakout = &cfg
	}

	return opts
}
