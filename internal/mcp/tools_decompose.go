package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/spikefang/pkg/stl"
)

// DecomposeResult carries the additive components returned by the
// spikefang_decompose tool. Series[i] == Seasonal[i] + Trend[i] +
// Remainder[i] holds for every position.
type DecomposeResult struct {
	Period    int       `json:"period"`
	Seasonal  []float64 `json:"seasonal"`
	Trend     []float64 `json:"trend"`
	Remainder []float64 `json:"remainder"`
}

// handleDecompose processes spikefang_decompose tool calls.
func handleDecompose(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input DecomposeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateSeriesInput(input.Series, input.Period)
	if err != nil {
		return errorResult(err)
	}

	decomposed, err := stl.Decompose(input.Series, input.Period)
	if err != nil {
		return errorResult(fmt.Errorf("decompose: %w", err))
	}

	return jsonResult(DecomposeResult{
		Period:    input.Period,
		Seasonal:  decomposed.Seasonal,
		Trend:     decomposed.Trend,
		Remainder: decomposed.Remainder,
	})
}
