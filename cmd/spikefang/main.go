// Package main provides the entry point for the spikefang CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/spikefang/cmd/spikefang/commands"
	"github.com/Sumatoshi-tech/spikefang/pkg/version"
)

var quiet bool

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "spikefang",
		Short: "Spikefang Anomaly Detection - Seasonal hybrid ESD for time series",
		Long: `Spikefang finds anomalies in seasonal time series.

Commands:
  detect    Run seasonal hybrid ESD detection over a series
  plot      Render an archived report as an HTML chart
  compare   Compare two archived detection reports
  validate  Validate a config file against the config schema
  mcp       Start an MCP server exposing detection tools
  version   Print build information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	// Add commands.
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(commands.NewCompareCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "spikefang %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
