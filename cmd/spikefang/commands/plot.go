package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/spikefang/internal/report"
	"github.com/Sumatoshi-tech/spikefang/pkg/config"
	"github.com/Sumatoshi-tech/spikefang/pkg/timeseries"
)

// ErrSeriesRequired is returned when plot is invoked without the series file.
var ErrSeriesRequired = errors.New("no series file. Use --input FILE with the series the report was built from")

// PlotCommand holds configuration for the plot command.
type PlotCommand struct {
	configPath string
	inputPath  string
	outputPath string
	reportsDir string
	compressed bool
}

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	pc := &PlotCommand{}

	cmd := &cobra.Command{
		Use:   "plot <report-name>",
		Short: "Render an archived report as an HTML chart",
		Long: `Render an archived detection report as an interactive HTML chart.

The chart overlays detected anomalies on the original series, so the series
file the report was built from must be passed with --input.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          pc.run,
	}

	cmd.Flags().StringVarP(&pc.configPath, "config", "c", "", "Config file path (default: ./spikefang.yaml)")
	cmd.Flags().StringVarP(&pc.inputPath, "input", "i", "", "Series file the report was built from")
	cmd.Flags().StringVarP(&pc.outputPath, "output", "o", "", "Output HTML path (default: <report-name>.html)")
	cmd.Flags().StringVar(&pc.reportsDir, "reports-dir", "", "Report archive directory")
	cmd.Flags().BoolVar(&pc.compressed, "compressed", false, "Read lz4-compressed reports")

	return cmd
}

func (pc *PlotCommand) run(cmd *cobra.Command, args []string) error {
	if pc.inputPath == "" {
		return ErrSeriesRequired
	}

	cfg, err := config.LoadConfig(pc.configPath)
	if err != nil {
		return err
	}

	name := args[0]

	rep, err := resolveStore(cmd, cfg, pc.reportsDir, pc.compressed).Load(name)
	if err != nil {
		return err
	}

	series, err := timeseries.NewLoader().Load(pc.inputPath)
	if err != nil {
		return err
	}

	output := pc.outputPath
	if output == "" {
		output = name + ".html"
	}

	err = writePlotFile(output, series.Values, rep)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)

	return nil
}

// resolveStore merges the report archive location from the config with any
// explicitly set flags.
func resolveStore(cmd *cobra.Command, cfg *config.Config, flagDir string, flagCompressed bool) *report.Store {
	dir := cfg.Reports.Dir
	if cmd.Flags().Changed("reports-dir") {
		dir = flagDir
	}

	compressed := cfg.Reports.Compress
	if cmd.Flags().Changed("compressed") {
		compressed = flagCompressed
	}

	return report.NewStore(dir, compressed)
}
