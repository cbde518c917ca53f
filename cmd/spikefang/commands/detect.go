// Package commands implements CLI command handlers for spikefang.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/spikefang/internal/report"
	"github.com/Sumatoshi-tech/spikefang/internal/source"
	"github.com/Sumatoshi-tech/spikefang/pkg/anomaly"
	"github.com/Sumatoshi-tech/spikefang/pkg/config"
	"github.com/Sumatoshi-tech/spikefang/pkg/observability"
	"github.com/Sumatoshi-tech/spikefang/pkg/timeseries"
	"github.com/Sumatoshi-tech/spikefang/pkg/version"
)

// seriesLoader reads the input series for a detection run.
type seriesLoader func(ctx context.Context, cfg *config.Config, path, query string) (*timeseries.Series, error)

// observabilityInit builds the telemetry providers for a run.
type observabilityInit func(cfg observability.Config) (observability.Providers, error)

// Output formats accepted by the detect command.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

var (
	// ErrInputRequired is returned when neither a flag nor the config names a series source.
	ErrInputRequired = errors.New(
		"no series input. Use --input FILE (csv, json or one value per line),\n" +
			"--input db.duckdb --query 'SELECT ...', or set input.duckdb in the config",
	)

	// ErrPeriodRequired is returned when the seasonal period is not set anywhere.
	ErrPeriodRequired = errors.New("no seasonal period. Use --period N or set detection.period in the config")

	// ErrUnknownFormat indicates an unsupported output format.
	ErrUnknownFormat = errors.New("unknown output format")
)

// DetectCommand holds configuration and dependencies for the detect command.
type DetectCommand struct {
	configPath string
	inputPath  string
	query      string
	format     string
	saveName   string
	plotPath   string
	diagAddr   string
	silent     bool

	period         int
	maxAnoms       float64
	alpha          float64
	direction      string
	longtermPeriod int
	onlyLast       int
	threshold      string
	expected       bool
	breakout       bool

	loadSeries seriesLoader
	obsInit    observabilityInit
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	return newDetectCommandWithDeps(loadSeries, observability.Init)
}

// newDetectCommandWithDeps creates the detect command with injected
// dependencies for testing.
func newDetectCommandWithDeps(loader seriesLoader, obsInit observabilityInit) *cobra.Command {
	dc := &DetectCommand{loadSeries: loader, obsInit: obsInit}

	return dc.command()
}

func (dc *DetectCommand) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect anomalies in a seasonal time series",
		Long: `Detect anomalies in a seasonal time series with seasonal hybrid ESD.

The series is read from a file (csv, json or one value per line) or from a
DuckDB query, decomposed with robust STL, and screened for outliers with a
median/MAD ESD test. Results render as a table, JSON or YAML and can be
archived for later comparison.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          dc.run,
	}

	cmd.Flags().StringVarP(&dc.configPath, "config", "c", "", "Config file path (default: ./spikefang.yaml)")
	cmd.Flags().StringVarP(&dc.inputPath, "input", "i", "", "Series file path, or DuckDB database with --query")
	cmd.Flags().StringVar(&dc.query, "query", "", "SQL query returning the series (last column numeric)")
	cmd.Flags().StringVar(&dc.format, "format", "", "Output format: table, json or yaml")
	cmd.Flags().StringVar(&dc.saveName, "save", "", "Archive the report under this name")
	cmd.Flags().StringVar(&dc.plotPath, "plot", "", "Write an HTML chart to this path")
	cmd.Flags().StringVar(&dc.diagAddr, "diag-addr", "", "Serve /healthz, /readyz and /metrics on this address while running")
	cmd.Flags().BoolVar(&dc.silent, "silent", false, "Disable progress output")

	cmd.Flags().IntVar(&dc.period, "period", 0, "Seasonal period of the series in points")
	cmd.Flags().Float64Var(&dc.maxAnoms, "max-anoms", 0, "Maximum fraction of each window reported anomalous")
	cmd.Flags().Float64Var(&dc.alpha, "alpha", 0, "Significance level of the ESD test")
	cmd.Flags().StringVar(&dc.direction, "direction", "", "Deviation side to test: both, pos or neg")
	cmd.Flags().IntVar(&dc.longtermPeriod, "longterm-period", 0, "Window length in points (0 = whole series)")
	cmd.Flags().IntVar(&dc.onlyLast, "only-last", 0, "Report only anomalies within the trailing N points")
	cmd.Flags().StringVar(&dc.threshold, "threshold", "", "Magnitude filter: med_max, p95 or p99")
	cmd.Flags().BoolVar(&dc.expected, "expected", false, "Include expected values derived from seasonal plus trend")
	cmd.Flags().BoolVar(&dc.breakout, "breakout", false, "Use piecewise median baselines between level shifts")

	return cmd
}

func (dc *DetectCommand) run(cmd *cobra.Command, _ []string) error {
	silent := dc.isSilent(cmd)
	progressWriter := cmd.ErrOrStderr()

	cfg, err := config.LoadConfig(dc.configPath)
	if err != nil {
		return err
	}

	providers, err := dc.obsInit(cfg.TelemetryOptions(observability.ModeCLI, version.Version))
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	diag, err := dc.startDiagnostics(cfg, providers, silent, progressWriter)
	if err != nil {
		return err
	}

	if diag != nil {
		defer func() {
			closeErr := diag.Close()
			if closeErr != nil {
				providers.Logger.Warn("diagnostics shutdown failed", "error", closeErr)
			}
		}()
	}

	inputPath, query, err := dc.resolveInput(cfg)
	if err != nil {
		return err
	}

	period := dc.resolvePeriod(cfg)
	if period == 0 {
		return ErrPeriodRequired
	}

	ctx := cmd.Context()

	progressf(silent, progressWriter, "loading series from %s", inputPath)

	series, err := dc.loadSeries(ctx, cfg, inputPath, query)
	if err != nil {
		return err
	}

	progressf(silent, progressWriter, "loaded %s points", humanize.Comma(int64(series.Len())))

	opts := dc.buildOptions(cmd, cfg)

	result, elapsed, err := dc.detect(ctx, providers, opts, series, period)
	if err != nil {
		return err
	}

	rep := report.Build(series.Name, series.Values, period, result)

	err = dc.writeOutputs(cmd.OutOrStdout(), cfg, rep, series.Values)
	if err != nil {
		return err
	}

	progressf(silent, progressWriter, "detect completed in %s: %d anomalies in %s points",
		elapsed.Round(time.Millisecond), len(rep.Anomalies), humanize.Comma(int64(series.Len())))

	return nil
}

// detect runs the detector with tracing, logging and metrics wired in.
func (dc *DetectCommand) detect(
	ctx context.Context,
	providers observability.Providers,
	opts anomaly.Options,
	series *timeseries.Series,
	period int,
) (*anomaly.Result, time.Duration, error) {
	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, 0, err
	}

	detection, err := observability.NewDetectionMetrics(providers.Meter)
	if err != nil {
		return nil, 0, err
	}

	detector := anomaly.New()
	detector.Tracer = providers.Tracer
	detector.Logger = providers.Logger

	startedAt := time.Now()

	result, err := detector.Detect(ctx, series.Values, period, opts)

	elapsed := time.Since(startedAt)

	status := statusOK
	if err != nil {
		status = statusError
	}

	red.RecordRequest(ctx, "cli.detect", status, elapsed)

	if err != nil {
		return nil, elapsed, fmt.Errorf("detect %s: %w", series.Name, err)
	}

	detection.RecordRun(ctx, observability.DetectionStats{
		Points:          int64(series.Len()),
		Windows:         result.Windows,
		WindowDurations: result.WindowDurations,
		Anomalies:       int64(len(result.Indices)),
		Direction:       string(opts.Direction),
	})

	providers.Logger.InfoContext(ctx, "detect.complete",
		slog.String("series", series.Name),
		slog.Int("points", series.Len()),
		slog.Int("windows", result.Windows),
		slog.Int("anomalies", len(result.Indices)),
		slog.Duration("elapsed", elapsed),
	)

	return result, elapsed, nil
}

// buildOptions merges config defaults with explicitly set flags. A flag only
// overrides the config when the user passed it on the command line.
func (dc *DetectCommand) buildOptions(cmd *cobra.Command, cfg *config.Config) anomaly.Options {
	opts := cfg.DetectOptions()

	if cmd.Flags().Changed("max-anoms") {
		opts.MaxAnoms = dc.maxAnoms
	}

	if cmd.Flags().Changed("alpha") {
		opts.Alpha = dc.alpha
	}

	if cmd.Flags().Changed("direction") {
		opts.Direction = anomaly.Direction(dc.direction)
	}

	if cmd.Flags().Changed("longterm-period") {
		opts.LongtermPeriod = dc.longtermPeriod
	}

	if cmd.Flags().Changed("only-last") {
		opts.OnlyLast = dc.onlyLast
	}

	if cmd.Flags().Changed("threshold") {
		opts.Threshold = anomaly.Threshold(dc.threshold)
	}

	if cmd.Flags().Changed("expected") {
		opts.Expected = dc.expected
	}

	if cmd.Flags().Changed("breakout") {
		if dc.breakout {
			if opts.Breakout == nil {
				breakoutCfg := anomaly.DefaultBreakoutConfig()
				opts.Breakout = &breakoutCfg
			}
		} else {
			opts.Breakout = nil
		}
	}

	return opts
}

// resolveInput picks the series source: flags first, then the config file.
func (dc *DetectCommand) resolveInput(cfg *config.Config) (string, string, error) {
	path, query := dc.inputPath, dc.query
	if path == "" {
		path, query = cfg.Input.DuckDB, cfg.Input.Query
	}

	if path == "" {
		return "", "", ErrInputRequired
	}

	return path, query, nil
}

func (dc *DetectCommand) resolvePeriod(cfg *config.Config) int {
	if dc.period > 0 {
		return dc.period
	}

	return cfg.Detection.Period
}

func (dc *DetectCommand) resolveFormat(cfg *config.Config) string {
	if dc.format != "" {
		return dc.format
	}

	if cfg.Reports.Format != "" {
		return cfg.Reports.Format
	}

	return FormatTable
}

func (dc *DetectCommand) startDiagnostics(
	cfg *config.Config,
	providers observability.Providers,
	silent bool,
	progressWriter io.Writer,
) (*observability.DiagnosticsServer, error) {
	addr := dc.diagAddr
	if addr == "" {
		addr = cfg.Telemetry.DiagAddr
	}

	if addr == "" {
		return nil, nil
	}

	diag, err := observability.NewDiagnosticsServer(addr, providers)
	if err != nil {
		return nil, err
	}

	progressf(silent, progressWriter, "diagnostics listening on %s", diag.Addr())

	return diag, nil
}

// writeOutputs renders the report and handles the optional archive and plot.
func (dc *DetectCommand) writeOutputs(w io.Writer, cfg *config.Config, rep *report.Report, values []float64) error {
	err := renderReport(w, rep, dc.resolveFormat(cfg))
	if err != nil {
		return err
	}

	if dc.saveName != "" {
		store := report.NewStore(cfg.Reports.Dir, cfg.Reports.Compress)

		err = store.Save(dc.saveName, rep)
		if err != nil {
			return fmt.Errorf("save report %s: %w", dc.saveName, err)
		}
	}

	if dc.plotPath != "" {
		err = writePlotFile(dc.plotPath, values, rep)
		if err != nil {
			return err
		}
	}

	return nil
}

// renderReport writes the report to w in the requested format.
func renderReport(w io.Writer, rep *report.Report, format string) error {
	switch format {
	case FormatTable:
		return report.RenderTable(w, rep)
	case FormatJSON:
		return report.RenderJSON(w, rep)
	case FormatYAML:
		return report.RenderYAML(w, rep)
	default:
		return fmt.Errorf("%w: %q (want table, json or yaml)", ErrUnknownFormat, format)
	}
}

func writePlotFile(path string, values []float64, rep *report.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	defer file.Close()

	return report.WritePlot(file, values, rep)
}

// loadSeries is the production series loader. A non-empty query turns the
// input path into a DuckDB database, otherwise the path is read as a file.
func loadSeries(ctx context.Context, cfg *config.Config, path, query string) (*timeseries.Series, error) {
	if query != "" {
		return loadDuckDBSeries(ctx, path, query)
	}

	loader := timeseries.NewLoader()
	if cfg.Input.MaxBytes > 0 {
		loader.MaxBytes = cfg.Input.MaxBytes
	}

	return loader.Load(path)
}

func loadDuckDBSeries(ctx context.Context, path, query string) (*timeseries.Series, error) {
	db, err := source.OpenDuckDB(path)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = db.Close()
	}()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return db.Query(ctx, name, query)
}

// isSilent reports whether progress output is disabled, either by the
// command's own flag or by the persistent quiet flag.
func (dc *DetectCommand) isSilent(cmd *cobra.Command) bool {
	if dc.silent {
		return true
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return false
	}

	return quiet
}

// progressf prints a progress message unless silent mode is on.
func progressf(silent bool, writer io.Writer, format string, args ...any) {
	if silent {
		return
	}

	fmt.Fprintf(writer, "progress: "+format+"\n", args...)
}
