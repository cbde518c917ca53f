package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/spikefang/internal/report"
	"github.com/Sumatoshi-tech/spikefang/pkg/config"
)

// FormatDiff renders a comparison as a colored textual diff.
const FormatDiff = "diff"

// CompareCommand holds configuration for the compare command.
type CompareCommand struct {
	configPath string
	format     string
	reportsDir string
	compressed bool
}

// NewCompareCommand creates the compare command.
func NewCompareCommand() *cobra.Command {
	cc := &CompareCommand{}

	cmd := &cobra.Command{
		Use:   "compare <older> <newer>",
		Short: "Compare two archived detection reports",
		Long: `Compare two archived detection reports by name.

Shows which anomaly indices were added, removed and kept between the two
runs, either as a colored diff or as JSON.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          cc.run,
	}

	cmd.Flags().StringVarP(&cc.configPath, "config", "c", "", "Config file path (default: ./spikefang.yaml)")
	cmd.Flags().StringVar(&cc.format, "format", FormatDiff, "Output format: diff or json")
	cmd.Flags().StringVar(&cc.reportsDir, "reports-dir", "", "Report archive directory")
	cmd.Flags().BoolVar(&cc.compressed, "compressed", false, "Read lz4-compressed reports")

	return cmd
}

func (cc *CompareCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cc.configPath)
	if err != nil {
		return err
	}

	store := resolveStore(cmd, cfg, cc.reportsDir, cc.compressed)

	older, err := store.Load(args[0])
	if err != nil {
		return err
	}

	newer, err := store.Load(args[1])
	if err != nil {
		return err
	}

	return cc.render(cmd.OutOrStdout(), older, newer)
}

// render writes the comparison in the selected format.
func (cc *CompareCommand) render(w io.Writer, older, newer *report.Report) error {
	switch cc.format {
	case FormatDiff:
		text, err := report.DiffText(older, newer)
		if err != nil {
			return err
		}

		fmt.Fprintln(w, text)

		return nil
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(report.Compare(older, newer))
	default:
		return fmt.Errorf("%w: %q (want diff or json)", ErrUnknownFormat, cc.format)
	}
}
