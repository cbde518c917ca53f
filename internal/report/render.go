package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const valueDigits = 2

// RenderTable writes the report as a terminal table with a summary line.
func RenderTable(w io.Writer, r *Report) error {
	summary := fmt.Sprintf("series %q: %d anomalies in %d points (period %d, %d windows)",
		r.Series, len(r.Anomalies), r.Points, r.Period, r.Windows)

	if _, err := fmt.Fprintln(w, summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if len(r.Anomalies) == 0 {
		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false

	hasExpected := false

	for _, a := range r.Anomalies {
		if a.Expected != nil {
			hasExpected = true

			break
		}
	}

	header := table.Row{"index", "value"}
	if hasExpected {
		header = append(header, "expected")
	}

	tbl.AppendHeader(header)

	for _, a := range r.Anomalies {
		row := table.Row{strconv.Itoa(a.Index), humanize.CommafWithDigits(a.Value, valueDigits)}
		if hasExpected {
			expected := ""
			if a.Expected != nil {
				expected = humanize.CommafWithDigits(*a.Expected, valueDigits)
			}

			row = append(row, expected)
		}

		tbl.AppendRow(row)
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("total: %d", len(r.Anomalies))})
	tbl.Render()

	return nil
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("encode report json: %w", err)
	}

	return nil
}

// RenderYAML writes the report as a YAML document.
func RenderYAML(w io.Writer, r *Report) error {
	encoder := yaml.NewEncoder(w)

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("encode report yaml: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("flush report yaml: %w", err)
	}

	return nil
}

func marshalYAML(r *Report) (string, error) {
	var sb strings.Builder
	if err := RenderYAML(&sb, r); err != nil {
		return "", err
	}

	return sb.String(), nil
}
