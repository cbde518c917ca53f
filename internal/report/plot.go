package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	plotLineWidth  = 2
	plotMarkerSize = 10
	anomalyColor   = "#d62728"
)

// buildPlotData returns the x labels, the raw series and a marker series
// that is empty everywhere except at anomalies.
func buildPlotData(values []float64, r *Report) (labels []string, seriesData, anomalyData []opts.LineData) {
	anomalySet := make(map[int]bool, len(r.Anomalies))
	for _, a := range r.Anomalies {
		anomalySet[a.Index] = true
	}

	labels = make([]string, len(values))
	seriesData = make([]opts.LineData, len(values))
	anomalyData = make([]opts.LineData, len(values))

	for i, v := range values {
		labels[i] = strconv.Itoa(i)
		seriesData[i] = opts.LineData{Value: v}

		if anomalySet[i] {
			anomalyData[i] = opts.LineData{
				Value:      v,
				Symbol:     "circle",
				SymbolSize: plotMarkerSize,
			}
		} else {
			anomalyData[i] = opts.LineData{Value: "-"}
		}
	}

	return labels, seriesData, anomalyData
}

// WritePlot renders an HTML line chart of the series with anomaly markers.
func WritePlot(w io.Writer, values []float64, r *Report) error {
	labels, seriesData, anomalyData := buildPlotData(values, r)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: r.Series,
			Width:     "100%",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s anomalies", r.Series)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "index"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(labels)
	line.AddSeries(r.Series, seriesData,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: plotLineWidth}),
	)
	line.AddSeries("anomalies", anomalyData,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: anomalyColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: 0, Opacity: opts.Float(0)}),
	)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}
