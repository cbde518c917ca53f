package anomaly

import (
	"fmt"

	"github.com/Sumatoshi-tech/spikefang/pkg/alg/stats"
)

// baseline returns the per-index level subtracted from each window before
// residual screening: the window median broadcast everywhere, or segment
// medians between detected level shifts when breakout segmentation is on.
func (d *Detector) baseline(window []float64, opts Options) ([]float64, error) {
	if opts.Breakout == nil {
		return medianBaseline(window), nil
	}

	return d.segmentedBaseline(window, *opts.Breakout)
}

func medianBaseline(window []float64) []float64 {
	med := stats.Median(window)

	out := make([]float64, len(window))
	for i := range out {
		out[i] = med
	}

	return out
}

func (d *Detector) segmentedBaseline(window []float64, cfg BreakoutConfig) ([]float64, error) {
	locs, err := d.Breakouts.Breakpoints(window, cfg)
	if err != nil {
		return nil, fmt.Errorf("breakout segmentation: %w", err)
	}

	if len(locs) == 0 || locs[len(locs)-1] != len(window) {
		locs = append(locs, len(window))
	}

	out := make([]float64, len(window))
	prev := 0

	for _, loc := range locs {
		med := stats.Median(window[prev:loc])
		for i := prev; i < loc; i++ {
			out[i] = med
		}

		prev = loc
	}

	return out, nil
}
