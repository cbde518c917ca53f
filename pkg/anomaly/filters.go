package anomaly

import (
	"github.com/Sumatoshi-tech/spikefang/pkg/alg/stats"
)

// thresholdFilter drops window-local anomaly indices whose raw value falls
// below an aggregate of per-period chunk maxima. With ThresholdNone the
// indices pass through untouched.
func thresholdFilter(window []float64, indices []int, period int, threshold Threshold) []int {
	if threshold == ThresholdNone || len(indices) == 0 {
		return indices
	}

	maxima := chunkMaxima(window, period)

	var cutoff float64

	switch threshold {
	case ThresholdMedMax:
		cutoff = stats.Median(maxima)
	case ThresholdP95:
		cutoff = stats.Percentile(maxima, stats.PercentileP95)
	case ThresholdP99:
		cutoff = stats.Percentile(maxima, stats.PercentileP99)
	}

	kept := make([]int, 0, len(indices))
	for _, idx := range indices {
		if window[idx] >= cutoff {
			kept = append(kept, idx)
		}
	}

	return kept
}

// chunkMaxima splits the window into period-sized chunks and returns each
// chunk's maximum. The final chunk may be shorter.
func chunkMaxima(window []float64, period int) []float64 {
	maxima := make([]float64, 0, (len(window)+period-1)/period)

	for start := 0; start < len(window); start += period {
		end := min(len(window), start+period)
		maxima = append(maxima, stats.Max(window[start:end]))
	}

	return maxima
}

// recencyFilter keeps only indices inside the trailing onlyLast points of
// an n-point series. Zero onlyLast disables the filter.
func recencyFilter(indices []int, n, onlyLast int) []int {
	if onlyLast <= 0 {
		return indices
	}

	cutoff := n - onlyLast

	kept := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx >= cutoff {
			kept = append(kept, idx)
		}
	}

	return kept
}
