package anomaly

import (
	"context"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Sumatoshi-tech/spikefang/pkg/alg/stats"
)

// esdTest runs a generalized extreme studentized deviate test over the
// residuals, with median and MAD standing in for mean and standard
// deviation. It removes the most deviant point each round, recomputes the
// critical value for the shrunken sample and stops at the first point that
// fails it. Returned indices refer to the residuals slice and preserve
// detection order.
func esdTest(ctx context.Context, residuals []float64, maxOutliers int, alpha float64, direction Direction, logger *slog.Logger) []int {
	n := len(residuals)

	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	working := make([]float64, 0, n)

	var outliers []int

	for i := 1; i <= maxOutliers; i++ {
		working = working[:0]
		for j, ok := range active {
			if ok {
				working = append(working, residuals[j])
			}
		}

		med := stats.Median(working)

		mad := stats.MAD(working, med)
		if mad == 0 {
			break
		}

		bestIdx := -1
		bestScore := math.Inf(-1)

		for j := range residuals {
			if !active[j] {
				continue
			}

			score := deviation(residuals[j], med, mad, direction)
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}

		lam := criticalValue(n, i, alpha, direction)
		if bestScore <= lam {
			break
		}

		outliers = append(outliers, bestIdx)
		active[bestIdx] = false

		if logger.Enabled(ctx, slog.LevelDebug) {
			logger.DebugContext(ctx, "outlier confirmed",
				slog.Int("index", bestIdx),
				slog.Float64("score", bestScore),
				slog.Float64("critical", lam))
		}
	}

	return outliers
}

func deviation(v, med, mad float64, direction Direction) float64 {
	switch direction {
	case DirectionPositive:
		return (v - med) / mad
	case DirectionNegative:
		return (med - v) / mad
	default:
		return math.Abs(v-med) / mad
	}
}

// criticalValue computes the ESD rejection threshold for round i of a
// sample that started with n points.
func criticalValue(n, i int, alpha float64, direction Direction) float64 {
	size := float64(n - i + 1)

	p := 1 - alpha/size
	if direction == DirectionBoth {
		p = 1 - alpha/(2*size)
	}

	df := float64(n - i - 1)
	crit := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(p)

	return float64(n-i) * crit / math.Sqrt((df+crit*crit)*size)
}
