// Package stl implements robust seasonal-trend decomposition based on
// locally weighted regression (Cleveland's STL). The smoothing parameters
// are pinned for anomaly detection over residuals: the seasonal subseries
// smoother spans the whole series (degree 0), the trend and low-pass
// smoothers take their canonical spans from the period, and fifteen
// robustness iterations shield the fit from the very outliers the caller
// is trying to find.
package stl

import (
	"errors"
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/spikefang/pkg/alg/stats"
)

// Decomposition errors.
var (
	ErrPeriodTooSmall = errors.New("seasonal period must be at least 2")
	ErrSeriesTooShort = errors.New("series must cover at least two full periods")
)

const (
	innerIterations = 1
	outerIterations = 15

	// biweightSpan scales the median absolute residual into the cutoff
	// beyond which a point gets zero robustness weight.
	biweightSpan = 6.0
)

// Result holds the additive components of a decomposed series. All slices
// have the length of the input. Series[i] == Seasonal[i] + Trend[i] +
// Remainder[i] holds exactly. Weights are the final robustness weights in
// [0, 1]; outliers end up near zero.
type Result struct {
	Seasonal  []float64
	Trend     []float64
	Remainder []float64
	Weights   []float64
}

// params carries the smoother spans derived from series length and period.
type params struct {
	np int // seasonal period
	ns int // seasonal subseries smoother span
	nt int // trend smoother span
	nl int // low-pass smoother span
}

func newParams(n, period int) params {
	ns := 10*n + 1

	return params{
		np: period,
		ns: ns,
		nt: nextOdd(1.5 * float64(period) / (1 - 1.5/float64(ns))),
		nl: nextOdd(float64(period)),
	}
}

// Decompose splits series into seasonal, trend and remainder components.
// The series must be finite and cover at least two full periods.
func Decompose(series []float64, period int) (*Result, error) {
	n := len(series)

	if period < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrPeriodTooSmall, period)
	}

	if n < 2*period {
		return nil, fmt.Errorf("%w: length %d with period %d", ErrSeriesTooShort, n, period)
	}

	p := newParams(n, period)

	seasonal := make([]float64, n)
	trend := make([]float64, n)
	weights := make([]float64, n)

	for i := range weights {
		weights[i] = 1
	}

	detrended := make([]float64, n)
	deseasoned := make([]float64, n)

	for pass := 0; pass <= outerIterations; pass++ {
		if pass > 0 {
			updateRobustnessWeights(series, seasonal, trend, weights)
		}

		for range innerIterations {
			fitSeasonal(series, trend, weights, p, detrended, seasonal)
			fitTrend(series, seasonal, weights, p, deseasoned, trend)
		}
	}

	remainder := make([]float64, n)

	for i := range series {
		remainder[i] = series[i] - seasonal[i] - trend[i]
	}

	return &Result{Seasonal: seasonal, Trend: trend, Remainder: remainder, Weights: weights}, nil
}

// fitSeasonal smooths each cycle subseries of the detrended data, extends it
// one period to both sides, and removes the low-pass component so the
// seasonal does not absorb trend.
func fitSeasonal(series, trend, rw []float64, p params, detrended, seasonal []float64) {
	n := len(series)

	for i := range series {
		detrended[i] = series[i] - trend[i]
	}

	// extended holds the smoothed cycle subseries on a grid padded by one
	// period on each side; extended[np+i] corresponds to series index i.
	extended := make([]float64, n+2*p.np)

	for phase := 0; phase < p.np; phase++ {
		m := (n - phase + p.np - 1) / p.np

		sub := make([]float64, m)
		subRW := make([]float64, m)

		for k := 0; k < m; k++ {
			sub[k] = detrended[phase+k*p.np]
			subRW[k] = rw[phase+k*p.np]
		}

		smoothed := loessSmooth(sub, p.ns, 0, subRW, -1, m)

		for k, v := range smoothed {
			extended[phase+k*p.np] = v
		}
	}

	lowpass := lowPass(extended, p)

	for i := 0; i < n; i++ {
		seasonal[i] = extended[p.np+i] - lowpass[i]
	}
}

// lowPass filters the extended seasonal with two period-length moving
// averages, a 3-point moving average and a final loess pass, yielding one
// value per original series position.
func lowPass(extended []float64, p params) []float64 {
	ma := movingAverage(extended, p.np)
	ma = movingAverage(ma, p.np)
	ma = movingAverage(ma, 3)

	return loessSmooth(ma, p.nl, 1, nil, 0, len(ma)-1)
}

// fitTrend smooths the deseasoned series with the trend-span loess.
func fitTrend(series, seasonal, rw []float64, p params, deseasoned, trend []float64) {
	for i := range series {
		deseasoned[i] = series[i] - seasonal[i]
	}

	copy(trend, loessSmooth(deseasoned, p.nt, 1, rw, 0, len(series)-1))
}

// updateRobustnessWeights recomputes the biweight robustness weights from
// the current remainder. Residuals beyond six median absolute residuals are
// fully discounted.
func updateRobustnessWeights(series, seasonal, trend, weights []float64) {
	absResid := make([]float64, len(series))

	for i := range series {
		absResid[i] = math.Abs(series[i] - seasonal[i] - trend[i])
	}

	h := biweightSpan * stats.Median(absResid)
	low := 0.001 * h
	high := 0.999 * h

	for i, ar := range absResid {
		switch {
		case ar <= low:
			weights[i] = 1
		case ar >= high:
			weights[i] = 0
		default:
			u := ar / h
			weights[i] = (1 - u*u) * (1 - u*u)
		}
	}
}
