// Package breakout detects mean-level shifts in a series with the
// energy-distance median (EDM) statistic. Candidate segmentations are scored
// by the weighted squared difference of segment medians and accepted against
// a penalty that grows with the number of breakpoints. Medians are tracked
// in fixed-resolution histograms over the normalized series, keeping memory
// bounded regardless of value range.
package breakout

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Sumatoshi-tech/spikefang/pkg/alg/stats"
)

// Defaults mirror the conventional EDM parameterization.
const (
	DefaultMinSize = 30
	DefaultBeta    = 0.008
	DefaultDegree  = 1

	// MinSegmentFloor is the smallest accepted minSize. A segment needs two
	// points before its median can move.
	MinSegmentFloor = 2
)

// Parameter errors.
var (
	ErrMinSizeTooSmall = errors.New("minimum segment size must be at least 2")
	ErrNegativePenalty = errors.New("penalty must not be negative")
	ErrInvalidDegree   = errors.New("penalty degree must be 0, 1 or 2")
)

// Multi returns the ascending interior breakpoint positions of values under
// a penalized multi-changepoint segmentation. A breakpoint at t splits the
// series into [.., t) and [t, ..); every segment keeps at least minSize
// points. beta scales the penalty, degree selects constant, linear or
// quadratic growth in the number of breakpoints. A nil result means no
// breakpoint was worth its penalty.
func Multi(values []float64, minSize int, beta float64, degree int) ([]int, error) {
	if err := validate(minSize, beta); err != nil {
		return nil, err
	}

	if degree < 0 || degree > 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDegree, degree)
	}

	n := len(values)
	if n < 2*minSize {
		return nil, nil
	}

	z := normalize(values)
	if z == nil {
		return nil, nil
	}

	best := make([]float64, n+1)
	prev := make([]int, n+1)
	num := make([]int, n+1)

	lefts := make([]*medianHist, n+1)
	rights := make([]*medianHist, n+1)
	active := make([]int, 0, n)

	for s := 2 * minSize; s <= n; s++ {
		// Every live candidate's right segment grows by the new point.
		for _, t := range active {
			rights[t].Add(z[s-1])
		}

		// t = s-minSize becomes a feasible breakpoint at this prefix length.
		// Its left segment [prev[t], t) is fixed from here on.
		entered := s - minSize
		lefts[entered] = histOver(z, prev[entered], entered)
		rights[entered] = histOver(z, entered, s)
		active = append(active, entered)

		for _, t := range active {
			diff := lefts[t].Median() - rights[t].Median()
			span := float64(s - prev[t])
			weight := float64((t-prev[t])*(s-t)) / (span * span)
			cand := best[t] + weight*diff*diff - beta*penaltyGain(degree, num[t]+1)

			if cand > best[s] {
				best[s] = cand
				prev[s] = t
				num[s] = num[t] + 1
			}
		}
	}

	if prev[n] == 0 {
		return nil, nil
	}

	locs := make([]int, 0, num[n])
	for i := n; prev[i] != 0; i = prev[i] {
		locs = append(locs, prev[i])
	}

	slices.Reverse(locs)

	return locs, nil
}

// Amoc returns at most one breakpoint: the split maximizing the EDM
// statistic, accepted only when it exceeds beta.
func Amoc(values []float64, minSize int, beta float64) ([]int, error) {
	if err := validate(minSize, beta); err != nil {
		return nil, err
	}

	n := len(values)
	if n < 2*minSize {
		return nil, nil
	}

	z := normalize(values)
	if z == nil {
		return nil, nil
	}

	left := histOver(z, 0, minSize)
	right := histOver(z, minSize, n)

	bestLoc := -1
	bestStat := math.Inf(-1)

	for t := minSize; t <= n-minSize; t++ {
		if t > minSize {
			left.Add(z[t-1])
			right.Remove(z[t-1])
		}

		diff := left.Median() - right.Median()
		stat := float64(t*(n-t)) / float64(n*n) * diff * diff

		if stat > bestStat {
			bestStat = stat
			bestLoc = t
		}
	}

	if bestStat <= beta {
		return nil, nil
	}

	return []int{bestLoc}, nil
}

func validate(minSize int, beta float64) error {
	if minSize < MinSegmentFloor {
		return fmt.Errorf("%w: got %d", ErrMinSizeTooSmall, minSize)
	}

	if beta < 0 {
		return fmt.Errorf("%w: got %v", ErrNegativePenalty, beta)
	}

	return nil
}

// normalize maps values onto [0, 1]. A nil result means the series has no
// spread and cannot contain a level shift.
func normalize(values []float64) []float64 {
	lo := stats.Min(values)
	hi := stats.Max(values)

	if hi == lo {
		return nil
	}

	out := make([]float64, len(values))

	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}

	return out
}

func histOver(z []float64, from, to int) *medianHist {
	h := &medianHist{}

	for i := from; i < to; i++ {
		h.Add(z[i])
	}

	return h
}

// penaltyGain is the penalty increment for adding the k-th breakpoint:
// the difference G(k)-G(k-1) for constant, linear or quadratic G.
func penaltyGain(degree, k int) float64 {
	switch degree {
	case 0:
		if k == 1 {
			return 1
		}

		return 0
	case 1:
		return 1
	default:
		return float64(2*k - 1)
	}
}
