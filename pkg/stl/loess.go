package stl

import "math"

// loessSmooth fits a locally weighted regression through ys and evaluates it
// at every integer position in [from, to], returning to-from+1 fitted values.
// Positions outside [0, len(ys)-1] are extrapolated from the nearest window.
// span is the smoothing window in points, degree selects a constant (0) or
// linear (1) local fit. rw are robustness weights applied multiplicatively
// when non-nil.
func loessSmooth(ys []float64, span, degree int, rw []float64, from, to int) []float64 {
	n := len(ys)
	out := make([]float64, 0, to-from+1)

	q := span
	if q > n {
		q = n
	}

	for t := from; t <= to; t++ {
		lo := t - (q-1)/2
		if lo < 0 {
			lo = 0
		}

		if lo+q > n {
			lo = n - q
		}

		hi := lo + q - 1

		h := math.Max(float64(t-lo), float64(hi-t))
		if span > n {
			h += float64(span-n) / 2
		}

		out = append(out, fitLocal(ys, rw, lo, hi, t, h, degree))
	}

	return out
}

// fitLocal evaluates one locally weighted fit over ys[lo..hi] at position t.
// h is the bandwidth for the tricube kernel.
func fitLocal(ys, rw []float64, lo, hi, t int, h float64, degree int) float64 {
	var s0, s1, s2, sy, sxy float64

	for j := lo; j <= hi; j++ {
		d := 0.0
		if h > 0 {
			d = math.Abs(float64(j-t)) / h
		}

		w := tricube(d)
		if rw != nil {
			w *= rw[j]
		}

		dx := float64(j - t)
		s0 += w
		s1 += w * dx
		s2 += w * dx * dx
		sy += w * ys[j]
		sxy += w * dx * ys[j]
	}

	// All candidate points weighted out: fall back to the plain window mean.
	if s0 <= 0 {
		var sum float64

		for j := lo; j <= hi; j++ {
			sum += ys[j]
		}

		return sum / float64(hi-lo+1)
	}

	if degree == 0 {
		return sy / s0
	}

	denom := s0*s2 - s1*s1
	if denom <= 1e-12*s0*s2 {
		return sy / s0
	}

	slope := (s0*sxy - s1*sy) / denom

	return (sy - slope*s1) / s0
}

// tricube is the standard loess kernel, zero outside the unit interval.
func tricube(d float64) float64 {
	if d >= 1 {
		return 0
	}

	c := 1 - d*d*d

	return c * c * c
}

// movingAverage returns the simple moving average of values with window k.
// The result has len(values)-k+1 entries.
func movingAverage(values []float64, k int) []float64 {
	out := make([]float64, len(values)-k+1)

	var sum float64

	for i := 0; i < k; i++ {
		sum += values[i]
	}

	out[0] = sum / float64(k)

	for i := k; i < len(values); i++ {
		sum += values[i] - values[i-k]
		out[i-k+1] = sum / float64(k)
	}

	return out
}

// nextOdd rounds v up to the nearest odd integer.
func nextOdd(v float64) int {
	n := int(math.Ceil(v))
	if n%2 == 0 {
		n++
	}

	return n
}
