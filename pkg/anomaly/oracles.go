package anomaly

import (
	"fmt"

	"github.com/Sumatoshi-tech/spikefang/pkg/breakout"
	"github.com/Sumatoshi-tech/spikefang/pkg/stl"
)

// Decomposer splits a window into additive seasonal and trend components.
// Both returned slices must have the same length as the input.
type Decomposer interface {
	Decompose(window []float64, period int) (seasonal, trend []float64, err error)
}

// BreakoutDetector locates level shifts in a window. Returned breakpoints
// are ascending segment start positions, exclusive of zero.
type BreakoutDetector interface {
	Breakpoints(window []float64, cfg BreakoutConfig) ([]int, error)
}

// Breakout segmentation methods.
const (
	// BreakoutMulti detects any number of level shifts.
	BreakoutMulti = "multi"
	// BreakoutAmoc detects at most one level shift.
	BreakoutAmoc = "amoc"
)

// BreakoutConfig tunes baseline segmentation. Zero fields other than
// Degree fall back to the segmentation defaults; start from
// DefaultBreakoutConfig to set them explicitly.
type BreakoutConfig struct {
	// Method selects multi or at-most-one-changepoint segmentation.
	// Empty means BreakoutMulti.
	Method string

	// MinSize is the smallest allowed segment length.
	MinSize int

	// Beta penalizes each additional segment.
	Beta float64

	// Degree selects the penalty growth: 0 constant, 1 linear, 2 quadratic.
	// Only used by BreakoutMulti.
	Degree int
}

// DefaultBreakoutConfig returns the standard segmentation parameters.
func DefaultBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{
		Method:  BreakoutMulti,
		MinSize: breakout.DefaultMinSize,
		Beta:    breakout.DefaultBeta,
		Degree:  breakout.DefaultDegree,
	}
}

func validateBreakout(cfg BreakoutConfig) error {
	switch cfg.Method {
	case BreakoutMulti, BreakoutAmoc:
	default:
		return fmt.Errorf("%w: unknown breakout method %q", ErrInvalidParameter, cfg.Method)
	}

	if cfg.MinSize != 0 && cfg.MinSize < breakout.MinSegmentFloor {
		return fmt.Errorf("%w: breakout min_size %d below %d", ErrInvalidParameter, cfg.MinSize, breakout.MinSegmentFloor)
	}

	if cfg.Beta < 0 {
		return fmt.Errorf("%w: breakout beta %v is negative", ErrInvalidParameter, cfg.Beta)
	}

	if cfg.Degree < 0 || cfg.Degree > 2 {
		return fmt.Errorf("%w: breakout degree %d outside [0, 2]", ErrInvalidParameter, cfg.Degree)
	}

	return nil
}

// STLDecomposer adapts the stl package to the Decomposer interface.
type STLDecomposer struct{}

// Decompose runs robust STL and returns its seasonal and trend components.
func (STLDecomposer) Decompose(window []float64, period int) ([]float64, []float64, error) {
	res, err := stl.Decompose(window, period)
	if err != nil {
		return nil, nil, err
	}

	return res.Seasonal, res.Trend, nil
}

// EDMDetector adapts the breakout package to the BreakoutDetector interface.
type EDMDetector struct{}

// Breakpoints runs EDM segmentation with the configured method.
func (EDMDetector) Breakpoints(window []float64, cfg BreakoutConfig) ([]int, error) {
	minSize := cfg.MinSize
	if minSize == 0 {
		minSize = breakout.DefaultMinSize
	}

	beta := cfg.Beta
	if beta == 0 {
		beta = breakout.DefaultBeta
	}

	if cfg.Method == BreakoutAmoc {
		return breakout.Amoc(window, minSize, beta)
	}

	return breakout.Multi(window, minSize, beta, cfg.Degree)
}
