package anomaly

import "errors"

// Detection errors. Callers branch with errors.Is; every failure out of
// Detect wraps exactly one of these.
var (
	// ErrInvalidParameter reports an option outside its documented domain.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidData reports non-finite values in the input series.
	ErrInvalidData = errors.New("invalid data")

	// ErrInsufficientData reports a series too short to cover two seasonal
	// periods in every window.
	ErrInsufficientData = errors.New("insufficient data")
)
