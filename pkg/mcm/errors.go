package mcm

import "errors"

// Sentinel errors returned by the fitting, forecasting, and sampling
// operations. They are always wrapped with context, so callers should
// test for them with errors.Is.
var (
	// ErrInvalidRange indicates a degenerate or inverted value range:
	// minValue >= maxValue in Forecast, or a data set whose minimum and
	// maximum coincide in Discretize and Fit.
	ErrInvalidRange = errors.New("mcm: invalid value range")

	// ErrObservationOutOfRange indicates an observation point below the
	// minimum of the forecast range. There is no upper counterpart:
	// observations at or above the maximum resolve to the last bin.
	ErrObservationOutOfRange = errors.New("mcm: observation below range minimum")

	// ErrDegenerateInput indicates an observation sequence too short to
	// form a single transition.
	ErrDegenerateInput = errors.New("mcm: not enough observations")

	// ErrInsufficientData indicates a predictive distribution with zero
	// total mass, which happens when the forecast started from a state
	// with no observed outgoing transitions. Use ZeroRows to find such
	// states before forecasting from them.
	ErrInsufficientData = errors.New("mcm: no transition data for state")

	// ErrInvalidBinCount indicates a non-positive bin count, or a
	// distribution with too few bins to recover the bin width.
	ErrInvalidBinCount = errors.New("mcm: invalid bin count")

	// ErrInvalidSteps indicates a non-positive forecast horizon.
	ErrInvalidSteps = errors.New("mcm: step count must be positive")

	// ErrInvalidSampleCount indicates a negative sample count.
	ErrInvalidSampleCount = errors.New("mcm: sample count must be non-negative")
)
