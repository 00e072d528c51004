package mcm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Discretize assigns every observation to one of bins fixed-width,
// half-open intervals covering [min(data), max(data)] and returns the
// resulting state indices together with the range they were computed
// over. The final bin is closed on the right, so the maximum value
// always maps to state bins-1.
//
// It returns ErrInvalidBinCount if bins < 1, ErrDegenerateInput if data
// holds fewer than two observations, and ErrInvalidRange if all
// observations are equal (zero bin width).
func Discretize(data []float64, bins int) ([]int, float64, float64, error) {
	if bins < 1 {
		return nil, 0, 0, fmt.Errorf("%w: got %d", ErrInvalidBinCount, bins)
	}
	if len(data) < 2 {
		return nil, 0, 0, fmt.Errorf("%w: need at least 2, got %d", ErrDegenerateInput, len(data))
	}

	a := floats.Min(data)
	b := floats.Max(data)
	if a == b {
		return nil, 0, 0, fmt.Errorf("%w: all observations equal %v", ErrInvalidRange, a)
	}
	binWidth := (b - a) / float64(bins)

	states := make([]int, len(data))
	for i, v := range data {
		s := int((v - a) / binWidth)
		// The maximum value lands exactly on the top edge; clamp it
		// into the last bin.
		if s > bins-1 {
			s = bins - 1
		}
		states[i] = s
	}
	return states, a, b, nil
}
