package mcm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Forecast builds the piecewise-uniform predictive distribution for the
// next time step, given a fitted transition matrix, the value range to
// forecast over, and the current observation. It returns the lower
// edges of the bins covering [minValue, maxValue] and the matrix row
// for the observation's bin: probability mass probs[i] is spread
// uniformly across [binStarts[i], binStarts[i]+binWidth).
//
// The observation's bin is the highest bin whose lower edge does not
// exceed obsPoint. An observation exactly on a lower edge selects that
// edge's bin, and observations at or above maxValue resolve to the last
// bin. Both returned slices are newly allocated; p is not retained.
//
// Forecast returns ErrInvalidRange if minValue >= maxValue and
// ErrObservationOutOfRange if obsPoint < minValue.
func Forecast(p *mat.Dense, minValue, maxValue, obsPoint float64) (binStarts, probs []float64, err error) {
	if minValue >= maxValue {
		return nil, nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, minValue, maxValue)
	}
	if obsPoint < minValue {
		return nil, nil, fmt.Errorf("%w: %v < %v", ErrObservationOutOfRange, obsPoint, minValue)
	}

	bins, _ := p.Dims()
	binWidth := (maxValue - minValue) / float64(bins)

	binStarts = make([]float64, bins)
	for i := range binStarts {
		binStarts[i] = minValue + float64(i)*binWidth
	}

	// Highest bin whose lower edge does not exceed the observation.
	// SearchFloat64s finds the first edge >= obsPoint; step back unless
	// the observation sits exactly on it.
	obsBin := sort.SearchFloat64s(binStarts, obsPoint)
	if obsBin == bins || binStarts[obsBin] > obsPoint {
		obsBin--
	}

	return binStarts, mat.Row(nil, obsBin, p), nil
}
