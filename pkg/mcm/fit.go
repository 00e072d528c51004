package mcm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// fitOptions is used by Fit and FitModel to configure default options.
type fitOptions struct {
	steps int
}

// FitOption is a function that configures fitting parameters. It's used
// as a variadic argument in Fit and FitModel.
type FitOption func(*fitOptions)

// WithSteps sets the forecast horizon: the fitted matrix is raised to
// the given integer power, so each row describes the distribution of
// states k time steps ahead instead of one. The default is 1.
func WithSteps(k int) FitOption {
	return func(o *fitOptions) { o.steps = k }
}

// Fit estimates a bins x bins transition matrix from a sequence of
// observations. Consecutive observation pairs are counted as state
// transitions and every row is normalized by its sum, making the result
// row-stochastic with one exception: a state with no observed outgoing
// transitions keeps an all-zero row. The zero row is a deliberate
// "no data for this state" marker; it is never replaced with a uniform
// or identity fallback, and forecasts built from it carry zero total
// mass (see ErrInsufficientData).
//
// Fit shares Discretize's preconditions and additionally returns
// ErrInvalidSteps when WithSteps is given a horizon below 1.
func Fit(data []float64, bins int, opts ...FitOption) (*mat.Dense, error) {
	options := &fitOptions{steps: 1}
	for _, opt := range opts {
		opt(options)
	}
	if options.steps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSteps, options.steps)
	}

	states, _, _, err := Discretize(data, bins)
	if err != nil {
		return nil, err
	}

	p := mat.NewDense(bins, bins, nil)
	for i := 1; i < len(states); i++ {
		from, to := states[i-1], states[i]
		p.Set(from, to, p.At(from, to)+1)
	}

	for i := 0; i < bins; i++ {
		row := p.RawRowView(i)
		if total := floats.Sum(row); total > 0 {
			floats.Scale(1/total, row)
		}
		// Rows with no observed transitions stay all-zero.
	}

	if options.steps > 1 {
		var pk mat.Dense
		pk.Pow(p, options.steps)
		return &pk, nil
	}
	return p, nil
}
