package mcm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// sampleOptions is used by the sampling functions to configure default options.
type sampleOptions struct {
	src rand.Source
}

// SampleOption is a function that configures sampling parameters. It's
// used as a variadic argument in Sample and SampleStream.
type SampleOption func(*sampleOptions)

// WithSource sets the random source used for drawing samples. By
// default the shared math/rand/v2 generator is used; supplying a seeded
// source makes draws reproducible.
func WithSource(src rand.Source) SampleOption {
	return func(o *sampleOptions) { o.src = src }
}

// Sample draws count independent samples from the piecewise-uniform
// distribution returned by Forecast, using inverse-CDF sampling: each
// draw picks a bin from the cumulative distribution of probs and adds
// uniform jitter within the bin, consuming two independent uniform
// variates. Every sample lies in [binStarts[0], binStarts[len-1]+binWidth).
//
// Sample returns ErrInsufficientData if probs carries zero total mass
// (a forecast from a state with no observed transitions),
// ErrInvalidSampleCount if count is negative, and ErrInvalidBinCount if
// fewer than two bins are supplied, since the bin width is recovered
// from the spacing of binStarts.
func Sample(binStarts, probs []float64, count int, opts ...SampleOption) ([]float64, error) {
	options := &sampleOptions{}
	for _, opt := range opts {
		opt(options)
	}

	cdf, binWidth, err := prepareCDF(binStarts, probs, count)
	if err != nil {
		return nil, err
	}

	uniform := rand.Float64
	if options.src != nil {
		uniform = rand.New(options.src).Float64
	}

	samples := make([]float64, count)
	for i := range samples {
		samples[i] = drawOne(binStarts, cdf, binWidth, uniform)
	}
	return samples, nil
}

// SampleStream draws count samples like Sample but delivers them over a
// channel from a background goroutine, which is useful when consumers
// process draws incrementally or want to abandon a large batch early.
// Inputs are validated before the goroutine starts, so an error is only
// ever returned up front. The channel is closed once all samples have
// been delivered or the context is cancelled.
func SampleStream(ctx context.Context, binStarts, probs []float64, count int, opts ...SampleOption) (<-chan float64, error) {
	options := &sampleOptions{}
	for _, opt := range opts {
		opt(options)
	}

	cdf, binWidth, err := prepareCDF(binStarts, probs, count)
	if err != nil {
		return nil, err
	}

	uniform := rand.Float64
	if options.src != nil {
		uniform = rand.New(options.src).Float64
	}

	out := make(chan float64)
	go func() {
		defer close(out)
		for i := 0; i < count; i++ {
			v := drawOne(binStarts, cdf, binWidth, uniform)
			select {
			case <-ctx.Done():
				return
			case out <- v:
			}
		}
	}()
	return out, nil
}

// prepareCDF validates the sampling inputs and builds the cumulative
// distribution shared by Sample and SampleStream.
func prepareCDF(binStarts, probs []float64, count int) ([]float64, float64, error) {
	if count < 0 {
		return nil, 0, fmt.Errorf("%w: got %d", ErrInvalidSampleCount, count)
	}
	if len(binStarts) < 2 {
		return nil, 0, fmt.Errorf("%w: need at least 2 bins to recover the bin width, got %d", ErrInvalidBinCount, len(binStarts))
	}
	if len(probs) != len(binStarts) {
		return nil, 0, fmt.Errorf("mcm: bin starts and probabilities disagree in length (%d vs %d)", len(binStarts), len(probs))
	}

	cdf := make([]float64, len(probs))
	floats.CumSum(cdf, probs)
	if cdf[len(cdf)-1] == 0 {
		return nil, 0, fmt.Errorf("%w: distribution has zero total mass", ErrInsufficientData)
	}

	// Bins are equal width as constructed by Forecast.
	binWidth := binStarts[1] - binStarts[0]
	return cdf, binWidth, nil
}

// drawOne performs a single inverse-CDF draw with in-bin jitter.
func drawOne(binStarts, cdf []float64, binWidth float64, uniform func() float64) float64 {
	u := uniform()
	jitter := uniform() * binWidth

	// Smallest index whose cumulative mass reaches u. If rounding in
	// the cumulative sum leaves u above the top of the CDF, the draw
	// resolves to the last bin rather than falling out of range.
	i := sort.SearchFloat64s(cdf, u)
	if i == len(cdf) {
		i = len(cdf) - 1
	}
	return binStarts[i] + jitter
}
