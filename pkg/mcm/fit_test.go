package mcm

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDiscretize(t *testing.T) {
	data := []float64{0.1, 0.2, 0.2, 0.3, 0.1, 0.2}

	states, a, b, err := Discretize(data, 2)
	if err != nil {
		t.Fatalf("Discretize failed: %v", err)
	}
	if a != 0.1 || b != 0.3 {
		t.Errorf("expected range [0.1, 0.3], got [%v, %v]", a, b)
	}

	// The maximum value lands on the top edge and must clamp into the
	// last bin, not fall out of range.
	want := []int{0, 1, 1, 1, 0, 1}
	for i, s := range states {
		if s != want[i] {
			t.Errorf("state[%d] = %d, want %d (full sequence %v)", i, s, want[i], states)
			break
		}
	}
}

func TestDiscretizeCoverage(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	data := make([]float64, 500)
	for i := range data {
		data[i] = rng.Float64()*10 - 5
	}

	for _, bins := range []int{1, 2, 10, 50} {
		states, _, b, err := Discretize(data, bins)
		if err != nil {
			t.Fatalf("Discretize with %d bins failed: %v", bins, err)
		}
		maxSeen := -1
		for i, s := range states {
			if s < 0 || s > bins-1 {
				t.Fatalf("bins=%d: state[%d] = %d out of [0, %d]", bins, i, s, bins-1)
			}
			if data[i] == b && s != bins-1 {
				t.Errorf("bins=%d: maximum value mapped to state %d, want %d", bins, s, bins-1)
			}
			if s > maxSeen {
				maxSeen = s
			}
		}
		if maxSeen != bins-1 {
			t.Errorf("bins=%d: top state %d never assigned", bins, bins-1)
		}
	}
}

func TestFit(t *testing.T) {
	data := []float64{0.1, 0.2, 0.2, 0.3, 0.1, 0.2}

	p, err := Fit(data, 2)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	want := mat.NewDense(2, 2, []float64{
		0, 1,
		1.0 / 3, 2.0 / 3,
	})
	if !mat.EqualApprox(p, want, 1e-12) {
		t.Errorf("Fit got\n%v\nwant\n%v", mat.Formatted(p), mat.Formatted(want))
	}
}

func TestFitRowStochastic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	data := make([]float64, 1000)
	for i := range data {
		data[i] = rng.NormFloat64()
	}

	const bins = 20
	p, err := Fit(data, bins)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	for i := 0; i < bins; i++ {
		var sum float64
		for j := 0; j < bins; j++ {
			v := p.At(i, j)
			if v < 0 {
				t.Fatalf("negative probability at (%d, %d): %v", i, j, v)
			}
			sum += v
		}
		// Zero rows mark states with no observed transitions and are
		// left unnormalized on purpose.
		if sum != 0 && math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d sums to %v, want 1", i, sum)
		}
	}
}

func TestFitPowerConsistency(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 17))
	data := make([]float64, 400)
	for i := range data {
		data[i] = rng.Float64()
	}

	const bins = 8
	p1, err := Fit(data, bins)
	if err != nil {
		t.Fatalf("Fit(steps=1) failed: %v", err)
	}
	p2, err := Fit(data, bins, WithSteps(2))
	if err != nil {
		t.Fatalf("Fit(steps=2) failed: %v", err)
	}

	var squared mat.Dense
	squared.Mul(p1, p1)
	if !mat.EqualApprox(p2, &squared, 1e-12) {
		t.Errorf("two-step matrix differs from the square of the one-step matrix")
	}
}

func TestFitErrors(t *testing.T) {
	testCases := []struct {
		name string
		data []float64
		bins int
		opts []FitOption
		want error
	}{
		{
			name: "too few observations",
			data: []float64{1.0},
			bins: 2,
			want: ErrDegenerateInput,
		},
		{
			name: "empty data",
			data: nil,
			bins: 2,
			want: ErrDegenerateInput,
		},
		{
			name: "degenerate range",
			data: []float64{0.5, 0.5, 0.5},
			bins: 2,
			want: ErrInvalidRange,
		},
		{
			name: "zero bins",
			data: []float64{0.1, 0.2},
			bins: 0,
			want: ErrInvalidBinCount,
		},
		{
			name: "zero steps",
			data: []float64{0.1, 0.2},
			bins: 2,
			opts: []FitOption{WithSteps(0)},
			want: ErrInvalidSteps,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fit(tc.data, tc.bins, tc.opts...)
			if !errors.Is(err, tc.want) {
				t.Errorf("Fit() error = %v, want %v", err, tc.want)
			}
		})
	}
}
