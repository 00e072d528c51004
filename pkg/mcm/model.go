package mcm

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model bundles a fitted transition matrix with the metadata needed to
// forecast from it: the bin count, the forecast horizon it was raised
// to, and the value range of the data it was fitted on. Forecasts
// default to that fit range, which is the common case; use the
// package-level Forecast to re-bin over a different range.
type Model struct {
	Name  string
	Bins  int
	Steps int
	Min   float64
	Max   float64
	P     *mat.Dense
}

// ExportedModel is the serializable representation of a fitted model,
// used for JSON-based import and export.
type ExportedModel struct {
	Name        string      `json:"name"`
	Bins        int         `json:"bins"`
	Steps       int         `json:"steps"`
	Min         float64     `json:"min_value"`
	Max         float64     `json:"max_value"`
	Transitions [][]float64 `json:"transitions"` // row-major, one row per source state
}

// FitModel fits a transition matrix with Fit and wraps it in a named
// Model carrying the data range it was fitted over.
func FitModel(name string, data []float64, bins int, opts ...FitOption) (*Model, error) {
	options := &fitOptions{steps: 1}
	for _, opt := range opts {
		opt(options)
	}

	p, err := Fit(data, bins, opts...)
	if err != nil {
		return nil, err
	}
	return &Model{
		Name:  name,
		Bins:  bins,
		Steps: options.steps,
		Min:   floats.Min(data),
		Max:   floats.Max(data),
		P:     p,
	}, nil
}

// Forecast builds the predictive distribution for obsPoint over the
// model's fit range. See the package-level Forecast for the semantics.
func (m *Model) Forecast(obsPoint float64) (binStarts, probs []float64, err error) {
	return Forecast(m.P, m.Min, m.Max, obsPoint)
}

// Sample composes Forecast and the package-level Sample: it forecasts
// from obsPoint and draws count samples from the resulting distribution.
func (m *Model) Sample(obsPoint float64, count int, opts ...SampleOption) ([]float64, error) {
	binStarts, probs, err := m.Forecast(obsPoint)
	if err != nil {
		return nil, err
	}
	return Sample(binStarts, probs, count, opts...)
}

// Export serializes the model into an indented JSON document and writes
// it to w. The result round-trips through Import.
func (m *Model) Export(w io.Writer) error {
	rows := make([][]float64, m.Bins)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m.P)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportedModel{
		Name:        m.Name,
		Bins:        m.Bins,
		Steps:       m.Steps,
		Min:         m.Min,
		Max:         m.Max,
		Transitions: rows,
	})
}

// Import reads a JSON representation of a model from r, validates its
// shape, and reconstructs the Model.
func Import(r io.Reader) (*Model, error) {
	var exported ExportedModel
	if err := json.NewDecoder(r).Decode(&exported); err != nil {
		return nil, fmt.Errorf("failed to decode json model: %w", err)
	}

	if exported.Bins < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBinCount, exported.Bins)
	}
	if exported.Steps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSteps, exported.Steps)
	}
	if exported.Min >= exported.Max {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, exported.Min, exported.Max)
	}
	if len(exported.Transitions) != exported.Bins {
		return nil, fmt.Errorf("model '%s' has %d transition rows, expected %d", exported.Name, len(exported.Transitions), exported.Bins)
	}

	p := mat.NewDense(exported.Bins, exported.Bins, nil)
	for i, row := range exported.Transitions {
		if len(row) != exported.Bins {
			return nil, fmt.Errorf("model '%s' row %d has %d entries, expected %d", exported.Name, i, len(row), exported.Bins)
		}
		p.SetRow(i, row)
	}

	return &Model{
		Name:  exported.Name,
		Bins:  exported.Bins,
		Steps: exported.Steps,
		Min:   exported.Min,
		Max:   exported.Max,
		P:     p,
	}, nil
}
