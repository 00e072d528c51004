package mcm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFitModel(t *testing.T) {
	data := []float64{0.1, 0.2, 0.2, 0.3, 0.1, 0.2}

	m, err := FitModel("clear_sky", data, 2)
	if err != nil {
		t.Fatalf("FitModel failed: %v", err)
	}

	if m.Name != "clear_sky" || m.Bins != 2 || m.Steps != 1 {
		t.Errorf("got unexpected model metadata: %+v", m)
	}
	if m.Min != 0.1 || m.Max != 0.3 {
		t.Errorf("expected fit range [0.1, 0.3], got [%v, %v]", m.Min, m.Max)
	}
}

func TestModelSample(t *testing.T) {
	data := []float64{0.1, 0.2, 0.2, 0.3, 0.1, 0.2}

	m, err := FitModel("clear_sky", data, 2)
	if err != nil {
		t.Fatalf("FitModel failed: %v", err)
	}

	// From state 0 every observed transition leads to bin 1, so all
	// samples must land in the upper bin.
	binStarts, _, err := m.Forecast(0.1)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	binWidth := binStarts[1] - binStarts[0]

	samples, err := m.Sample(0.1, 1000)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	for i, v := range samples {
		if v < binStarts[1] || v >= binStarts[1]+binWidth {
			t.Fatalf("sample[%d] = %v outside the only reachable bin [%v, %v)", i, v, binStarts[1], binStarts[1]+binWidth)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	data := []float64{0.4, 0.1, 0.9, 0.3, 0.3, 0.7, 0.2, 0.8}

	m, err := FitModel("roundtrip", data, 4, WithSteps(2))
	if err != nil {
		t.Fatalf("FitModel failed: %v", err)
	}

	var buf bytes.Buffer
	if err = m.Export(&buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	imported, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if imported.Name != m.Name || imported.Bins != m.Bins || imported.Steps != m.Steps {
		t.Errorf("imported metadata %+v does not match original %+v", imported, m)
	}
	if imported.Min != m.Min || imported.Max != m.Max {
		t.Errorf("imported range [%v, %v] does not match [%v, %v]", imported.Min, imported.Max, m.Min, m.Max)
	}
	if !mat.EqualApprox(imported.P, m.P, 1e-12) {
		t.Errorf("imported matrix\n%v\ndoes not match\n%v", mat.Formatted(imported.P), mat.Formatted(m.P))
	}
}

func TestImportInvalid(t *testing.T) {
	testCases := []struct {
		name string
		json string
		want error
	}{
		{
			name: "malformed json",
			json: `{"name": `,
		},
		{
			name: "zero bins",
			json: `{"name":"m","bins":0,"steps":1,"min_value":0,"max_value":1,"transitions":[]}`,
			want: ErrInvalidBinCount,
		},
		{
			name: "zero steps",
			json: `{"name":"m","bins":1,"steps":0,"min_value":0,"max_value":1,"transitions":[[1]]}`,
			want: ErrInvalidSteps,
		},
		{
			name: "degenerate range",
			json: `{"name":"m","bins":1,"steps":1,"min_value":1,"max_value":1,"transitions":[[1]]}`,
			want: ErrInvalidRange,
		},
		{
			name: "wrong row count",
			json: `{"name":"m","bins":2,"steps":1,"min_value":0,"max_value":1,"transitions":[[1,0]]}`,
		},
		{
			name: "ragged row",
			json: `{"name":"m","bins":2,"steps":1,"min_value":0,"max_value":1,"transitions":[[1,0],[1]]}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tc.json))
			if err == nil {
				t.Fatal("expected an error but got none")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("Import() error = %v, want %v", err, tc.want)
			}
		})
	}
}
