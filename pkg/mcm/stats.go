package mcm

import "gonum.org/v1/gonum/mat"

// ModelStats holds aggregated statistics for a fitted transition matrix.
type ModelStats struct {
	States      int   // The matrix dimension; one state per bin.
	Transitions int   // The number of non-zero entries; distinct observed transitions.
	ZeroRows    []int // States with no observed outgoing transitions.
}

// MatrixStats returns a snapshot of statistics for a transition matrix.
// ZeroRows lists every state a forecast cannot be built from: the
// corresponding predictive distribution would carry zero total mass and
// Sample would reject it with ErrInsufficientData.
func MatrixStats(p *mat.Dense) ModelStats {
	bins, _ := p.Dims()
	stats := ModelStats{States: bins}
	for i := 0; i < bins; i++ {
		rowEmpty := true
		for j := 0; j < bins; j++ {
			if p.At(i, j) != 0 {
				stats.Transitions++
				rowEmpty = false
			}
		}
		if rowEmpty {
			stats.ZeroRows = append(stats.ZeroRows, i)
		}
	}
	return stats
}

// ZeroRows lists the states of p with no observed outgoing transitions.
func ZeroRows(p *mat.Dense) []int {
	return MatrixStats(p).ZeroRows
}

// Stats returns statistics for the model's transition matrix.
func (m *Model) Stats() ModelStats {
	return MatrixStats(m.P)
}
