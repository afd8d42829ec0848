package processing

import (
	"github.com/benshep/imageViewer2/internal/types"
)

type FieldParams struct {
	Reduction   Reduction
	Threshold   float64
	PostProcess PostProcess
	// XCoords and YCoords are the calibrated axes. Nil means pixel indices.
	XCoords []float64
	YCoords []float64
}

type FieldResult struct {
	Decision types.FieldDecision
	X        types.Profile
	Y        types.Profile
	// Display is the post-processed frame. Profiles are always taken from
	// the raw frame.
	Display types.Frame
}

// DiffOverSum is the normalised field asymmetry, 0 when both sums are empty.
func DiffOverSum(evenSum, oddSum float64) float64 {
	total := evenSum + oddSum
	if total <= 0 {
		return 0
	}
	return (evenSum - oddSum) / total
}

// Decide picks the beam field. Both comparisons are strict, so an asymmetry
// equal to the threshold counts as no beam.
func Decide(diffOverSum, threshold float64) types.FieldDecision {
	if threshold < 0 {
		threshold = 0
	}
	decision := types.FieldDecision{DiffOverSum: diffOverSum}
	switch {
	case diffOverSum > threshold:
		decision.Outcome = types.BeamInEvenField
	case diffOverSum < -threshold:
		decision.Outcome = types.BeamInOddField
	default:
		decision.Outcome = types.NoBeam
	}
	return decision
}

// AnalyzeFields decides which interlaced field holds the beam and builds the
// field-corrected profiles. ok is false when there is no beam or the frame is
// malformed; Decision is still filled in for the no-beam case.
func AnalyzeFields(frame types.Frame, params FieldParams) (FieldResult, bool) {
	if !frame.Valid() || frame.Width <= types.TrimColumns {
		return FieldResult{}, false
	}

	ncols := frame.Width - types.TrimColumns
	even := ReduceColumns(frame, 0, ncols, params.Reduction)
	odd := ReduceColumns(frame, 1, ncols, params.Reduction)

	decision := Decide(DiffOverSum(sum(even), sum(odd)), params.Threshold)
	result := FieldResult{Decision: decision}
	if !decision.HasBeam() {
		return result, false
	}

	beam, dim := 0, 1
	strong, weak := even, odd
	if decision.Outcome == types.BeamInOddField {
		beam, dim = 1, 0
		strong, weak = odd, even
	}

	x := make([]float64, ncols)
	for i := range x {
		x[i] = strong[i] - weak[i]
	}

	beamRows := ReduceRows(frame, beam, params.Reduction)
	dimRows := ReduceRows(frame, dim, params.Reduction)
	y := make([]float64, len(beamRows))
	for i := range y {
		// row index grows downwards, the y axis grows upwards
		y[len(y)-1-i] = beamRows[i] - dimRows[i]
	}

	result.X = types.Profile{Values: x, Coords: coordsOrIndex(params.XCoords, len(x), 1)}
	result.Y = types.Profile{Values: y, Coords: coordsOrIndex(params.YCoords, len(y), 2)}
	result.Display = params.PostProcess.Apply(frame, beam)
	return result, true
}

func sum(values []float64) float64 {
	return Sum.Reduce(values)
}

func coordsOrIndex(coords []float64, n int, step float64) []float64 {
	if len(coords) == n {
		return coords
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * step
	}
	return out
}
