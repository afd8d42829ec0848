package processing

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/benshep/imageViewer2/internal/types"
)

// Reduction collapses a line of pixels to one profile sample. The same
// reduction feeds both the beam detection metric and the displayed profiles.
type Reduction int

const (
	Sum Reduction = iota
	Std
)

func ParseReduction(value string) (Reduction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "sum":
		return Sum, nil
	case "std", "stdev":
		return Std, nil
	default:
		return Sum, fmt.Errorf("unsupported reduction %q", value)
	}
}

func (r Reduction) String() string {
	if r == Std {
		return "std"
	}
	return "sum"
}

// Reduce applies the reduction to values. Std is the population standard
// deviation.
func (r Reduction) Reduce(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if r == Std {
		_, std := stat.PopMeanStdDev(values, nil)
		return std
	}
	return floats.Sum(values)
}

// ReduceColumns reduces each of the first ncols columns over the rows of one
// field (parity 0 = even rows, 1 = odd rows).
func ReduceColumns(frame types.Frame, parity int, ncols int, r Reduction) []float64 {
	if ncols > frame.Width {
		ncols = frame.Width
	}
	if ncols < 0 {
		ncols = 0
	}
	out := make([]float64, ncols)
	column := make([]float64, 0, frame.Height/2)
	for x := 0; x < ncols; x++ {
		column = column[:0]
		for y := parity; y < frame.Height; y += 2 {
			column = append(column, float64(frame.Pix[y*frame.Width+x]))
		}
		out[x] = r.Reduce(column)
	}
	return out
}

// ReduceRows reduces every row of one field across all columns.
func ReduceRows(frame types.Frame, parity int, r Reduction) []float64 {
	out := make([]float64, 0, frame.Height/2)
	row := make([]float64, frame.Width)
	for y := parity; y < frame.Height; y += 2 {
		for x, v := range frame.Row(y) {
			row[x] = float64(v)
		}
		out = append(out, r.Reduce(row))
	}
	return out
}
