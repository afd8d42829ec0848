package types

import "math"

type Outcome int

const (
	NoBeam Outcome = iota
	BeamInEvenField
	BeamInOddField
)

func (o Outcome) String() string {
	switch o {
	case BeamInEvenField:
		return "even"
	case BeamInOddField:
		return "odd"
	default:
		return "no_beam"
	}
}

// FieldDecision records which interlaced field carries the beam, along with
// the diff-over-sum metric the decision was taken on.
type FieldDecision struct {
	Outcome     Outcome `json:"outcome"`
	DiffOverSum float64 `json:"diff_over_sum"`
}

func (d FieldDecision) HasBeam() bool {
	return d.Outcome != NoBeam
}

// Profile is a 1-D intensity profile paired with its coordinate axis.
type Profile struct {
	Values []float64 `json:"values"`
	Coords []float64 `json:"coords"`
}

// Domain returns the smallest and largest coordinate.
func (p Profile) Domain() (lo, hi float64) {
	if len(p.Coords) == 0 {
		return math.NaN(), math.NaN()
	}
	lo, hi = p.Coords[0], p.Coords[0]
	for _, c := range p.Coords[1:] {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	return lo, hi
}

// FitResult is either a fitted Gaussian (Fitted true) or a reason why no fit
// was accepted.
type FitResult struct {
	Fitted    bool    `json:"fitted"`
	Center    float64 `json:"center"`
	FWHM      float64 `json:"fwhm"`
	Amplitude float64 `json:"amplitude"`
	Height    float64 `json:"height"`
	Sigma     float64 `json:"sigma"`
	Baseline  float64 `json:"baseline"`
	Units     string  `json:"units,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

func NotFitted(reason string) FitResult {
	return FitResult{Reason: reason}
}

// Axis names a profile direction.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}
