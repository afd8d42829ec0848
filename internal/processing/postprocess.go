package processing

import (
	"fmt"
	"strings"

	"github.com/benshep/imageViewer2/internal/types"
)

// PostProcess selects how the displayed frame is cleaned up once the beam
// field is known.
type PostProcess int

const (
	NoPostProcess PostProcess = iota
	// Deinterlace copies the beam field over the dim field.
	Deinterlace
	// SubtractDim keeps only the beam-field increment, clipped at zero.
	SubtractDim
)

func ParsePostProcess(value string) (PostProcess, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return NoPostProcess, nil
	case "deinterlace":
		return Deinterlace, nil
	case "subtract-dim", "subtractdim", "subtract_dim":
		return SubtractDim, nil
	default:
		return NoPostProcess, fmt.Errorf("unsupported post-processing %q", value)
	}
}

func (p PostProcess) String() string {
	switch p {
	case Deinterlace:
		return "deinterlace"
	case SubtractDim:
		return "subtract-dim"
	default:
		return "none"
	}
}

// Apply returns the post-processed copy of frame for a beam in the field with
// the given parity. The input frame is never modified.
func (p PostProcess) Apply(frame types.Frame, beamParity int) types.Frame {
	if p == NoPostProcess {
		return frame
	}
	out := frame.Clone()
	for k := 0; k < frame.Height/2; k++ {
		y := 2*k + beamParity
		weakY := 2*k + 1 - beamParity
		strong := frame.Row(y)
		weak := frame.Row(weakY)
		switch p {
		case Deinterlace:
			copy(out.Row(weakY), strong)
		case SubtractDim:
			outStrong := out.Row(y)
			outWeak := out.Row(weakY)
			for x := range strong {
				var diff uint8
				if strong[x] > weak[x] {
					diff = strong[x] - weak[x]
				}
				outStrong[x] = diff
				outWeak[x] = diff
			}
		}
	}
	return out
}
