package output

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/benshep/imageViewer2/internal/fitting"
	"github.com/benshep/imageViewer2/internal/types"
)

// ProfileSet is one frame's pair of profiles and fits, as saved alongside a
// still.
type ProfileSet struct {
	Camera string
	Units  string
	X      types.Profile
	Y      types.Profile
	FitX   types.FitResult
	FitY   types.FitResult
}

func (s ProfileSet) axis(a types.Axis) (types.Profile, types.FitResult) {
	if a == types.AxisY {
		return s.Y, s.FitY
	}
	return s.X, s.FitX
}

// WriteProfileCSV writes both profiles, one row per sample, with the fitted
// curve where a fit was accepted.
func WriteProfileCSV(path string, set ProfileSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(f, "# camera %s, units %s\n", set.Camera, set.Units)
	for _, a := range []types.Axis{types.AxisX, types.AxisY} {
		_, fit := set.axis(a)
		if fit.Fitted {
			_, _ = fmt.Fprintf(f, "# %s fit: center %.6g, fwhm %.6g, amplitude %.6g\n", a, fit.Center, fit.FWHM, fit.Amplitude)
		}
	}
	_, _ = fmt.Fprintln(f, "axis, index, coord, value, fit")
	for _, a := range []types.Axis{types.AxisX, types.AxisY} {
		prof, fit := set.axis(a)
		curve := fitting.Curve(fit, prof.Coords)
		for i, v := range prof.Values {
			fitValue := ""
			if curve != nil {
				fitValue = fmt.Sprintf("%.6f", curve[i])
			}
			_, _ = fmt.Fprintf(f, "%s, %d, %.6f, %.6f, %s\n", a, i, prof.Coords[i], v, fitValue)
		}
	}
	return f.Close()
}

// WriteProfilePlot renders both profiles with their fitted curves to a PNG.
func WriteProfilePlot(path string, set ProfileSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s profiles", set.Camera)
	p.X.Label.Text = fmt.Sprintf("Position (%s)", set.Units)
	p.Y.Label.Text = "Intensity"

	colors := map[types.Axis]color.RGBA{
		types.AxisX: {R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
		types.AxisY: {R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	}
	for _, a := range []types.Axis{types.AxisX, types.AxisY} {
		prof, fit := set.axis(a)
		if len(prof.Values) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys(prof.Coords, prof.Values))
		if err != nil {
			return err
		}
		line.Color = colors[a]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(a.String(), line)

		if curve := fitting.Curve(fit, prof.Coords); curve != nil {
			fitLine, err := plotter.NewLine(xys(prof.Coords, curve))
			if err != nil {
				return err
			}
			fitLine.Color = colors[a]
			fitLine.Width = vg.Points(1)
			fitLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			p.Add(fitLine)
			p.Legend.Add(fmt.Sprintf("%s fit (fwhm %.3g)", a, fit.FWHM), fitLine)
		}
	}
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(y))
	for i := range y {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	return pts
}
