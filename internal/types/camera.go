package types

// Calibration maps pixel indices to physical units for one screen:
// value = (index - centre) * multiplier.
type Calibration struct {
	XMultiplier float64 `yaml:"x_multiplier" json:"x_multiplier"`
	YMultiplier float64 `yaml:"y_multiplier" json:"y_multiplier"`
	XCentre     float64 `yaml:"x_centre" json:"x_centre"`
	YCentre     float64 `yaml:"y_centre" json:"y_centre"`
	Units       string  `yaml:"units" json:"units"`
}

// Camera describes one screen camera behind the video switcher.
type Camera struct {
	Name         string       `yaml:"name" json:"name"`
	MuxID        int          `yaml:"mux_id" json:"mux_id"`
	Threshold    float64      `yaml:"threshold" json:"threshold"`
	StdThreshold float64      `yaml:"std_threshold" json:"std_threshold"`
	Calibration  *Calibration `yaml:"calibration,omitempty" json:"calibration,omitempty"`
}

const PixelUnits = "pixels"

// TrimColumns is the number of trailing columns left out of x profiles;
// this sensor reads close to zero there.
const TrimColumns = 4

// Axes returns the calibrated coordinates for the x profile (one per column,
// trimmed) and the y profile (one per even row). Cameras without calibration
// fall back to raw pixel indices.
func (c Camera) Axes(width, height int) (x []float64, y []float64, units string) {
	nx := width - TrimColumns
	if nx < 0 {
		nx = 0
	}
	ny := height / 2
	x = make([]float64, nx)
	y = make([]float64, ny)

	cal := c.Calibration
	if cal == nil || cal.XMultiplier == 0 || cal.YMultiplier == 0 {
		for i := range x {
			x[i] = float64(i)
		}
		for i := range y {
			y[i] = float64(2 * i)
		}
		return x, y, PixelUnits
	}

	for i := range x {
		x[i] = (float64(i) - cal.XCentre) * cal.XMultiplier
	}
	for i := range y {
		y[i] = (float64(2*i) - cal.YCentre) * cal.YMultiplier
	}
	units = cal.Units
	if units == "" {
		units = "mm"
	}
	return x, y, units
}

// ThresholdFor returns the beam detection threshold for the selected reduction.
func (c Camera) ThresholdFor(useStd bool) float64 {
	if useStd {
		return c.StdThreshold
	}
	return c.Threshold
}
