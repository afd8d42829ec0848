package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCameraAxesCalibrated(t *testing.T) {
	cam := Camera{
		Name: "INJ-3",
		Calibration: &Calibration{
			XMultiplier: 0.5,
			YMultiplier: -0.25,
			XCentre:     2,
			YCentre:     4,
		},
	}
	x, y, units := cam.Axes(8, 6)
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5}, x)
	assert.Equal(t, []float64{1, 0.5, 0}, y)
	assert.Equal(t, "mm", units)
}

func TestCameraAxesPixels(t *testing.T) {
	x, y, units := Camera{Name: "AR2-1"}.Axes(7, 4)
	assert.Equal(t, []float64{0, 1, 2}, x)
	assert.Equal(t, []float64{0, 2}, y)
	assert.Equal(t, PixelUnits, units)
}

func TestProfileDomain(t *testing.T) {
	lo, hi := Profile{Coords: []float64{3, -1, 2}}.Domain()
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 3.0, hi)
}

func TestFrameClone(t *testing.T) {
	f := NewFrame(2, 2)
	f.Pix[0] = 9
	c := f.Clone()
	c.Pix[0] = 1
	assert.Equal(t, uint8(9), f.At(0, 0))
	assert.True(t, c.Valid())
	assert.Equal(t, []uint8{1, 0}, c.Row(0))
}
