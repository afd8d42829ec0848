package output

import (
	"image"
	"image/color"

	"github.com/benshep/imageViewer2/internal/types"
)

// SaturationLevel is the first grey level drawn white, marking saturation.
const SaturationLevel = 249

// Jet is the 256-entry MATLAB jet colour map, with the top levels white.
var Jet = buildJet()

func buildJet() [256]color.RGBA {
	var lut [256]color.RGBA
	i := 0
	add := func(r, g, b int) {
		lut[i] = color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
		i++
	}
	for b := 128; b < 256; b += 4 {
		add(0, 0, b)
	}
	for g := 0; g < 256; g += 4 {
		add(0, g, 255)
	}
	for r := 0; r < 256; r += 4 {
		add(r, 255, 255-r)
	}
	for g := 0; g < 256; g += 4 {
		add(255, 255-g, 0)
	}
	for r := 128; r < 256; r += 4 {
		add(255-r, 0, 0)
	}
	for j := SaturationLevel; j < len(lut); j++ {
		lut[j] = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return lut
}

// RGB24 converts frame to interleaved rgb24 bytes through the jet map.
func RGB24(frame types.Frame, dst []byte) []byte {
	n := len(frame.Pix) * 3
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, v := range frame.Pix {
		c := Jet[v]
		dst[3*i] = c.R
		dst[3*i+1] = c.G
		dst[3*i+2] = c.B
	}
	return dst
}

// ColorImage renders frame through the jet map, for the live view.
func ColorImage(frame types.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i, v := range frame.Pix {
		c := Jet[v]
		o := 4 * i
		img.Pix[o] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = 0xff
	}
	return img
}
