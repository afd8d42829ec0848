package types

import "time"

// Frame is one 8-bit interlaced video frame, stored row-major.
// Height is always even; rows 0,2,4,... form the even field.
type Frame struct {
	Seq    uint64    `json:"seq"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Time   time.Time `json:"time"`
	Pix    []uint8   `json:"-"`
}

func NewFrame(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

func (f Frame) Row(y int) []uint8 {
	return f.Pix[y*f.Width : (y+1)*f.Width]
}

func (f Frame) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && f.Height%2 == 0 && len(f.Pix) == f.Width*f.Height
}

// Clone returns a deep copy so the copy can be modified without touching f.
func (f Frame) Clone() Frame {
	pix := make([]uint8, len(f.Pix))
	copy(pix, f.Pix)
	f.Pix = pix
	return f
}
