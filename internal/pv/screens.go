package pv

import (
	"context"
	"fmt"
	"strings"

	"github.com/benshep/imageViewer2/internal/types"
)

type ScreenState int

const (
	StateUnknown ScreenState = iota
	StateIn
	StateOut
	StateMoving
)

func (s ScreenState) String() string {
	switch s {
	case StateIn:
		return "in"
	case StateOut:
		return "out"
	case StateMoving:
		return "moving"
	default:
		return "unknown"
	}
}

// Screen holds the PV names and set points that move one screen.
// A status readback >= StatusIn means in, <= StatusOut means out.
type Screen struct {
	Name      string
	Base      string
	InPV      string
	InValue   float64
	OutPV     string
	OutValue  float64
	StatusPV  string
	StatusIn  float64
	StatusOut float64
}

// BaseName derives the PV prefix for a camera, e.g. INJ-3 -> INJ-DIA-YAG-03
// and AR1-1 -> AR1-DIA-OTR-01. Wiggler screens (xxWGE) live under ST3-WIG.
func BaseName(camera string) string {
	if len(camera) > 2 && camera[2:] == "WGE" {
		return "ST3-WIG-" + camera + "-01"
	}
	region, num, _ := strings.Cut(camera, "-")
	screenType := "OTR"
	if region == "INJ" {
		screenType = "YAG"
	}
	if len(num) < 2 {
		num = strings.Repeat("0", 2-len(num)) + num
	}
	return strings.Join([]string{region, "DIA", screenType, num}, "-")
}

func ScreenFor(camera string) Screen {
	base := BaseName(camera)
	switch camera {
	case "INJ-1":
		return Screen{
			Name: camera, Base: base,
			InPV: base + ":MSABS", InValue: -59.5,
			OutPV: base + ":MSABS", OutValue: -105,
			StatusPV: base + ":RCAL", StatusIn: -60, StatusOut: -95,
		}
	case "ST3-1":
		mover := "ST3-MOV-OTR02-01"
		return Screen{
			Name: camera, Base: base,
			InPV: mover + ":MABS", InValue: 11600,
			OutPV: mover + ":MABS", OutValue: -2300,
			StatusPV: mover + ":MABS", StatusIn: 11600, StatusOut: -2300,
		}
	default:
		return Screen{
			Name: camera, Base: base,
			InPV: base + ":On", InValue: 1,
			OutPV: base + ":Off", OutValue: 1,
			StatusPV: base + ":Sta", StatusIn: 1, StatusOut: 0,
		}
	}
}

func (s Screen) Classify(readback float64) ScreenState {
	switch {
	case readback >= s.StatusIn:
		return StateIn
	case readback <= s.StatusOut:
		return StateOut
	default:
		return StateMoving
	}
}

// PositionPVs returns the centre and size PVs for one axis.
func (s Screen) PositionPVs(axis types.Axis) (center, size string) {
	if axis == types.AxisY {
		return s.Base + ":Y", s.Base + ":H"
	}
	return s.Base + ":X", s.Base + ":W"
}

func (c *Client) MoveIn(ctx context.Context, camera string) error {
	s := ScreenFor(camera)
	if err := c.Put(ctx, s.InPV, s.InValue); err != nil {
		return fmt.Errorf("move %s in: %w", camera, err)
	}
	return nil
}

func (c *Client) MoveOut(ctx context.Context, camera string) error {
	s := ScreenFor(camera)
	if err := c.Put(ctx, s.OutPV, s.OutValue); err != nil {
		return fmt.Errorf("move %s out: %w", camera, err)
	}
	return nil
}

func (c *Client) ScreenState(ctx context.Context, camera string) (ScreenState, error) {
	s := ScreenFor(camera)
	v, err := c.Get(ctx, s.StatusPV)
	if err != nil {
		return StateUnknown, err
	}
	return s.Classify(v), nil
}

// SetPosition writes an accepted fit to the screen's position PVs.
func (c *Client) SetPosition(ctx context.Context, camera string, axis types.Axis, center, fwhm float64) error {
	centerPV, sizePV := ScreenFor(camera).PositionPVs(axis)
	if err := c.Put(ctx, centerPV, center); err != nil {
		return err
	}
	return c.Put(ctx, sizePV, fwhm)
}

const (
	TrainLengthSetPV  = "INJ-LSR-DLY-01:BCSET"
	TrainLengthReadPV = "INJ-LSR-DLY-01:BCAL"
)

// TrainLength reads the bunch train length in microseconds.
func (c *Client) TrainLength(ctx context.Context) (float64, error) {
	return c.Get(ctx, TrainLengthReadPV)
}

func (c *Client) SetTrainLength(ctx context.Context, us float64) error {
	return c.Put(ctx, TrainLengthSetPV, us)
}
