package output

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/benshep/imageViewer2/internal/recording"
	"github.com/benshep/imageViewer2/internal/types"
)

// WriteStill saves frame as an 8-bit grayscale PNG, creating parent
// directories as needed.
func WriteStill(path string, frame types.Frame) error {
	if !frame.Valid() {
		return fmt.Errorf("write still %s: invalid frame %dx%d", path, frame.Width, frame.Height)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	img := &image.Gray{
		Pix:    frame.Pix,
		Stride: frame.Width,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// ReadStill loads a PNG back into a frame. Colour images are converted to
// gray.
func ReadStill(path string) (types.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Frame{}, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return types.Frame{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return FrameFromImage(img), nil
}

func FrameFromImage(img image.Image) types.Frame {
	b := img.Bounds()
	frame := types.NewFrame(b.Dx(), b.Dy())
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < frame.Height; y++ {
			copy(frame.Row(y), gray.Pix[y*gray.Stride:y*gray.Stride+frame.Width])
		}
		return frame
	}
	for y := 0; y < frame.Height; y++ {
		row := frame.Row(y)
		for x := range row {
			row[x] = grayAt(img, b.Min.X+x, b.Min.Y+y)
		}
	}
	return frame
}

func grayAt(img image.Image, x, y int) uint8 {
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

// ExportStills writes every frame of seq under dir, naming each from tmpl.
// It returns the written paths in sequence order.
func ExportStills(dir, tmpl string, params NameParams, seq *recording.Sequence) ([]string, error) {
	paths := make([]string, 0, seq.Len())
	params.Count = seq.Len()
	for i, frame := range seq.Frames {
		params.Index = i
		path := filepath.Join(dir, filepath.FromSlash(ExpandTemplate(tmpl, params)))
		if err := WriteStill(path, frame); err != nil {
			return paths, fmt.Errorf("still %d of %d: %w", i+1, seq.Len(), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
