package ingest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/benshep/imageViewer2/internal/types"
)

const (
	tagMultiDimArray = 40
	tagUint8         = 64
	tagUint16LE      = 69
)

// decodeMultiDimArray turns a tag 40 [rows, cols] array into a frame.
// 16-bit samples keep their high byte.
func decodeMultiDimArray(value any) (types.Frame, error) {
	tag, ok := value.(cbor.Tag)
	if !ok || tag.Number != tagMultiDimArray {
		return types.Frame{}, fmt.Errorf("expected multidim tag 40")
	}

	items, ok := tag.Content.([]any)
	if !ok || len(items) != 2 {
		return types.Frame{}, fmt.Errorf("invalid multidim array content")
	}

	dimsRaw, ok := items[0].([]any)
	if !ok || len(dimsRaw) != 2 {
		return types.Frame{}, fmt.Errorf("invalid multidim dimensions")
	}

	rows, err := toInt(dimsRaw[0])
	if err != nil {
		return types.Frame{}, err
	}
	cols, err := toInt(dimsRaw[1])
	if err != nil {
		return types.Frame{}, err
	}
	if rows <= 0 || cols <= 0 {
		return types.Frame{}, fmt.Errorf("invalid frame size %dx%d", cols, rows)
	}

	pix, err := decodeTypedArray(items[1])
	if err != nil {
		return types.Frame{}, err
	}
	if rows*cols != len(pix) {
		return types.Frame{}, errors.New("dimension mismatch")
	}

	// an odd trailing row cannot be paired with its field partner
	rows -= rows % 2
	return types.Frame{
		Width:  cols,
		Height: rows,
		Pix:    pix[:rows*cols],
	}, nil
}

func decodeTypedArray(value any) ([]uint8, error) {
	tag, ok := value.(cbor.Tag)
	if !ok {
		return nil, fmt.Errorf("expected typed array tag")
	}
	data, ok := tag.Content.([]byte)
	if !ok {
		return nil, fmt.Errorf("unsupported typed array content %T", tag.Content)
	}

	switch tag.Number {
	case tagUint8:
		return data, nil
	case tagUint16LE:
		return uint16ToUint8(data), nil
	default:
		return nil, fmt.Errorf("unsupported typed array tag %d", tag.Number)
	}
}

func uint16ToUint8(data []byte) []uint8 {
	out := make([]uint8, len(data)/2)
	for i := range out {
		out[i] = uint8(binary.LittleEndian.Uint16(data[i*2:i*2+2]) >> 8)
	}
	return out
}
