package ingest

import (
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestDecodeMultiDimArrayUint8(t *testing.T) {
	value := cbor.Tag{
		Number: tagMultiDimArray,
		Content: []any{
			[]any{2, 2},
			cbor.Tag{
				Number:  tagUint8,
				Content: []byte{1, 2, 3, 4},
			},
		},
	}

	got, err := decodeMultiDimArray(value)
	if err != nil {
		t.Fatalf("decodeMultiDimArray error: %v", err)
	}
	if got.Width != 2 || got.Height != 2 {
		t.Fatalf("unexpected size %dx%d", got.Width, got.Height)
	}
	if !reflect.DeepEqual(got.Pix, []uint8{1, 2, 3, 4}) {
		t.Fatalf("decodeMultiDimArray mismatch: got %#v", got.Pix)
	}
}

func TestDecodeMultiDimArrayUint16(t *testing.T) {
	value := cbor.Tag{
		Number: tagMultiDimArray,
		Content: []any{
			[]any{2, 1},
			cbor.Tag{
				Number:  tagUint16LE,
				Content: []byte{0xff, 0x12, 0x00, 0x80},
			},
		},
	}

	got, err := decodeMultiDimArray(value)
	if err != nil {
		t.Fatalf("decodeMultiDimArray error: %v", err)
	}
	if !reflect.DeepEqual(got.Pix, []uint8{0x12, 0x80}) {
		t.Fatalf("unexpected pixels %#v", got.Pix)
	}
}

func TestDecodeMultiDimArrayOddRows(t *testing.T) {
	value := cbor.Tag{
		Number: tagMultiDimArray,
		Content: []any{
			[]any{3, 1},
			cbor.Tag{Number: tagUint8, Content: []byte{1, 2, 3}},
		},
	}
	got, err := decodeMultiDimArray(value)
	if err != nil {
		t.Fatalf("decodeMultiDimArray error: %v", err)
	}
	if got.Height != 2 || len(got.Pix) != 2 {
		t.Fatalf("odd row not trimmed: %+v", got)
	}
}

func TestDecodeMultiDimArrayMismatch(t *testing.T) {
	value := cbor.Tag{
		Number: tagMultiDimArray,
		Content: []any{
			[]any{2, 2},
			cbor.Tag{Number: tagUint8, Content: []byte{1, 2, 3}},
		},
	}
	if _, err := decodeMultiDimArray(value); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}
