package ingest

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/benshep/imageViewer2/internal/types"
)

func TestDecodeFrameRoundTrip(t *testing.T) {
	frame := types.NewFrame(3, 2)
	copy(frame.Pix, []uint8{10, 20, 30, 40, 50, 60})
	frame.Seq = 7
	frame.Time = time.Unix(1700000000, 250000000)

	payload, err := EncodeFrame(frame)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	got, ok := decodeFrame(payload, 1)
	if !ok {
		t.Fatalf("decodeFrame returned ok=false")
	}
	if got.Seq != 7 {
		t.Fatalf("unexpected seq: %d", got.Seq)
	}
	if got.Width != 3 || got.Height != 2 {
		t.Fatalf("unexpected size %dx%d", got.Width, got.Height)
	}
	if got.Pix[5] != 60 {
		t.Fatalf("unexpected pixels: %#v", got.Pix)
	}
	if d := got.Time.Sub(frame.Time); d > time.Microsecond || d < -time.Microsecond {
		t.Fatalf("unexpected time: %v", got.Time)
	}
}

func TestDecodeFrameIgnoresOtherTypes(t *testing.T) {
	payload, err := cbor.Marshal(map[string]any{"type": "start", "seq": 1})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if _, ok := decodeFrame(payload, 1); ok {
		t.Fatalf("expected non-image message to be skipped")
	}
	if _, ok := decodeFrame([]byte{0xff, 0x00}, 1); ok {
		t.Fatalf("expected garbage to be skipped")
	}
}

func TestDecodeFrameMissingData(t *testing.T) {
	payload, err := cbor.Marshal(map[string]any{"type": "image", "seq": 3})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if _, ok := decodeFrame(payload, 1); ok {
		t.Fatalf("expected message without data to be skipped")
	}
}
