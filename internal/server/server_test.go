package server

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benshep/imageViewer2/internal/config"
	"github.com/benshep/imageViewer2/internal/pipeline"
	"github.com/benshep/imageViewer2/internal/recording"
	"github.com/benshep/imageViewer2/internal/types"
)

func TestHandleConfig(t *testing.T) {
	srv := New(config.AppConfig{
		Port:         9999,
		Width:        768,
		Height:       568,
		DefaultCount: 100,
	}, Handlers{
		Config: func() map[string]any {
			return map[string]any{"cameras": []string{"INJ-1", "INJ-2"}}
		},
	})

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if payload["port"].(float64) != 9999 {
		t.Fatalf("unexpected port: %v", payload["port"])
	}
	if payload["height"].(float64) != 568 {
		t.Fatalf("unexpected height: %v", payload["height"])
	}
	if cams, ok := payload["cameras"].([]any); !ok || len(cams) != 2 {
		t.Fatalf("unexpected cameras: %v", payload["cameras"])
	}
}

func TestHandleStatusAddsClientCount(t *testing.T) {
	srv := New(config.AppConfig{}, Handlers{
		Status: func() map[string]any {
			return map[string]any{"camera": "AR1-1", "metrics": map[string]any{"frames_acquired_total": 3}}
		},
	})
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	metrics := payload["metrics"].(map[string]any)
	if metrics["ws_clients"].(float64) != 0 {
		t.Fatalf("unexpected ws_clients: %v", metrics["ws_clients"])
	}
	if payload["camera"] != "AR1-1" {
		t.Fatalf("unexpected camera: %v", payload["camera"])
	}
}

func TestHandleHealth(t *testing.T) {
	healthy := true
	srv := New(config.AppConfig{}, Handlers{Healthy: func() bool { return healthy }})

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	healthy = false
	rec = httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestHandleFrame(t *testing.T) {
	frame := types.NewFrame(6, 4)
	frame.Pix[0] = 255
	srv := New(config.AppConfig{}, Handlers{
		Frame: func() (types.Frame, bool) { return frame, true },
	})
	rec := httptest.NewRecorder()
	srv.handleFrame(rec, httptest.NewRequest("GET", "/frame.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Fatalf("unexpected size: %v", b)
	}

	empty := New(config.AppConfig{}, Handlers{})
	rec = httptest.NewRecorder()
	empty.handleFrame(rec, httptest.NewRequest("GET", "/frame.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status without frame: %d", rec.Code)
	}
}

func TestHandleCommand(t *testing.T) {
	var got []pipeline.Event
	srv := New(config.AppConfig{}, Handlers{
		Submit: func(_ context.Context, ev pipeline.Event) error {
			got = append(got, ev)
			return nil
		},
	})

	post := func(body string) int {
		rec := httptest.NewRecorder()
		srv.handleCommand(rec, httptest.NewRequest("POST", "/command", strings.NewReader(body)))
		return rec.Code
	}
	if code := post(`{"action":"record","count":50,"mode":"movie"}`); code != http.StatusOK {
		t.Fatalf("record: unexpected status %d", code)
	}
	if code := post(`{"action":"camera","camera":"ST1-1"}`); code != http.StatusOK {
		t.Fatalf("camera: unexpected status %d", code)
	}
	if code := post(`{"action":"warp"}`); code != http.StatusBadRequest {
		t.Fatalf("unknown action: unexpected status %d", code)
	}
	if code := post(`not json`); code != http.StatusBadRequest {
		t.Fatalf("bad body: unexpected status %d", code)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Kind != pipeline.EventArm || got[0].Count != 50 || got[0].Mode != recording.Movie {
		t.Fatalf("unexpected record event: %+v", got[0])
	}
	if got[1].Kind != pipeline.EventSelectCamera || got[1].Camera != "ST1-1" {
		t.Fatalf("unexpected camera event: %+v", got[1])
	}

	rec := httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("GET", "/command", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: unexpected status %d", rec.Code)
	}
}

func TestCommandRequestEvent(t *testing.T) {
	tests := []struct {
		req  CommandRequest
		kind pipeline.EventKind
	}{
		{CommandRequest{Action: "IN"}, pipeline.EventScreenIn},
		{CommandRequest{Action: "out"}, pipeline.EventScreenOut},
		{CommandRequest{Action: "option", Name: "beam_only", Value: "true"}, pipeline.EventSetOption},
		{CommandRequest{Action: "threshold", Threshold: 0.1}, pipeline.EventSetThreshold},
		{CommandRequest{Action: "train_length", Step: -1}, pipeline.EventTrainLengthStep},
		{CommandRequest{Action: "save"}, pipeline.EventSave},
	}
	for _, tc := range tests {
		ev, err := tc.req.Event()
		if err != nil {
			t.Fatalf("%s: %v", tc.req.Action, err)
		}
		if ev.Kind != tc.kind {
			t.Fatalf("%s: got kind %d want %d", tc.req.Action, ev.Kind, tc.kind)
		}
	}
	if _, err := (CommandRequest{Action: "camera"}).Event(); err == nil {
		t.Fatalf("expected error for camera without name")
	}
	if _, err := (CommandRequest{Action: "record", Mode: "gif"}).Event(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestStaticIndexServed(t *testing.T) {
	handler, err := New(config.AppConfig{}, Handlers{}).Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Beam camera") {
		t.Fatalf("unexpected index response: %d", rec.Code)
	}
}
