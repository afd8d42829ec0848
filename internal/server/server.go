package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/benshep/imageViewer2/internal/config"
	"github.com/benshep/imageViewer2/internal/output"
	"github.com/benshep/imageViewer2/internal/pipeline"
	"github.com/benshep/imageViewer2/internal/recording"
	"github.com/benshep/imageViewer2/internal/types"
)

//go:embed web/*
var webFS embed.FS

// Handlers are the callbacks the server reads state from and sends
// commands to. Any of them may be nil.
type Handlers struct {
	Status   func() map[string]any
	Snapshot func() any
	Config   func() map[string]any
	Frame    func() (types.Frame, bool)
	Healthy  func() bool
	Submit   func(ctx context.Context, ev pipeline.Event) error
}

type Server struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.Mutex
	cfg      config.AppConfig
	h        Handlers
}

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10

	commandTimeout = 10 * time.Second
)

func New(cfg config.AppConfig, h Handlers) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		cfg:     cfg,
		h:       h,
	}
}

func (s *Server) Handler() (http.Handler, error) {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(sub)))
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/frame.png", s.handleFrame)
	mux.HandleFunc("/command", s.handleCommand)
	return mux, nil
}

func Run(ctx context.Context, cfg config.AppConfig, messages <-chan any, h Handlers) error {
	srv := New(cfg, h)
	handler, err := srv.Handler()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	go srv.broadcast(ctx, messages)

	err = httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// CommandRequest is a command from the web console, posted to /command or
// sent over the websocket with type "command".
type CommandRequest struct {
	Action    string  `json:"action"`
	Camera    string  `json:"camera,omitempty"`
	Name      string  `json:"name,omitempty"`
	Value     string  `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Step      float64 `json:"step,omitempty"`
	Count     int     `json:"count,omitempty"`
	Mode      string  `json:"mode,omitempty"`
}

// Event maps the request onto a pipeline event.
func (r CommandRequest) Event() (pipeline.Event, error) {
	switch strings.ToLower(r.Action) {
	case "camera":
		if r.Camera == "" {
			return pipeline.Event{}, errors.New("camera: missing name")
		}
		return pipeline.Event{Kind: pipeline.EventSelectCamera, Camera: r.Camera}, nil
	case "in":
		return pipeline.Event{Kind: pipeline.EventScreenIn}, nil
	case "out":
		return pipeline.Event{Kind: pipeline.EventScreenOut}, nil
	case "live":
		return pipeline.Event{Kind: pipeline.EventLive}, nil
	case "pause":
		return pipeline.Event{Kind: pipeline.EventPause}, nil
	case "option":
		return pipeline.Event{Kind: pipeline.EventSetOption, Name: r.Name, Text: r.Value}, nil
	case "threshold":
		return pipeline.Event{Kind: pipeline.EventSetThreshold, Value: r.Threshold}, nil
	case "reset_threshold":
		return pipeline.Event{Kind: pipeline.EventResetThreshold}, nil
	case "train_length":
		return pipeline.Event{Kind: pipeline.EventTrainLengthStep, Value: r.Step}, nil
	case "record":
		mode, err := recording.ParseMode(r.Mode)
		if err != nil {
			return pipeline.Event{}, err
		}
		return pipeline.Event{Kind: pipeline.EventArm, Count: r.Count, Mode: mode}, nil
	case "cancel_record":
		return pipeline.Event{Kind: pipeline.EventCancelRecording}, nil
	case "save":
		return pipeline.Event{Kind: pipeline.EventSave}, nil
	default:
		return pipeline.Event{}, fmt.Errorf("unknown action %q", r.Action)
	}
}

func (s *Server) submit(ctx context.Context, req CommandRequest) error {
	ev, err := req.Event()
	if err != nil {
		return err
	}
	if s.h.Submit == nil {
		return errors.New("commands not available")
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return s.h.Submit(ctx, ev)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.mu.Lock()
	writeMu := &sync.Mutex{}
	s.clients[conn] = writeMu
	s.mu.Unlock()

	_ = s.writeJSON(conn, writeMu, s.configPayload())

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := s.writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer s.removeClient(conn)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var request struct {
				Type string `json:"type"`
				CommandRequest
			}
			if err := json.Unmarshal(payload, &request); err != nil {
				continue
			}
			switch request.Type {
			case "snapshot_request":
				if s.h.Snapshot == nil {
					continue
				}
				snapshot := s.h.Snapshot()
				if snapshot == nil {
					continue
				}
				_ = s.writeJSON(conn, writeMu, snapshot)
			case "command":
				reply := types.UIMessage{Type: "command_ok", Text: request.Action}
				if err := s.submit(context.Background(), request.CommandRequest); err != nil {
					reply = types.UIMessage{Type: "error", Text: err.Error()}
				}
				_ = s.writeJSON(conn, writeMu, reply)
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.h.Healthy != nil && !s.h.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("acquisition unhealthy"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) configPayload() map[string]any {
	payload := map[string]any{
		"type":             "config",
		"port":             s.cfg.Port,
		"source":           s.cfg.Source,
		"width":            s.cfg.Width,
		"height":           s.cfg.Height,
		"command_endpoint": s.cfg.CommandEndpoint,
		"publish_endpoint": s.cfg.PublishEndpoint,
		"file_template":    s.cfg.FileTemplate,
		"default_count":    s.cfg.DefaultCount,
	}
	if s.h.Config != nil {
		for k, v := range s.h.Config() {
			payload[k] = v
		}
	}
	return payload
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.configPayload())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{}
	if s.h.Status != nil {
		payload = s.h.Status()
	}
	if metrics, ok := payload["metrics"].(map[string]any); ok {
		metrics["ws_clients"] = s.clientCount()
	} else {
		payload["ws_clients"] = s.clientCount()
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// handleFrame serves the displayed frame through the jet colour map.
func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	if s.h.Frame == nil {
		http.Error(w, "no frame", http.StatusNotFound)
		return
	}
	frame, ok := s.h.Frame()
	if !ok {
		http.Error(w, "no frame", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_ = png.Encode(w, output.ColorImage(frame))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.submit(r.Context(), req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "action": req.Action})
}

func (s *Server) broadcast(ctx context.Context, messages <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}
			payload, err := json.Marshal(message)
			if err != nil {
				continue
			}
			var stale []*websocket.Conn
			s.mu.Lock()
			for conn, writeMu := range s.clients {
				if err := s.writeMessage(conn, writeMu, websocket.TextMessage, payload); err != nil {
					stale = append(stale, conn)
				}
			}
			s.mu.Unlock()
			for _, conn := range stale {
				s.removeClient(conn)
			}
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) writeJSON(conn *websocket.Conn, writeMu *sync.Mutex, payload any) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}

func (s *Server) writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
