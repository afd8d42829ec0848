package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/benshep/imageViewer2/internal/camera"
	"github.com/benshep/imageViewer2/internal/config"
	"github.com/benshep/imageViewer2/internal/control"
	"github.com/benshep/imageViewer2/internal/ingest"
	"github.com/benshep/imageViewer2/internal/output"
	"github.com/benshep/imageViewer2/internal/pipeline"
	"github.com/benshep/imageViewer2/internal/pv"
	"github.com/benshep/imageViewer2/internal/server"
	"github.com/benshep/imageViewer2/internal/switcher"
	"github.com/benshep/imageViewer2/internal/timeutil"
)

func main() {
	var (
		port            = flag.Int("port", 8888, "HTTP port for the live view")
		commandEndpoint = flag.String("command-endpoint", control.DefaultCommandEndpoint, "ZMQ REP endpoint for camera commands")
		publishEndpoint = flag.String("publish-endpoint", control.DefaultPublishEndpoint, "ZMQ PUB endpoint for screen and position updates")
		source          = flag.String("source", "simulator", "Frame source: simulator, replay, zmq or device")
		sourceEndpoint  = flag.String("source-endpoint", "tcp://localhost:31001", "ZMQ endpoint for -source zmq")
		replayDir       = flag.String("replay-dir", "testImages", "Folder of PNG frames for -source replay")
		device          = flag.Int("device", 0, "Capture device index for -source device")
		width           = flag.Int("width", camera.DefaultWidth, "Frame width for simulator and zmq sources")
		height          = flag.Int("height", camera.DefaultHeight, "Frame height for simulator and zmq sources")
		frameInterval   = flag.Duration("frame-interval", pipeline.DefaultInterval, "Target acquisition cadence")
		acquireTimeout  = flag.Duration("acquire-timeout", pipeline.DefaultAcquireTimeout, "Timeout for one frame acquisition")
		workers         = flag.Int("workers", pipeline.DefaultWorkers, "Analysis workers in threaded mode")
		threaded        = flag.Bool("threaded", false, "Analyse frames off the acquisition goroutine")
		camerasFile     = flag.String("cameras", "", "YAML camera list (built-in list when empty)")
		selectedCamera  = flag.String("camera", "", "Camera selected at startup (first in list when empty)")
		outputDir       = flag.String("output-dir", "Work", "Directory for saved images and movies")
		fileTemplate    = flag.String("file-template", output.DefaultSaveTemplate, "File name template for saved images and movies")
		ffmpegPath      = flag.String("ffmpeg", "ffmpeg", "Path to the ffmpeg binary used for movies")
		defaultCount    = flag.Int("frames", 100, "Default number of frames to record")
		rawLogEnabled   = flag.Bool("raw-log", false, "Write accepted frames to a raw CBOR log")
		rawLogDir       = flag.String("raw-log-dir", "rawlog", "Directory for raw frame logs")
		uiRate          = flag.Duration("ui-rate", 1*time.Second, "Interval for status messages to websocket clients")
		pvGateway       = flag.String("pv-gateway", "", "Base URL of the control system PV gateway (disabled when empty)")
		pvInterval      = flag.Duration("pv-interval", 1*time.Second, "Polling interval for screen status readbacks")
		switcherPorts   = flag.String("switcher-ports", "", "Comma-separated serial ports of the video switchers, in order")
		switcherBaud    = flag.Int("switcher-baud", 9600, "Baud rate of the video switchers")
		ingestLogEvery  = flag.Int("ingest-log-every", 100, "Log every Nth per-frame error")
		useStd          = flag.Bool("use-std", false, "Build profiles from the standard deviation instead of the sum")
		beamOnly        = flag.Bool("beam-only", true, "Only accept frames whose field asymmetry exceeds the camera threshold")
		fitGaussians    = flag.Bool("fit", true, "Fit Gaussians to the profiles")
		outputToPV      = flag.Bool("output-to-pv", false, "Publish accepted fits to position PVs and subscribers")
		autoMove        = flag.Bool("auto-move", false, "Move screens in and out when the camera changes")
		postProcess     = flag.String("post-process", "none", "Display post-processing: none, deinterlace or subtract-dim")
	)
	flag.Parse()

	cfg := config.AppConfig{
		Port:            *port,
		CommandEndpoint: *commandEndpoint,
		PublishEndpoint: *publishEndpoint,
		Source:          *source,
		SourceEndpoint:  *sourceEndpoint,
		ReplayDir:       *replayDir,
		Device:          *device,
		Width:           *width,
		Height:          *height,
		FrameInterval:   *frameInterval,
		AcquireTimeout:  *acquireTimeout,
		Workers:         *workers,
		Threaded:        *threaded,
		CamerasFile:     *camerasFile,
		SelectedCamera:  *selectedCamera,
		OutputDir:       *outputDir,
		FileTemplate:    *fileTemplate,
		FFmpegPath:      *ffmpegPath,
		DefaultCount:    *defaultCount,
		RawLogEnabled:   *rawLogEnabled,
		RawLogDir:       *rawLogDir,
		UIRate:          *uiRate,
		PVGateway:       *pvGateway,
		PVPollInterval:  *pvInterval,
		SwitcherPorts:   splitList(*switcherPorts),
		SwitcherBaud:    *switcherBaud,
		IngestLogEvery:  *ingestLogEvery,
		UseStd:          *useStd,
		BeamOnly:        *beamOnly,
		FitGaussians:    *fitGaussians,
		OutputToPV:      *outputToPV,
		AutoMove:        *autoMove,
		PostProcess:     *postProcess,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cameras, err := config.LoadCameras(cfg.CamerasFile)
	if err != nil {
		log.Fatalf("failed to load cameras: %v", err)
	}
	selected := cameras[0]
	if cfg.SelectedCamera != "" {
		cam, ok := config.FindCamera(cameras, cfg.SelectedCamera)
		if !ok {
			log.Fatalf("camera %q not in camera list", cfg.SelectedCamera)
		}
		selected = cam
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatalf("invalid options: %v", err)
	}

	src, err := openSource(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s source: %v", cfg.Source, err)
	}
	w, h := src.Size()
	log.Printf("acquiring %dx%d frames from %s", w, h, cfg.Source)

	clock := timeutil.RealClock{}
	var metrics pipeline.Metrics
	uiMessages := make(chan any, 64)
	session := pipeline.NewSession(clock, selected, opts)

	proc := pipeline.NewProcessor(session, &metrics)
	proc.UI = uiMessages
	proc.LogEvery = cfg.IngestLogEvery
	proc.Exporter = &pipeline.FileExporter{
		Dir:            cfg.OutputDir,
		StillsTemplate: output.DefaultSequenceTemplate,
		MovieTemplate:  cfg.FileTemplate,
		Encoder:        output.NewMovieEncoder(cfg.FFmpegPath),
	}

	coord := pipeline.NewCoordinator(session, cameras)
	coord.UI = uiMessages
	coord.SaveDir = cfg.OutputDir
	coord.SaveTmpl = cfg.FileTemplate

	var rawLog *output.RawLogWriter
	if cfg.RawLogEnabled {
		rawLog, err = output.NewRawLogWriter(cfg.RawLogDir, "frames")
		if err != nil {
			log.Fatalf("failed to start raw log: %v", err)
		}
		log.Printf("raw frame log at %s", rawLog.Path())
		proc.RawLog = rawLog
	}

	var pvClient *pv.Client
	if cfg.PVGateway != "" {
		pvClient = pv.NewClient(cfg.PVGateway, 2*time.Second)
		proc.Positions = pvClient
		coord.Screens = pvClient
	}

	var sw *switcher.Switcher
	if len(cfg.SwitcherPorts) > 0 {
		sw, err = switcher.Open(cfg.SwitcherPorts, switcher.PortOptions{BaudRate: cfg.SwitcherBaud})
		if err != nil {
			log.Printf("video switcher unavailable: %v", err)
		} else {
			coord.Switcher = sw
		}
	}

	publisher, err := control.NewPublisher(cfg.PublishEndpoint)
	if err != nil {
		log.Printf("publisher unavailable: %v", err)
	} else {
		proc.Publisher = publisher
		coord.Publisher = publisher
	}

	go coord.Run(ctx)
	coord.Post(pipeline.Event{Kind: pipeline.EventSelectCamera, Camera: selected.Name})

	if pvClient != nil {
		names := make([]string, len(cameras))
		for i, cam := range cameras {
			names[i] = cam.Name
		}
		poller := &pv.Poller{
			Client:   pvClient,
			Cameras:  names,
			Interval: cfg.PVPollInterval,
			OnScreen: func(name string, state pv.ScreenState) {
				coord.Post(pipeline.Event{Kind: pipeline.EventScreenStatus, Camera: name, Screen: state})
			},
			OnTrainLength: func(us float64) {
				coord.Post(pipeline.Event{Kind: pipeline.EventTrainLength, Value: us})
			},
		}
		go poller.Run(ctx)
	}

	cmdServer := &control.CommandServer{
		Endpoint: cfg.CommandEndpoint,
		IsCamera: coord.IsCamera,
		Handle: func(cmd control.Command) {
			log.Printf("command: %s %s", cmd.Kind, cmd.Camera)
			if ev, ok := pipeline.EventFromCommand(cmd); ok {
				coord.Post(ev)
			}
		},
	}
	go func() {
		if err := cmdServer.Run(ctx); err != nil {
			log.Printf("command server stopped: %v", err)
		}
	}()

	loop := &pipeline.Loop{
		Source:   src,
		Session:  session,
		Handler:  proc,
		Clock:    clock,
		Metrics:  &metrics,
		Interval: cfg.FrameInterval,
		Timeout:  cfg.AcquireTimeout,
		Workers:  cfg.Workers,
		LogEvery: cfg.IngestLogEvery,
	}

	var statusMu sync.Mutex
	status := map[string]any{
		"source":     cfg.Source,
		"started":    time.Now().Format(time.RFC3339),
		"last_frame": "",
	}

	go func() {
		if cfg.UIRate <= 0 {
			cfg.UIRate = 1 * time.Second
		}
		ticker := time.NewTicker(cfg.UIRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if latest, ok := session.Latest(); ok {
					statusMu.Lock()
					status["last_frame"] = latest.Time.Format(time.RFC3339Nano)
					statusMu.Unlock()
				}
				select {
				case uiMessages <- map[string]any{
					"type":      "recording",
					"recording": session.RecordingStatus(),
					"health":    loop.Health(),
				}:
				default:
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshot := metrics.Snapshot()
				log.Printf("acquisition stats: acquired=%v accepted=%v no_beam=%v dropped=%v timeouts=%v errors=%v rate=%.2f",
					snapshot["frames_acquired_total"],
					snapshot["frames_accepted_total"],
					snapshot["frames_no_beam_total"],
					snapshot["frames_dropped_total"],
					snapshot["acquire_timeouts_total"],
					snapshot["acquire_errors_total"],
					session.Rate(),
				)
			}
		}
	}()

	handlers := server.Handlers{
		Status: func() map[string]any {
			statusMu.Lock()
			out := map[string]any{}
			for k, v := range status {
				out[k] = v
			}
			statusMu.Unlock()
			cam := session.Camera()
			out["camera"] = cam.Name
			out["train_length"] = config.TrainLengthLabel(session.TrainLength())
			out["threshold"] = session.Threshold()
			out["rate"] = session.Rate()
			out["options"] = session.Options().Map()
			out["recording"] = session.RecordingStatus()
			out["health"] = loop.Health()
			out["metrics"] = metrics.Snapshot()
			return out
		},
		Snapshot: func() any {
			latest, ok := session.Latest()
			if !ok {
				return nil
			}
			return pipeline.UIUpdateFor(latest, latest.Time.Format("15:04:05.000"))
		},
		Config: func() map[string]any {
			names := make([]string, len(cameras))
			for i, cam := range cameras {
				names[i] = cam.Name
			}
			return map[string]any{
				"cameras":            names,
				"train_length_stops": config.TrainLengthStops,
				"width":              w,
				"height":             h,
			}
		},
		Frame:   session.Display,
		Healthy: func() bool { return loop.Health().Healthy },
		Submit:  coord.Submit,
	}

	log.Printf("Starting live view at http://localhost:%d\n", cfg.Port)
	go func() {
		if err := server.Run(ctx, cfg, uiMessages, handlers); err != nil {
			log.Printf("server stopped: %v", err)
			stop()
		}
	}()

	runErr := loop.Run(ctx)
	stop()
	if runErr != nil {
		log.Printf("acquisition loop ended: %v", runErr)
	}

	proc.Wait()
	if err := src.Close(); err != nil {
		log.Printf("source close failed: %v", err)
	}
	if rawLog != nil {
		if err := rawLog.Close(); err != nil {
			log.Printf("raw log close failed: %v", err)
		}
	}
	if sw != nil {
		_ = sw.Close()
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func openSource(ctx context.Context, cfg config.AppConfig) (camera.Source, error) {
	switch cfg.Source {
	case "simulator", "":
		sim := camera.DefaultSimulatorConfig()
		sim.Width = cfg.Width
		sim.Height = cfg.Height
		sim.Interval = cfg.FrameInterval
		return camera.NewSimulator(sim)
	case "replay":
		return camera.NewReplay(cfg.ReplayDir, 100*time.Millisecond, true)
	case "zmq":
		return ingest.NewSource(ctx, cfg.SourceEndpoint, cfg.Width, cfg.Height, cfg.IngestLogEvery)
	case "device":
		return camera.OpenDevice(strconv.Itoa(cfg.Device))
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
