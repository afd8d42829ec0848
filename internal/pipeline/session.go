// Package pipeline ties acquisition, analysis and recording together around
// one shared Session.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benshep/imageViewer2/internal/config"
	"github.com/benshep/imageViewer2/internal/fitting"
	"github.com/benshep/imageViewer2/internal/processing"
	"github.com/benshep/imageViewer2/internal/recording"
	"github.com/benshep/imageViewer2/internal/timeutil"
	"github.com/benshep/imageViewer2/internal/types"
)

// NoBeamAfter is how long without an accepted frame before the live view is
// told there is no beam. The caption is repeated at most this often.
const NoBeamAfter = time.Second

// Analysis is everything derived from one accepted frame.
type Analysis struct {
	Camera      string              `json:"camera"`
	TrainLength string              `json:"train_length"`
	Seq         uint64              `json:"seq"`
	Time        time.Time           `json:"time"`
	Decision    types.FieldDecision `json:"decision"`
	Units       string              `json:"units"`
	X           types.Profile       `json:"x"`
	Y           types.Profile       `json:"y"`
	FitX        types.FitResult     `json:"fit_x"`
	FitY        types.FitResult     `json:"fit_y"`
	Rate        float64             `json:"rate"`
}

// Outcome reports what Analyze did with a frame so the caller can run the
// side effects outside the session lock.
type Outcome struct {
	Accepted bool
	Decision types.FieldDecision
	Analysis Analysis
	Display  types.Frame
	// Caption is set when the live view should be told something, either
	// the accepted-frame caption or the rate-limited no-beam caption.
	Caption string
	// Stale is set for a frame acquired before the one on display. It is
	// recorded but does not replace the display.
	Stale bool
	// Completed is a full recording sequence ready to export.
	Completed *recording.Sequence
	Recording recording.Status
	Options   Options
}

// Session is the state shared between the acquisition loop, the analysis
// workers, the coordinator and the web server. One mutex guards all of it;
// the Gaussian fits also run under it.
type Session struct {
	clock  timeutil.Clock
	fitter *fitting.Fitter

	mu                sync.Mutex
	opts              Options
	camera            types.Camera
	trainLength       float64
	thresholdOverride *float64
	display           types.Frame
	latest            *Analysis
	shownSeq          uint64
	rate              *processing.RateTracker
	lastAccepted      time.Time
	lastNoBeam        time.Time
	recorder          *recording.Recorder
}

func NewSession(clock timeutil.Clock, camera types.Camera, opts Options) *Session {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Session{
		clock:    clock,
		fitter:   fitting.New(),
		opts:     opts,
		camera:   camera,
		rate:     processing.NewRateTracker(),
		recorder: recording.New(),
	}
}

func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// UpdateOptions applies fn to the options and returns the result.
func (s *Session) UpdateOptions(fn func(*Options) error) (Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.opts
	if err := fn(&next); err != nil {
		return s.opts, err
	}
	s.opts = next
	return next, nil
}

func (s *Session) SetLive(live bool) {
	s.mu.Lock()
	s.opts.Live = live
	s.mu.Unlock()
}

func (s *Session) SetThreaded(threaded bool) {
	s.mu.Lock()
	s.opts.Threaded = threaded
	s.mu.Unlock()
}

func (s *Session) Camera() types.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// SetCamera switches the selected camera. The rate window, the threshold
// override and the last analysis belong to the old camera and are dropped,
// and a recording still filling is cancelled.
func (s *Session) SetCamera(camera types.Camera) types.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.camera
	s.camera = camera
	s.thresholdOverride = nil
	s.rate.Reset()
	s.latest = nil
	s.shownSeq = 0
	s.recorder.Cancel()
	return prev
}

func (s *Session) TrainLength() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trainLength
}

func (s *Session) SetTrainLength(us float64) {
	s.mu.Lock()
	s.trainLength = us
	s.mu.Unlock()
}

// SetThresholdOverride replaces the camera threshold until ResetThreshold.
func (s *Session) SetThresholdOverride(t float64) error {
	if t < 0 {
		return fmt.Errorf("threshold %g must be >= 0", t)
	}
	s.mu.Lock()
	s.thresholdOverride = &t
	s.mu.Unlock()
	return nil
}

func (s *Session) ResetThreshold() {
	s.mu.Lock()
	s.thresholdOverride = nil
	s.mu.Unlock()
}

// Threshold is the detection threshold the next frame will use.
func (s *Session) Threshold() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thresholdLocked()
}

func (s *Session) thresholdLocked() float64 {
	if !s.opts.BeamOnly {
		return 0
	}
	if s.thresholdOverride != nil {
		return *s.thresholdOverride
	}
	return s.camera.ThresholdFor(s.opts.Reduction == processing.Std)
}

func (s *Session) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate.Rate()
}

// Display returns a copy of the frame currently shown.
func (s *Session) Display() (types.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.display.Valid() {
		return types.Frame{}, false
	}
	return s.display.Clone(), true
}

// Latest returns the analysis of the frame currently shown.
func (s *Session) Latest() (Analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Analysis{}, false
	}
	return *s.latest, true
}

func (s *Session) Arm(n int, mode recording.Mode) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Arm(n, mode)
}

func (s *Session) CancelRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Cancel()
}

// FinishRecording returns the recorder to Idle once an export has ended.
func (s *Session) FinishRecording(err error) {
	s.mu.Lock()
	s.recorder.Finish(err)
	s.mu.Unlock()
}

func (s *Session) RecordingStatus() recording.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Status()
}

// Analyze runs field analysis on frame and, when a beam is found, updates
// the display, the rate, the fits and the recorder.
func (s *Session) Analyze(frame types.Frame) Outcome {
	s.mu.Lock()
	opts := s.opts
	cam := s.camera
	threshold := s.thresholdLocked()
	s.mu.Unlock()

	xs, ys, units := cam.Axes(frame.Width, frame.Height)
	res, ok := processing.AnalyzeFields(frame, processing.FieldParams{
		Reduction:   opts.Reduction,
		Threshold:   threshold,
		PostProcess: opts.PostProcess,
		XCoords:     xs,
		YCoords:     ys,
	})
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	out := Outcome{Decision: res.Decision, Options: opts}
	if !ok {
		if now.Sub(s.lastAccepted) > NoBeamAfter && now.Sub(s.lastNoBeam) >= NoBeamAfter {
			s.lastNoBeam = now
			out.Caption = "(no beam)"
		}
		return out
	}

	s.lastAccepted = now
	analysis := Analysis{
		Camera:      cam.Name,
		TrainLength: config.TrainLengthLabel(s.trainLength),
		Seq:         frame.Seq,
		Time:        frame.Time,
		Decision:    res.Decision,
		Units:       units,
		X:           res.X,
		Y:           res.Y,
		Rate:        s.rate.Record(frame.Time),
	}
	if opts.Fit {
		analysis.FitX = s.fitter.Fit(res.X)
		analysis.FitY = s.fitter.Fit(res.Y)
		if analysis.FitX.Fitted {
			analysis.FitX.Units = units
		}
		if analysis.FitY.Fitted {
			analysis.FitY.Units = units
		}
	}
	// Seq 0 means the frame was not stamped by the loop.
	if frame.Seq != 0 && frame.Seq < s.shownSeq {
		out.Stale = true
	} else {
		s.shownSeq = frame.Seq
		s.display = res.Display
		s.latest = &analysis
	}

	if seq, done := s.recorder.Offer(res.Display); done {
		out.Completed = seq
	}
	out.Recording = s.recorder.Status()
	out.Accepted = true
	out.Analysis = analysis
	out.Display = res.Display
	out.Caption = now.Format("15:04:05.000")
	return out
}
