package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benshep/imageViewer2/internal/control"
	"github.com/benshep/imageViewer2/internal/fitting"
	"github.com/benshep/imageViewer2/internal/output"
	"github.com/benshep/imageViewer2/internal/recording"
	"github.com/benshep/imageViewer2/internal/types"
)

// Publisher sends screen and position updates to subscribers.
type Publisher interface {
	PublishScreen(name string) error
	PublishPosition(pos control.Position) error
}

// FrameLogger keeps a lossless copy of accepted frames.
type FrameLogger interface {
	RecordFrame(rec output.FrameRecord) error
}

// Processor runs Session.Analyze on each frame and then the side effects
// that must not hold the session lock: position output, the raw log, the
// live view and recording export.
type Processor struct {
	Session   *Session
	Metrics   *Metrics
	Positions fitting.PositionOutput
	Publisher Publisher
	RawLog    FrameLogger
	Exporter  Exporter
	UI        chan<- any
	LogEvery  int

	exports sync.WaitGroup
}

func NewProcessor(session *Session, metrics *Metrics) *Processor {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Processor{Session: session, Metrics: metrics, LogEvery: 100}
}

func (p *Processor) Handle(ctx context.Context, frame types.Frame) {
	start := time.Now()
	out := p.Session.Analyze(frame)
	p.Metrics.analyzeCount.Add(1)
	p.Metrics.analyzeNanos.Add(uint64(time.Since(start).Nanoseconds()))

	if !out.Accepted {
		p.Metrics.framesNoBeam.Add(1)
		if out.Caption != "" {
			p.send(types.UIUpdate{
				Type:    "frame",
				Camera:  p.Session.Camera().Name,
				Caption: out.Caption,
				Seq:     frame.Seq,
			})
		}
		return
	}
	p.Metrics.framesAccepted.Add(1)
	a := out.Analysis

	if p.RawLog != nil {
		if err := p.RawLog.RecordFrame(output.NewFrameRecord(a.Camera, frame, a.Decision)); err != nil {
			p.Metrics.rawLogErrors.Add(1)
			logEveryN(p.LogEvery, "raw log write failed: %v", err)
		}
	}
	if out.Options.Fit {
		p.countFits(a)
	}
	if out.Stale {
		p.Metrics.framesStale.Add(1)
	} else {
		if out.Options.Fit && out.Options.Publish {
			p.publish(ctx, a)
		}
		p.send(UIUpdateFor(a, out.Caption))
	}

	if out.Completed != nil {
		p.export(ctx, out.Completed, output.NameParams{
			Camera:      a.Camera,
			TrainLength: a.TrainLength,
			Time:        out.Completed.Times[0],
		})
	}
}

// Wait blocks until every export started by Handle has finished.
func (p *Processor) Wait() {
	p.exports.Wait()
}

func (p *Processor) countFits(a Analysis) {
	for _, fit := range []types.FitResult{a.FitX, a.FitY} {
		if fit.Fitted {
			p.Metrics.fitsAccepted.Add(1)
		} else {
			p.Metrics.fitsRejected.Add(1)
		}
	}
}

func (p *Processor) publish(ctx context.Context, a Analysis) {
	fits := []struct {
		axis types.Axis
		fit  types.FitResult
	}{{types.AxisX, a.FitX}, {types.AxisY, a.FitY}}
	for _, f := range fits {
		if !f.fit.Fitted {
			continue
		}
		if err := fitting.Publish(ctx, p.Positions, a.Camera, f.axis, f.fit); err != nil {
			p.Metrics.publishErrors.Add(1)
			logEveryN(p.LogEvery, "position output failed for %s %s: %v", a.Camera, f.axis, err)
		}
		if p.Publisher == nil {
			continue
		}
		err := p.Publisher.PublishPosition(control.Position{
			Screen: a.Camera,
			Axis:   f.axis.String(),
			Center: f.fit.Center,
			FWHM:   f.fit.FWHM,
			Units:  a.Units,
		})
		if err != nil {
			p.Metrics.publishErrors.Add(1)
			logEveryN(p.LogEvery, "position publish failed: %v", err)
		}
	}
}

// export runs off the acquisition path. It is not cancelled with ctx so a
// recording in progress at shutdown is still written.
func (p *Processor) export(ctx context.Context, seq *recording.Sequence, params output.NameParams) {
	ctx = context.WithoutCancel(ctx)
	p.exports.Add(1)
	go func() {
		defer p.exports.Done()
		if seq.Mode == recording.Movie {
			p.send(types.UIMessage{Type: "status", Text: "Converting to movie..."})
		}

		var paths []string
		err := errors.New("no exporter configured")
		if p.Exporter != nil {
			paths, err = p.Exporter.Export(ctx, seq, params)
		}
		p.Session.FinishRecording(err)

		if err != nil {
			p.Metrics.exportErrors.Add(1)
			log.Printf("export %s failed: %v", seq.ID, err)
			p.send(types.UIMessage{Type: "error", Text: fmt.Sprintf("Export failed: %v", err)})
			return
		}
		p.Metrics.exportOK.Add(1)
		log.Printf("export %s wrote %d files", seq.ID, len(paths))
		text := fmt.Sprintf("Saved %d of %d images", len(paths), seq.Len())
		if seq.Mode == recording.Movie && len(paths) == 1 {
			text = "Saved movie as " + paths[0]
		}
		p.send(types.UIMessage{Type: "status", Text: text})
	}()
}

func (p *Processor) send(msg any) {
	if p.UI == nil {
		return
	}
	select {
	case p.UI <- msg:
	default:
		p.Metrics.uiDropped.Add(1)
	}
}

// UIUpdateFor builds the live view message for an analysis.
func UIUpdateFor(a Analysis, caption string) types.UIUpdate {
	return types.UIUpdate{
		Type:    "frame",
		Camera:  a.Camera,
		Caption: caption,
		Rate:    a.Rate,
		Units:   a.Units,
		Seq:     a.Seq,
		X:       axisSnapshot(a.X, a.FitX),
		Y:       axisSnapshot(a.Y, a.FitY),
	}
}

func axisSnapshot(p types.Profile, fit types.FitResult) *types.AxisSnapshot {
	return &types.AxisSnapshot{
		Coords: p.Coords,
		Values: p.Values,
		Curve:  fitting.Curve(fit, p.Coords),
		Fit:    fit,
	}
}
