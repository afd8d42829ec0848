package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/benshep/imageViewer2/internal/config"
	"github.com/benshep/imageViewer2/internal/control"
	"github.com/benshep/imageViewer2/internal/pv"
	"github.com/benshep/imageViewer2/internal/recording"
	"github.com/benshep/imageViewer2/internal/types"
)

type EventKind int

const (
	EventSelectCamera EventKind = iota
	EventScreenIn
	EventScreenOut
	EventLive
	EventPause
	EventScreenStatus
	EventTrainLength
	EventTrainLengthStep
	EventSetOption
	EventSetThreshold
	EventResetThreshold
	EventArm
	EventCancelRecording
	EventSave
)

// Event is a state change requested from outside the acquisition path.
// Only the fields used by Kind are read.
type Event struct {
	Kind   EventKind
	Camera string
	Screen pv.ScreenState
	Value  float64
	Name   string
	Text   string
	Count  int
	Mode   recording.Mode
	reply  chan error
}

// EventFromCommand maps a command channel request onto an event.
func EventFromCommand(cmd control.Command) (Event, bool) {
	switch cmd.Kind {
	case control.KindCamera:
		return Event{Kind: EventSelectCamera, Camera: cmd.Camera}, true
	case control.KindIn:
		return Event{Kind: EventScreenIn}, true
	case control.KindOut:
		return Event{Kind: EventScreenOut}, true
	case control.KindLive:
		return Event{Kind: EventLive}, true
	case control.KindPause:
		return Event{Kind: EventPause}, true
	default:
		return Event{}, false
	}
}

// ScreenMover moves screens and sets the train length on the control system.
type ScreenMover interface {
	MoveIn(ctx context.Context, camera string) error
	MoveOut(ctx context.Context, camera string) error
	SetTrainLength(ctx context.Context, us float64) error
}

// Router connects a camera's switcher input to the frame grabber.
type Router interface {
	Select(muxID int) error
}

// Coordinator applies Events to the Session one at a time.
type Coordinator struct {
	Session   *Session
	Cameras   []types.Camera
	Screens   ScreenMover
	Switcher  Router
	Publisher Publisher
	UI        chan<- any
	SaveDir   string
	SaveTmpl  string

	events chan Event
}

func NewCoordinator(session *Session, cameras []types.Camera) *Coordinator {
	return &Coordinator{
		Session: session,
		Cameras: cameras,
		events:  make(chan Event, 32),
	}
}

// IsCamera reports whether name is a configured camera.
func (c *Coordinator) IsCamera(name string) bool {
	_, ok := config.FindCamera(c.Cameras, name)
	return ok
}

// Post queues ev without waiting. It reports false when the queue is full.
func (c *Coordinator) Post(ev Event) bool {
	ev.reply = nil
	select {
	case c.events <- ev:
		return true
	default:
		log.Printf("coordinator queue full, dropped event %d", ev.Kind)
		return false
	}
}

// Submit queues ev and waits for it to be applied.
func (c *Coordinator) Submit(ctx context.Context, ev Event) error {
	ev.reply = make(chan error, 1)
	select {
	case c.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ev.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			err := c.apply(ctx, ev)
			if err != nil {
				log.Printf("event %d: %v", ev.Kind, err)
			}
			if ev.reply != nil {
				ev.reply <- err
			}
		}
	}
}

func (c *Coordinator) apply(ctx context.Context, ev Event) error {
	s := c.Session
	switch ev.Kind {
	case EventSelectCamera:
		return c.selectCamera(ctx, ev.Camera)
	case EventScreenIn, EventScreenOut:
		in := ev.Kind == EventScreenIn
		s.SetLive(in)
		if c.Screens == nil {
			return nil
		}
		name := s.Camera().Name
		if in {
			return c.Screens.MoveIn(ctx, name)
		}
		return c.Screens.MoveOut(ctx, name)
	case EventLive:
		s.SetLive(true)
	case EventPause:
		s.SetLive(false)
	case EventScreenStatus:
		c.send(map[string]any{"type": "screen", "camera": ev.Camera, "state": ev.Screen.String()})
		if ev.Screen == pv.StateIn && c.Publisher != nil {
			return c.Publisher.PublishScreen(ev.Camera)
		}
	case EventTrainLength:
		s.SetTrainLength(ev.Value)
	case EventTrainLengthStep:
		return c.stepTrainLength(ctx, ev.Value)
	case EventSetOption:
		_, err := s.UpdateOptions(func(o *Options) error {
			return ApplyOption(o, ev.Name, ev.Text)
		})
		return err
	case EventSetThreshold:
		return s.SetThresholdOverride(ev.Value)
	case EventResetThreshold:
		s.ResetThreshold()
	case EventArm:
		id, err := s.Arm(ev.Count, ev.Mode)
		if err != nil {
			return err
		}
		log.Printf("recording %s armed: %d frames as %s", id, ev.Count, ev.Mode)
	case EventCancelRecording:
		if !s.CancelRecording() {
			return errors.New("no recording in progress")
		}
	case EventSave:
		paths, err := s.SaveCurrent(c.SaveDir, c.SaveTmpl)
		if err != nil {
			return err
		}
		c.send(types.UIMessage{Type: "status", Text: "Saved " + paths[0]})
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
	return nil
}

// selectCamera routes the switcher to the named camera and resumes live
// acquisition. With auto-move on, the previous screen goes out and the new
// one comes in; INJ-1 is never moved in automatically.
func (c *Coordinator) selectCamera(ctx context.Context, name string) error {
	cam, ok := config.FindCamera(c.Cameras, name)
	if !ok {
		return fmt.Errorf("camera %q not recognised", name)
	}
	s := c.Session
	prev := s.SetCamera(cam)
	autoMove := s.Options().AutoMove && c.Screens != nil
	hadPrevious := prev.Name != "" && prev.Name != cam.Name

	var errs []error
	if autoMove && hadPrevious {
		if err := c.Screens.MoveOut(ctx, prev.Name); err != nil {
			errs = append(errs, fmt.Errorf("move out %s: %w", prev.Name, err))
		}
	}
	if c.Switcher != nil {
		if err := c.Switcher.Select(cam.MuxID); err != nil {
			errs = append(errs, fmt.Errorf("switch to %s: %w", cam.Name, err))
		}
	}
	if autoMove && hadPrevious && cam.Name != "INJ-1" {
		if err := c.Screens.MoveIn(ctx, cam.Name); err != nil {
			errs = append(errs, fmt.Errorf("move in %s: %w", cam.Name, err))
		}
	}
	s.SetLive(true)
	c.send(map[string]any{"type": "camera", "camera": cam.Name})
	return errors.Join(errs...)
}

// stepTrainLength moves one stop down (negative step) or up, or to the
// minimum when step is zero.
func (c *Coordinator) stepTrainLength(ctx context.Context, step float64) error {
	current := c.Session.TrainLength()
	var next float64
	ok := true
	switch {
	case step == 0:
		next = config.TrainLengthStops[0]
	case step < 0:
		next, ok = config.TrainLengthDown(current)
	default:
		next, ok = config.TrainLengthUp(current)
	}
	if !ok {
		return nil
	}
	if c.Screens == nil {
		c.Session.SetTrainLength(next)
		return nil
	}
	return c.Screens.SetTrainLength(ctx, next)
}

func (c *Coordinator) send(msg any) {
	if c.UI == nil {
		return
	}
	select {
	case c.UI <- msg:
	default:
	}
}
