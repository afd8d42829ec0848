package pipeline

import (
	"context"

	"github.com/benshep/imageViewer2/internal/types"
)

// Slot is a single-frame mailbox between the acquisition loop and the
// analysis workers. A new frame replaces one nobody has taken yet, so the
// loop never waits on analysis. Only one goroutine may call Put and Close.
type Slot struct {
	ch chan types.Frame
}

func NewSlot() *Slot {
	return &Slot{ch: make(chan types.Frame, 1)}
}

// Put stores frame and reports whether an untaken frame was overwritten.
func (s *Slot) Put(frame types.Frame) (dropped bool) {
	select {
	case s.ch <- frame:
		return false
	default:
	}
	select {
	case <-s.ch:
		dropped = true
	default:
	}
	s.ch <- frame
	return dropped
}

// Take waits for the next frame. It returns false once ctx is done or the
// slot is closed and empty.
func (s *Slot) Take(ctx context.Context) (types.Frame, bool) {
	select {
	case <-ctx.Done():
		return types.Frame{}, false
	case frame, ok := <-s.ch:
		return frame, ok
	}
}

// Close lets workers drain the pending frame and stop.
func (s *Slot) Close() {
	close(s.ch)
}
