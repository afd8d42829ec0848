// Package recording buffers a fixed number of processed frames for export
// as stills or a movie.
package recording

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/benshep/imageViewer2/internal/types"
)

var (
	ErrTooFewFrames = errors.New("recording needs at least 2 frames")
	ErrBusy         = errors.New("recording already in progress")
)

type Mode int

const (
	Stills Mode = iota
	Movie
)

func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "stills", "png", "images":
		return Stills, nil
	case "movie", "mp4", "video":
		return Movie, nil
	default:
		return Stills, fmt.Errorf("unknown recording mode %q", value)
	}
}

func (m Mode) String() string {
	if m == Movie {
		return "movie"
	}
	return "stills"
}

type State int

const (
	Idle State = iota
	Filling
	Exporting
)

func (s State) String() string {
	switch s {
	case Filling:
		return "filling"
	case Exporting:
		return "exporting"
	default:
		return "idle"
	}
}

// Sequence is a completed buffer handed to an exporter.
type Sequence struct {
	ID     uuid.UUID
	Mode   Mode
	Frames []types.Frame
	Times  []time.Time
}

func (s *Sequence) Len() int { return len(s.Frames) }

// FrameRate is the effective capture rate, (N-1) over the time from the
// first to the last frame. It is 0 if the timestamps do not advance.
func (s *Sequence) FrameRate() float64 {
	n := len(s.Times)
	if n < 2 {
		return 0
	}
	span := s.Times[n-1].Sub(s.Times[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(n-1) / span
}

type Status struct {
	State    string `json:"state"`
	Mode     string `json:"mode,omitempty"`
	ID       string `json:"id,omitempty"`
	Index    int    `json:"index"`
	Capacity int    `json:"capacity"`
	LastID   string `json:"last_id,omitempty"`
	LastErr  string `json:"last_error,omitempty"`
}

// Recorder is the Idle -> Filling -> Exporting -> Idle state machine.
// It is not safe for concurrent use; the owning session serialises access.
type Recorder struct {
	state  State
	seq    *Sequence
	cursor int

	lastID  uuid.UUID
	lastErr error
}

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) State() State { return r.state }

// Arm starts capturing the next n frames.
func (r *Recorder) Arm(n int, mode Mode) (uuid.UUID, error) {
	if n < 2 {
		return uuid.Nil, ErrTooFewFrames
	}
	if r.state != Idle {
		return uuid.Nil, ErrBusy
	}
	r.seq = &Sequence{
		ID:     uuid.New(),
		Mode:   mode,
		Frames: make([]types.Frame, n),
		Times:  make([]time.Time, n),
	}
	r.cursor = 0
	r.state = Filling
	return r.seq.ID, nil
}

// Offer stores frame while filling, ordered by frame time. When the buffer
// becomes full the completed sequence is returned and the recorder moves to
// Exporting.
func (r *Recorder) Offer(frame types.Frame) (*Sequence, bool) {
	if r.state != Filling {
		return nil, false
	}
	// Frames analysed by parallel workers can arrive late; keep the
	// buffer in capture order.
	i := r.cursor
	for i > 0 && frame.Time.Before(r.seq.Times[i-1]) {
		r.seq.Frames[i] = r.seq.Frames[i-1]
		r.seq.Times[i] = r.seq.Times[i-1]
		i--
	}
	r.seq.Frames[i] = frame
	r.seq.Times[i] = frame.Time
	r.cursor++
	if r.cursor < len(r.seq.Frames) {
		return nil, false
	}
	r.state = Exporting
	return r.seq, true
}

// Finish ends an export, successful or not, and clears the buffer.
func (r *Recorder) Finish(err error) {
	if r.state != Exporting {
		return
	}
	r.lastID = r.seq.ID
	r.lastErr = err
	r.reset()
}

// Cancel abandons a sequence that is still filling.
func (r *Recorder) Cancel() bool {
	if r.state != Filling {
		return false
	}
	r.reset()
	return true
}

func (r *Recorder) reset() {
	r.seq = nil
	r.cursor = 0
	r.state = Idle
}

func (r *Recorder) Status() Status {
	st := Status{State: r.state.String(), Index: r.cursor}
	if r.seq != nil {
		st.Mode = r.seq.Mode.String()
		st.ID = r.seq.ID.String()
		st.Capacity = len(r.seq.Frames)
	}
	if r.lastID != uuid.Nil {
		st.LastID = r.lastID.String()
	}
	if r.lastErr != nil {
		st.LastErr = r.lastErr.Error()
	}
	return st
}

// Progress reports the cursor and capacity of the filling sequence.
func (r *Recorder) Progress() (index, capacity int) {
	if r.seq == nil {
		return 0, 0
	}
	return r.cursor, len(r.seq.Frames)
}
