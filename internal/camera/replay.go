package camera

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/benshep/imageViewer2/internal/output"
	"github.com/benshep/imageViewer2/internal/types"
)

// Replay loops over the PNG files of a folder. With Alternate set every
// other frame is blank, which exercises the no-beam path.
type Replay struct {
	frames    []types.Frame
	interval  time.Duration
	alternate bool

	mu     sync.Mutex
	next   time.Time
	index  int
	beam   bool
	closed bool
}

func NewReplay(dir string, interval time.Duration, alternate bool) (*Replay, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, &DeviceError{Op: "open replay", Err: err}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, &DeviceError{Op: "open replay", Err: fmt.Errorf("no png files in %s", dir)}
	}

	frames := make([]types.Frame, 0, len(paths))
	for _, p := range paths {
		f, err := output.ReadStill(p)
		if err != nil {
			return nil, &DeviceError{Op: "open replay", Err: err}
		}
		f = trimToEven(f)
		if len(frames) > 0 && (f.Width != frames[0].Width || f.Height != frames[0].Height) {
			return nil, &DeviceError{Op: "open replay", Err: fmt.Errorf("%s is %dx%d, expected %dx%d",
				filepath.Base(p), f.Width, f.Height, frames[0].Width, frames[0].Height)}
		}
		frames = append(frames, f)
	}
	return NewReplayFrames(frames, interval, alternate)
}

// NewReplayFrames replays frames already in memory.
func NewReplayFrames(frames []types.Frame, interval time.Duration, alternate bool) (*Replay, error) {
	if len(frames) == 0 {
		return nil, &DeviceError{Op: "open replay", Err: errors.New("no frames")}
	}
	return &Replay{
		frames:    frames,
		interval:  interval,
		alternate: alternate,
		beam:      true,
	}, nil
}

func (r *Replay) Size() (int, int) { return r.frames[0].Width, r.frames[0].Height }

func (r *Replay) Acquire(ctx context.Context, timeout time.Duration) (types.Frame, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return types.Frame{}, &DeviceError{Op: "acquire", Err: errors.New("replay closed")}
	}
	due := r.next
	r.mu.Unlock()

	if err := waitUntil(ctx, due, timeout); err != nil {
		return types.Frame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.next = now.Add(r.interval)

	var frame types.Frame
	if r.beam || !r.alternate {
		frame = r.frames[r.index].Clone()
		r.index = (r.index + 1) % len(r.frames)
	} else {
		w, h := r.Size()
		frame = types.NewFrame(w, h)
	}
	r.beam = !r.beam
	frame.Time = now
	return frame, nil
}

func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func trimToEven(f types.Frame) types.Frame {
	h := evenHeight(f.Height)
	if h == f.Height {
		return f
	}
	f.Pix = f.Pix[:h*f.Width]
	f.Height = h
	return f
}
