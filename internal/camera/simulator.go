package camera

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/benshep/imageViewer2/internal/types"
)

type SimulatorConfig struct {
	Width    int
	Height   int
	Interval time.Duration
	// BeamField is the row parity the beam lands in (0 even, 1 odd).
	BeamField int
	// BlankEvery makes every n-th frame beam-free. 0 disables blanks.
	BlankEvery int
	// Sigma is the spot size in pixels.
	Sigma float64
	Peak  float64
	Noise float64
	Seed  int64
}

func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Interval:   40 * time.Millisecond,
		BlankEvery: 2,
		Sigma:      25,
		Peak:       180,
		Noise:      4,
		Seed:       1,
	}
}

// Simulator renders a drifting Gaussian spot into one interlaced field with
// Poisson-like noise on top of a flat pedestal.
type Simulator struct {
	cfg SimulatorConfig

	mu     sync.Mutex
	rng    *rand.Rand
	next   time.Time
	count  uint64
	closed bool
}

func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Width <= types.TrimColumns || cfg.Height < 2 {
		return nil, &DeviceError{Op: "open simulator", Err: errors.New("frame too small")}
	}
	cfg.Height = evenHeight(cfg.Height)
	if cfg.Sigma <= 0 {
		cfg.Sigma = 25
	}
	if cfg.Peak <= 0 {
		cfg.Peak = 180
	}
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (s *Simulator) Size() (int, int) { return s.cfg.Width, s.cfg.Height }

func (s *Simulator) Acquire(ctx context.Context, timeout time.Duration) (types.Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.Frame{}, &DeviceError{Op: "acquire", Err: errors.New("simulator closed")}
	}
	due := s.next
	s.mu.Unlock()

	if err := waitUntil(ctx, due, timeout); err != nil {
		return types.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.next = now.Add(s.cfg.Interval)
	n := s.count
	s.count++
	blank := s.cfg.BlankEvery > 0 && n%uint64(s.cfg.BlankEvery) == uint64(s.cfg.BlankEvery-1)
	frame := s.render(n, blank)
	frame.Time = now
	return frame, nil
}

func (s *Simulator) render(n uint64, blank bool) types.Frame {
	w, h := s.cfg.Width, s.cfg.Height
	frame := types.NewFrame(w, h)

	// slow drift so the fitted centre moves
	phase := float64(n) / 50
	cx := float64(w)/2 + float64(w)/8*math.Sin(phase)
	cy := float64(h)/2 + float64(h)/8*math.Cos(phase)
	twoSigma2 := 2 * s.cfg.Sigma * s.cfg.Sigma
	field := s.cfg.BeamField & 1

	for y := 0; y < h; y++ {
		row := frame.Row(y)
		dy := float64(y) - cy
		for x := range row {
			val := 10 + s.rng.NormFloat64()*s.cfg.Noise
			if !blank && y%2 == field {
				dx := float64(x) - cx
				base := s.cfg.Peak * math.Exp(-(dx*dx+dy*dy)/twoSigma2)
				val += base + s.rng.NormFloat64()*math.Sqrt(base)
			}
			row[x] = clampByte(val)
		}
	}
	return frame
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
