package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benshep/imageViewer2/internal/camera"
	"github.com/benshep/imageViewer2/internal/timeutil"
	"github.com/benshep/imageViewer2/internal/types"
)

const (
	DefaultInterval         = 40 * time.Millisecond
	DefaultAcquireTimeout   = 100 * time.Millisecond
	DefaultWorkers          = 2
	DefaultFailureThreshold = 25
)

// FrameHandler analyses one acquired frame.
type FrameHandler interface {
	Handle(ctx context.Context, frame types.Frame)
}

type Health struct {
	Healthy             bool   `json:"healthy"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Frames              uint64 `json:"frames"`
	Dropped             uint64 `json:"dropped"`
}

// Loop pulls frames from Source and hands them to Handler, inline or through
// a worker pool depending on the session's Threaded option.
type Loop struct {
	Source           camera.Source
	Session          *Session
	Handler          FrameHandler
	Clock            timeutil.Clock
	Metrics          *Metrics
	Interval         time.Duration
	Timeout          time.Duration
	Workers          int
	FailureThreshold int
	LogEvery         int

	seq      uint64
	failures atomic.Int64
	healthy  atomic.Bool
	frames   atomic.Uint64
	dropped  atomic.Uint64
}

func (l *Loop) Health() Health {
	return Health{
		Healthy:             l.failures.Load() < int64(l.failureThreshold()),
		ConsecutiveFailures: int(l.failures.Load()),
		Frames:              l.frames.Load(),
		Dropped:             l.dropped.Load(),
	}
}

// Run acquires until ctx is cancelled or the source fails. Analyses already
// handed to workers finish before Run returns; the caller closes Source
// afterwards.
func (l *Loop) Run(ctx context.Context) error {
	if l.Clock == nil {
		l.Clock = timeutil.RealClock{}
	}
	if l.Metrics == nil {
		l.Metrics = &Metrics{}
	}
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	workers := l.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	l.healthy.Store(true)

	slot := NewSlot()
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				frame, ok := slot.Take(ctx)
				if !ok {
					return
				}
				l.Handler.Handle(ctx, frame)
			}
		}()
	}
	defer func() {
		slot.Close()
		wg.Wait()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		opts := l.Session.Options()
		if !opts.Live {
			if !l.wait(ctx, interval) {
				return nil
			}
			continue
		}

		start := l.Clock.Now()
		frame, err := l.Source.Acquire(ctx, timeout)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case camera.IsDeviceError(err):
				log.Printf("acquisition stopped: %v", err)
				return err
			case errors.Is(err, camera.ErrTimeout):
				l.Metrics.acquireTimeouts.Add(1)
				l.failure()
			default:
				l.Metrics.acquireErrors.Add(1)
				l.failure()
				logEveryN(l.LogEvery, "acquire error: %v", err)
			}
			continue
		}
		l.success()

		l.seq++
		frame.Seq = l.seq
		frame.Time = l.Clock.Now()
		l.frames.Add(1)
		l.Metrics.framesAcquired.Add(1)

		if opts.Threaded {
			if slot.Put(frame) {
				l.dropped.Add(1)
				l.Metrics.framesDropped.Add(1)
			}
		} else {
			l.Handler.Handle(ctx, frame)
		}

		if rest := interval - l.Clock.Since(start); rest > 0 {
			if !l.wait(ctx, rest) {
				return nil
			}
		}
	}
}

func (l *Loop) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-l.Clock.After(d):
		return true
	}
}

func (l *Loop) failureThreshold() int {
	if l.FailureThreshold < 1 {
		return DefaultFailureThreshold
	}
	return l.FailureThreshold
}

func (l *Loop) failure() {
	n := l.failures.Add(1)
	if n >= int64(l.failureThreshold()) && l.healthy.Swap(false) {
		log.Printf("acquisition unhealthy: %d consecutive failures", n)
	}
}

func (l *Loop) success() {
	l.failures.Store(0)
	if !l.healthy.Swap(true) {
		log.Printf("acquisition recovered")
	}
}
