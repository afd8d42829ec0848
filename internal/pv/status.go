package pv

import (
	"context"
	"log"
	"time"
)

// Poller watches screen status and train length readbacks, reporting
// changes only.
type Poller struct {
	Client        *Client
	Cameras       []string
	Interval      time.Duration
	OnScreen      func(camera string, state ScreenState)
	OnTrainLength func(us float64)
}

func (p *Poller) Run(ctx context.Context) {
	if p.Client == nil || p.Client.baseURL == "" {
		return
	}
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := make(map[string]ScreenState, len(p.Cameras))
	lastTL := -1.0
	failures := 0
	for {
		errs := p.poll(ctx, last, &lastTL)
		if errs > 0 {
			failures++
			if failures == 1 || failures%60 == 0 {
				log.Printf("pv poll: %d readbacks failed (%d consecutive polls)", errs, failures)
			}
		} else {
			failures = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, last map[string]ScreenState, lastTL *float64) int {
	errs := 0
	for _, camera := range p.Cameras {
		state, err := p.Client.ScreenState(ctx, camera)
		if err != nil {
			errs++
			continue
		}
		if prev, ok := last[camera]; ok && prev == state {
			continue
		}
		last[camera] = state
		if p.OnScreen != nil {
			p.OnScreen(camera, state)
		}
	}
	if p.OnTrainLength != nil {
		us, err := p.Client.TrainLength(ctx)
		if err != nil {
			errs++
		} else if us != *lastTL {
			*lastTL = us
			p.OnTrainLength(us)
		}
	}
	return errs
}
