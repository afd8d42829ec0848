package processing

import (
	"sync"
	"time"
)

// RateWindow is the number of frame timestamps kept for the rate estimate.
const RateWindow = 20

// RateTracker estimates the accepted frame rate over a rolling window.
type RateTracker struct {
	mu    sync.Mutex
	times []time.Time
	rate  float64
}

func NewRateTracker() *RateTracker {
	return &RateTracker{times: make([]time.Time, 0, RateWindow+1)}
}

// Record inserts t in time order, evicts beyond RateWindow, and returns the updated rate.
func (r *RateTracker) Record(t time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = append(r.times, t)
	for i := len(r.times) - 1; i > 0 && r.times[i].Before(r.times[i-1]); i-- {
		r.times[i], r.times[i-1] = r.times[i-1], r.times[i]
	}
	if len(r.times) > RateWindow {
		r.times = append(r.times[:0], r.times[len(r.times)-RateWindow:]...)
	}
	r.rate = rateOf(r.times)
	return r.rate
}

func (r *RateTracker) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

func (r *RateTracker) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.times)
}

func (r *RateTracker) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = r.times[:0]
	r.rate = 0
}

func rateOf(times []time.Time) float64 {
	if len(times) < 2 {
		return 0
	}
	span := times[len(times)-1].Sub(times[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(times)-1) / span
}
