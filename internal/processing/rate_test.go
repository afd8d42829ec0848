package processing

import (
	"testing"
	"time"
)

func TestRateTrackerThreeFrames(t *testing.T) {
	tr := NewRateTracker()
	t0 := time.Unix(1700000000, 0)
	tr.Record(t0)
	tr.Record(t0.Add(40 * time.Millisecond))
	got := tr.Record(t0.Add(80 * time.Millisecond))
	if diff := got - 25; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("rate = %v, want 25", got)
	}
	if tr.Rate() != got {
		t.Fatalf("Rate() = %v, want %v", tr.Rate(), got)
	}
}

func TestRateTrackerSingleSample(t *testing.T) {
	tr := NewRateTracker()
	if got := tr.Record(time.Now()); got != 0 {
		t.Fatalf("rate with one sample = %v, want 0", got)
	}
}

func TestRateTrackerWindow(t *testing.T) {
	tr := NewRateTracker()
	t0 := time.Unix(0, 0)
	// 10 slow frames then 25 fast ones; only the fast ones remain
	for i := 0; i < 10; i++ {
		tr.Record(t0.Add(time.Duration(i) * time.Second))
	}
	base := t0.Add(20 * time.Second)
	var got float64
	for i := 0; i < 25; i++ {
		got = tr.Record(base.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	if tr.Len() != RateWindow {
		t.Fatalf("len = %d, want %d", tr.Len(), RateWindow)
	}
	if got < 9.999 || got > 10.001 {
		t.Fatalf("rate = %v, want 10", got)
	}
	tr.Reset()
	if tr.Rate() != 0 || tr.Len() != 0 {
		t.Fatalf("reset left rate=%v len=%d", tr.Rate(), tr.Len())
	}
}

func TestRateTrackerLateSample(t *testing.T) {
	tr := NewRateTracker()
	t0 := time.Unix(1700000000, 0)
	tr.Record(t0.Add(40 * time.Millisecond))
	tr.Record(t0.Add(80 * time.Millisecond))
	got := tr.Record(t0)
	if diff := got - 25; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("rate after late sample = %v, want 25", got)
	}
}
