package timeutil

import (
	"testing"
	"time"
)

func TestMockClockAfterAdvances(t *testing.T) {
	start := time.Date(2016, 3, 4, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	got := <-c.After(40 * time.Millisecond)
	if !got.Equal(start.Add(40 * time.Millisecond)) {
		t.Fatalf("unexpected time from After: %v", got)
	}
	if c.Since(start) != 40*time.Millisecond {
		t.Fatalf("unexpected Since: %v", c.Since(start))
	}
	c.Advance(time.Second)
	if c.Since(start) != 1040*time.Millisecond {
		t.Fatalf("unexpected Since after Advance: %v", c.Since(start))
	}
	if sleeps := c.Sleeps(); len(sleeps) != 1 || sleeps[0] != 40*time.Millisecond {
		t.Fatalf("unexpected sleeps: %v", sleeps)
	}
}
