package config

import (
	"fmt"
	"math"
)

// TrainLengthStops are the selectable bunch train lengths in microseconds.
var TrainLengthStops = []float64{0.024, 0.048, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50, 100}

// TrainLengthLabel formats a train length (µs) for file names and captions.
func TrainLengthLabel(us float64) string {
	if us <= 0 || math.IsNaN(us) {
		return ""
	}
	if us < 1 {
		return fmt.Sprintf("%.0f ns", us*1000)
	}
	return fmt.Sprintf("%.0f µs", us)
}

// TrainLengthDown returns the next shorter stop, or false at the minimum.
func TrainLengthDown(us float64) (float64, bool) {
	us = math.Round(us*1000) / 1000
	for i, stop := range TrainLengthStops {
		if stop >= us {
			if i == 0 {
				return 0, false
			}
			return TrainLengthStops[i-1], true
		}
	}
	return TrainLengthStops[len(TrainLengthStops)-1], true
}

// TrainLengthUp returns the next longer stop, or false at the maximum.
func TrainLengthUp(us float64) (float64, bool) {
	us = math.Round(us*1000) / 1000
	for _, stop := range TrainLengthStops {
		if stop > us {
			return stop, true
		}
	}
	return 0, false
}
