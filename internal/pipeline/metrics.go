package pipeline

import (
	"log"
	"sync/atomic"
)

// Metrics are the pipeline counters reported on /status and in the periodic
// stats log line.
type Metrics struct {
	framesAcquired  atomic.Uint64
	acquireTimeouts atomic.Uint64
	acquireErrors   atomic.Uint64
	framesDropped   atomic.Uint64
	framesAccepted  atomic.Uint64
	framesNoBeam    atomic.Uint64
	framesStale     atomic.Uint64
	fitsAccepted    atomic.Uint64
	fitsRejected    atomic.Uint64
	uiDropped       atomic.Uint64
	publishErrors   atomic.Uint64
	exportOK        atomic.Uint64
	exportErrors    atomic.Uint64
	rawLogErrors    atomic.Uint64
	analyzeCount    atomic.Uint64
	analyzeNanos    atomic.Uint64
}

func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"frames_acquired_total":  m.framesAcquired.Load(),
		"acquire_timeouts_total": m.acquireTimeouts.Load(),
		"acquire_errors_total":   m.acquireErrors.Load(),
		"frames_dropped_total":   m.framesDropped.Load(),
		"frames_accepted_total":  m.framesAccepted.Load(),
		"frames_no_beam_total":   m.framesNoBeam.Load(),
		"frames_stale_total":     m.framesStale.Load(),
		"fits_accepted_total":    m.fitsAccepted.Load(),
		"fits_rejected_total":    m.fitsRejected.Load(),
		"ui_dropped_total":       m.uiDropped.Load(),
		"publish_errors_total":   m.publishErrors.Load(),
		"export_ok_total":        m.exportOK.Load(),
		"export_errors_total":    m.exportErrors.Load(),
		"raw_log_errors_total":   m.rawLogErrors.Load(),
		"analyze_total":          m.analyzeCount.Load(),
		"analyze_nanos_total":    m.analyzeNanos.Load(),
	}
}

func (m *Metrics) FramesAcquired() uint64  { return m.framesAcquired.Load() }
func (m *Metrics) FramesAccepted() uint64  { return m.framesAccepted.Load() }
func (m *Metrics) FramesDropped() uint64   { return m.framesDropped.Load() }
func (m *Metrics) AcquireTimeouts() uint64 { return m.acquireTimeouts.Load() }
func (m *Metrics) AcquireErrors() uint64   { return m.acquireErrors.Load() }

var logCounter atomic.Uint64

func logEveryN(n int, format string, args ...any) {
	if n < 1 {
		n = 1
	}
	if logCounter.Add(1)%uint64(n) == 0 {
		log.Printf(format, args...)
	}
}
