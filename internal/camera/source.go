// Package camera defines the frame source contract and the sources that do
// not need a network connection.
package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benshep/imageViewer2/internal/types"
)

const (
	DefaultWidth  = 768
	DefaultHeight = 572
	// DriverTrimRows is how many rows the grabber reports beyond the usable
	// image.
	DriverTrimRows = 4
)

// ErrTimeout means no frame arrived in time. It is transient: the caller
// skips the iteration and tries again.
var ErrTimeout = errors.New("acquisition timed out")

// DeviceError is fatal to acquisition.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Source supplies frames of a fixed geometry.
type Source interface {
	// Acquire waits at most timeout for the next frame. It returns
	// ErrTimeout, a *DeviceError, or ctx.Err().
	Acquire(ctx context.Context, timeout time.Duration) (types.Frame, error)
	Size() (width, height int)
	Close() error
}

func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// waitUntil blocks until due, the timeout or ctx, whichever comes first.
// It reports ErrTimeout when the timeout expires before due.
func waitUntil(ctx context.Context, due time.Time, timeout time.Duration) error {
	wait := time.Until(due)
	if wait <= 0 {
		return ctx.Err()
	}
	expired := false
	if timeout > 0 && wait > timeout {
		wait = timeout
		expired = true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	if expired {
		return ErrTimeout
	}
	return nil
}

// evenHeight drops a trailing row so the frame holds whole field pairs.
func evenHeight(h int) int {
	return h - h%2
}
