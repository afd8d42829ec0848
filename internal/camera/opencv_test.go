//go:build gocv

package camera

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// blockingReader holds Read until release is closed.
type blockingReader struct {
	release      chan struct{}
	reading      atomic.Bool
	closedInRead atomic.Bool
	closed       atomic.Bool
}

func (r *blockingReader) Read(*gocv.Mat) bool {
	r.reading.Store(true)
	<-r.release
	r.reading.Store(false)
	return false
}

func (r *blockingReader) Close() error {
	if r.reading.Load() {
		r.closedInRead.Store(true)
	}
	r.closed.Store(true)
	return nil
}

func TestOpenCVCloseWaitsForPendingRead(t *testing.T) {
	reader := &blockingReader{release: make(chan struct{})}
	src := newOpenCV(reader, 64, 48)

	_, err := src.Acquire(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	done := make(chan error, 1)
	go func() { done <- src.Close() }()

	select {
	case <-done:
		t.Fatalf("Close returned while a read was in progress")
	case <-time.After(20 * time.Millisecond):
	}
	close(reader.release)
	require.NoError(t, <-done)
	assert.True(t, reader.closed.Load())
	assert.False(t, reader.closedInRead.Load())

	_, err = src.Acquire(context.Background(), time.Millisecond)
	assert.True(t, IsDeviceError(err))
	assert.NoError(t, src.Close())
}
