//go:build gocv

package camera

import (
	"context"
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/benshep/imageViewer2/internal/types"
)

type readResult struct {
	frame types.Frame
	err   error
}

// videoReader is the part of gocv.VideoCapture the source uses.
type videoReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// OpenCV grabs frames from a capture device. VideoCapture.Read blocks, so
// one read runs in the background and a timed-out Acquire collects it on the
// next call. Close waits for that read before releasing the device.
type OpenCV struct {
	mu      sync.Mutex
	capture videoReader
	width   int
	height  int
	pending chan readResult
	reads   sync.WaitGroup
}

func OpenDevice(device string) (Source, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, &DeviceError{Op: "open " + device, Err: err}
	}
	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := evenHeight(int(capture.Get(gocv.VideoCaptureFrameHeight)) - DriverTrimRows)
	if width <= types.TrimColumns || height < 2 {
		_ = capture.Close()
		return nil, &DeviceError{Op: "open " + device, Err: errors.New("unsupported video format")}
	}
	return newOpenCV(capture, width, height), nil
}

func newOpenCV(capture videoReader, width, height int) *OpenCV {
	return &OpenCV{capture: capture, width: width, height: height}
}

func (c *OpenCV) Size() (int, int) { return c.width, c.height }

func (c *OpenCV) Acquire(ctx context.Context, timeout time.Duration) (types.Frame, error) {
	c.mu.Lock()
	if c.capture == nil {
		c.mu.Unlock()
		return types.Frame{}, &DeviceError{Op: "acquire", Err: errors.New("device closed")}
	}
	if c.pending == nil {
		c.pending = make(chan readResult, 1)
		c.reads.Add(1)
		go c.read(c.capture, c.pending)
	}
	pending := c.pending
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return types.Frame{}, ctx.Err()
	case <-timer.C:
		return types.Frame{}, ErrTimeout
	case res := <-pending:
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		res.frame.Time = time.Now()
		return res.frame, res.err
	}
}

func (c *OpenCV) read(capture videoReader, out chan<- readResult) {
	defer c.reads.Done()
	mat := gocv.NewMat()
	defer mat.Close()
	if ok := capture.Read(&mat); !ok || mat.Empty() {
		out <- readResult{err: &DeviceError{Op: "read", Err: errors.New("failed to read frame")}}
		return
	}
	gray := mat
	if mat.Channels() > 1 {
		gray = gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	}
	frame := types.NewFrame(c.width, c.height)
	data := gray.ToBytes()
	cols := gray.Cols()
	for y := 0; y < c.height && y < gray.Rows(); y++ {
		copy(frame.Row(y), data[y*cols:y*cols+min(cols, c.width)])
	}
	out <- readResult{frame: frame}
}

func (c *OpenCV) Close() error {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.pending = nil
	c.mu.Unlock()
	if capture == nil {
		return nil
	}
	c.reads.Wait()
	return capture.Close()
}
