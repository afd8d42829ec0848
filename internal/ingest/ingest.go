// Package ingest receives frames from a networked frame grabber.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"github.com/benshep/imageViewer2/internal/camera"
	"github.com/benshep/imageViewer2/internal/types"
)

const recvTimeout = time.Second

// Source is a camera.Source fed by a ZMQ PULL socket. Messages are CBOR maps
// shaped like
// { "type": "image", "seq": <int>, "time": <float seconds>, "data": <tag 40 array> }.
type Source struct {
	width, height int
	logEvery      int

	frames chan types.Frame
	errs   chan error
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

func NewSource(ctx context.Context, endpoint string, width, height int, logEvery int) (*Source, error) {
	if logEvery < 1 {
		logEvery = 1
	}
	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return nil, &camera.DeviceError{Op: "open " + endpoint, Err: err}
	}
	if err := socket.SetRcvtimeo(recvTimeout); err != nil {
		_ = socket.Close()
		return nil, &camera.DeviceError{Op: "open " + endpoint, Err: err}
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, &camera.DeviceError{Op: "connect " + endpoint, Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Source{
		width:    width,
		height:   height - height%2,
		logEvery: logEvery,
		frames:   make(chan types.Frame, 1),
		errs:     make(chan error, 1),
		cancel:   cancel,
	}
	s.wg.Add(1)
	go s.receive(ctx, socket)
	return s, nil
}

func (s *Source) receive(ctx context.Context, socket *zmq4.Socket) {
	defer s.wg.Done()
	defer socket.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := socket.RecvBytes(0)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
				continue
			}
			if zmq4.AsErrno(err) == zmq4.ETERM {
				s.fail(&camera.DeviceError{Op: "receive", Err: err})
				return
			}
			logEveryN(s.logEvery, "ingest recv error: %v", err)
			continue
		}

		frame, ok := decodeFrame(msg, s.logEvery)
		if !ok {
			continue
		}
		if frame.Width != s.width || frame.Height < s.height {
			logEveryN(s.logEvery, "ingest dropped %dx%d frame, expected %dx%d", frame.Width, frame.Height, s.width, s.height)
			continue
		}
		frame.Pix = frame.Pix[:s.width*s.height]
		frame.Height = s.height

		// latest frame wins
		select {
		case s.frames <- frame:
		default:
			select {
			case <-s.frames:
			default:
			}
			s.frames <- frame
		}
	}
}

func (s *Source) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func (s *Source) Size() (int, int) { return s.width, s.height }

func (s *Source) Acquire(ctx context.Context, timeout time.Duration) (types.Frame, error) {
	if s.closed.Load() {
		return types.Frame{}, &camera.DeviceError{Op: "acquire", Err: errors.New("source closed")}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return types.Frame{}, ctx.Err()
	case err := <-s.errs:
		return types.Frame{}, err
	case frame := <-s.frames:
		return frame, nil
	case <-timer.C:
		return types.Frame{}, camera.ErrTimeout
	}
}

// Close stops the receiver and waits for the socket to be released.
func (s *Source) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	return nil
}

func decodeFrame(msg []byte, logEvery int) (types.Frame, bool) {
	var payload map[string]any
	if err := cbor.Unmarshal(msg, &payload); err != nil {
		logEveryN(logEvery, "ingest CBOR decode error: %v", err)
		return types.Frame{}, false
	}

	msgType, _ := payload["type"].(string)
	if msgType != "image" {
		logEveryN(logEvery, "ingest ignoring message type %q", msgType)
		return types.Frame{}, false
	}

	seq, err := toInt(payload["seq"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid seq: %v", err)
		return types.Frame{}, false
	}
	var stamp time.Time
	if raw, ok := payload["time"]; ok {
		seconds, err := toFloat(raw)
		if err != nil {
			logEveryN(logEvery, "ingest invalid time: %v", err)
			return types.Frame{}, false
		}
		stamp = time.Unix(0, int64(seconds*1e9))
	}

	frame, err := decodeMultiDimArray(payload["data"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid data field: %v", err)
		return types.Frame{}, false
	}
	frame.Seq = uint64(seq)
	frame.Time = stamp
	return frame, true
}

// EncodeFrame builds the wire message decodeFrame accepts.
func EncodeFrame(frame types.Frame) ([]byte, error) {
	msg := map[string]any{
		"type": "image",
		"seq":  frame.Seq,
		"time": float64(frame.Time.UnixNano()) / 1e9,
		"data": cbor.Tag{
			Number: tagMultiDimArray,
			Content: []any{
				[]any{frame.Height, frame.Width},
				cbor.Tag{Number: tagUint8, Content: frame.Pix},
			},
		},
	}
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", frame.Seq, err)
	}
	return payload, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported float type %T", v)
	}
}

var logCounter atomic.Uint64

func logEveryN(n int, format string, args ...any) {
	if logCounter.Add(1)%uint64(n) == 0 {
		log.Printf(format, args...)
	}
}
