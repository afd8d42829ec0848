package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/benshep/imageViewer2/internal/recording"
)

const stderrTailLines = 20

// EncoderError reports a failed movie export along with the last lines the
// encoder wrote to stderr.
type EncoderError struct {
	Path   string
	Err    error
	Stderr string
}

func (e *EncoderError) Error() string {
	msg := fmt.Sprintf("encode %s: %v", e.Path, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *EncoderError) Unwrap() error { return e.Err }

// MovieEncoder pipes raw rgb24 frames into an external ffmpeg process.
type MovieEncoder struct {
	FFmpegPath string
	Codec      string
}

func NewMovieEncoder(ffmpegPath string) *MovieEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &MovieEncoder{FFmpegPath: ffmpegPath, Codec: "h264"}
}

// Args builds the encoder command line for a movie of the given geometry.
func (e *MovieEncoder) Args(out string, width, height int, fps float64) []string {
	codec := e.Codec
	if codec == "" {
		codec = "h264"
	}
	return []string{
		"-y",
		"-r", fmt.Sprintf("%.3f", fps),
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo", "-i", "-",
		"-vcodec", codec,
		out,
	}
}

// Export encodes seq into out. Any failure aborts the export, removes the
// partial file and returns an *EncoderError.
func (e *MovieEncoder) Export(ctx context.Context, seq *recording.Sequence, out string) error {
	if seq.Len() == 0 {
		return &EncoderError{Path: out, Err: errors.New("empty sequence")}
	}
	fps := seq.FrameRate()
	if fps <= 0 {
		return &EncoderError{Path: out, Err: errors.New("frame timestamps do not advance")}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	first := seq.Frames[0]
	cmd := exec.CommandContext(ctx, e.FFmpegPath, e.Args(out, first.Width, first.Height, fps)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &EncoderError{Path: out, Err: err}
	}
	tail := newLineTail(stderrTailLines)
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		return &EncoderError{Path: out, Err: err}
	}

	var writeErr error
	var buf []byte
	for i, frame := range seq.Frames {
		if frame.Width != first.Width || frame.Height != first.Height {
			writeErr = fmt.Errorf("frame %d is %dx%d, movie is %dx%d", i, frame.Width, frame.Height, first.Width, first.Height)
			break
		}
		buf = RGB24(frame, buf)
		if _, err := stdin.Write(buf); err != nil {
			writeErr = fmt.Errorf("write frame %d: %w", i, err)
			break
		}
	}
	closeErr := stdin.Close()
	waitErr := cmd.Wait()

	failure := waitErr
	if failure == nil {
		failure = writeErr
	}
	if failure == nil && closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		failure = closeErr
	}
	if failure != nil {
		_ = os.Remove(out)
		return &EncoderError{Path: out, Err: failure, Stderr: tail.String()}
	}
	return nil
}

// lineTail keeps the last few lines written to it.
type lineTail struct {
	mu       sync.Mutex
	lines    []string
	maxLines int
	partial  strings.Builder
}

func newLineTail(maxLines int) *lineTail {
	return &lineTail{maxLines: maxLines}
}

func (t *lineTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range p {
		if b == '\n' {
			t.push(t.partial.String())
			t.partial.Reset()
			continue
		}
		t.partial.WriteByte(b)
	}
	return len(p), nil
}

func (t *lineTail) push(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.maxLines {
		t.lines = t.lines[len(t.lines)-t.maxLines:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := t.lines
	if rest := strings.TrimSpace(t.partial.String()); rest != "" {
		lines = append(append([]string(nil), lines...), rest)
	}
	return strings.Join(lines, "\n")
}
