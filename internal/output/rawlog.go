package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/benshep/imageViewer2/internal/types"
)

const RawLogMagic = "BEAMRAW1"

// FrameRecord is one accepted frame as stored in the raw log.
type FrameRecord struct {
	Camera      string  `cbor:"camera"`
	Seq         uint64  `cbor:"seq"`
	TimeNanos   int64   `cbor:"time_ns"`
	Width       int     `cbor:"width"`
	Height      int     `cbor:"height"`
	Outcome     string  `cbor:"outcome"`
	DiffOverSum float64 `cbor:"diff_over_sum"`
	Pix         []byte  `cbor:"pix"`
}

func NewFrameRecord(camera string, frame types.Frame, decision types.FieldDecision) FrameRecord {
	return FrameRecord{
		Camera:      camera,
		Seq:         frame.Seq,
		TimeNanos:   frame.Time.UnixNano(),
		Width:       frame.Width,
		Height:      frame.Height,
		Outcome:     decision.Outcome.String(),
		DiffOverSum: decision.DiffOverSum,
		Pix:         frame.Pix,
	}
}

func (r FrameRecord) Frame() types.Frame {
	return types.Frame{
		Seq:    r.Seq,
		Width:  r.Width,
		Height: r.Height,
		Time:   time.Unix(0, r.TimeNanos),
		Pix:    r.Pix,
	}
}

// RawLogWriter appends length-prefixed CBOR records to a timestamped file.
type RawLogWriter struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

func NewRawLogWriter(outputDir string, prefix string) (*RawLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.bin", timestamp, prefix))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(RawLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RawLogWriter{
		f:    f,
		w:    w,
		path: filename,
	}, nil
}

func (r *RawLogWriter) Path() string { return r.path }

func (r *RawLogWriter) RecordFrame(rec FrameRecord) error {
	payload, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode frame record: %w", err)
	}
	return r.Record(payload)
}

func (r *RawLogWriter) Record(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("raw log writer is closed")
	}
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *RawLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

// RawLogReader walks the records of a raw log.
type RawLogReader struct {
	r io.Reader
}

func NewRawLogReader(r io.Reader) (*RawLogReader, error) {
	header := make([]byte, len(RawLogMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(header) != RawLogMagic {
		return nil, fmt.Errorf("unexpected rawlog magic %q", string(header))
	}
	return &RawLogReader{r: r}, nil
}

// Next returns the write time and payload of the next record, or io.EOF.
func (r *RawLogReader) Next() (time.Time, []byte, error) {
	var meta [12]byte
	if _, err := io.ReadFull(r.r, meta[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return time.Time{}, nil, io.EOF
		}
		return time.Time{}, nil, err
	}
	ts := time.Unix(0, int64(binary.LittleEndian.Uint64(meta[:8])))
	size := binary.LittleEndian.Uint32(meta[8:12])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return ts, nil, fmt.Errorf("read payload: %w", err)
	}
	return ts, payload, nil
}

func DecodeFrameRecord(payload []byte) (FrameRecord, error) {
	var rec FrameRecord
	if err := cbor.Unmarshal(payload, &rec); err != nil {
		return FrameRecord{}, err
	}
	return rec, nil
}
