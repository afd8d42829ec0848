package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/benshep/imageViewer2/internal/config"
	"github.com/benshep/imageViewer2/internal/output"
	"github.com/benshep/imageViewer2/internal/recording"
)

var ErrNoFrame = errors.New("no frame to save")

// Exporter writes a completed recording and returns the files it made.
type Exporter interface {
	Export(ctx context.Context, seq *recording.Sequence, params output.NameParams) ([]string, error)
}

// FileExporter writes stills with StillsTemplate and movies with
// MovieTemplate, both relative to Dir.
type FileExporter struct {
	Dir            string
	StillsTemplate string
	MovieTemplate  string
	Encoder        *output.MovieEncoder
}

func (e *FileExporter) Export(ctx context.Context, seq *recording.Sequence, params output.NameParams) ([]string, error) {
	if seq.Mode == recording.Movie {
		if e.Encoder == nil {
			return nil, errors.New("no movie encoder configured")
		}
		tmpl := e.MovieTemplate
		if tmpl == "" {
			tmpl = output.DefaultSaveTemplate
		}
		params.Index = -1
		name := output.ExpandTemplate(tmpl, params)
		name = strings.TrimSpace(strings.ReplaceAll(name, " [i]", ""))
		path := filepath.Join(e.Dir, filepath.FromSlash(output.MovieName(name)))
		if err := e.Encoder.Export(ctx, seq, path); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	tmpl := e.StillsTemplate
	if tmpl == "" {
		tmpl = output.DefaultSequenceTemplate
	}
	return output.ExportStills(e.Dir, tmpl, params, seq)
}

// SaveCurrent writes the displayed frame as a still named from tmpl. When the
// frame has an analysis its profiles are saved next to it as CSV and as a
// plot. The session state is copied under the lock; the files are written
// after it is released.
func (s *Session) SaveCurrent(dir, tmpl string) ([]string, error) {
	if tmpl == "" {
		tmpl = output.DefaultSaveTemplate
	}
	s.mu.Lock()
	if !s.display.Valid() {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}
	frame := s.display
	params := output.NameParams{
		Camera:      s.camera.Name,
		TrainLength: config.TrainLengthLabel(s.trainLength),
		Index:       -1,
		Time:        s.clock.Now(),
	}
	var latest *Analysis
	if s.latest != nil {
		a := *s.latest
		latest = &a
	}
	s.mu.Unlock()

	path := filepath.Join(dir, filepath.FromSlash(output.ExpandTemplate(tmpl, params)))
	if err := output.WriteStill(path, frame); err != nil {
		return nil, err
	}
	paths := []string{path}
	if latest == nil {
		return paths, nil
	}

	set := output.ProfileSet{
		Camera: latest.Camera,
		Units:  latest.Units,
		X:      latest.X,
		Y:      latest.Y,
		FitX:   latest.FitX,
		FitY:   latest.FitY,
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := output.WriteProfileCSV(base+".csv", set); err != nil {
		return paths, fmt.Errorf("profile csv: %w", err)
	}
	paths = append(paths, base+".csv")
	if err := output.WriteProfilePlot(base+" profiles.png", set); err != nil {
		return paths, fmt.Errorf("profile plot: %w", err)
	}
	return append(paths, base+" profiles.png"), nil
}
