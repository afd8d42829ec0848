package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benshep/imageViewer2/internal/recording"
	"github.com/benshep/imageViewer2/internal/types"
)

func patternFrame(w, h int, seed uint8, t time.Time) types.Frame {
	f := types.NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = uint8(i)*7 + seed
	}
	f.Time = t
	return f
}

func filledSequence(t *testing.T, n int, mode recording.Mode, step time.Duration) *recording.Sequence {
	t.Helper()
	r := recording.New()
	_, err := r.Arm(n, mode)
	require.NoError(t, err)
	t0 := time.Unix(1000, 0)
	var seq *recording.Sequence
	for i := 0; i < n; i++ {
		var done bool
		seq, done = r.Offer(patternFrame(8, 6, uint8(i), t0.Add(time.Duration(i)*step)))
		if i == n-1 {
			require.True(t, done)
		}
	}
	return seq
}

func TestStillsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	seq := filledSequence(t, 12, recording.Stills, 40*time.Millisecond)
	paths, err := ExportStills(dir, DefaultSequenceTemplate, NameParams{
		Camera: "INJ-3",
		Time:   time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
	}, seq)
	require.NoError(t, err)
	require.Len(t, paths, 12)
	assert.Equal(t, filepath.Join(dir, "2024", "01", "02", "0304", "INJ-3  00.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "2024", "01", "02", "0304", "INJ-3  11.png"), paths[11])

	for i, p := range paths {
		got, err := ReadStill(p)
		require.NoError(t, err)
		if diff := cmp.Diff(seq.Frames[i].Pix, got.Pix); diff != "" {
			t.Fatalf("frame %d pixels differ (-want +got):\n%s", i, diff)
		}
		assert.Equal(t, 8, got.Width)
		assert.Equal(t, 6, got.Height)
	}
}

func TestWriteStillRejectsInvalidFrame(t *testing.T) {
	err := WriteStill(filepath.Join(t.TempDir(), "x.png"), types.Frame{Width: 2, Height: 2})
	assert.Error(t, err)
}

func TestProfileCSVAndPlot(t *testing.T) {
	dir := t.TempDir()
	set := ProfileSet{
		Camera: "AR1-1",
		Units:  "mm",
		X:      types.Profile{Values: []float64{1, 4, 1}, Coords: []float64{-1, 0, 1}},
		Y:      types.Profile{Values: []float64{2, 3}, Coords: []float64{0, 2}},
		FitX:   types.FitResult{Fitted: true, Amplitude: 5, Center: 0, Sigma: 0.5, FWHM: 0.5 * 2.3548},
		FitY:   types.NotFitted("out of domain"),
	}
	csvPath := filepath.Join(dir, "p.csv")
	require.NoError(t, WriteProfileCSV(csvPath, set))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "axis, index, coord, value, fit")
	assert.Contains(t, string(data), "# x fit: center 0")
	assert.Contains(t, string(data), "y, 1, 2.000000, 3.000000, \n")

	plotPath := filepath.Join(dir, "plots", "p.png")
	require.NoError(t, WriteProfilePlot(plotPath, set))
	info, err := os.Stat(plotPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
