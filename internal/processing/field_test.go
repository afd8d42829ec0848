package processing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benshep/imageViewer2/internal/types"
)

func fieldFrame(width, height int, even, odd uint8) types.Frame {
	f := types.NewFrame(width, height)
	for y := 0; y < height; y++ {
		v := even
		if y%2 == 1 {
			v = odd
		}
		row := f.Row(y)
		for x := range row {
			row[x] = v
		}
	}
	return f
}

func TestAnalyzeFieldsEvenBeamScenario(t *testing.T) {
	frame := fieldFrame(5, 8, 250, 100)
	res, ok := AnalyzeFields(frame, FieldParams{Threshold: 0.03})
	require.True(t, ok)
	assert.Equal(t, types.BeamInEvenField, res.Decision.Outcome)
	assert.InDelta(t, 0.4286, res.Decision.DiffOverSum, 1e-4)
	assert.Equal(t, []float64{600}, res.X.Values)
	assert.Len(t, res.Y.Values, 4)
	for _, v := range res.Y.Values {
		assert.Equal(t, 5*150.0, v)
	}
}

func TestAnalyzeFieldsOddBeam(t *testing.T) {
	frame := fieldFrame(6, 4, 10, 40)
	res, ok := AnalyzeFields(frame, FieldParams{Threshold: 0.1})
	require.True(t, ok)
	assert.Equal(t, types.BeamInOddField, res.Decision.Outcome)
	assert.Equal(t, []float64{60, 60}, res.X.Values)
}

func TestAnalyzeFieldsZeroFrameIsNoBeam(t *testing.T) {
	for _, threshold := range []float64{0, 0.03, 1} {
		res, ok := AnalyzeFields(types.NewFrame(8, 6), FieldParams{Threshold: threshold})
		assert.False(t, ok)
		assert.Equal(t, types.NoBeam, res.Decision.Outcome)
		assert.Zero(t, res.Decision.DiffOverSum)
	}
}

func TestDecideBoundary(t *testing.T) {
	tests := []struct {
		name string
		d    float64
		t    float64
		want types.Outcome
	}{
		{"equal positive", 0.25, 0.25, types.NoBeam},
		{"equal negative", -0.25, 0.25, types.NoBeam},
		{"above", 0.26, 0.25, types.BeamInEvenField},
		{"below", -0.26, 0.25, types.BeamInOddField},
		{"negative threshold clamps", 0, -1, types.NoBeam},
		{"zero threshold", 0.001, 0, types.BeamInEvenField},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.d, tc.t).Outcome)
		})
	}
}

func TestAnalyzeFieldsYProfileIsReversed(t *testing.T) {
	frame := types.NewFrame(5, 6)
	// beam rows carry increasing intensity from top to bottom
	for k, v := range []uint8{10, 20, 30} {
		row := frame.Row(2 * k)
		for x := range row {
			row[x] = v
		}
	}
	res, ok := AnalyzeFields(frame, FieldParams{})
	require.True(t, ok)
	if diff := cmp.Diff([]float64{150, 100, 50}, res.Y.Values); diff != "" {
		t.Fatalf("y profile mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{0, 2, 4}, res.Y.Coords)
}

func TestAnalyzeFieldsUsesCalibratedCoords(t *testing.T) {
	cam := types.Camera{Calibration: &types.Calibration{XMultiplier: 2, YMultiplier: 1}}
	xs, ys, _ := cam.Axes(6, 4)
	res, ok := AnalyzeFields(fieldFrame(6, 4, 50, 0), FieldParams{XCoords: xs, YCoords: ys})
	require.True(t, ok)
	assert.Equal(t, []float64{0, 2}, res.X.Coords)
	assert.Equal(t, []float64{0, 2}, res.Y.Coords)
}

func TestAnalyzeFieldsProfilesIgnorePostProcessing(t *testing.T) {
	frame := fieldFrame(6, 4, 90, 30)
	plain, ok := AnalyzeFields(frame, FieldParams{})
	require.True(t, ok)
	for _, pp := range []PostProcess{Deinterlace, SubtractDim} {
		res, ok := AnalyzeFields(frame, FieldParams{PostProcess: pp})
		require.True(t, ok)
		assert.Equal(t, plain.X, res.X, pp.String())
		assert.Equal(t, plain.Y, res.Y, pp.String())
		assert.NotEqual(t, frame.Pix, res.Display.Pix, pp.String())
	}
	assert.Equal(t, uint8(30), frame.At(0, 1), "input frame modified")
}

func TestAnalyzeFieldsRejectsMalformedFrame(t *testing.T) {
	_, ok := AnalyzeFields(types.Frame{Width: 5, Height: 3, Pix: make([]uint8, 15)}, FieldParams{})
	assert.False(t, ok)
	_, ok = AnalyzeFields(types.NewFrame(4, 4), FieldParams{})
	assert.False(t, ok)
}

func TestAnalyzeFieldsStdReduction(t *testing.T) {
	frame := types.NewFrame(6, 4)
	// even rows vary along the column, odd rows are flat
	frame.Row(0)[0], frame.Row(2)[0] = 0, 100
	frame.Row(0)[1], frame.Row(2)[1] = 0, 100
	res, ok := AnalyzeFields(frame, FieldParams{Reduction: Std, Threshold: 0.5})
	require.True(t, ok)
	assert.Equal(t, types.BeamInEvenField, res.Decision.Outcome)
	assert.Equal(t, []float64{50, 50}, res.X.Values)
}
