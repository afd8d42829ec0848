package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcessApply(t *testing.T) {
	frame := fieldFrame(2, 4, 200, 50)
	frame.Row(1)[0] = 250

	same := NoPostProcess.Apply(frame, 0)
	assert.Equal(t, frame.Pix, same.Pix)

	de := Deinterlace.Apply(frame, 0)
	assert.Equal(t, []uint8{200, 200, 200, 200, 200, 200, 200, 200}, de.Pix)

	sub := SubtractDim.Apply(frame, 0)
	assert.Equal(t, []uint8{0, 150, 0, 150, 150, 150, 150, 150}, sub.Pix)

	assert.Equal(t, uint8(250), frame.At(0, 1))
}

func TestPostProcessOddParity(t *testing.T) {
	frame := fieldFrame(1, 2, 10, 90)
	assert.Equal(t, []uint8{90, 90}, Deinterlace.Apply(frame, 1).Pix)
	assert.Equal(t, []uint8{80, 80}, SubtractDim.Apply(frame, 1).Pix)
}

func TestParsePostProcess(t *testing.T) {
	for in, want := range map[string]PostProcess{
		"":             NoPostProcess,
		"none":         NoPostProcess,
		"Deinterlace":  Deinterlace,
		"subtract-dim": SubtractDim,
		"subtract_dim": SubtractDim,
	} {
		got, err := ParsePostProcess(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePostProcess("sharpen")
	assert.Error(t, err)
}

func TestReductions(t *testing.T) {
	assert.Equal(t, 6.0, Sum.Reduce([]float64{1, 2, 3}))
	assert.Equal(t, 1.0, Std.Reduce([]float64{1, 3}))
	assert.Zero(t, Std.Reduce(nil))

	r, err := ParseReduction("STD")
	require.NoError(t, err)
	assert.Equal(t, Std, r)
	_, err = ParseReduction("median")
	assert.Error(t, err)
}
