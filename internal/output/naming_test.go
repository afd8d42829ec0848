package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpandTemplate(t *testing.T) {
	at := time.Date(2024, 3, 7, 9, 5, 0, 0, time.UTC)
	got := ExpandTemplate(DefaultSequenceTemplate, NameParams{
		Camera:      "INJ-3",
		TrainLength: "24 ns",
		Index:       7,
		Count:       120,
		Time:        at,
	})
	assert.Equal(t, "2024/03/07/0905/INJ-3 24 ns 007.png", got)
}

func TestExpandTemplateWithoutIndex(t *testing.T) {
	got := ExpandTemplate("[cam] [i] 100%%", NameParams{Camera: "AR1-1", Index: -1})
	assert.Equal(t, "AR1-1 [i] 100%", got)
}

func TestPadIndex(t *testing.T) {
	tests := []struct {
		i, count int
		want     string
	}{
		{3, 9, "3"},
		{3, 10, "03"},
		{42, 100, "042"},
		{5, 0, "05"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, PadIndex(tc.i, tc.count))
	}
}

func TestMovieName(t *testing.T) {
	assert.Equal(t, "a/b 01.mp4", MovieName("a/b 01.png"))
	assert.Equal(t, "clip.mp4", MovieName("clip.mp4"))
	assert.Equal(t, "clip.mp4", MovieName("clip"))
}

func TestJetColormap(t *testing.T) {
	assert.Equal(t, uint8(128), Jet[0].B)
	assert.Zero(t, Jet[0].R)
	for i := SaturationLevel; i < 256; i++ {
		assert.Equal(t, uint8(255), Jet[i].R)
		assert.Equal(t, uint8(255), Jet[i].G)
		assert.Equal(t, uint8(255), Jet[i].B)
	}
	assert.Equal(t, uint8(255), Jet[100].G)
}
