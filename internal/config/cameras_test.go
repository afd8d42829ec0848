package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCamerasDefaultsAndCalibration(t *testing.T) {
	data := []byte(`
cameras:
  - name: INJ-2
    mux_id: 2
    threshold: 0.01
    calibration:
      x_multiplier: 0.05
      y_multiplier: 0.04
      x_centre: 380
      y_centre: 286
  - name: ST1-1
    mux_id: 6
`)
	cameras, err := ParseCameras(data)
	require.NoError(t, err)
	require.Len(t, cameras, 2)

	assert.Equal(t, 0.01, cameras[0].Threshold)
	assert.Equal(t, DefaultThreshold, cameras[0].StdThreshold)
	require.NotNil(t, cameras[0].Calibration)
	assert.Equal(t, 380.0, cameras[0].Calibration.XCentre)

	assert.Equal(t, DefaultThreshold, cameras[1].Threshold)
	assert.Nil(t, cameras[1].Calibration)
}

func TestParseCamerasZeroMultiplierFallsBackToPixels(t *testing.T) {
	data := []byte(`
cameras:
  - name: AR1-1
    mux_id: 11
    calibration:
      x_multiplier: 0
      y_multiplier: 0.1
`)
	cameras, err := ParseCameras(data)
	require.NoError(t, err)
	assert.Nil(t, cameras[0].Calibration)

	_, _, units := cameras[0].Axes(16, 8)
	assert.Equal(t, "pixels", units)
}

func TestParseCamerasRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty":     `cameras: []`,
		"no name":   "cameras:\n  - mux_id: 1\n",
		"duplicate": "cameras:\n  - {name: A, mux_id: 1}\n  - {name: A, mux_id: 2}\n",
		"mux":       "cameras:\n  - {name: A, mux_id: 40}\n",
		"negative":  "cameras:\n  - {name: A, mux_id: 1, threshold: -0.1}\n",
		"yaml":      "cameras: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCameras([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDefaultCameras(t *testing.T) {
	cameras := DefaultCameras()
	require.NoError(t, ValidateCameras(cameras))
	cam, ok := FindCamera(cameras, "ST1-4")
	require.True(t, ok)
	assert.Equal(t, 28, cam.MuxID)

	_, ok = FindCamera(cameras, "XYZ")
	assert.False(t, ok)
}

func TestLoadCamerasEmptyPath(t *testing.T) {
	cameras, err := LoadCameras("")
	require.NoError(t, err)
	assert.Len(t, cameras, 23)
}

func TestTrainLength(t *testing.T) {
	assert.Equal(t, "24 ns", TrainLengthLabel(0.024))
	assert.Equal(t, "500 ns", TrainLengthLabel(0.5))
	assert.Equal(t, "2 µs", TrainLengthLabel(2))
	assert.Equal(t, "", TrainLengthLabel(0))

	_, ok := TrainLengthDown(0.024)
	assert.False(t, ok)
	down, ok := TrainLengthDown(1)
	assert.True(t, ok)
	assert.Equal(t, 0.5, down)

	up, ok := TrainLengthUp(0.024)
	assert.True(t, ok)
	assert.Equal(t, 0.048, up)
	_, ok = TrainLengthUp(100)
	assert.False(t, ok)
}
