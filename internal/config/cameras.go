package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/benshep/imageViewer2/internal/types"
)

// DefaultThreshold is the diff-over-sum threshold used when a camera entry
// does not set one.
const DefaultThreshold = 0.03

type camerasFile struct {
	Cameras []cameraEntry `yaml:"cameras"`
}

type cameraEntry struct {
	Name         string             `yaml:"name"`
	MuxID        int                `yaml:"mux_id"`
	Threshold    *float64           `yaml:"threshold"`
	StdThreshold *float64           `yaml:"std_threshold"`
	Calibration  *types.Calibration `yaml:"calibration"`
}

// LoadCameras reads a YAML camera list. An empty path returns DefaultCameras.
func LoadCameras(path string) ([]types.Camera, error) {
	if path == "" {
		return DefaultCameras(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cameras file: %w", err)
	}
	return ParseCameras(data)
}

func ParseCameras(data []byte) ([]types.Camera, error) {
	var file camerasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse cameras file: %w", err)
	}

	cameras := make([]types.Camera, 0, len(file.Cameras))
	for _, entry := range file.Cameras {
		cam := types.Camera{
			Name:         entry.Name,
			MuxID:        entry.MuxID,
			Threshold:    DefaultThreshold,
			StdThreshold: DefaultThreshold,
			Calibration:  entry.Calibration,
		}
		if entry.Threshold != nil {
			cam.Threshold = *entry.Threshold
		}
		if entry.StdThreshold != nil {
			cam.StdThreshold = *entry.StdThreshold
		}
		cameras = append(cameras, cam)
	}

	if err := ValidateCameras(cameras); err != nil {
		return nil, fmt.Errorf("invalid cameras file: %w", err)
	}
	return cameras, nil
}

// ValidateCameras checks names and thresholds. A calibration with a zero
// multiplier is dropped so the camera falls back to pixel units.
func ValidateCameras(cameras []types.Camera) error {
	if len(cameras) == 0 {
		return fmt.Errorf("no cameras defined")
	}
	seen := make(map[string]bool, len(cameras))
	for i := range cameras {
		cam := &cameras[i]
		if cam.Name == "" {
			return fmt.Errorf("camera %d has no name", i)
		}
		if seen[cam.Name] {
			return fmt.Errorf("duplicate camera %q", cam.Name)
		}
		seen[cam.Name] = true
		if cam.MuxID < 1 || cam.MuxID > 30 {
			return fmt.Errorf("camera %q: mux_id %d out of range 1-30", cam.Name, cam.MuxID)
		}
		if cam.Threshold < 0 || cam.StdThreshold < 0 {
			return fmt.Errorf("camera %q: thresholds must be >= 0", cam.Name)
		}
		if cal := cam.Calibration; cal != nil && (cal.XMultiplier == 0 || cal.YMultiplier == 0) {
			log.Printf("camera %s: calibration has a zero multiplier, using pixel units", cam.Name)
			cam.Calibration = nil
		}
	}
	return nil
}

// DefaultCameras is the ALICE screen list in switcher order.
func DefaultCameras() []types.Camera {
	list := []struct {
		name  string
		muxID int
	}{
		{"INJ-1", 1}, {"INJ-2", 2}, {"INJ-3", 3},
		{"INJ-4", 4}, {"INJ-5", 5}, {"ST1-1", 6},
		{"ST1-2", 7}, {"ST1-3", 8}, {"ST1-4", 28},
		{"AR1-1", 11}, {"AR1-2", 12}, {"ST2-1", 13},
		{"ST2-2", 14}, {"ST2-Y1", 23}, {"ST2-3", 15},
		{"UPWGE", 24}, {"CNWGE", 25}, {"DNWGE", 26},
		{"ST3-1", 16}, {"AR2-1", 17}, {"AR2-2", 18},
		{"ST4-1", 19}, {"ST4-2", 20},
	}
	cameras := make([]types.Camera, 0, len(list))
	for _, entry := range list {
		cameras = append(cameras, types.Camera{
			Name:         entry.name,
			MuxID:        entry.muxID,
			Threshold:    DefaultThreshold,
			StdThreshold: DefaultThreshold,
		})
	}
	return cameras
}

func FindCamera(cameras []types.Camera, name string) (types.Camera, bool) {
	for _, cam := range cameras {
		if cam.Name == name {
			return cam, true
		}
	}
	return types.Camera{}, false
}
