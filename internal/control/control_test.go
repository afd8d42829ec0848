package control

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	isCamera := func(name string) bool { return name == "INJ-3" || name == "AR1-1" }
	tests := []struct {
		msg   string
		kind  Kind
		cam   string
		reply string
	}{
		{"INJ-3", KindCamera, "INJ-3", "INJ-3"},
		{"IN", KindIn, "", "IN"},
		{"OUT", KindOut, "", "OUT"},
		{"LIVE", KindLive, "", "LIVE"},
		{"PAUSE", KindPause, "", "PAUSE"},
		{"HELLO", KindHello, "", "HELLO"},
		{"inj-3", KindUnknown, "", "Camera inj-3 not recognised"},
		{"", KindUnknown, "", "Camera  not recognised"},
	}
	for _, tc := range tests {
		cmd, reply := ParseCommand(tc.msg, isCamera)
		assert.Equal(t, tc.kind, cmd.Kind, tc.msg)
		assert.Equal(t, tc.cam, cmd.Camera, tc.msg)
		assert.Equal(t, tc.reply, reply, tc.msg)
	}
}

func TestParseCommandWithoutCameraList(t *testing.T) {
	cmd, reply := ParseCommand("ST1-1", nil)
	assert.Equal(t, KindUnknown, cmd.Kind)
	assert.Equal(t, "Camera ST1-1 not recognised", reply)
}

func TestEncodeScreen(t *testing.T) {
	msg, err := EncodeScreen("ST2-1")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(msg, &decoded))
	assert.Equal(t, map[string]any{"screen": "ST2-1"}, decoded)
}

func TestEncodePosition(t *testing.T) {
	msg, err := EncodePosition(Position{Screen: "ST2-1", Axis: "y", Center: 1.5, FWHM: 0.25, Units: "mm"})
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(msg, &decoded))
	assert.Equal(t, "y", decoded["axis"])
	assert.Equal(t, 1.5, decoded["center"])
	assert.Equal(t, "mm", decoded["units"])
}
