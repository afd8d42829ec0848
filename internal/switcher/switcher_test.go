package switcher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type fakePort struct {
	bytes.Buffer
	closed bool
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestRoute(t *testing.T) {
	tests := []struct {
		mux  int
		want []Command
	}{
		{3, []Command{{0, []byte{232, 0, 3}}}},
		{10, []Command{{0, []byte{232, 0, 10}}}},
		{14, []Command{{0, []byte{232, 1, 4}}, {0, []byte{232, 0, 9}}}},
		{23, []Command{{2, []byte{3}}, {0, []byte{232, 0, 10}}}},
	}
	for _, tc := range tests {
		got, err := Route(tc.mux)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "mux %d", tc.mux)
	}
	_, err := Route(0)
	assert.Error(t, err)
	_, err = Route(31)
	assert.Error(t, err)
}

func TestSelectWritesPorts(t *testing.T) {
	a, b, c := &fakePort{}, &fakePort{}, &fakePort{}
	s := New(a, b, c)
	require.NoError(t, s.Select(25))
	assert.Equal(t, []byte{232, 0, 10}, a.Bytes())
	assert.Empty(t, b.Bytes())
	assert.Equal(t, []byte{5}, c.Bytes())

	require.NoError(t, s.Close())
	assert.True(t, a.closed && b.closed && c.closed)
}

func TestSelectMissingPort(t *testing.T) {
	s := New(&fakePort{})
	assert.Error(t, s.Select(21))
}

func TestPortOptions(t *testing.T) {
	mode, err := PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)

	mode, err = PortOptions{BaudRate: 19200, StopBits: 2, Parity: "even"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)

	_, err = PortOptions{Parity: "mark"}.Normalize()
	assert.Error(t, err)
	_, err = PortOptions{DataBits: 9}.Normalize()
	assert.Error(t, err)
}
