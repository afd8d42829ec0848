package recording

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benshep/imageViewer2/internal/types"
)

func frameAt(seq uint64, t time.Time) types.Frame {
	f := types.NewFrame(4, 2)
	f.Seq = seq
	f.Time = t
	return f
}

func TestArmRejectsTooFewFrames(t *testing.T) {
	r := New()
	for _, n := range []int{-1, 0, 1} {
		_, err := r.Arm(n, Stills)
		assert.ErrorIs(t, err, ErrTooFewFrames)
	}
	assert.Equal(t, Idle, r.State())
}

func TestRecorderLifecycle(t *testing.T) {
	r := New()
	id, err := r.Arm(3, Movie)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, Filling, r.State())

	_, err = r.Arm(5, Stills)
	assert.ErrorIs(t, err, ErrBusy)

	t0 := time.Unix(100, 0)
	var seq *Sequence
	var done bool
	for i := 0; i < 3; i++ {
		seq, done = r.Offer(frameAt(uint64(i), t0.Add(time.Duration(i)*50*time.Millisecond)))
		if i < 2 {
			assert.False(t, done)
		}
	}
	require.True(t, done)
	assert.Equal(t, Exporting, r.State())
	assert.Equal(t, id, seq.ID)
	assert.Equal(t, 3, seq.Len())
	assert.Equal(t, uint64(2), seq.Frames[2].Seq)
	assert.InDelta(t, 20, seq.FrameRate(), 1e-9)

	// frames offered while exporting are ignored
	_, done = r.Offer(frameAt(9, t0))
	assert.False(t, done)
	_, err = r.Arm(2, Stills)
	assert.ErrorIs(t, err, ErrBusy)

	r.Finish(errors.New("encoder exited"))
	assert.Equal(t, Idle, r.State())
	st := r.Status()
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, id.String(), st.LastID)
	assert.Equal(t, "encoder exited", st.LastErr)

	_, err = r.Arm(2, Stills)
	assert.NoError(t, err)
}

func TestRecorderCancel(t *testing.T) {
	r := New()
	assert.False(t, r.Cancel())
	_, err := r.Arm(4, Stills)
	require.NoError(t, err)
	r.Offer(frameAt(0, time.Now()))
	i, n := r.Progress()
	assert.Equal(t, 1, i)
	assert.Equal(t, 4, n)
	assert.True(t, r.Cancel())
	assert.Equal(t, Idle, r.State())
}

func TestSequenceFrameRateDegenerate(t *testing.T) {
	t0 := time.Unix(5, 0)
	s := &Sequence{Times: []time.Time{t0, t0}}
	assert.Zero(t, s.FrameRate())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("MP4")
	require.NoError(t, err)
	assert.Equal(t, Movie, m)
	_, err = ParseMode("gif")
	assert.Error(t, err)
}

func TestOfferKeepsCaptureOrder(t *testing.T) {
	r := New()
	_, err := r.Arm(3, Movie)
	require.NoError(t, err)

	t0 := time.Unix(100, 0)
	r.Offer(frameAt(2, t0.Add(40*time.Millisecond)))
	r.Offer(frameAt(3, t0.Add(80*time.Millisecond)))
	seq, done := r.Offer(frameAt(1, t0))
	require.True(t, done)

	got := []uint64{seq.Frames[0].Seq, seq.Frames[1].Seq, seq.Frames[2].Seq}
	assert.Equal(t, []uint64{1, 2, 3}, got)
	assert.Equal(t, t0, seq.Times[0])
	assert.InDelta(t, 25, seq.FrameRate(), 1e-9)
}
