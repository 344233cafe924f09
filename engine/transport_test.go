package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennonjarvis-debug/dawg"
)

func drainToPlayer(b *Broker) []any {
	var out []any
	for {
		msg, ok := TimeoutReceive(b.ToPlayer, time.Millisecond)
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}

func TestPlayPauseStop(t *testing.T) {
	m := newTestModel(t)
	m.Play()
	assert.True(t, m.Transport().Playing)
	m.Pause()
	assert.False(t, m.Transport().Playing)
	m.Play()
	m.Stop()
	ts := m.Transport()
	assert.False(t, ts.Playing)
	assert.Zero(t, ts.Frame)

	msgs := drainToPlayer(m.broker)
	kinds := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.(type) {
		case StartPlayMsg:
			kinds = append(kinds, "play")
		case PauseMsg:
			kinds = append(kinds, "pause")
		case StopMsg:
			kinds = append(kinds, "stop")
		}
	}
	assert.Equal(t, []string{"play", "pause", "play", "stop"}, kinds)
}

func TestSeekClampsToProject(t *testing.T) {
	m := newTestModel(t)
	tr, _ := m.CreateTrack(dawg.TrackMIDI, "a")
	_, err := m.AddClip(tr.ID, dawg.Clip{Start: 0, Duration: 10})
	require.NoError(t, err)

	m.Seek(-5)
	assert.Zero(t, m.Transport().Seconds)
	m.Seek(25)
	assert.Equal(t, 10.0, m.Transport().Seconds)
	m.Seek(3)
	assert.Equal(t, 3.0, m.Transport().Seconds)
	assert.Equal(t, int64(3*44100), m.Transport().Frame)
}

func TestSetTempoValidates(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.SetTempo(174))
	assert.Equal(t, 174.0, m.Project().Tempo)

	err := m.SetTempo(19)
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrInvalidTempo)
	err = m.SetTempo(301)
	require.Error(t, err)
	assert.Equal(t, 174.0, m.Project().Tempo)
}

func TestSetLoopValidates(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.SetLoop(Loop{Enabled: true, Start: 1, End: 4}))
	assert.Equal(t, Loop{Enabled: true, Start: 1, End: 4}, m.Transport().Loop)

	err := m.SetLoop(Loop{Enabled: true, Start: 4, End: 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrInvalidLoopRegion)
	err = m.SetLoop(Loop{Enabled: true, Start: -1, End: 4})
	require.Error(t, err)

	// disabling needs no region
	require.NoError(t, m.SetLoop(Loop{}))
}

func TestLiveNoteRequiresMIDITrack(t *testing.T) {
	m := newTestModel(t)
	audio, _ := m.CreateTrack(dawg.TrackAudio, "a")
	err := m.NoteOn(audio.ID, 1, 60, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrKindMismatch)

	midi, _ := m.CreateTrack(dawg.TrackMIDI, "m")
	require.NoError(t, m.NoteOn(midi.ID, 1, 60, 100))
	require.NoError(t, m.NoteOff(midi.ID, 1))
}

func TestProcessPlayerMessagesUpdatesPosition(t *testing.T) {
	m := newTestModel(t)
	m.Play()
	m.broker.ToModel <- MsgToModel{Frame: 44100, Playing: true}
	m.broker.ToModel <- MsgToModel{Frame: 88200, Playing: true}
	m.ProcessPlayerMessages()
	assert.Equal(t, int64(88200), m.Transport().Frame)
	assert.Equal(t, 2.0, m.Transport().Seconds)

	// the player reporting a stop flips the model's playing flag
	m.broker.ToModel <- MsgToModel{Frame: 88200, Playing: false}
	var events []EventKind
	m.Subscribe(func(e Event) { events = append(events, e.Kind) })
	m.ProcessPlayerMessages()
	assert.False(t, m.Transport().Playing)
	assert.Contains(t, events, EventTransportChanged)
}
