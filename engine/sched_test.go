package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennonjarvis-debug/dawg"
)

func schedProject() dawg.Project {
	p := dawg.NewProject("sched") // 120 BPM
	p.Tracks = []dawg.Track{{
		ID: "keys", Kind: dawg.TrackMIDI, Settings: dawg.DefaultTrackSettings(),
		Clips: []dawg.Clip{{
			ID: "c", TrackID: "keys", Start: 1, Duration: 4, Gain: 1,
			Notes: []dawg.Note{
				{ID: "a", Pitch: 60, Velocity: 100, Time: 0, Duration: 1},
				{ID: "b", Pitch: 64, Velocity: 100, Time: 2, Duration: 1},
			},
		}},
	}}
	return p
}

func TestScheduleWindowPairsOnAndOff(t *testing.T) {
	p := schedProject()
	// note a: on at 1.0s, off at 1.5s; note b: on at 2.0s
	evs := scheduleWindow(&p, p.Tempo, 44100, 0, int64(1.5*44100))
	require.Len(t, evs, 2, "only note a's onset is inside the window, as a pair")
	assert.True(t, evs[0].on)
	assert.False(t, evs[1].on)
	assert.Equal(t, evs[0].noteID, evs[1].noteID)
	assert.Equal(t, int64(44100), evs[0].frame)
	assert.Equal(t, int64(1.5*44100), evs[1].frame)
	assert.Negative(t, evs[0].noteID)
}

func TestScheduleWindowHalfOpen(t *testing.T) {
	p := schedProject()
	evs := scheduleWindow(&p, p.Tempo, 44100, 44100, 44101)
	require.Len(t, evs, 2)
	evs = scheduleWindow(&p, p.Tempo, 44100, 44101, 2*44100)
	assert.Empty(t, evs, "onset at the window start was already consumed")
}

func TestScheduleWindowTempoRederivesBeats(t *testing.T) {
	p := schedProject()
	// at 240 BPM note b (2 beats into a clip starting at 1s) lands at 1.5s
	evs := scheduleWindow(&p, 240, 44100, int64(1.4*44100), int64(1.6*44100))
	require.Len(t, evs, 2)
	assert.Equal(t, int64(1.5*44100), evs[0].frame)
}

func TestScheduleWindowClampsOffToClipEnd(t *testing.T) {
	p := schedProject()
	p.Tracks[0].Clips[0].Notes = []dawg.Note{
		{ID: "long", Pitch: 60, Velocity: 100, Time: 7.5, Duration: 4},
	}
	// onset at 1 + 7.5*0.5 = 4.75s, natural off at 6.75s, clip ends at 5s
	evs := scheduleWindow(&p, p.Tempo, 44100, 0, int64(4.8*44100))
	require.Len(t, evs, 2)
	assert.Equal(t, int64(5*44100), evs[1].frame)
}

func TestScheduleWindowSkipsMuted(t *testing.T) {
	p := schedProject()
	p.Tracks[0].Settings.Mute = true
	evs := scheduleWindow(&p, p.Tempo, 44100, 0, 10*44100)
	assert.Empty(t, evs)
}

func TestSchedNoteIDStableAndNegative(t *testing.T) {
	a := schedNoteID("clip1", "note1")
	assert.Equal(t, a, schedNoteID("clip1", "note1"))
	assert.Negative(t, a)
	assert.NotEqual(t, a, schedNoteID("clip1", "note2"))
	assert.NotEqual(t, a, schedNoteID("clip2", "note1"))
}
