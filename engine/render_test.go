package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennonjarvis-debug/dawg"
)

func renderProject() dawg.Project {
	p := dawg.NewProject("render")
	p.Tracks = []dawg.Track{{
		ID: "drums", Kind: dawg.TrackMIDI, Settings: dawg.DefaultTrackSettings(),
		Clips: []dawg.Clip{{
			ID: "c1", TrackID: "drums", Start: 0, Duration: 2, Gain: 1,
			Notes: []dawg.Note{
				{ID: "n1", Pitch: 36, Velocity: 110, Time: 0, Duration: 0.5},
				{ID: "n2", Pitch: 38, Velocity: 100, Time: 1, Duration: 0.5},
				{ID: "n3", Pitch: 42, Velocity: 80, Time: 2, Duration: 0.25},
			},
		}},
	}}
	return p
}

func TestRenderOfflineDeterministic(t *testing.T) {
	p := renderProject()
	region := RenderRegion{Start: 0, Duration: 1.5, Tail: 0.2}
	a, err := RenderOffline(context.Background(), &p, region)
	require.NoError(t, err)
	b, err := RenderOffline(context.Background(), &p, region)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, int(1.7*float64(p.SampleRate)))
	assert.Greater(t, bufferPeak(a), float32(0))
}

func TestRenderOfflineEmptyRegion(t *testing.T) {
	p := renderProject()
	_, err := RenderOffline(context.Background(), &p, RenderRegion{Duration: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrEmptyRenderRegion)

	empty := dawg.NewProject("empty")
	_, err = RenderOffline(context.Background(), &empty, RenderRegion{Duration: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrEmptyRenderRegion)
}

func TestRenderOfflineCancellation(t *testing.T) {
	p := renderProject()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf, err := RenderOffline(ctx, &p, RenderRegion{Duration: 60})
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrRenderCancelled)
	assert.Nil(t, buf)
}

func TestRenderOfflineIgnoresMutedTrack(t *testing.T) {
	p := renderProject()
	p.Tracks[0].Settings.Mute = true
	buf, err := RenderOffline(context.Background(), &p, RenderRegion{Duration: 1})
	require.NoError(t, err)
	assert.Zero(t, bufferPeak(buf))
}

func TestRenderBeatLength(t *testing.T) {
	beats, err := GenerateBeats(StyleFourOnFloor, 120, 2, 7)
	require.NoError(t, err)
	buf, err := RenderBeat(context.Background(), &beats[0], 44100, 0.5)
	require.NoError(t, err)
	// 2 bars at 120 BPM is 4 seconds, plus the tail
	assert.Len(t, buf, int(4.5*44100))
	assert.Greater(t, bufferPeak(buf), float32(0))
}

func bufferPeak(buf dawg.AudioBuffer) float32 {
	var m float32
	for _, f := range buf {
		for ch := 0; ch < 2; ch++ {
			v := f[ch]
			if v < 0 {
				v = -v
			}
			if v > m {
				m = v
			}
		}
	}
	return m
}
