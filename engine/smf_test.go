package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennonjarvis-debug/dawg"
)

func TestExportSMF(t *testing.T) {
	p := renderProject()
	data, err := ExportSMF(&p)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("MThd")))
	// tempo track plus one track per MIDI track
	assert.Equal(t, 2, bytes.Count(data, []byte("MTrk")))
}

func TestExportSMFNoMIDITracks(t *testing.T) {
	p := dawg.NewProject("audio only")
	p.Tracks = []dawg.Track{{
		ID: "a", Kind: dawg.TrackAudio, Settings: dawg.DefaultTrackSettings(),
	}}
	_, err := ExportSMF(&p)
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrEmptyRenderRegion)
}

func TestExportSMFDeterministic(t *testing.T) {
	p := renderProject()
	a, err := ExportSMF(&p)
	require.NoError(t, err)
	b, err := ExportSMF(&p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
