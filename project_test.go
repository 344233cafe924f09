package dawg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProject() Project {
	p := NewProject("test")
	p.Tracks = []Track{
		{ID: "drums", Name: "Drums", Kind: TrackMIDI, Order: 0, Settings: DefaultTrackSettings()},
		{ID: "bass", Name: "Bass", Kind: TrackMIDI, Order: 1, Settings: DefaultTrackSettings()},
		{ID: "vox", Name: "Vox", Kind: TrackAudio, Order: 2, Settings: DefaultTrackSettings()},
	}
	return p
}

func TestMuteDominatesSolo(t *testing.T) {
	p := testProject()
	p.Tracks[0].Settings.Mute = true
	p.Tracks[0].Settings.Solo = true
	assert.False(t, p.Audible("drums"))
	// other tracks still lose to the solo
	assert.False(t, p.Audible("bass"))
}

func TestSoloSilencesOthers(t *testing.T) {
	p := testProject()
	p.Tracks[1].Settings.Solo = true
	assert.False(t, p.Audible("drums"))
	assert.True(t, p.Audible("bass"))
	assert.False(t, p.Audible("vox"))
}

func TestNoSoloAllAudible(t *testing.T) {
	p := testProject()
	for _, tr := range p.Tracks {
		assert.True(t, p.Audible(tr.ID), tr.ID)
	}
}

func TestFolderMuteSilencesDescendants(t *testing.T) {
	p := testProject()
	p.Tracks = append(p.Tracks, Track{ID: "grp", Name: "Group", Kind: TrackFolder, Order: 3, Settings: DefaultTrackSettings()})
	p.Tracks[0].ParentID = "grp"
	p.Track("grp").Settings.Mute = true
	assert.False(t, p.Audible("drums"))
	assert.True(t, p.Audible("bass"))
}

func TestValidateTempoRange(t *testing.T) {
	p := testProject()
	p.Tempo = 19
	assert.ErrorIs(t, p.Validate(), ErrInvalidTempo)
	p.Tempo = 301
	assert.ErrorIs(t, p.Validate(), ErrInvalidTempo)
	p.Tempo = 120
	assert.NoError(t, p.Validate())
}

func TestValidateOrderMustBeDensePermutation(t *testing.T) {
	p := testProject()
	p.Tracks[2].Order = 5
	require.Error(t, p.Validate())
	p.Tracks[2].Order = 1
	require.Error(t, p.Validate())
}

func TestValidateParentMustBeFolder(t *testing.T) {
	p := testProject()
	p.Tracks[0].ParentID = "bass"
	require.Error(t, p.Validate())
	assert.ErrorIs(t, p.Validate(), ErrNotAFolder)
}

func TestProjectRoundTripJSON(t *testing.T) {
	p := testProject()
	p.Tracks[0].Clips = []Clip{{
		ID: "c1", TrackID: "drums", Name: "beat", Duration: 4, Gain: 1,
		Notes: []Note{{ID: "n1", Pitch: 36, Velocity: 110, Time: 0, Duration: 0.25}},
	}}
	p.Tracks[2].Effects = []Effect{mustEffect(t, "e1", EffectReverb, nil)}

	var buf bytes.Buffer
	require.NoError(t, WriteProject(&buf, "song.json", p))
	got, err := ReadProject(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, p.Tempo, got.Tempo)
	require.Len(t, got.Tracks, 3)
	assert.Equal(t, p.Tracks[0].Clips[0].Notes, got.Tracks[0].Clips[0].Notes)
	assert.Equal(t, EffectReverb, got.Tracks[2].Effects[0].Type)
}

func TestProjectRoundTripYAML(t *testing.T) {
	p := testProject()
	var buf bytes.Buffer
	require.NoError(t, WriteProject(&buf, "song.yml", p))
	got, err := ReadProject(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, len(p.Tracks), len(got.Tracks))
	assert.Equal(t, p.Tracks[1].Name, got.Tracks[1].Name)
}

func TestCopyIsDeep(t *testing.T) {
	p := testProject()
	p.Tracks[0].Clips = []Clip{{ID: "c1", Duration: 2, Notes: []Note{{ID: "n", Pitch: 60, Velocity: 100, Duration: 1}}}}
	q := p.Copy()
	q.Tracks[0].Clips[0].Notes[0].Pitch = 72
	assert.Equal(t, 60, p.Tracks[0].Clips[0].Notes[0].Pitch)
}

func mustEffect(t *testing.T, id string, typ EffectType, params map[string]float64) Effect {
	t.Helper()
	e, err := NewEffect(id, typ, params)
	require.NoError(t, err)
	return e
}
