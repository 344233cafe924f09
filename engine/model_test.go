package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennonjarvis-debug/dawg"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	return NewModel(NewBroker(), nil)
}

func orders(m *Model) []int {
	p := m.Project()
	out := make([]int, len(p.Tracks))
	for i, tr := range p.Tracks {
		out[i] = tr.Order
	}
	return out
}

func TestCreateTrackAssignsDenseOrder(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 4; i++ {
		_, err := m.CreateTrack(dawg.TrackMIDI, "")
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, orders(m))
}

func TestCreateTrackInvalidKind(t *testing.T) {
	m := newTestModel(t)
	_, err := m.CreateTrack("drum", "x")
	require.Error(t, err)
	var verr *dawg.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Empty(t, m.Project().Tracks)
}

func TestReorderKeepsDensePermutation(t *testing.T) {
	m := newTestModel(t)
	var ids []string
	for i := 0; i < 5; i++ {
		tr, err := m.CreateTrack(dawg.TrackAudio, "")
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}
	require.NoError(t, m.ReorderTrack(ids[4], 0))
	require.NoError(t, m.ReorderTrack(ids[0], 3))
	require.NoError(t, m.ReorderTrack(ids[2], 10)) // clamped to the end

	p := m.Project()
	require.NoError(t, p.Validate())
	seen := make(map[int]bool)
	for _, tr := range p.Tracks {
		seen[tr.Order] = true
	}
	for i := range p.Tracks {
		assert.True(t, seen[i], "order %d missing", i)
	}
}

func TestDeleteTrackRenumbers(t *testing.T) {
	m := newTestModel(t)
	a, _ := m.CreateTrack(dawg.TrackAudio, "a")
	b, _ := m.CreateTrack(dawg.TrackAudio, "b")
	c, _ := m.CreateTrack(dawg.TrackAudio, "c")
	require.NoError(t, m.DeleteTrack(b.ID))
	p := m.Project()
	require.Len(t, p.Tracks, 2)
	assert.Equal(t, []int{0, 1}, orders(m))
	assert.Equal(t, a.ID, p.Tracks[0].ID)
	assert.Equal(t, c.ID, p.Tracks[1].ID)
}

func TestDeleteMissingTrack(t *testing.T) {
	m := newTestModel(t)
	err := m.DeleteTrack("nope")
	require.Error(t, err)
	var nferr *dawg.NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "track", nferr.Kind)
}

func TestDeleteFolderOrphansChildren(t *testing.T) {
	m := newTestModel(t)
	a, _ := m.CreateTrack(dawg.TrackMIDI, "a")
	b, _ := m.CreateTrack(dawg.TrackMIDI, "b")
	folder, err := m.GroupTracks([]string{a.ID, b.ID}, "drums")
	require.NoError(t, err)

	p := m.Project()
	assert.Equal(t, folder.ID, p.Track(a.ID).ParentID)
	assert.Equal(t, folder.ID, p.Track(b.ID).ParentID)

	require.NoError(t, m.DeleteTrack(folder.ID))
	p = m.Project()
	require.NotNil(t, p.Track(a.ID))
	require.NotNil(t, p.Track(b.ID))
	assert.Empty(t, p.Track(a.ID).ParentID)
	assert.Empty(t, p.Track(b.ID).ParentID)
	require.NoError(t, p.Validate())
}

func TestUngroupRequiresFolder(t *testing.T) {
	m := newTestModel(t)
	a, _ := m.CreateTrack(dawg.TrackAudio, "a")
	err := m.UngroupTracks(a.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrNotAFolder)
}

func TestDuplicateTrackCopiesSettingsNotClips(t *testing.T) {
	m := newTestModel(t)
	tr, _ := m.CreateTrack(dawg.TrackMIDI, "keys")
	vol := -6.0
	require.NoError(t, m.UpdateTrackSettings(tr.ID, TrackSettingsPatch{Volume: &vol}))
	_, err := m.AddClip(tr.ID, dawg.Clip{Start: 0, Duration: 4, Notes: []dawg.Note{
		{Pitch: 60, Velocity: 100, Time: 0, Duration: 1},
	}})
	require.NoError(t, err)
	_, err = m.AddEffect(tr.ID, dawg.EffectReverb, nil)
	require.NoError(t, err)

	dup, err := m.DuplicateTrack(tr.ID)
	require.NoError(t, err)
	p := m.Project()
	got := p.Track(dup.ID)
	require.NotNil(t, got)
	assert.Equal(t, -6.0, got.Settings.Volume)
	assert.Empty(t, got.Clips)
	require.Len(t, got.Effects, 1)
	assert.NotEqual(t, p.Track(tr.ID).Effects[0].ID, got.Effects[0].ID)
}

func TestUpdateTrackSettingsValidates(t *testing.T) {
	m := newTestModel(t)
	tr, _ := m.CreateTrack(dawg.TrackAudio, "a")
	pan := 1.5
	err := m.UpdateTrackSettings(tr.ID, TrackSettingsPatch{Pan: &pan})
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrInvalidPan)
	p := m.Project()
	assert.Equal(t, 0.0, p.Track(tr.ID).Settings.Pan)
}

func TestEventsEmittedInMutationOrder(t *testing.T) {
	m := newTestModel(t)
	var kinds []EventKind
	unsub := m.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	tr, _ := m.CreateTrack(dawg.TrackMIDI, "a")
	clip, _ := m.AddClip(tr.ID, dawg.Clip{Duration: 4})
	_, err := m.AddNotes(tr.ID, clip.ID, []dawg.Note{{Pitch: 60, Velocity: 90, Time: 0, Duration: 1}})
	require.NoError(t, err)
	require.NoError(t, m.DeleteTrack(tr.ID))

	assert.Equal(t, []EventKind{EventTrackCreated, EventClipAdded, EventNotesChanged, EventTrackDeleted}, kinds)

	unsub()
	m.CreateTrack(dawg.TrackAudio, "b")
	assert.Len(t, kinds, 4)
}

func TestFailedMutationEmitsNoEvent(t *testing.T) {
	m := newTestModel(t)
	fired := 0
	m.Subscribe(func(Event) { fired++ })
	_, err := m.CreateTrack("bogus", "")
	require.Error(t, err)
	assert.Zero(t, fired)
}

func TestAddClipKindMismatch(t *testing.T) {
	m := newTestModel(t)
	audio, _ := m.CreateTrack(dawg.TrackAudio, "a")
	_, err := m.AddClip(audio.ID, dawg.Clip{Duration: 2, Notes: []dawg.Note{{Pitch: 60, Velocity: 100, Duration: 1}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrKindMismatch)
}

func TestMoveClipAcrossTracks(t *testing.T) {
	m := newTestModel(t)
	a, _ := m.CreateTrack(dawg.TrackMIDI, "a")
	b, _ := m.CreateTrack(dawg.TrackMIDI, "b")
	clip, err := m.AddClip(a.ID, dawg.Clip{Start: 1, Duration: 2})
	require.NoError(t, err)

	require.NoError(t, m.MoveClip(a.ID, clip.ID, b.ID, 5))
	p := m.Project()
	assert.Empty(t, p.Track(a.ID).Clips)
	require.Len(t, p.Track(b.ID).Clips, 1)
	moved := p.Track(b.ID).Clips[0]
	assert.Equal(t, 5.0, moved.Start)
	assert.Equal(t, b.ID, moved.TrackID)
}

func TestRemoveNotesIgnoresUnknownIDs(t *testing.T) {
	m := newTestModel(t)
	tr, _ := m.CreateTrack(dawg.TrackMIDI, "a")
	clip, _ := m.AddClip(tr.ID, dawg.Clip{Duration: 4})
	added, err := m.AddNotes(tr.ID, clip.ID, []dawg.Note{
		{Pitch: 60, Velocity: 100, Time: 0, Duration: 1},
		{Pitch: 64, Velocity: 100, Time: 1, Duration: 1},
	})
	require.NoError(t, err)
	require.NoError(t, m.RemoveNotes(tr.ID, clip.ID, []string{added[0].ID, "missing"}))
	p := m.Project()
	notes := p.Track(tr.ID).Clips[0].Notes
	require.Len(t, notes, 1)
	assert.Equal(t, added[1].ID, notes[0].ID)
}

func TestEffectLifecycle(t *testing.T) {
	m := newTestModel(t)
	tr, _ := m.CreateTrack(dawg.TrackAudio, "a")

	_, err := m.AddEffect(tr.ID, "flanger", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrUnknownEffectType)

	rev, err := m.AddEffect(tr.ID, dawg.EffectReverb, map[string]float64{"mix": 0.4})
	require.NoError(t, err)
	dly, err := m.AddEffect(tr.ID, dawg.EffectDelay, nil)
	require.NoError(t, err)

	err = m.SetEffectParameter(tr.ID, rev.ID, "mix", 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrInvalidParameter)

	require.NoError(t, m.SetEffectParameter(tr.ID, rev.ID, "mix", 0.8))
	require.NoError(t, m.ReorderEffect(tr.ID, dly.ID, 0))
	require.NoError(t, m.BypassEffect(tr.ID, rev.ID, true))

	p := m.Project()
	effs := p.Track(tr.ID).Effects
	require.Len(t, effs, 2)
	assert.Equal(t, dly.ID, effs[0].ID)
	assert.Equal(t, 0.8, effs[1].Parameters["mix"])
	assert.False(t, effs[1].Enabled)

	require.NoError(t, m.RemoveEffect(tr.ID, dly.ID))
	p = m.Project()
	assert.Len(t, p.Track(tr.ID).Effects, 1)
}

func TestLoadProjectRejectsInvalid(t *testing.T) {
	m := newTestModel(t)
	bad := dawg.NewProject("x")
	bad.Tempo = 500
	err := m.LoadProject(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrInvalidTempo)
}
