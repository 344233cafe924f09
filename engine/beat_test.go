package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennonjarvis-debug/dawg"
)

// stripIDs clears the random note ids so candidate contents can be compared.
func stripIDs(beats []GeneratedBeat) []GeneratedBeat {
	out := make([]GeneratedBeat, len(beats))
	for i, b := range beats {
		notes := make([]dawg.Note, len(b.Notes))
		copy(notes, b.Notes)
		for j := range notes {
			notes[j].ID = ""
		}
		b.Notes = notes
		out[i] = b
	}
	return out
}

func TestGenerateBeatsSeededReproducible(t *testing.T) {
	a, err := GenerateBeats(StyleBoomBap, 90, 4, 1234)
	require.NoError(t, err)
	b, err := GenerateBeats(StyleBoomBap, 90, 4, 1234)
	require.NoError(t, err)
	require.Len(t, a, CandidateCount)
	assert.Equal(t, stripIDs(a), stripIDs(b))

	c, err := GenerateBeats(StyleBoomBap, 90, 4, 1235)
	require.NoError(t, err)
	assert.NotEqual(t, stripIDs(a), stripIDs(c))
}

func TestGenerateBeatsCandidatesDiffer(t *testing.T) {
	beats, err := GenerateBeats(StyleBreakbeat, 140, 2, 99)
	require.NoError(t, err)
	assert.NotEqual(t, stripIDs(beats[:1])[0].Notes, stripIDs(beats[1:2])[0].Notes)
}

func TestGenerateBeatsValidation(t *testing.T) {
	_, err := GenerateBeats("polka", 120, 2, 1)
	require.Error(t, err)
	_, err = GenerateBeats(StyleTrap, 500, 2, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrInvalidTempo)
	_, err = GenerateBeats(StyleTrap, 120, 0, 1)
	require.Error(t, err)
}

func TestGeneratedNotesAreValid(t *testing.T) {
	beats, err := GenerateBeats(StyleTrap, 140, 4, 5)
	require.NoError(t, err)
	for _, b := range beats {
		require.NotEmpty(t, b.Notes)
		for _, n := range b.Notes {
			assert.NoError(t, n.Validate())
			assert.Less(t, n.Time, float64(b.Bars)*4)
		}
	}
}

func TestBeatClipSpansPattern(t *testing.T) {
	beats, err := GenerateBeats(StyleHalfTime, 60, 2, 3)
	require.NoError(t, err)
	clip := beats[0].Clip(10)
	assert.Equal(t, 10.0, clip.Start)
	assert.Equal(t, 8.0, clip.Duration) // 2 bars at 60 BPM
	assert.NoError(t, clip.Validate())
}

func fakeRender(counter *atomic.Int32) renderFunc {
	return func(b *GeneratedBeat) (dawg.AudioBuffer, error) {
		counter.Add(1)
		return make(dawg.AudioBuffer, 128), nil
	}
}

func TestPreviewSelectDoesNotRender(t *testing.T) {
	var renders atomic.Int32
	broker := NewBroker()
	pc := NewPreviewCache(broker, nil, fakeRender(&renders))

	beats, err := GenerateBeats(StyleFourOnFloor, 120, 1, 11)
	require.NoError(t, err)
	require.NoError(t, pc.Prepare(beats))
	assert.Equal(t, int32(CandidateCount), renders.Load())

	// switching candidates only routes prepared audio
	require.NoError(t, pc.Select(0))
	require.NoError(t, pc.Select(1))
	require.NoError(t, pc.Select(2))
	assert.Equal(t, int32(CandidateCount), renders.Load())

	msg, ok := TimeoutReceive(broker.ToPlayer, 10*time.Millisecond)
	require.True(t, ok)
	_, isPreview := msg.(PreviewMsg)
	assert.True(t, isPreview)
}

func TestPreviewSelectOutOfRange(t *testing.T) {
	var renders atomic.Int32
	pc := NewPreviewCache(NewBroker(), nil, fakeRender(&renders))
	require.NoError(t, pc.Prepare(nil))
	err := pc.Select(0)
	require.Error(t, err)
	var nferr *dawg.NotFoundError
	assert.ErrorAs(t, err, &nferr)
}

func TestPreviewAcceptMaterializesClip(t *testing.T) {
	var renders atomic.Int32
	broker := NewBroker()
	pc := NewPreviewCache(broker, nil, fakeRender(&renders))
	m := NewModel(broker, nil)
	tr, err := m.CreateTrack(dawg.TrackMIDI, "drums")
	require.NoError(t, err)

	beats, err := GenerateBeats(StyleBoomBap, 100, 2, 21)
	require.NoError(t, err)
	require.NoError(t, pc.Prepare(beats))

	clip, err := pc.Accept(m, 1, tr.ID, 0)
	require.NoError(t, err)
	p := m.Project()
	require.Len(t, p.Track(tr.ID).Clips, 1)
	assert.Equal(t, clip.ID, p.Track(tr.ID).Clips[0].ID)
	assert.NotEmpty(t, p.Track(tr.ID).Clips[0].Notes)
	assert.Empty(t, pc.Candidates(), "accept discards the candidate set")
}

func TestPreviewRejectLeavesModelUntouched(t *testing.T) {
	var renders atomic.Int32
	broker := NewBroker()
	pc := NewPreviewCache(broker, nil, fakeRender(&renders))
	m := NewModel(broker, nil)
	tr, _ := m.CreateTrack(dawg.TrackMIDI, "drums")

	beats, err := GenerateBeats(StyleBoomBap, 100, 2, 21)
	require.NoError(t, err)
	require.NoError(t, pc.Prepare(beats))
	pc.Reject()

	p := m.Project()
	assert.Empty(t, p.Track(tr.ID).Clips)
	assert.Empty(t, pc.Candidates())
}
