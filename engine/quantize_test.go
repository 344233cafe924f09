package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennonjarvis-debug/dawg"
)

func notesAt(times ...float64) []dawg.Note {
	notes := make([]dawg.Note, len(times))
	for i, t := range times {
		notes[i] = dawg.Note{ID: string(rune('a' + i)), Pitch: 60, Velocity: 100, Time: t, Duration: 0.25}
	}
	return notes
}

func TestQuantizeAlignedIsNoop(t *testing.T) {
	notes := notesAt(0, 0.25, 0.5, 1.75, 3)
	out, err := Quantize(notes, QuantizeOptions{Grid: GridSixteenth, Strength: 1})
	require.NoError(t, err)
	for i := range notes {
		assert.Equal(t, notes[i].Time, out[i].Time, "note %d moved", i)
	}
}

func TestQuantizeAlignedWithSwingIsNoop(t *testing.T) {
	interval := 0.5
	swing := 0.3
	notes := []dawg.Note{
		{ID: "a", Pitch: 60, Velocity: 100, Time: 0, Duration: 0.1},
		{ID: "b", Pitch: 60, Velocity: 100, Time: 1*interval + swing*interval, Duration: 0.1},
		{ID: "c", Pitch: 60, Velocity: 100, Time: 2 * interval, Duration: 0.1},
	}
	out, err := Quantize(notes, QuantizeOptions{Grid: GridEighth, Strength: 1, Swing: swing})
	require.NoError(t, err)
	for i := range notes {
		assert.Equal(t, notes[i].Time, out[i].Time)
	}
}

func TestQuantizeFullStrength(t *testing.T) {
	out, err := Quantize(notesAt(0.1, 0.61, 1.9), QuantizeOptions{Grid: GridEighth, Strength: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out[0].Time)
	assert.Equal(t, 0.5, out[1].Time)
	assert.Equal(t, 2.0, out[2].Time)
}

func TestQuantizeHalfStrength(t *testing.T) {
	out, err := Quantize(notesAt(0.1), QuantizeOptions{Grid: GridQuarter, Strength: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, out[0].Time, 1e-12)
}

func TestQuantizeSwingOffsetsOddGridlines(t *testing.T) {
	// swing pushes every second eighth late by swing*interval
	out, err := Quantize(notesAt(0.52, 1.02), QuantizeOptions{Grid: GridEighth, Strength: 1, Swing: 0.2})
	require.NoError(t, err)
	assert.InDelta(t, 0.5+0.2*0.5, out[0].Time, 1e-12)
	assert.InDelta(t, 1.0, out[1].Time, 1e-12)
}

func TestQuantizeTripletGrid(t *testing.T) {
	out, err := Quantize(notesAt(0.3), QuantizeOptions{Grid: GridEighthT, Strength: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, out[0].Time, 1e-12)
}

func TestQuantizeEnds(t *testing.T) {
	notes := []dawg.Note{{ID: "a", Pitch: 60, Velocity: 100, Time: 0.05, Duration: 0.4}}
	out, err := Quantize(notes, QuantizeOptions{Grid: GridEighth, Strength: 1, QuantizeEnds: true})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out[0].Time)
	assert.InDelta(t, 0.5, out[0].Duration, 1e-12)
}

func TestQuantizeEmptySelection(t *testing.T) {
	out, err := Quantize(nil, QuantizeOptions{Grid: GridSixteenth, Strength: 1})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestQuantizeInvalidGrid(t *testing.T) {
	_, err := Quantize(notesAt(0), QuantizeOptions{Grid: "1/7", Strength: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, dawg.ErrInvalidGridDivision)
	var verr *dawg.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestQuantizeDoesNotMutateInput(t *testing.T) {
	notes := notesAt(0.13)
	_, err := Quantize(notes, QuantizeOptions{Grid: GridQuarter, Strength: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.13, notes[0].Time)
}

func TestSnapToScaleTieResolvesLower(t *testing.T) {
	// C4, C#4, D#4 onto C major: the ties at C#4 and D#4 resolve downward
	scale, err := NamedScale(60, "major")
	require.NoError(t, err)
	notes := []dawg.Note{
		{ID: "a", Pitch: 60, Velocity: 100, Time: 0, Duration: 1},
		{ID: "b", Pitch: 61, Velocity: 100, Time: 1, Duration: 1},
		{ID: "c", Pitch: 63, Velocity: 100, Time: 2, Duration: 1},
	}
	out := SnapToScale(notes, scale)
	assert.Equal(t, 60, out[0].Pitch)
	assert.Equal(t, 60, out[1].Pitch)
	assert.Equal(t, 62, out[2].Pitch)
}

func TestSnapToScaleMemberUnchanged(t *testing.T) {
	scale, err := NamedScale(62, "minor")
	require.NoError(t, err)
	out := SnapToScale([]dawg.Note{{ID: "a", Pitch: 65, Velocity: 100, Time: 0, Duration: 1}}, scale)
	assert.Equal(t, 65, out[0].Pitch)
}

func TestNamedScaleUnknown(t *testing.T) {
	_, err := NamedScale(60, "klingon")
	require.Error(t, err)
}

func TestHumanizeDeterministic(t *testing.T) {
	notes := notesAt(0, 1, 2, 3)
	a := Humanize(notes, 0.02, 10, 42)
	b := Humanize(notes, 0.02, 10, 42)
	assert.Equal(t, a, b)
	c := Humanize(notes, 0.02, 10, 43)
	assert.NotEqual(t, a, c)
}

func TestHumanizeKeepsRanges(t *testing.T) {
	notes := []dawg.Note{{ID: "a", Pitch: 60, Velocity: 127, Time: 0, Duration: 1}}
	out := Humanize(notes, 0.5, 64, 7)
	assert.GreaterOrEqual(t, out[0].Time, 0.0)
	assert.LessOrEqual(t, out[0].Velocity, 127)
	assert.GreaterOrEqual(t, out[0].Velocity, 1)
}

func TestLegato(t *testing.T) {
	notes := notesAt(0, 1, 2.5)
	out := Legato(notes)
	assert.Equal(t, 1.0, out[0].Duration)
	assert.Equal(t, 1.5, out[1].Duration)
	assert.Equal(t, 0.25, out[2].Duration)
}
