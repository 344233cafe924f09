package engine

import (
	"bytes"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/kennonjarvis-debug/dawg"
)

const ticksPerQuarter = smf.MetricTicks(480)

// ExportSMF writes the project's MIDI tracks as a Type 1 Standard MIDI File.
// The first track carries tempo and time signature; each project MIDI track
// becomes one SMF track on channel 0, with note times flattened from beats
// to absolute ticks.
func ExportSMF(proj *dawg.Project) ([]byte, error) {
	s := smf.New()
	s.TimeFormat = ticksPerQuarter

	var tempoTrack smf.Track
	if proj.Name != "" {
		tempoTrack.Add(0, smf.MetaTrackSequenceName(proj.Name))
	}
	tempoTrack.Add(0, smf.MetaTempo(proj.Tempo))
	num, denomPower := uint8(4), uint8(2)
	if proj.TimeSignature.Numerator > 0 {
		num = uint8(proj.TimeSignature.Numerator)
		denomPower = 0
		for d := proj.TimeSignature.Denominator; d > 1; d /= 2 {
			denomPower++
		}
	}
	tempoTrack.Add(0, smf.MetaTimeSig(num, denomPower, 24, 8))
	endTick := secondsToTicks(proj.End(), proj.Tempo)
	tempoTrack.Close(endTick)
	s.Add(tempoTrack)

	type noteEvent struct {
		tick     uint32
		on       bool
		pitch    uint8
		velocity uint8
	}

	spb := proj.SecondsPerBeat()
	exported := 0
	for ti := range proj.Tracks {
		t := &proj.Tracks[ti]
		if t.Kind != dawg.TrackMIDI {
			continue
		}
		var events []noteEvent
		for ci := range t.Clips {
			c := &t.Clips[ci]
			for _, n := range c.Notes {
				onSec := c.Start + n.Time*spb
				offSec := onSec + n.Duration*spb
				if end := c.Start + c.Duration; offSec > end {
					offSec = end
				}
				events = append(events,
					noteEvent{tick: secondsToTicks(onSec, proj.Tempo), on: true, pitch: uint8(n.Pitch), velocity: uint8(n.Velocity)},
					noteEvent{tick: secondsToTicks(offSec, proj.Tempo), on: false, pitch: uint8(n.Pitch)},
				)
			}
		}
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].tick != events[j].tick {
				return events[i].tick < events[j].tick
			}
			return !events[i].on && events[j].on
		})

		var track smf.Track
		track.Add(0, smf.MetaTrackSequenceName(t.Name))
		var lastTick uint32
		for _, ev := range events {
			delta := ev.tick - lastTick
			lastTick = ev.tick
			if ev.on {
				track.Add(delta, midi.NoteOn(0, ev.pitch, ev.velocity))
			} else {
				track.Add(delta, midi.NoteOff(0, ev.pitch))
			}
		}
		if endTick > lastTick {
			track.Close(endTick - lastTick)
		} else {
			track.Close(0)
		}
		s.Add(track)
		exported++
	}
	if exported == 0 {
		return nil, &dawg.ValidationError{Field: "project", Err: fmt.Errorf("%w: no midi tracks", dawg.ErrEmptyRenderRegion)}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write midi file: %w", err)
	}
	return buf.Bytes(), nil
}

func secondsToTicks(seconds, bpm float64) uint32 {
	return uint32(seconds * (bpm / 60.0) * float64(ticksPerQuarter))
}
