package engine

import (
	"hash/fnv"
	"sort"

	"github.com/kennonjarvis-debug/dawg"
)

// schedEvent is one half of a note, pinned to an absolute frame. Events for
// a note are always produced as an on/off pair so a consumed note can never
// hang when the window advances past its release.
type schedEvent struct {
	frame    int64
	on       bool
	trackID  string
	noteID   int32
	pitch    int
	velocity int
}

// schedNoteID derives a stable negative id for a clip note. Live input uses
// positive ids, so the two populations can never collide in the voice table.
func schedNoteID(clipID, noteID string) int32 {
	h := fnv.New32a()
	h.Write([]byte(clipID))
	h.Write([]byte{0})
	h.Write([]byte(noteID))
	id := int32(h.Sum32() & 0x7fffffff)
	if id == 0 {
		id = 1
	}
	return -id
}

// scheduleWindow collects every note whose onset falls in [from, to) frames,
// as on/off pairs sorted by frame. Note times are in beats from the clip
// start, so the tempo in force at scheduling time decides their absolute
// position; a tempo change redoes the math only for windows not yet
// scheduled.
//
// Notes on muted tracks are skipped; a soloed track elsewhere mutes the rest
// the same way it does for audio.
func scheduleWindow(proj *dawg.Project, tempo float64, sampleRate int, from, to int64) []schedEvent {
	if tempo <= 0 {
		tempo = proj.Tempo
	}
	spb := 60.0 / tempo
	sr := float64(sampleRate)
	var out []schedEvent
	for ti := range proj.Tracks {
		t := &proj.Tracks[ti]
		if t.Kind != dawg.TrackMIDI || !proj.Audible(t.ID) {
			continue
		}
		for ci := range t.Clips {
			c := &t.Clips[ci]
			clipEnd := int64((c.Start + c.Duration) * sr)
			for ni := range c.Notes {
				n := &c.Notes[ni]
				onSec := c.Start + n.Time*spb
				onFrame := int64(onSec * sr)
				if onFrame < from || onFrame >= to {
					continue
				}
				offFrame := int64((onSec + n.Duration*spb) * sr)
				if offFrame > clipEnd {
					offFrame = clipEnd
				}
				if offFrame <= onFrame {
					offFrame = onFrame + 1
				}
				id := schedNoteID(c.ID, n.ID)
				out = append(out, schedEvent{frame: onFrame, on: true, trackID: t.ID, noteID: id, pitch: n.Pitch, velocity: n.Velocity})
				out = append(out, schedEvent{frame: offFrame, on: false, trackID: t.ID, noteID: id})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].frame != out[j].frame {
			return out[i].frame < out[j].frame
		}
		// offs first at the same frame so retriggers steal cleanly
		return !out[i].on && out[j].on
	})
	return out
}
