package engine

import (
	"github.com/google/uuid"

	"github.com/kennonjarvis-debug/dawg"
)

func (m *Model) clip(trackID, clipID string) (*dawg.Track, *dawg.Clip, error) {
	t, err := m.track(trackID)
	if err != nil {
		return nil, nil, err
	}
	idx := t.ClipIndex(clipID)
	if idx < 0 {
		return nil, nil, &dawg.NotFoundError{Kind: "clip", ID: clipID, Err: dawg.ErrClipNotFound}
	}
	return t, &t.Clips[idx], nil
}

// AddClip places a clip on a track. Audio clips go on audio tracks, MIDI
// clips on midi tracks; a clip carrying both samples and notes is rejected.
func (m *Model) AddClip(trackID string, clip dawg.Clip) (dawg.Clip, error) {
	t, err := m.track(trackID)
	if err != nil {
		return dawg.Clip{}, err
	}
	if clip.Audio != nil && len(clip.Notes) > 0 {
		return dawg.Clip{}, &dawg.ValidationError{Field: "clip", Err: dawg.ErrKindMismatch}
	}
	switch t.Kind {
	case dawg.TrackAudio:
		if len(clip.Notes) > 0 {
			return dawg.Clip{}, &dawg.ValidationError{Field: "clip", Err: dawg.ErrKindMismatch}
		}
	case dawg.TrackMIDI:
		if clip.Audio != nil {
			return dawg.Clip{}, &dawg.ValidationError{Field: "clip", Err: dawg.ErrKindMismatch}
		}
	default:
		return dawg.Clip{}, &dawg.ValidationError{Field: "trackId", Err: dawg.ErrKindMismatch}
	}
	if err := clip.Validate(); err != nil {
		return dawg.Clip{}, err
	}
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	clip.TrackID = trackID
	for i := range clip.Notes {
		if clip.Notes[i].ID == "" {
			clip.Notes[i].ID = uuid.NewString()
		}
	}
	t.Clips = append(t.Clips, clip.Copy())
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventClipAdded, TrackID: trackID, ClipID: clip.ID, Data: clip.Copy()})
	return clip, nil
}

// RemoveClip deletes a clip from its track.
func (m *Model) RemoveClip(trackID, clipID string) error {
	t, err := m.track(trackID)
	if err != nil {
		return err
	}
	idx := t.ClipIndex(clipID)
	if idx < 0 {
		return &dawg.NotFoundError{Kind: "clip", ID: clipID, Err: dawg.ErrClipNotFound}
	}
	t.Clips = append(t.Clips[:idx], t.Clips[idx+1:]...)
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventClipRemoved, TrackID: trackID, ClipID: clipID})
	return nil
}

// MoveClip moves a clip on the timeline, optionally to another track of the
// same kind.
func (m *Model) MoveClip(trackID, clipID, destTrackID string, start float64) error {
	src, c, err := m.clip(trackID, clipID)
	if err != nil {
		return err
	}
	if start < 0 {
		return &dawg.ValidationError{Field: "start", Err: dawg.ErrInvalidClipBounds}
	}
	if destTrackID == "" || destTrackID == trackID {
		c.Start = start
	} else {
		dst, err := m.track(destTrackID)
		if err != nil {
			return err
		}
		if dst.Kind != src.Kind {
			return &dawg.ValidationError{Field: "destTrackId", Err: dawg.ErrKindMismatch}
		}
		moved := c.Copy()
		moved.Start = start
		moved.TrackID = destTrackID
		idx := src.ClipIndex(clipID)
		src.Clips = append(src.Clips[:idx], src.Clips[idx+1:]...)
		dst.Clips = append(dst.Clips, moved)
	}
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventClipMoved, TrackID: trackID, ClipID: clipID, Data: start})
	return nil
}

// ResizeClip changes a clip's duration and source offset, for trimming.
func (m *Model) ResizeClip(trackID, clipID string, duration, offset float64) error {
	_, c, err := m.clip(trackID, clipID)
	if err != nil {
		return err
	}
	next := c.Copy()
	next.Duration = duration
	next.Offset = offset
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventClipMoved, TrackID: trackID, ClipID: clipID, Data: duration})
	return nil
}

// AddNotes inserts notes into a MIDI clip, assigning ids to notes without
// one.
func (m *Model) AddNotes(trackID, clipID string, notes []dawg.Note) ([]dawg.Note, error) {
	t, c, err := m.clip(trackID, clipID)
	if err != nil {
		return nil, err
	}
	if t.Kind != dawg.TrackMIDI {
		return nil, &dawg.ValidationError{Field: "trackId", Err: dawg.ErrKindMismatch}
	}
	added := make([]dawg.Note, 0, len(notes))
	for _, n := range notes {
		if err := n.Validate(); err != nil {
			return nil, err
		}
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		added = append(added, n)
	}
	c.Notes = append(c.Notes, added...)
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventNotesChanged, TrackID: trackID, ClipID: clipID, Data: added})
	return added, nil
}

// RemoveNotes deletes notes by id; unknown ids are ignored.
func (m *Model) RemoveNotes(trackID, clipID string, noteIDs []string) error {
	_, c, err := m.clip(trackID, clipID)
	if err != nil {
		return err
	}
	drop := make(map[string]bool, len(noteIDs))
	for _, id := range noteIDs {
		drop[id] = true
	}
	kept := c.Notes[:0]
	for _, n := range c.Notes {
		if !drop[n.ID] {
			kept = append(kept, n)
		}
	}
	c.Notes = kept
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventNotesChanged, TrackID: trackID, ClipID: clipID, Data: noteIDs})
	return nil
}

// ReplaceNotes swaps the clip's entire note list, as edit operations like
// quantize produce a full replacement.
func (m *Model) ReplaceNotes(trackID, clipID string, notes []dawg.Note) error {
	t, c, err := m.clip(trackID, clipID)
	if err != nil {
		return err
	}
	if t.Kind != dawg.TrackMIDI {
		return &dawg.ValidationError{Field: "trackId", Err: dawg.ErrKindMismatch}
	}
	for i := range notes {
		if err := notes[i].Validate(); err != nil {
			return err
		}
		if notes[i].ID == "" {
			notes[i].ID = uuid.NewString()
		}
	}
	c.Notes = append(c.Notes[:0:0], notes...)
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventNotesChanged, TrackID: trackID, ClipID: clipID, Data: notes})
	return nil
}
