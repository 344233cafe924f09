package engine

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kennonjarvis-debug/dawg"
)

// Model owns the mutable project state. All mutation goes through its
// methods: validate, apply to the in-memory model, push the change to the
// player over the broker, then emit the change event, in that order, so an
// observer never sees an event for a mutation that was not durably applied.
//
// Model methods are not safe for concurrent use; the caller funnels all
// commands through one goroutine.
type Model struct {
	broker    *Broker
	log       *zap.Logger
	proj      dawg.Project
	transport TransportState
	selected  string
	observers observerRegistry
}

// TrackSettingsPatch is a partial update of TrackSettings; nil fields are
// left unchanged.
type TrackSettingsPatch struct {
	Volume    *float64
	Pan       *float64
	Mute      *bool
	Solo      *bool
	RecordArm *bool
	Monitor   *bool
	Frozen    *bool
	Input     *string
	Output    *string
}

func NewModel(broker *Broker, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{broker: broker, log: log, proj: dawg.NewProject("")}
	m.transport.Tempo = m.proj.Tempo
	return m
}

// Subscribe registers an observer for the change-event stream; the returned
// function unsubscribes it.
func (m *Model) Subscribe(fn Observer) func() {
	return m.observers.subscribe(fn)
}

// Project returns a deep copy of the current project.
func (m *Model) Project() dawg.Project { return m.proj.Copy() }

// LoadProject replaces the whole model. The incoming project is validated
// first; on success the player reconciles against the new snapshot.
func (m *Model) LoadProject(proj dawg.Project) error {
	if err := proj.Validate(); err != nil {
		return err
	}
	m.proj = proj.Copy()
	m.transport.Tempo = m.proj.Tempo
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventProjectLoaded})
	return nil
}

// pushSnapshot ships a deep copy of the project to the player. The player
// applies it between processing blocks, which is the single structural
// mutation path into the live graph.
func (m *Model) pushSnapshot() {
	TrySend(m.broker.ToPlayer, any(m.proj.Copy()))
}

func (m *Model) track(id string) (*dawg.Track, error) {
	if t := m.proj.Track(id); t != nil {
		return t, nil
	}
	return nil, &dawg.NotFoundError{Kind: "track", ID: id, Err: dawg.ErrTrackNotFound}
}

// renumber re-derives Order as a dense permutation from the slice order.
func (m *Model) renumber() {
	for i := range m.proj.Tracks {
		m.proj.Tracks[i].Order = i
	}
}

// CreateTrack appends a track of the given kind at the next order index.
// Audio/midi/aux kinds provision a channel strip when the snapshot reaches
// the graph; folders do not.
func (m *Model) CreateTrack(kind dawg.TrackKind, name string) (dawg.Track, error) {
	if !kind.Valid() {
		return dawg.Track{}, &dawg.ValidationError{Field: "kind", Err: fmt.Errorf("invalid track kind %q", kind)}
	}
	if name == "" {
		name = fmt.Sprintf("%s %d", kind, len(m.proj.Tracks)+1)
	}
	t := dawg.Track{
		ID:       uuid.NewString(),
		Name:     name,
		Kind:     kind,
		Order:    len(m.proj.Tracks),
		Settings: dawg.DefaultTrackSettings(),
	}
	m.proj.Tracks = append(m.proj.Tracks, t)
	m.pushSnapshot()
	m.log.Debug("track created", zap.String("id", t.ID), zap.String("kind", string(kind)))
	m.observers.emit(Event{Kind: EventTrackCreated, TrackID: t.ID, Data: t.Copy()})
	return t.Copy(), nil
}

// DeleteTrack removes a track. Deleting a folder ungroups its children
// rather than deleting them; the released channel strip is dropped when the
// graph reconciles.
func (m *Model) DeleteTrack(id string) error {
	t, err := m.track(id)
	if err != nil {
		return err
	}
	if t.Kind == dawg.TrackFolder {
		for i := range m.proj.Tracks {
			if m.proj.Tracks[i].ParentID == id {
				m.proj.Tracks[i].ParentID = ""
			}
		}
	}
	idx := m.proj.TrackIndex(id)
	m.proj.Tracks = append(m.proj.Tracks[:idx], m.proj.Tracks[idx+1:]...)
	m.renumber()
	if m.selected == id {
		m.selected = ""
	}
	m.pushSnapshot()
	m.log.Debug("track deleted", zap.String("id", id))
	m.observers.emit(Event{Kind: EventTrackDeleted, TrackID: id})
	return nil
}

// DuplicateTrack copies a track's settings and color but not its clips;
// callers wanting a deep clip copy add clips explicitly.
func (m *Model) DuplicateTrack(id string) (dawg.Track, error) {
	src, err := m.track(id)
	if err != nil {
		return dawg.Track{}, err
	}
	dup := dawg.Track{
		ID:       uuid.NewString(),
		Name:     src.Name + " copy",
		Kind:     src.Kind,
		Order:    len(m.proj.Tracks),
		Height:   src.Height,
		Color:    src.Color,
		ParentID: src.ParentID,
		Settings: src.Settings,
	}
	for i := range src.Effects {
		e := src.Effects[i].Copy()
		e.ID = uuid.NewString()
		dup.Effects = append(dup.Effects, e)
	}
	m.proj.Tracks = append(m.proj.Tracks, dup)
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventTrackCreated, TrackID: dup.ID, Data: dup.Copy()})
	return dup.Copy(), nil
}

// ReorderTrack moves a track to newIndex and re-derives all order indices as
// a dense permutation.
func (m *Model) ReorderTrack(id string, newIndex int) error {
	idx := m.proj.TrackIndex(id)
	if idx < 0 {
		return &dawg.NotFoundError{Kind: "track", ID: id, Err: dawg.ErrTrackNotFound}
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(m.proj.Tracks) {
		newIndex = len(m.proj.Tracks) - 1
	}
	t := m.proj.Tracks[idx]
	m.proj.Tracks = append(m.proj.Tracks[:idx], m.proj.Tracks[idx+1:]...)
	m.proj.Tracks = append(m.proj.Tracks[:newIndex], append([]dawg.Track{t}, m.proj.Tracks[newIndex:]...)...)
	m.renumber()
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventTrackReordered, TrackID: id, Data: newIndex})
	return nil
}

// GroupTracks creates a folder track and assigns it as the parent of the
// given tracks. Grouping is organizational only; audio routing is untouched.
func (m *Model) GroupTracks(ids []string, name string) (dawg.Track, error) {
	for _, id := range ids {
		if _, err := m.track(id); err != nil {
			return dawg.Track{}, err
		}
	}
	folder, err := m.CreateTrack(dawg.TrackFolder, name)
	if err != nil {
		return dawg.Track{}, err
	}
	for _, id := range ids {
		t, _ := m.track(id)
		t.ParentID = folder.ID
	}
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventTracksGrouped, TrackID: folder.ID, Data: ids})
	return folder, nil
}

// UngroupTracks clears the parentId of the folder's children. The folder
// itself remains.
func (m *Model) UngroupTracks(folderID string) error {
	t, err := m.track(folderID)
	if err != nil {
		return err
	}
	if t.Kind != dawg.TrackFolder {
		return &dawg.ValidationError{Field: "folderId", Err: dawg.ErrNotAFolder}
	}
	for i := range m.proj.Tracks {
		if m.proj.Tracks[i].ParentID == folderID {
			m.proj.Tracks[i].ParentID = ""
		}
	}
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventTracksUngrouped, TrackID: folderID})
	return nil
}

// UpdateTrackSettings merges the patch into the track's settings and pushes
// the mixing parameters to the live graph synchronously. This is the only
// path by which volume/pan/mute/solo reach the signal graph.
func (m *Model) UpdateTrackSettings(id string, patch TrackSettingsPatch) error {
	t, err := m.track(id)
	if err != nil {
		return err
	}
	merged := t.Settings
	if patch.Volume != nil {
		merged.Volume = *patch.Volume
	}
	if patch.Pan != nil {
		merged.Pan = *patch.Pan
	}
	if patch.Mute != nil {
		merged.Mute = *patch.Mute
	}
	if patch.Solo != nil {
		merged.Solo = *patch.Solo
	}
	if patch.RecordArm != nil {
		merged.RecordArm = *patch.RecordArm
	}
	if patch.Monitor != nil {
		merged.Monitor = *patch.Monitor
	}
	if patch.Frozen != nil {
		merged.Frozen = *patch.Frozen
	}
	if patch.Input != nil {
		merged.Input = *patch.Input
	}
	if patch.Output != nil {
		merged.Output = *patch.Output
	}
	if err := merged.Validate(); err != nil {
		return err
	}
	t.Settings = merged
	if patch.Input != nil || patch.Output != nil {
		// routing changes need a structural reconcile
		m.pushSnapshot()
	} else {
		TrySend(m.broker.ToPlayer, any(SettingsMsg{TrackID: id, Settings: merged}))
	}
	m.observers.emit(Event{Kind: EventTrackUpdated, TrackID: id, Data: merged})
	return nil
}

// SelectTrack marks a track as selected for UI layers and live MIDI input
// routing.
func (m *Model) SelectTrack(id string) error {
	if _, err := m.track(id); err != nil {
		return err
	}
	m.selected = id
	m.observers.emit(Event{Kind: EventTrackSelected, TrackID: id})
	return nil
}

// SelectedTrack returns the id of the selected track, or "".
func (m *Model) SelectedTrack() string { return m.selected }

// SetTrackName renames a track.
func (m *Model) SetTrackName(id, name string) error {
	t, err := m.track(id)
	if err != nil {
		return err
	}
	t.Name = name
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventTrackUpdated, TrackID: id, Data: name})
	return nil
}

// SetTrackColor recolors a track.
func (m *Model) SetTrackColor(id, color string) error {
	t, err := m.track(id)
	if err != nil {
		return err
	}
	t.Color = color
	m.observers.emit(Event{Kind: EventTrackUpdated, TrackID: id, Data: color})
	return nil
}
