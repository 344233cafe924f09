package engine

import (
	"github.com/google/uuid"

	"github.com/kennonjarvis-debug/dawg"
)

// AddEffect appends an effect to a track's chain. Unknown types and
// out-of-range parameters are rejected before the model mutates.
func (m *Model) AddEffect(trackID string, typ dawg.EffectType, params map[string]float64) (dawg.Effect, error) {
	t, err := m.track(trackID)
	if err != nil {
		return dawg.Effect{}, err
	}
	if !t.Kind.HasSignal() {
		return dawg.Effect{}, &dawg.ValidationError{Field: "trackId", Err: dawg.ErrKindMismatch}
	}
	e, err := dawg.NewEffect(uuid.NewString(), typ, params)
	if err != nil {
		return dawg.Effect{}, err
	}
	t.Effects = append(t.Effects, e)
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventEffectAdded, TrackID: trackID, EffectID: e.ID, Data: e.Copy()})
	return e.Copy(), nil
}

// RemoveEffect deletes an effect from a track's chain.
func (m *Model) RemoveEffect(trackID, effectID string) error {
	t, err := m.track(trackID)
	if err != nil {
		return err
	}
	idx := t.EffectIndex(effectID)
	if idx < 0 {
		return &dawg.NotFoundError{Kind: "effect", ID: effectID, Err: dawg.ErrEffectNotFound}
	}
	t.Effects = append(t.Effects[:idx], t.Effects[idx+1:]...)
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventEffectRemoved, TrackID: trackID, EffectID: effectID})
	return nil
}

// ReorderEffect moves an effect within its chain.
func (m *Model) ReorderEffect(trackID, effectID string, newIndex int) error {
	t, err := m.track(trackID)
	if err != nil {
		return err
	}
	idx := t.EffectIndex(effectID)
	if idx < 0 {
		return &dawg.NotFoundError{Kind: "effect", ID: effectID, Err: dawg.ErrEffectNotFound}
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(t.Effects) {
		newIndex = len(t.Effects) - 1
	}
	e := t.Effects[idx]
	t.Effects = append(t.Effects[:idx], t.Effects[idx+1:]...)
	t.Effects = append(t.Effects[:newIndex], append([]dawg.Effect{e}, t.Effects[newIndex:]...)...)
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventEffectReordered, TrackID: trackID, EffectID: effectID, Data: newIndex})
	return nil
}

// SetEffectParameter updates one parameter. The graph picks the change up
// from the snapshot and ramps the running processor in place, so automation
// does not click.
func (m *Model) SetEffectParameter(trackID, effectID, param string, value float64) error {
	t, err := m.track(trackID)
	if err != nil {
		return err
	}
	idx := t.EffectIndex(effectID)
	if idx < 0 {
		return &dawg.NotFoundError{Kind: "effect", ID: effectID, Err: dawg.ErrEffectNotFound}
	}
	e := &t.Effects[idx]
	if err := e.ValidateParameter(param, value); err != nil {
		return err
	}
	e.Parameters[param] = value
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventEffectUpdated, TrackID: trackID, EffectID: effectID, Data: map[string]float64{param: value}})
	return nil
}

// BypassEffect toggles an effect in or out of the signal path without
// discarding its state.
func (m *Model) BypassEffect(trackID, effectID string, bypassed bool) error {
	t, err := m.track(trackID)
	if err != nil {
		return err
	}
	idx := t.EffectIndex(effectID)
	if idx < 0 {
		return &dawg.NotFoundError{Kind: "effect", ID: effectID, Err: dawg.ErrEffectNotFound}
	}
	t.Effects[idx].Enabled = !bypassed
	m.pushSnapshot()
	m.observers.emit(Event{Kind: EventEffectUpdated, TrackID: trackID, EffectID: effectID, Data: !bypassed})
	return nil
}
