package engine

import (
	"fmt"

	"github.com/kennonjarvis-debug/dawg"
)

// TransportState is the model-side view of the player position. It trails
// the player by up to one status message; the player owns the truth.
type TransportState struct {
	Playing bool    `json:"playing"`
	Seconds float64 `json:"seconds"`
	Frame   int64   `json:"frame"`
	Tempo   float64 `json:"tempo"`
	Loop    Loop    `json:"loop"`
}

func (m *Model) secondsToFrames(s float64) int64 {
	return int64(s * float64(m.proj.SampleRate))
}

// Transport returns the last known transport state.
func (m *Model) Transport() TransportState { return m.transport }

// Play starts or resumes playback from the current position.
func (m *Model) Play() {
	TrySend(m.broker.ToPlayer, any(StartPlayMsg{Frame: m.transport.Frame}))
	m.transport.Playing = true
	m.observers.emit(Event{Kind: EventTransportChanged, Data: m.transport})
}

// Pause halts playback keeping the position. Sounding notes are released.
func (m *Model) Pause() {
	TrySend(m.broker.ToPlayer, any(PauseMsg{}))
	m.transport.Playing = false
	m.observers.emit(Event{Kind: EventTransportChanged, Data: m.transport})
}

// Stop halts playback and rewinds to zero.
func (m *Model) Stop() {
	TrySend(m.broker.ToPlayer, any(StopMsg{}))
	m.transport.Playing = false
	m.transport.Frame = 0
	m.transport.Seconds = 0
	m.observers.emit(Event{Kind: EventTransportChanged, Data: m.transport})
}

// Seek moves the playhead, clamping into [0, project end]. Seeking during
// playback cancels pending scheduled notes and resumes from the new
// position.
func (m *Model) Seek(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if end := m.proj.End(); seconds > end {
		seconds = end
	}
	frame := m.secondsToFrames(seconds)
	TrySend(m.broker.ToPlayer, any(SeekMsg{Frame: frame}))
	m.transport.Frame = frame
	m.transport.Seconds = seconds
	m.observers.emit(Event{Kind: EventTransportChanged, Data: m.transport})
}

// SetTempo changes the project tempo. Positions keep their second values;
// upcoming beat-timed notes are rescheduled under the new tempo.
func (m *Model) SetTempo(bpm float64) error {
	if bpm < dawg.MinTempo || bpm > dawg.MaxTempo {
		return &dawg.ValidationError{Field: "tempo", Err: fmt.Errorf("%w: %v", dawg.ErrInvalidTempo, bpm)}
	}
	m.proj.Tempo = bpm
	m.transport.Tempo = bpm
	TrySend(m.broker.ToPlayer, any(TempoMsg{BPM: bpm}))
	m.observers.emit(Event{Kind: EventTransportChanged, Data: m.transport})
	return nil
}

// SetLoop sets or clears the loop region. An enabled loop must have
// end > start.
func (m *Model) SetLoop(loop Loop) error {
	if loop.Enabled && loop.End <= loop.Start {
		return &dawg.ValidationError{Field: "loop", Err: dawg.ErrInvalidLoopRegion}
	}
	if loop.Start < 0 {
		return &dawg.ValidationError{Field: "loop", Err: dawg.ErrInvalidLoopRegion}
	}
	m.transport.Loop = loop
	TrySend(m.broker.ToPlayer, any(LoopMsg{Loop: loop}))
	m.observers.emit(Event{Kind: EventTransportChanged, Data: m.transport})
	return nil
}

// NoteOn triggers a live note on a track, outside any clip. The id pairs
// with the matching NoteOff.
func (m *Model) NoteOn(trackID string, noteID int32, pitch, velocity int) error {
	t, err := m.track(trackID)
	if err != nil {
		return err
	}
	if t.Kind != dawg.TrackMIDI {
		return &dawg.ValidationError{Field: "trackId", Err: dawg.ErrKindMismatch}
	}
	TrySend(m.broker.ToPlayer, any(NoteOnMsg{TrackID: trackID, NoteID: noteID, Pitch: pitch, Velocity: velocity}))
	return nil
}

// NoteOff releases a live note previously started with NoteOn.
func (m *Model) NoteOff(trackID string, noteID int32) error {
	if _, err := m.track(trackID); err != nil {
		return err
	}
	TrySend(m.broker.ToPlayer, any(NoteOffMsg{TrackID: trackID, NoteID: noteID}))
	return nil
}

// ProcessPlayerMessages drains pending status messages from the player,
// updating the transport view. Call it from the owning goroutine's loop.
func (m *Model) ProcessPlayerMessages() {
	for {
		select {
		case msg := <-m.broker.ToModel:
			m.transport.Frame = msg.Frame
			m.transport.Seconds = float64(msg.Frame) / float64(m.proj.SampleRate)
			if m.transport.Playing != msg.Playing {
				m.transport.Playing = msg.Playing
				m.observers.emit(Event{Kind: EventTransportChanged, Data: m.transport})
			}
		default:
			return
		}
	}
}
