// Package engine is the control plane of the audio engine: the track/clip
// model and its change-event stream, the transport, the real-time player, the
// MIDI quantizer, the beat generator with its preview cache, and the offline
// renderer. The model side runs on the caller's goroutine; the player runs on
// the audio goroutine; the two communicate only through the Broker.
package engine

import (
	"sync"
	"time"

	"github.com/kennonjarvis-debug/dawg"
)

type (
	// Broker is the centralized message broker of one engine instance. It is
	// many-to-one communication, one channel per recipient: the model sends
	// control messages to the player via ToPlayer, the player reports status
	// back via ToModel. The broker also pools audio buffers so the player can
	// pass rendered audio around without allocating on the audio thread.
	// There is no global broker; every Engine owns its own, so multiple
	// engines can coexist in one process (and in tests).
	Broker struct {
		ToPlayer chan any
		ToModel  chan MsgToModel

		ClosePlayer    chan struct{}
		FinishedPlayer chan struct{}

		bufferPool sync.Pool
	}

	// MsgToModel is the player's status report. The frequently sent fields
	// (position, playing) are unboxed to avoid allocations; infrequent
	// payloads ride in Data.
	MsgToModel struct {
		Frame   int64
		Playing bool
		Data    any
	}

	// Loop is the transport loop region, in seconds. Enabled with
	// End > Start.
	Loop struct {
		Enabled bool
		Start   float64
		End     float64
	}
)

// Messages to the player. A dawg.Project value means "here is the new model
// snapshot, reconcile the graph".
type (
	// StartPlayMsg starts playback from the given frame.
	StartPlayMsg struct{ Frame int64 }
	// PauseMsg halts playback keeping the position.
	PauseMsg struct{}
	// StopMsg halts playback, rewinds to zero and flushes every scheduled
	// event.
	StopMsg struct{}
	// SeekMsg moves the playback position; the schedule is re-derived from
	// the new position.
	SeekMsg struct{ Frame int64 }
	// TempoMsg changes the tempo from the current position forward.
	TempoMsg struct{ BPM float64 }
	// LoopMsg replaces the loop region.
	LoopMsg struct{ Loop Loop }
	// SettingsMsg pushes one track's mixing parameters to the live graph.
	SettingsMsg struct {
		TrackID  string
		Settings dawg.TrackSettings
	}
	// NoteOnMsg triggers a live (non-scheduled) note, e.g. from MIDI input.
	NoteOnMsg struct {
		TrackID  string
		NoteID   int32
		Pitch    int
		Velocity int
	}
	// NoteOffMsg releases a live note.
	NoteOffMsg struct {
		TrackID string
		NoteID  int32
	}
	// PreviewMsg routes a prepared candidate buffer to the preview output,
	// replacing whatever was previewing before.
	PreviewMsg struct {
		Buffer dawg.AudioBuffer
		LoopIt bool
	}
	// PreviewStopMsg silences the preview output.
	PreviewStopMsg struct{}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:       make(chan any, 1024),
		ToModel:        make(chan MsgToModel, 1024),
		ClosePlayer:    make(chan struct{}, 1),
		FinishedPlayer: make(chan struct{}, 1),
		bufferPool:     sync.Pool{New: func() any { return &dawg.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an empty buffer from the pool; return it with
// PutAudioBuffer.
func (b *Broker) GetAudioBuffer() *dawg.AudioBuffer {
	return b.bufferPool.Get().(*dawg.AudioBuffer)
}

// PutAudioBuffer returns a buffer to the pool, resetting its length but
// keeping its capacity.
func (b *Broker) PutAudioBuffer(buf *dawg.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends a value to a channel unless it is full. It is guaranteed to
// be non-blocking; the player uses it for everything so the audio thread can
// never deadlock.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value arrives or the timeout elapses; ok is
// false on timeout or when the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
