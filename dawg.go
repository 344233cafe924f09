// Package dawg contains the data model of the audio engine: projects, tracks,
// clips, notes and effects, together with their validation rules and
// (de)serialization. The types here are plain values with deep Copy methods;
// all mutation goes through the engine package, which owns the live model and
// pushes snapshots of these values to the audio thread.
package dawg

// AudioBuffer is a buffer of stereo audio samples of the native sample rate.
// The first index is the frame, the second is the channel (0 = left,
// 1 = right).
type AudioBuffer [][2]float32

// Clone makes a deep copy of the buffer.
func (b AudioBuffer) Clone() AudioBuffer {
	ret := make(AudioBuffer, len(b))
	copy(ret, b)
	return ret
}

// AudioSink is something that audio can be written to, typically the audio
// output device.
type AudioSink interface {
	WriteAudio(buffer AudioBuffer) error
	Close() error
}

// ContextState is the readiness state of an audio output context. Opening an
// output device is potentially asynchronous (and, in a browser, gated on a
// user gesture), so callers observe an explicit state instead of blocking.
type ContextState int

const (
	ContextUninitialized ContextState = iota
	ContextPending
	ContextReady
	ContextFailed
)

func (s ContextState) String() string {
	switch s {
	case ContextUninitialized:
		return "uninitialized"
	case ContextPending:
		return "pending"
	case ContextReady:
		return "ready"
	case ContextFailed:
		return "failed"
	}
	return "unknown"
}

// AudioContext is the audio output device. State transitions from
// ContextPending to ContextReady once the device has been acquired; WaitReady
// returns a channel that is closed on that transition.
type AudioContext interface {
	Output() AudioSink
	State() ContextState
	WaitReady() <-chan struct{}
	Close() error
}
