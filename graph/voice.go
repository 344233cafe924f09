package graph

import (
	"github.com/chewxy/math32"
)

// voice is one sounding MIDI note on a strip. Voices are keyed by the
// noteID given at trigger time; negative ids come from the scheduler,
// positive ids from live MIDI input, so a release always finds the voice its
// note-on started. Synthesis is fully deterministic: phase accumulators and
// an xorshift noise generator seeded at trigger time, no wall clock and no
// shared randomness.
type voice struct {
	noteID   int64
	pitch    int
	velocity int
	sustain  bool
	age      int // samples since the last trigger or release
	phase    float32
	sweep    float32 // current frequency for swept voices (kick)
	env      float32
	noise    uint32
}

const (
	voiceAttackSeconds  = 0.002
	voiceReleaseSeconds = 0.03

	// envGate cuts a released envelope to zero once the exponential tail is
	// inaudible, so a voice goes fully dormant instead of decaying forever.
	envGate = 1e-3
)

// trigger finds a suitable voice: a released voice if any, otherwise the
// oldest sounding one, and restarts it with the new note.
func (s *Strip) trigger(noteID int64, pitch, velocity int) {
	if len(s.voices) == 0 {
		return
	}
	s.release(noteID)
	oldest := 0
	oldestReleased := false
	age := -1
	for i := range s.voices {
		v := &s.voices[i]
		if (!v.sustain && !oldestReleased) || (!v.sustain == oldestReleased && v.age >= age) {
			oldest = i
			oldestReleased = !v.sustain
			age = v.age
		}
	}
	s.voices[oldest] = voice{
		noteID:   noteID,
		pitch:    pitch,
		velocity: velocity,
		sustain:  true,
		sweep:    noteFreq(pitch) * 4,
		noise:    0x9E3779B9 ^ uint32(pitch)<<8 ^ uint32(velocity),
	}
}

func (s *Strip) release(noteID int64) {
	for i := range s.voices {
		if s.voices[i].noteID == noteID && s.voices[i].sustain {
			s.voices[i].sustain = false
			s.voices[i].age = 0
			return
		}
	}
}

func (s *Strip) releaseAllVoices() {
	for i := range s.voices {
		if s.voices[i].sustain {
			s.voices[i].sustain = false
			s.voices[i].age = 0
		}
	}
}

func (s *Strip) renderVoices(l, r []float32) {
	for i := range s.voices {
		if s.voices[i].env > 0 || s.voices[i].sustain {
			s.voices[i].render(l, r, s.cfg.SampleRate)
		}
		s.voices[i].age += len(l)
	}
}

func noteFreq(pitch int) float32 {
	return 440 * math32.Pow(2, (float32(pitch)-69)/12)
}

// render synthesizes the voice into the planes. Percussion pitches (GM drum
// notes) get dedicated timbres; everything else is a plain decaying tone.
func (v *voice) render(l, r []float32, sampleRate int) {
	sr := float32(sampleRate)
	attack := 1 / (voiceAttackSeconds * sr)
	release := math32.Exp(-1 / (voiceReleaseSeconds * sr))
	amp := float32(v.velocity) / 127 * 0.5
	freq := noteFreq(v.pitch)
	for i := range l {
		if v.sustain {
			v.env += attack
			if v.env > 1 {
				v.env = 1
			}
		} else {
			v.env *= release
			if v.env < envGate {
				v.env = 0
			}
		}
		var sample float32
		switch {
		case v.pitch == 35 || v.pitch == 36: // kick: swept sine
			v.sweep += (freq*0.4 - v.sweep) / (0.02 * sr)
			v.phase += v.sweep / sr
			sample = math32.Sin(2 * math32.Pi * v.phase)
		case v.pitch == 38 || v.pitch == 40 || v.pitch == 39: // snare, clap: noise + tone
			v.phase += freq / sr
			sample = 0.3*math32.Sin(2*math32.Pi*v.phase) + 0.7*v.nextNoise()
		case v.pitch == 42 || v.pitch == 44 || v.pitch == 46: // hats: noise
			sample = v.nextNoise()
		default:
			v.phase += freq / sr
			sample = triangle(v.phase)
		}
		if v.phase >= 1 {
			v.phase -= 1
		}
		out := sample * v.env * amp
		l[i] += out
		r[i] += out
	}
}

// nextNoise is a deterministic xorshift32 noise source in [-1, 1].
func (v *voice) nextNoise() float32 {
	x := v.noise
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	v.noise = x
	return float32(int32(x)) / (1 << 31)
}

func triangle(phase float32) float32 {
	t := phase - math32.Floor(phase)
	if t < 0.5 {
		return 4*t - 1
	}
	return 3 - 4*t
}
