package graph

import (
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"

	"github.com/kennonjarvis-debug/dawg"
)

// mixRampSeconds is how long volume/pan changes take to reach their target.
// Short enough to feel immediate, long enough to avoid zipper noise.
const mixRampSeconds = 0.01

// Strip is one channel strip: clip/voice rendering, the effect chain, and a
// post-chain fader (gain + equal-power pan). The chain is held behind an
// atomic pointer; reconcileChain builds a complete replacement before
// swapping, so the strip never has zero or two live routes.
type Strip struct {
	cfg   Config
	kind  dawg.TrackKind
	track dawg.Track

	chain atomic.Pointer[chain]

	curL, curR       float32 // current fader gains per channel
	targetL, targetR float32
	audible          bool
	sends            map[string]float32

	voices []voice

	outL, outR []float32
	inL, inR   []float32 // aux receive accumulators
}

func newStrip(cfg Config, kind dawg.TrackKind) *Strip {
	s := &Strip{cfg: cfg, kind: kind, curL: 1, curR: 1, targetL: 1, targetR: 1}
	if kind == dawg.TrackMIDI {
		s.voices = make([]voice, cfg.MaxVoices)
	}
	s.chain.Store(&chain{})
	return s
}

func (s *Strip) setTrack(t *dawg.Track) {
	s.track = *t
	s.setMix(t.Settings.Volume, t.Settings.Pan)
}

// setMix converts volume (dB) and pan ([-1,1]) into per-channel linear fader
// targets using an equal-power pan law. The fader ramps toward the targets.
func (s *Strip) setMix(volumeDB, pan float64) {
	gain := dbToLinear(float32(volumeDB))
	angle := (float32(pan) + 1) * math32.Pi / 4
	s.targetL = gain * math32.Cos(angle) * math32.Sqrt2
	s.targetR = gain * math32.Sin(angle) * math32.Sqrt2
}

func (s *Strip) setAudible(audible bool) { s.audible = audible }

func dbToLinear(db float32) float32 {
	return math32.Pow(10, db/20)
}

func (s *Strip) ensure(n int) {
	if len(s.outL) < n {
		s.outL = make([]float32, n)
		s.outR = make([]float32, n)
		s.inL = make([]float32, n)
		s.inR = make([]float32, n)
	}
}

// receive accumulates a send into the aux input planes, pre-processing.
func (s *Strip) receive(l, r []float32, level float32) {
	s.ensure(len(l))
	for i := range l {
		s.inL[i] += l[i] * level
		s.inR[i] += r[i] * level
	}
}

// process renders one block into the strip output planes: source (clips,
// voices, or aux input), then the effect chain, then the fader ramp.
func (s *Strip) process(pos int64, n int, rolling bool) {
	s.ensure(n)
	outL, outR := s.outL[:n], s.outR[:n]
	for i := range outL {
		outL[i] = 0
		outR[i] = 0
	}
	switch s.kind {
	case dawg.TrackAux:
		copy(outL, s.inL[:n])
		copy(outR, s.inR[:n])
		for i := 0; i < n; i++ {
			s.inL[i] = 0
			s.inR[i] = 0
		}
	case dawg.TrackAudio:
		if rolling {
			s.renderClips(outL, outR, pos)
		}
	case dawg.TrackMIDI:
		s.renderVoices(outL, outR)
	}
	for _, proc := range s.chain.Load().procs {
		proc.process(outL, outR)
	}
	s.applyFader(outL, outR)
}

// applyFader ramps the per-channel gains linearly across the block toward
// their targets.
func (s *Strip) applyFader(l, r []float32) {
	n := len(l)
	ramp := int(float64(s.cfg.SampleRate) * mixRampSeconds)
	if ramp < 1 {
		ramp = 1
	}
	if s.curL == s.targetL && s.curR == s.targetR {
		vek32.MulNumber_Inplace(l, s.curL)
		vek32.MulNumber_Inplace(r, s.curR)
		return
	}
	stepL := (s.targetL - s.curL) / float32(ramp)
	stepR := (s.targetR - s.curR) / float32(ramp)
	for i := 0; i < n; i++ {
		if s.curL != s.targetL {
			s.curL += stepL
			if (stepL > 0 && s.curL > s.targetL) || (stepL < 0 && s.curL < s.targetL) {
				s.curL = s.targetL
			}
		}
		if s.curR != s.targetR {
			s.curR += stepR
			if (stepR > 0 && s.curR > s.targetR) || (stepR < 0 && s.curR < s.targetR) {
				s.curR = s.targetR
			}
		}
		l[i] *= s.curL
		r[i] *= s.curR
	}
}

func (s *Strip) mixInto(masterL, masterR []float32) {
	vek32.Add_Inplace(masterL, s.outL[:len(masterL)])
	vek32.Add_Inplace(masterR, s.outR[:len(masterR)])
}

// renderClips renders the audio clips overlapping the block, applying clip
// gain and fades. Sample-rate mismatches are bridged by nearest-neighbor
// lookup; decoded media is expected at the engine rate.
func (s *Strip) renderClips(l, r []float32, pos int64) {
	sr := float64(s.cfg.SampleRate)
	for ci := range s.track.Clips {
		c := &s.track.Clips[ci]
		if c.Audio == nil || len(c.Audio.Samples) == 0 {
			continue
		}
		startF := int64(c.Start * sr)
		endF := int64(c.End() * sr)
		from := max64(pos, startF)
		to := min64(pos+int64(len(l)), endF)
		if from >= to {
			continue
		}
		gain := float32(c.GainOrUnity())
		for f := from; f < to; f++ {
			rel := float64(f-startF)/sr + c.Offset
			src := int(rel * float64(c.Audio.SampleRate))
			if src < 0 || src >= len(c.Audio.Samples) {
				continue
			}
			g := gain * float32(c.FadeGain(float64(f-startF)/sr))
			i := int(f - pos)
			l[i] += c.Audio.Samples[src][0] * g
			r[i] += c.Audio.Samples[src][1] * g
		}
	}
}

func (s *Strip) activeRoutes() int {
	if s.chain.Load() == nil {
		return 0
	}
	return 1
}

// reconcileChain builds the replacement effect chain and swaps it in with a
// single atomic store. Nodes are matched by effect id so that DSP state
// survives parameter edits and reorders; parameter changes on surviving nodes
// are applied in place, ramped where the parameter table allows.
func (s *Strip) reconcileChain(effects []dawg.Effect) {
	old := s.chain.Load()
	existing := make(map[string]processor, len(old.procs))
	for _, p := range old.procs {
		existing[p.effectID()] = p
	}
	procs := make([]processor, 0, len(effects))
	for i := range effects {
		e := &effects[i]
		p, ok := existing[e.ID]
		if ok && p.effectType() == e.Type {
			for name, value := range e.Parameters {
				p.setParam(name, value)
			}
		} else {
			p = newProcessor(s.cfg, *e)
		}
		p.setBypassed(!e.Enabled)
		procs = append(procs, p)
	}
	s.chain.Store(&chain{procs: procs})
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
