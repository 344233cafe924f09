// Package graph implements the live signal-routing graph of the engine: one
// channel strip per audio/midi track feeding a shared master bus, aux strips
// for send/return routing, and per-strip effect chains. All structural
// mutation happens through Update and SetTrackSettings, which are only ever
// called from the single control path (the player goroutine or the offline
// renderer); Process is called from the same goroutine, so the graph needs no
// locking. Chain replacement is an atomic pointer swap so that a strip always
// has exactly one active route to the master bus.
package graph

import (
	"github.com/kennonjarvis-debug/dawg"
)

type Config struct {
	SampleRate int
	// MaxVoices is the polyphony limit per MIDI track strip.
	MaxVoices int
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = dawg.DefaultSampleRate
	}
	if c.MaxVoices <= 0 {
		c.MaxVoices = 16
	}
	return c
}

// Graph mirrors the signal-owning tracks of the project. Strips render clip
// audio and MIDI voices, run their effect chains, and are summed into the
// master planes; aux strips receive sends and are summed after the regular
// strips.
type Graph struct {
	cfg     Config
	proj    dawg.Project
	strips  map[string]*Strip
	order   []string // processing order: signal tracks in track order, auxes last
	masterL []float32
	masterR []float32
}

func New(cfg Config) *Graph {
	return &Graph{
		cfg:    cfg.withDefaults(),
		strips: make(map[string]*Strip),
	}
}

func (g *Graph) SampleRate() int { return g.cfg.SampleRate }

// Update reconciles the graph against a new project snapshot. Strips and
// effect nodes are matched by id so that live DSP state (delay lines, voice
// phases, envelope followers) survives unrelated edits; each strip's chain is
// fully built before it is swapped in, and the old chain is dropped only
// after the swap.
func (g *Graph) Update(proj dawg.Project) {
	g.proj = proj
	seen := make(map[string]bool, len(proj.Tracks))
	var regular, auxes []string
	for i := range proj.Tracks {
		t := &proj.Tracks[i]
		if !t.Kind.HasSignal() {
			continue
		}
		seen[t.ID] = true
		strip, ok := g.strips[t.ID]
		if !ok {
			strip = newStrip(g.cfg, t.Kind)
			g.strips[t.ID] = strip
		}
		strip.setTrack(t)
		strip.reconcileChain(t.Effects)
		if t.Kind == dawg.TrackAux {
			auxes = append(auxes, t.ID)
		} else {
			regular = append(regular, t.ID)
		}
	}
	for id, strip := range g.strips {
		if !seen[id] {
			strip.releaseAllVoices()
			delete(g.strips, id)
		}
	}
	g.order = append(regular, auxes...)
	g.resolveSends(regular, auxes)
	g.refreshAudibility()
}

// resolveSends wires post-fader sends from regular strips to aux strips: a
// track whose output routing label names an aux track (by id or by the aux's
// input label) sends to that aux at unity.
func (g *Graph) resolveSends(regular, auxes []string) {
	for _, id := range regular {
		strip := g.strips[id]
		strip.sends = nil
		t := g.proj.Track(id)
		if t == nil || t.Settings.Output == "" {
			continue
		}
		for _, auxID := range auxes {
			aux := g.proj.Track(auxID)
			if aux != nil && (auxID == t.Settings.Output || aux.Settings.Input == t.Settings.Output) {
				if strip.sends == nil {
					strip.sends = make(map[string]float32)
				}
				strip.sends[auxID] = 1
			}
		}
	}
}

// SetTrackSettings applies the mixing parameters of one track without a full
// reconcile. Volume and pan are ramped; mute and solo recompute the audible
// set immediately.
func (g *Graph) SetTrackSettings(trackID string, s dawg.TrackSettings) {
	if i := g.proj.TrackIndex(trackID); i >= 0 {
		g.proj.Tracks[i].Settings = s
	}
	if strip, ok := g.strips[trackID]; ok {
		strip.setMix(s.Volume, s.Pan)
	}
	g.refreshAudibility()
}

func (g *Graph) refreshAudibility() {
	for id, strip := range g.strips {
		strip.setAudible(g.proj.Audible(id))
	}
}

// Trigger starts a voice for the given note on the given track's strip. The
// noteID keys the voice so that the matching Release always finds it.
func (g *Graph) Trigger(trackID string, noteID int64, pitch, velocity int) {
	if strip, ok := g.strips[trackID]; ok {
		strip.trigger(noteID, pitch, velocity)
	}
}

// Release releases the voice keyed by noteID, if it is still sounding.
func (g *Graph) Release(trackID string, noteID int64) {
	if strip, ok := g.strips[trackID]; ok {
		strip.release(noteID)
	}
}

// ReleaseAll releases every sounding voice on every strip. Used by stop() so
// that no note-on is left without its note-off.
func (g *Graph) ReleaseAll() {
	for _, strip := range g.strips {
		strip.releaseAllVoices()
	}
}

// ActiveRoutes returns the number of live signal routes from the given track
// to the master bus. The rewiring discipline guarantees this is exactly 1 for
// any signal-owning track at any instant.
func (g *Graph) ActiveRoutes(trackID string) int {
	strip, ok := g.strips[trackID]
	if !ok {
		return 0
	}
	return strip.activeRoutes()
}

// Process renders one block of audio into buf, advancing the graph by
// len(buf) frames. pos is the absolute timeline position, in frames, of the
// first frame of the block; clip playback is derived from it. Clips sound
// only while rolling; voices and effect tails sound regardless, so a stopped
// transport still passes live input through the chains.
func (g *Graph) Process(buf dawg.AudioBuffer, pos int64, rolling bool) {
	n := len(buf)
	if n == 0 {
		return
	}
	if len(g.masterL) < n {
		g.masterL = make([]float32, n)
		g.masterR = make([]float32, n)
	}
	masterL, masterR := g.masterL[:n], g.masterR[:n]
	for i := range masterL {
		masterL[i] = 0
		masterR[i] = 0
	}
	for _, id := range g.order {
		strip := g.strips[id]
		strip.process(pos, n, rolling)
		if !strip.audible {
			continue
		}
		for auxID, send := range strip.sends {
			if aux, ok := g.strips[auxID]; ok && aux.kind == dawg.TrackAux {
				aux.receive(strip.outL[:n], strip.outR[:n], send)
			}
		}
		strip.mixInto(masterL, masterR)
	}
	for i := 0; i < n; i++ {
		buf[i] = [2]float32{clip1(masterL[i]), clip1(masterR[i])}
	}
}

func clip1(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
