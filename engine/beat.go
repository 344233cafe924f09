package engine

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kennonjarvis-debug/dawg"
)

// General MIDI drum pitches used by the generated voices.
const (
	drumKick      = 36
	drumSnare     = 38
	drumClap      = 39
	drumClosedHat = 42
	drumOpenHat   = 46
	drumLowTom    = 41
)

// BeatStyle tags a generation rule set.
type BeatStyle string

const (
	StyleFourOnFloor BeatStyle = "fourOnFloor"
	StyleBoomBap     BeatStyle = "boomBap"
	StyleBreakbeat   BeatStyle = "breakbeat"
	StyleHalfTime    BeatStyle = "halfTime"
	StyleTrap        BeatStyle = "trap"
)

// CandidateCount is how many variations one generate call produces.
const CandidateCount = 3

// GeneratedBeat is one candidate pattern. Notes are in beats from the
// pattern start, one logical voice per drum pitch.
type GeneratedBeat struct {
	ID    string      `json:"id"`
	Style BeatStyle   `json:"style"`
	Tempo float64     `json:"tempo"`
	Bars  int         `json:"bars"`
	Seed  int64       `json:"seed"`
	Notes []dawg.Note `json:"notes"`
}

type beatRule struct {
	kick      []float64 // onsets in beats within one bar
	snare     []float64
	hatEvery  float64 // closed hat interval, 0 for none
	openHats  []float64
	ghostProb float64 // chance of an extra ghost kick/snare per bar
	hatProb   float64 // chance each hat survives, for thinning
}

var beatRules = map[BeatStyle]beatRule{
	StyleFourOnFloor: {kick: []float64{0, 1, 2, 3}, snare: []float64{1, 3}, hatEvery: 0.5, openHats: []float64{0.5, 1.5, 2.5, 3.5}, ghostProb: 0.1, hatProb: 0.95},
	StyleBoomBap:     {kick: []float64{0, 2.5}, snare: []float64{1, 3}, hatEvery: 0.5, ghostProb: 0.35, hatProb: 0.9},
	StyleBreakbeat:   {kick: []float64{0, 1.5, 2.5}, snare: []float64{1, 3}, hatEvery: 0.25, ghostProb: 0.4, hatProb: 0.8},
	StyleHalfTime:    {kick: []float64{0}, snare: []float64{2}, hatEvery: 0.5, ghostProb: 0.2, hatProb: 0.9},
	StyleTrap:        {kick: []float64{0, 1.75, 2.5}, snare: []float64{2}, hatEvery: 0.25, ghostProb: 0.3, hatProb: 0.85},
}

// GenerateBeats produces a fixed-size candidate set. The same seed always
// reproduces the same set; candidate i uses seed+i so the variations are
// individually stable too.
func GenerateBeats(style BeatStyle, tempo float64, bars int, seed int64) ([]GeneratedBeat, error) {
	rule, ok := beatRules[style]
	if !ok {
		return nil, &dawg.ValidationError{Field: "style", Err: fmt.Errorf("unknown beat style %q", style)}
	}
	if tempo < dawg.MinTempo || tempo > dawg.MaxTempo {
		return nil, &dawg.ValidationError{Field: "tempo", Err: fmt.Errorf("%w: %v", dawg.ErrInvalidTempo, tempo)}
	}
	if bars < 1 {
		return nil, &dawg.ValidationError{Field: "bars", Err: fmt.Errorf("bars must be positive, got %d", bars)}
	}
	out := make([]GeneratedBeat, CandidateCount)
	for i := range out {
		out[i] = generateOne(style, rule, tempo, bars, seed+int64(i))
	}
	return out, nil
}

func generateOne(style BeatStyle, rule beatRule, tempo float64, bars int, seed int64) GeneratedBeat {
	rng := rand.New(rand.NewSource(seed))
	b := GeneratedBeat{
		ID:    fmt.Sprintf("beat-%s-%d", style, seed),
		Style: style,
		Tempo: tempo,
		Bars:  bars,
		Seed:  seed,
	}
	add := func(pitch int, beat float64, vel int, dur float64) {
		b.Notes = append(b.Notes, dawg.Note{
			ID:       uuid.NewString(),
			Pitch:    pitch,
			Velocity: vel,
			Time:     beat,
			Duration: dur,
		})
	}
	for bar := 0; bar < bars; bar++ {
		base := float64(bar) * 4
		for _, k := range rule.kick {
			add(drumKick, base+k, 100+rng.Intn(20), 0.25)
		}
		if rng.Float64() < rule.ghostProb {
			add(drumKick, base+quantizedOffset(rng), 60+rng.Intn(20), 0.25)
		}
		for _, s := range rule.snare {
			add(drumSnare, base+s, 95+rng.Intn(25), 0.25)
		}
		if rng.Float64() < rule.ghostProb {
			add(drumSnare, base+quantizedOffset(rng), 40+rng.Intn(20), 0.25)
		}
		if rule.hatEvery > 0 {
			for h := 0.0; h < 4; h += rule.hatEvery {
				if rng.Float64() < rule.hatProb {
					add(drumClosedHat, base+h, 70+rng.Intn(30), rule.hatEvery*0.8)
				}
			}
		}
		for _, o := range rule.openHats {
			if rng.Float64() < 0.5 {
				add(drumOpenHat, base+o, 80+rng.Intn(20), 0.5)
			}
		}
	}
	return b
}

// quantizedOffset picks a random sixteenth position inside a bar.
func quantizedOffset(rng *rand.Rand) float64 {
	return float64(rng.Intn(16)) * 0.25
}

// Clip converts the pattern into a MIDI clip starting at the given second.
func (b *GeneratedBeat) Clip(start float64) dawg.Clip {
	spb := 60.0 / b.Tempo
	c := dawg.Clip{
		ID:       uuid.NewString(),
		Name:     string(b.Style),
		Start:    start,
		Duration: float64(b.Bars) * 4 * spb,
		Gain:     1,
	}
	c.Notes = append(c.Notes, b.Notes...)
	return c
}

// renderFunc turns a candidate into preview audio. Injected so tests can
// count invocations; production wiring uses the offline renderer.
type renderFunc func(b *GeneratedBeat) (dawg.AudioBuffer, error)

// PreviewCache holds one candidate set with every candidate's audio fully
// prepared ahead of audition. Select only flips which prepared buffer the
// player loops; nothing decodes or renders on that path.
type PreviewCache struct {
	broker *Broker
	log    *zap.Logger
	render renderFunc

	mu       sync.Mutex
	beats    []GeneratedBeat
	prepared []dawg.AudioBuffer
	active   int // index into beats, -1 when silent
}

func NewPreviewCache(broker *Broker, log *zap.Logger, render renderFunc) *PreviewCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &PreviewCache{broker: broker, log: log, render: render, active: -1}
}

// Prepare renders every candidate in parallel and installs the set,
// replacing any previous one. It blocks until all candidates are ready so
// that Select never races an unfinished render.
func (pc *PreviewCache) Prepare(beats []GeneratedBeat) error {
	buffers := make([]dawg.AudioBuffer, len(beats))
	errs := make([]error, len(beats))
	var wg sync.WaitGroup
	for i := range beats {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buffers[i], errs[i] = pc.render(&beats[i])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.stopLocked()
	pc.beats = beats
	pc.prepared = buffers
	pc.log.Debug("preview cache prepared", zap.Int("candidates", len(beats)))
	return nil
}

// Select makes candidate i the audible one, stopping whichever candidate
// was playing. The prepared buffer is handed to the player as-is.
func (pc *PreviewCache) Select(i int) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if i < 0 || i >= len(pc.prepared) {
		return &dawg.NotFoundError{Kind: "candidate", ID: fmt.Sprint(i), Err: dawg.ErrClipNotFound}
	}
	TrySend(pc.broker.ToPlayer, any(PreviewMsg{Buffer: pc.prepared[i], LoopIt: true}))
	pc.active = i
	return nil
}

// Stop silences the active candidate, if any.
func (pc *PreviewCache) Stop() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.stopLocked()
}

func (pc *PreviewCache) stopLocked() {
	if pc.active >= 0 {
		TrySend(pc.broker.ToPlayer, any(PreviewStopMsg{}))
		pc.active = -1
	}
}

// Accept materializes candidate i as a MIDI clip on the given track and
// discards the candidate set.
func (pc *PreviewCache) Accept(m *Model, i int, trackID string, start float64) (dawg.Clip, error) {
	pc.mu.Lock()
	if i < 0 || i >= len(pc.beats) {
		pc.mu.Unlock()
		return dawg.Clip{}, &dawg.NotFoundError{Kind: "candidate", ID: fmt.Sprint(i), Err: dawg.ErrClipNotFound}
	}
	clip := pc.beats[i].Clip(start)
	pc.stopLocked()
	pc.beats = nil
	pc.prepared = nil
	pc.mu.Unlock()
	return m.AddClip(trackID, clip)
}

// Reject discards the candidate set without touching the track model.
func (pc *PreviewCache) Reject() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.stopLocked()
	pc.beats = nil
	pc.prepared = nil
}

// Candidates returns the current candidate set.
func (pc *PreviewCache) Candidates() []GeneratedBeat {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return append([]GeneratedBeat(nil), pc.beats...)
}
