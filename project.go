package dawg

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type (
	// Project is the whole serializable model: the track list plus global
	// tempo, time signature and render format. This is the document the
	// cloud-storage collaborator persists; the engine only (de)serializes it.
	Project struct {
		Name          string        `yaml:"name,omitempty" json:"name,omitempty"`
		Tempo         float64       `yaml:"tempo" json:"tempo"`
		TimeSignature TimeSignature `yaml:"timeSignature" json:"timeSignature"`
		SampleRate    int           `yaml:"sampleRate,omitempty" json:"sampleRate,omitempty"`
		Tracks        []Track       `yaml:"tracks" json:"tracks"`
	}

	TimeSignature struct {
		Numerator   int `yaml:"numerator" json:"numerator"`
		Denominator int `yaml:"denominator" json:"denominator"`
	}
)

const DefaultSampleRate = 44100

// NewProject returns an empty project at 120 BPM, 4/4.
func NewProject(name string) Project {
	return Project{
		Name:          name,
		Tempo:         120,
		TimeSignature: TimeSignature{4, 4},
		SampleRate:    DefaultSampleRate,
	}
}

// Copy makes a deep copy of the Project.
func (p *Project) Copy() Project {
	tracks := make([]Track, len(p.Tracks))
	for i := range p.Tracks {
		tracks[i] = p.Tracks[i].Copy()
	}
	ret := *p
	ret.Tracks = tracks
	return ret
}

// TrackIndex returns the index of the track with the given id, or -1.
func (p *Project) TrackIndex(id string) int {
	for i := range p.Tracks {
		if p.Tracks[i].ID == id {
			return i
		}
	}
	return -1
}

// Track returns the track with the given id, or nil.
func (p *Project) Track(id string) *Track {
	if i := p.TrackIndex(id); i >= 0 {
		return &p.Tracks[i]
	}
	return nil
}

// End returns the project end time in seconds: the end of the last clip on
// any track.
func (p *Project) End() float64 {
	end := 0.0
	for i := range p.Tracks {
		if e := p.Tracks[i].End(); e > end {
			end = e
		}
	}
	return end
}

// SecondsPerBeat returns the duration of one beat at the project tempo.
func (p *Project) SecondsPerBeat() float64 {
	if p.Tempo <= 0 {
		return 0
	}
	return 60 / p.Tempo
}

// AnySolo reports whether at least one signal-owning track is soloed.
func (p *Project) AnySolo() bool {
	for i := range p.Tracks {
		if p.Tracks[i].Settings.Solo {
			return true
		}
	}
	return false
}

// Audible reports whether the track with the given id contributes signal to
// the master bus. Mute always silences. If any track is soloed, only soloed
// tracks and the folder ancestors of soloed tracks remain audible.
func (p *Project) Audible(id string) bool {
	t := p.Track(id)
	if t == nil {
		return false
	}
	if t.Settings.Mute {
		return false
	}
	for parent := p.Track(t.ParentID); parent != nil; parent = p.Track(parent.ParentID) {
		if parent.Settings.Mute {
			return false
		}
	}
	if !p.AnySolo() {
		return true
	}
	if t.Settings.Solo {
		return true
	}
	// folders stay audible when any descendant is soloed
	if t.Kind == TrackFolder {
		for i := range p.Tracks {
			other := &p.Tracks[i]
			if !other.Settings.Solo {
				continue
			}
			for parent := p.Track(other.ParentID); parent != nil; parent = p.Track(parent.ParentID) {
				if parent.ID == id {
					return true
				}
			}
		}
	}
	return false
}

// Validate checks the project invariants: tempo in range, track kinds valid,
// order a dense permutation of [0..N), parent references pointing at existing
// folders, clip and note bounds, effect types known.
func (p *Project) Validate() error {
	if p.Tempo < MinTempo || p.Tempo > MaxTempo {
		return validationErr("tempo", ErrInvalidTempo)
	}
	seen := make([]bool, len(p.Tracks))
	for i := range p.Tracks {
		t := &p.Tracks[i]
		if !t.Kind.Valid() {
			return validationErr("kind", fmt.Errorf("track %q has invalid kind %q", t.ID, t.Kind))
		}
		if t.Order < 0 || t.Order >= len(p.Tracks) || seen[t.Order] {
			return validationErr("order", fmt.Errorf("track order is not a dense permutation"))
		}
		seen[t.Order] = true
		if t.ParentID != "" {
			parent := p.Track(t.ParentID)
			if parent == nil || parent.Kind != TrackFolder {
				return validationErr("parentId", fmt.Errorf("track %q parent %q: %w", t.ID, t.ParentID, ErrNotAFolder))
			}
		}
		if err := t.Settings.Validate(); err != nil {
			return err
		}
		for j := range t.Clips {
			if err := t.Clips[j].Validate(); err != nil {
				return err
			}
			for k := range t.Clips[j].Notes {
				if err := t.Clips[j].Notes[k].Validate(); err != nil {
					return err
				}
			}
		}
		for j := range t.Effects {
			if _, ok := EffectTypes[t.Effects[j].Type]; !ok {
				return validationErr("type", ErrUnknownEffectType)
			}
		}
	}
	return nil
}

// ReadProject parses a project document, trying json first and falling back
// to yaml.
func ReadProject(r io.Reader) (Project, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Project{}, fmt.Errorf("reading project: %w", err)
	}
	var project Project
	if errJSON := json.Unmarshal(b, &project); errJSON != nil {
		if errYaml := yaml.Unmarshal(b, &project); errYaml != nil {
			return Project{}, fmt.Errorf("unmarshaling project: %v / %v", errYaml, errJSON)
		}
	}
	if project.SampleRate == 0 {
		project.SampleRate = DefaultSampleRate
	}
	if err := project.Validate(); err != nil {
		return Project{}, err
	}
	return project, nil
}

// WriteProject serializes the project, as json when path has a .json
// extension and as yaml otherwise.
func WriteProject(w io.Writer, path string, project Project) error {
	var contents []byte
	var err error
	if filepath.Ext(path) == ".json" {
		contents, err = json.Marshal(project)
	} else {
		contents, err = yaml.Marshal(project)
	}
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}
	if _, err := w.Write(contents); err != nil {
		return fmt.Errorf("writing project: %w", err)
	}
	return nil
}
