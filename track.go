package dawg

// TrackKind tells what a track holds: audio clips, MIDI clips, an aux
// send/return bus, or a folder grouping other tracks. Folders own no audio
// signal themselves.
type TrackKind string

const (
	TrackAudio  TrackKind = "audio"
	TrackMIDI   TrackKind = "midi"
	TrackAux    TrackKind = "aux"
	TrackFolder TrackKind = "folder"
)

func (k TrackKind) Valid() bool {
	switch k {
	case TrackAudio, TrackMIDI, TrackAux, TrackFolder:
		return true
	}
	return false
}

// HasSignal reports whether tracks of this kind own a channel strip in the
// audio graph.
func (k TrackKind) HasSignal() bool {
	return k == TrackAudio || k == TrackMIDI || k == TrackAux
}

const (
	MinVolumeDB = -60.0
	MaxVolumeDB = 12.0
	MinTempo    = 20.0
	MaxTempo    = 300.0
)

type (
	// Track is one lane of the project. Order is a dense 0-based index unique
	// within the project; ParentID, when set, references a folder track.
	Track struct {
		ID       string        `yaml:"id" json:"id"`
		Name     string        `yaml:"name" json:"name"`
		Kind     TrackKind     `yaml:"kind" json:"kind"`
		Order    int           `yaml:"order" json:"order"`
		Height   int           `yaml:"height,omitempty" json:"height,omitempty"`
		Color    string        `yaml:"color,omitempty" json:"color,omitempty"`
		ParentID string        `yaml:"parentId,omitempty" json:"parentId,omitempty"`
		Settings TrackSettings `yaml:"settings" json:"settings"`
		Clips    []Clip        `yaml:"clips,omitempty" json:"clips,omitempty"`
		Effects  []Effect      `yaml:"effects,omitempty" json:"effects,omitempty"`
	}

	// TrackSettings are the mixing parameters of a track. Volume is in dB.
	// Changing these through the track manager is the only path by which
	// mixing parameters reach the live signal graph.
	TrackSettings struct {
		Volume    float64 `yaml:"volume" json:"volume"`
		Pan       float64 `yaml:"pan" json:"pan"`
		Mute      bool    `yaml:"mute,omitempty" json:"mute,omitempty"`
		Solo      bool    `yaml:"solo,omitempty" json:"solo,omitempty"`
		RecordArm bool    `yaml:"recordArm,omitempty" json:"recordArm,omitempty"`
		Monitor   bool    `yaml:"monitor,omitempty" json:"monitor,omitempty"`
		Frozen    bool    `yaml:"frozen,omitempty" json:"frozen,omitempty"`
		Input     string  `yaml:"input,omitempty" json:"input,omitempty"`
		Output    string  `yaml:"output,omitempty" json:"output,omitempty"`
	}
)

// DefaultTrackSettings returns unity gain, centered pan, everything off.
func DefaultTrackSettings() TrackSettings {
	return TrackSettings{Volume: 0, Pan: 0}
}

// Validate checks the settings against their documented ranges.
func (s *TrackSettings) Validate() error {
	if s.Volume < MinVolumeDB || s.Volume > MaxVolumeDB {
		return validationErr("volume", ErrInvalidVolume)
	}
	if s.Pan < -1 || s.Pan > 1 {
		return validationErr("pan", ErrInvalidPan)
	}
	return nil
}

// Copy makes a deep copy of a Track.
func (t *Track) Copy() Track {
	clips := make([]Clip, len(t.Clips))
	for i, c := range t.Clips {
		clips[i] = c.Copy()
	}
	effects := make([]Effect, len(t.Effects))
	for i, e := range t.Effects {
		effects[i] = e.Copy()
	}
	ret := *t
	ret.Clips = clips
	ret.Effects = effects
	return ret
}

// ClipIndex returns the index of the clip with the given id, or -1.
func (t *Track) ClipIndex(id string) int {
	for i := range t.Clips {
		if t.Clips[i].ID == id {
			return i
		}
	}
	return -1
}

// EffectIndex returns the index of the effect with the given id, or -1.
func (t *Track) EffectIndex(id string) int {
	for i := range t.Effects {
		if t.Effects[i].ID == id {
			return i
		}
	}
	return -1
}

// End returns the time, in seconds, at which the last clip of the track ends.
func (t *Track) End() float64 {
	end := 0.0
	for i := range t.Clips {
		if e := t.Clips[i].End(); e > end {
			end = e
		}
	}
	return end
}
