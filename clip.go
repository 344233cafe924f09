package dawg

type (
	// Clip is a time-bounded region on a track. Start, Duration, Offset and
	// the fades are seconds. A clip references either sampled audio or an
	// ordered list of notes, mutually exclusive by the owning track's kind.
	Clip struct {
		ID       string  `yaml:"id" json:"id"`
		TrackID  string  `yaml:"trackId" json:"trackId"`
		Name     string  `yaml:"name,omitempty" json:"name,omitempty"`
		Start    float64 `yaml:"start" json:"start"`
		Duration float64 `yaml:"duration" json:"duration"`
		Offset   float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
		Gain     float64 `yaml:"gain,omitempty" json:"gain,omitempty"`
		FadeIn   float64 `yaml:"fadeIn,omitempty" json:"fadeIn,omitempty"`
		FadeOut  float64 `yaml:"fadeOut,omitempty" json:"fadeOut,omitempty"`

		Audio *AudioData `yaml:"-" json:"-"`
		Notes []Note     `yaml:"notes,omitempty" json:"notes,omitempty"`
	}

	// Note is one MIDI note within a clip. Time and Duration are in beats
	// from the clip start, so tempo changes re-derive the absolute schedule
	// of notes that have not been enqueued yet. Notes need not be stored
	// time-ordered; consumers treat them as a multiset ordered by Time.
	Note struct {
		ID       string  `yaml:"id" json:"id"`
		Pitch    int     `yaml:"pitch" json:"pitch"`
		Velocity int     `yaml:"velocity" json:"velocity"`
		Time     float64 `yaml:"time" json:"time"`
		Duration float64 `yaml:"duration" json:"duration"`
	}

	// AudioData is decoded sample data referenced by audio clips. It is kept
	// out of the serialized project document; the storage collaborator
	// resolves clip ids to media separately.
	AudioData struct {
		SampleRate int
		Samples    AudioBuffer
	}
)

// Validate checks the clip bounds: all times non-negative, fades fit inside
// the duration.
func (c *Clip) Validate() error {
	if c.Start < 0 || c.Duration < 0 || c.Offset < 0 || c.FadeIn < 0 || c.FadeOut < 0 {
		return validationErr("clip", ErrInvalidClipBounds)
	}
	if c.FadeIn+c.FadeOut > c.Duration {
		return validationErr("fades", ErrInvalidClipBounds)
	}
	return nil
}

// Validate checks the note ranges: pitch and velocity 0..127, non-negative
// start, positive duration.
func (n *Note) Validate() error {
	if n.Pitch < 0 || n.Pitch > 127 {
		return validationErr("pitch", ErrInvalidNote)
	}
	if n.Velocity < 0 || n.Velocity > 127 {
		return validationErr("velocity", ErrInvalidNote)
	}
	if n.Time < 0 || n.Duration <= 0 {
		return validationErr("time", ErrInvalidNote)
	}
	return nil
}

// End returns the clip end time in seconds.
func (c *Clip) End() float64 { return c.Start + c.Duration }

// Copy makes a deep copy of a Clip. The audio data is shared, not copied;
// sample buffers are immutable once loaded.
func (c *Clip) Copy() Clip {
	notes := make([]Note, len(c.Notes))
	copy(notes, c.Notes)
	ret := *c
	ret.Notes = notes
	return ret
}

// FadeGain returns the fade multiplier at rel seconds into the clip: a
// linear ramp up over FadeIn, unity in the middle, a linear ramp down over
// FadeOut.
func (c *Clip) FadeGain(rel float64) float64 {
	g := 1.0
	if c.FadeIn > 0 && rel < c.FadeIn {
		g = rel / c.FadeIn
	}
	if c.FadeOut > 0 && rel > c.Duration-c.FadeOut {
		if out := (c.Duration - rel) / c.FadeOut; out < g {
			g = out
		}
	}
	if g < 0 {
		return 0
	}
	return g
}

// GainOrUnity returns the clip gain, treating the zero value as unity.
func (c *Clip) GainOrUnity() float64 {
	if c.Gain == 0 {
		return 1
	}
	return c.Gain
}
