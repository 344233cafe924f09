package dawg

// EffectType is the closed enumeration of effect kinds. Effects are
// constructed through NewEffect, which rejects unknown tags at the boundary;
// there is no dynamic string-keyed construction anywhere else.
type EffectType string

const (
	EffectReverb     EffectType = "reverb"
	EffectDelay      EffectType = "delay"
	EffectCompressor EffectType = "compressor"
	EffectEQ         EffectType = "eq"
	EffectLimiter    EffectType = "limiter"
	EffectDistortion EffectType = "distortion"
	EffectChorus     EffectType = "chorus"
	EffectFilter     EffectType = "filter"
)

// Effect is one node in a track's effect chain. Parameters is a map from
// parameter name to value; the valid names and ranges per type are documented
// in EffectTypes. An effect is owned by exactly one track's chain, and chain
// order is significant.
type Effect struct {
	ID         string             `yaml:"id" json:"id"`
	Type       EffectType         `yaml:"type" json:"type"`
	Enabled    bool               `yaml:"enabled" json:"enabled"`
	Parameters map[string]float64 `yaml:"parameters,flow" json:"parameters"`
}

// EffectParameter documents one parameter that an effect type takes.
type EffectParameter struct {
	Name     string
	Min      float64
	Max      float64
	Default  float64
	Rampable bool // if true, live changes are smoothed instead of stepped
}

// EffectTypes documents all the available effect types and what parameters
// they take.
var EffectTypes = map[EffectType][]EffectParameter{
	EffectReverb: {
		{Name: "mix", Min: 0, Max: 1, Default: 0.3, Rampable: true},
		{Name: "decay", Min: 0.1, Max: 10, Default: 2},
		{Name: "damping", Min: 0, Max: 1, Default: 0.5},
	},
	EffectDelay: {
		{Name: "time", Min: 0.01, Max: 2, Default: 0.25},
		{Name: "feedback", Min: 0, Max: 0.95, Default: 0.35, Rampable: true},
		{Name: "mix", Min: 0, Max: 1, Default: 0.25, Rampable: true},
	},
	EffectCompressor: {
		{Name: "threshold", Min: -60, Max: 0, Default: -18},
		{Name: "ratio", Min: 1, Max: 20, Default: 4},
		{Name: "attack", Min: 0.0001, Max: 0.5, Default: 0.005},
		{Name: "release", Min: 0.01, Max: 2, Default: 0.1},
		{Name: "makeup", Min: 0, Max: 24, Default: 0, Rampable: true},
	},
	EffectEQ: {
		{Name: "lowGain", Min: -24, Max: 24, Default: 0, Rampable: true},
		{Name: "midGain", Min: -24, Max: 24, Default: 0, Rampable: true},
		{Name: "highGain", Min: -24, Max: 24, Default: 0, Rampable: true},
		{Name: "lowFreq", Min: 20, Max: 1000, Default: 200},
		{Name: "highFreq", Min: 1000, Max: 20000, Default: 4000},
	},
	EffectLimiter: {
		{Name: "ceiling", Min: -24, Max: 0, Default: -0.3, Rampable: true},
		{Name: "release", Min: 0.01, Max: 1, Default: 0.05},
	},
	EffectDistortion: {
		{Name: "drive", Min: 0, Max: 1, Default: 0.4, Rampable: true},
		{Name: "mix", Min: 0, Max: 1, Default: 1, Rampable: true},
	},
	EffectChorus: {
		{Name: "rate", Min: 0.05, Max: 10, Default: 1.5},
		{Name: "depth", Min: 0, Max: 1, Default: 0.3, Rampable: true},
		{Name: "mix", Min: 0, Max: 1, Default: 0.5, Rampable: true},
	},
	EffectFilter: {
		{Name: "cutoff", Min: 20, Max: 20000, Default: 1000, Rampable: true},
		{Name: "resonance", Min: 0.1, Max: 10, Default: 0.7, Rampable: true},
		{Name: "mode", Min: 0, Max: 2, Default: 0}, // 0 lowpass, 1 bandpass, 2 highpass
	},
}

// NewEffect constructs an effect of the given type with defaults overridden
// by params. Unknown types and unknown or out-of-range parameters are
// rejected with no side effects.
func NewEffect(id string, typ EffectType, params map[string]float64) (Effect, error) {
	specs, ok := EffectTypes[typ]
	if !ok {
		return Effect{}, validationErr("type", ErrUnknownEffectType)
	}
	p := make(map[string]float64, len(specs))
	for _, spec := range specs {
		p[spec.Name] = spec.Default
	}
	for name, value := range params {
		spec, ok := findParameter(specs, name)
		if !ok {
			return Effect{}, validationErr(name, ErrUnknownEffectType)
		}
		if value < spec.Min || value > spec.Max {
			return Effect{}, validationErr(name, ErrInvalidParameter)
		}
		p[name] = value
	}
	return Effect{ID: id, Type: typ, Enabled: true, Parameters: p}, nil
}

// ValidateParameter checks that name is a parameter of the effect's type and
// value is within its range.
func (e *Effect) ValidateParameter(name string, value float64) error {
	spec, ok := findParameter(EffectTypes[e.Type], name)
	if !ok {
		return validationErr(name, ErrUnknownEffectType)
	}
	if value < spec.Min || value > spec.Max {
		return validationErr(name, ErrInvalidParameter)
	}
	return nil
}

func findParameter(specs []EffectParameter, name string) (EffectParameter, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return EffectParameter{}, false
}

// Copy makes a deep copy of an Effect.
func (e *Effect) Copy() Effect {
	params := make(map[string]float64, len(e.Parameters))
	for k, v := range e.Parameters {
		params[k] = v
	}
	return Effect{ID: e.ID, Type: e.Type, Enabled: e.Enabled, Parameters: params}
}
