package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/kennonjarvis-debug/dawg"
)

// GridDivision names a rhythmic grid. The straight divisions are fractions
// of a whole note; the T suffix marks the triplet variant, whose interval is
// two thirds of the straight one.
type GridDivision string

const (
	GridQuarter       GridDivision = "1/4"
	GridEighth        GridDivision = "1/8"
	GridSixteenth     GridDivision = "1/16"
	GridThirtySecond  GridDivision = "1/32"
	GridSixtyFourth   GridDivision = "1/64"
	GridQuarterT      GridDivision = "1/4T"
	GridEighthT       GridDivision = "1/8T"
	GridSixteenthT    GridDivision = "1/16T"
	GridThirtySecondT GridDivision = "1/32T"
	GridSixtyFourthT  GridDivision = "1/64T"
)

// gridIntervals maps each division to its length in beats.
var gridIntervals = map[GridDivision]float64{
	GridQuarter:       1,
	GridEighth:        1.0 / 2,
	GridSixteenth:     1.0 / 4,
	GridThirtySecond:  1.0 / 8,
	GridSixtyFourth:   1.0 / 16,
	GridQuarterT:      2.0 / 3,
	GridEighthT:       1.0 / 3,
	GridSixteenthT:    1.0 / 6,
	GridThirtySecondT: 1.0 / 12,
	GridSixtyFourthT:  1.0 / 24,
}

// Interval returns the grid interval in beats, or an error for an unknown
// division.
func (g GridDivision) Interval() (float64, error) {
	iv, ok := gridIntervals[g]
	if !ok {
		return 0, &dawg.ValidationError{Field: "grid", Err: fmt.Errorf("%w: %q", dawg.ErrInvalidGridDivision, g)}
	}
	return iv, nil
}

// QuantizeOptions controls time quantization. Strength blends each note
// toward its nearest gridline; 1 lands exactly on the grid. Swing offsets
// every second grid subdivision by swing times the grid interval, for
// triplet grids the same as for straight ones. QuantizeEnds also pulls note
// ends onto the grid, adjusting the duration.
type QuantizeOptions struct {
	Grid         GridDivision `json:"grid"`
	Strength     float64      `json:"strength"`
	Swing        float64      `json:"swing"`
	QuantizeEnds bool         `json:"quantizeEnds"`
}

// swungGridline returns the position of gridline k with swing applied.
func swungGridline(k int64, interval, swing float64) float64 {
	t := float64(k) * interval
	if k%2 != 0 {
		t += swing * interval
	}
	return t
}

// nearestSwung finds the swung gridline closest to t.
func nearestSwung(t, interval, swing float64) float64 {
	k := int64(math.Round(t / interval))
	best := swungGridline(k, interval, swing)
	for _, cand := range []int64{k - 1, k + 1} {
		if cand < 0 {
			continue
		}
		if g := swungGridline(cand, interval, swing); math.Abs(g-t) < math.Abs(best-t) {
			best = g
		}
	}
	if best < 0 {
		best = 0
	}
	return best
}

// Quantize snaps note times to the grid. The input slice is not modified;
// an empty selection returns an empty result without error. A note already
// sitting on a swung gridline is returned with its time bit-exact when
// strength is 1.
func Quantize(notes []dawg.Note, opts QuantizeOptions) ([]dawg.Note, error) {
	interval, err := opts.Grid.Interval()
	if err != nil {
		return nil, err
	}
	if opts.Strength < 0 || opts.Strength > 1 {
		return nil, &dawg.ValidationError{Field: "strength", Err: fmt.Errorf("strength %v outside [0,1]", opts.Strength)}
	}
	if opts.Swing < 0 || opts.Swing > 1 {
		return nil, &dawg.ValidationError{Field: "swing", Err: fmt.Errorf("swing %v outside [0,1]", opts.Swing)}
	}
	out := make([]dawg.Note, len(notes))
	for i, n := range notes {
		// a note already on a gridline keeps its stored time bit-exact
		if target := nearestSwung(n.Time, interval, opts.Swing); target != n.Time {
			if opts.Strength == 1 {
				n.Time = target
			} else {
				n.Time += opts.Strength * (target - n.Time)
			}
		}
		if opts.QuantizeEnds {
			end := n.Time + n.Duration
			if endTarget := nearestSwung(end, interval, opts.Swing); endTarget != end {
				if opts.Strength == 1 {
					end = endTarget
				} else {
					end += opts.Strength * (endTarget - end)
				}
			}
			if end > n.Time {
				n.Duration = end - n.Time
			}
		}
		out[i] = n
	}
	return out, nil
}

// Scale is a pitch-class set rooted at a MIDI pitch.
type Scale struct {
	Root      int   `json:"root"`
	Intervals []int `json:"intervals"`
}

// ScaleIntervals names the common interval sets.
var ScaleIntervals = map[string][]int{
	"major":           {0, 2, 4, 5, 7, 9, 11},
	"minor":           {0, 2, 3, 5, 7, 8, 10},
	"dorian":          {0, 2, 3, 5, 7, 9, 10},
	"phrygian":        {0, 1, 3, 5, 7, 8, 10},
	"lydian":          {0, 2, 4, 6, 7, 9, 11},
	"mixolydian":      {0, 2, 4, 5, 7, 9, 10},
	"harmonicMinor":   {0, 2, 3, 5, 7, 8, 11},
	"pentatonicMajor": {0, 2, 4, 7, 9},
	"pentatonicMinor": {0, 3, 5, 7, 10},
	"blues":           {0, 3, 5, 6, 7, 10},
	"chromatic":       {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

// NamedScale builds a Scale from a root pitch and a named interval set.
func NamedScale(root int, name string) (Scale, error) {
	iv, ok := ScaleIntervals[name]
	if !ok {
		return Scale{}, &dawg.ValidationError{Field: "scale", Err: fmt.Errorf("unknown scale %q", name)}
	}
	return Scale{Root: root, Intervals: iv}, nil
}

// snapPitch maps a pitch to the nearest pitch class in the scale. A pitch
// equidistant between two scale members resolves toward the lower one.
func snapPitch(pitch int, s Scale) int {
	in := make(map[int]bool, len(s.Intervals))
	for _, iv := range s.Intervals {
		in[((iv%12)+12)%12] = true
	}
	if len(in) == 0 {
		return pitch
	}
	rootPC := ((s.Root % 12) + 12) % 12
	for d := 0; d <= 6; d++ {
		lower := pitch - d
		if lower >= 0 && in[(((lower-rootPC)%12)+12)%12] {
			return lower
		}
		upper := pitch + d
		if upper <= 127 && in[(((upper-rootPC)%12)+12)%12] {
			return upper
		}
	}
	return pitch
}

// SnapToScale remaps every note's pitch onto the scale. The input slice is
// not modified.
func SnapToScale(notes []dawg.Note, s Scale) []dawg.Note {
	out := make([]dawg.Note, len(notes))
	for i, n := range notes {
		n.Pitch = snapPitch(n.Pitch, s)
		out[i] = n
	}
	return out
}

// Humanize perturbs note times and velocities by up to the given amounts.
// The same seed always yields the same perturbation.
func Humanize(notes []dawg.Note, timeJitter float64, velocityJitter int, seed int64) []dawg.Note {
	rng := rand.New(rand.NewSource(seed))
	out := make([]dawg.Note, len(notes))
	for i, n := range notes {
		n.Time += (rng.Float64()*2 - 1) * timeJitter
		if n.Time < 0 {
			n.Time = 0
		}
		v := n.Velocity + rng.Intn(2*velocityJitter+1) - velocityJitter
		if v < 1 {
			v = 1
		}
		if v > 127 {
			v = 127
		}
		n.Velocity = v
		out[i] = n
	}
	return out
}

// Legato stretches each note to the onset of the next, removing gaps and
// overlaps. The last note keeps its duration.
func Legato(notes []dawg.Note) []dawg.Note {
	out := make([]dawg.Note, len(notes))
	copy(out, notes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	for i := 0; i < len(out)-1; i++ {
		if d := out[i+1].Time - out[i].Time; d > 0 {
			out[i].Duration = d
		}
	}
	return out
}
