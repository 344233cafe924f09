package graph

import (
	"github.com/chewxy/math32"

	"github.com/kennonjarvis-debug/dawg"
)

type (
	// chain is an immutable ordered list of effect processors. Strips swap
	// whole chains atomically; an empty chain is a passthrough.
	chain struct {
		procs []processor
	}

	// processor is one live effect node. setParam applies a change in place
	// (ramped when the parameter table marks it rampable) so the node's DSP
	// state is never reset by a parameter edit.
	processor interface {
		effectID() string
		effectType() dawg.EffectType
		setParam(name string, value float64)
		setBypassed(bool)
		process(l, r []float32)
	}

	// baseProc carries the bookkeeping every processor shares: identity,
	// bypass flag, and the parameter values with ramp smoothing for the
	// rampable ones.
	baseProc struct {
		id       string
		typ      dawg.EffectType
		bypassed bool
		cfg      Config
		params   map[string]*paramValue
	}

	paramValue struct {
		cur, target float32
		step        float32
		rampable    bool
	}
)

// paramRampSeconds smooths rampable parameter changes to avoid audible steps.
const paramRampSeconds = 0.02

func newBase(cfg Config, e dawg.Effect) baseProc {
	b := baseProc{id: e.ID, typ: e.Type, cfg: cfg, params: make(map[string]*paramValue)}
	for _, spec := range dawg.EffectTypes[e.Type] {
		v := float32(spec.Default)
		if pv, ok := e.Parameters[spec.Name]; ok {
			v = float32(pv)
		}
		b.params[spec.Name] = &paramValue{cur: v, target: v, rampable: spec.Rampable}
	}
	return b
}

func (b *baseProc) effectID() string            { return b.id }
func (b *baseProc) effectType() dawg.EffectType { return b.typ }
func (b *baseProc) setBypassed(bypassed bool)   { b.bypassed = bypassed }

func (b *baseProc) setParam(name string, value float64) {
	p, ok := b.params[name]
	if !ok {
		return
	}
	p.target = float32(value)
	if !p.rampable {
		p.cur = p.target
		p.step = 0
		return
	}
	samples := float32(b.cfg.SampleRate) * paramRampSeconds
	p.step = (p.target - p.cur) / samples
}

// advance steps a rampable parameter one sample toward its target and
// returns the current value.
func (p *paramValue) advance() float32 {
	if p.cur != p.target {
		p.cur += p.step
		if (p.step > 0 && p.cur > p.target) || (p.step < 0 && p.cur < p.target) {
			p.cur = p.target
		}
	}
	return p.cur
}

func (b *baseProc) at(name string) float32 { return b.params[name].cur }

// newProcessor constructs the live node for an effect. The effect type has
// been validated at the model boundary, but an unknown tag still degrades to
// a passthrough rather than a nil node so the signal path stays connected.
func newProcessor(cfg Config, e dawg.Effect) processor {
	switch e.Type {
	case dawg.EffectDelay:
		return newDelay(cfg, e)
	case dawg.EffectReverb:
		return newReverb(cfg, e)
	case dawg.EffectCompressor:
		return newCompressor(cfg, e)
	case dawg.EffectEQ:
		return newEQ(cfg, e)
	case dawg.EffectLimiter:
		return newLimiter(cfg, e)
	case dawg.EffectDistortion:
		return newDistortion(cfg, e)
	case dawg.EffectChorus:
		return newChorus(cfg, e)
	case dawg.EffectFilter:
		return newFilter(cfg, e)
	}
	return &passthrough{baseProc: newBase(cfg, e)}
}

type passthrough struct{ baseProc }

func (p *passthrough) process(l, r []float32) {}

// delay is a feedback comb with a dry/wet mix.
type delay struct {
	baseProc
	bufL, bufR []float32
	pos        int
}

func newDelay(cfg Config, e dawg.Effect) *delay {
	d := &delay{baseProc: newBase(cfg, e)}
	size := int(float64(cfg.SampleRate) * float64(d.at("time")))
	if size < 1 {
		size = 1
	}
	d.bufL = make([]float32, size)
	d.bufR = make([]float32, size)
	return d
}

func (d *delay) process(l, r []float32) {
	if d.bypassed {
		return
	}
	for i := range l {
		fb := d.params["feedback"].advance()
		mix := d.params["mix"].advance()
		wetL, wetR := d.bufL[d.pos], d.bufR[d.pos]
		d.bufL[d.pos] = l[i] + wetL*fb
		d.bufR[d.pos] = r[i] + wetR*fb
		d.pos++
		if d.pos >= len(d.bufL) {
			d.pos = 0
		}
		l[i] = l[i]*(1-mix) + wetL*mix
		r[i] = r[i]*(1-mix) + wetR*mix
	}
}

// reverb is a small parallel-comb reverb with one-pole damping per comb.
type reverb struct {
	baseProc
	combsL, combsR [][]float32
	posL, posR     []int
	lowL, lowR     []float32
}

var combTunings = []int{1557, 1617, 1491, 1422}

func newReverb(cfg Config, e dawg.Effect) *reverb {
	rv := &reverb{baseProc: newBase(cfg, e)}
	scale := float64(cfg.SampleRate) / 44100
	for _, tuning := range combTunings {
		size := int(float64(tuning) * scale)
		rv.combsL = append(rv.combsL, make([]float32, size))
		rv.combsR = append(rv.combsR, make([]float32, size+23)) // decorrelate channels
	}
	rv.posL = make([]int, len(combTunings))
	rv.posR = make([]int, len(combTunings))
	rv.lowL = make([]float32, len(combTunings))
	rv.lowR = make([]float32, len(combTunings))
	return rv
}

func (rv *reverb) process(l, r []float32) {
	if rv.bypassed {
		return
	}
	decay := rv.at("decay")
	damping := rv.at("damping")
	// per-comb feedback from the decay time
	for i := range l {
		mix := rv.params["mix"].advance()
		var wetL, wetR float32
		for c := range rv.combsL {
			combL, combR := rv.combsL[c], rv.combsR[c]
			fbL := math32.Pow(0.001, float32(len(combL))/(float32(rv.cfg.SampleRate)*decay))
			fbR := math32.Pow(0.001, float32(len(combR))/(float32(rv.cfg.SampleRate)*decay))
			outL, outR := combL[rv.posL[c]], combR[rv.posR[c]]
			rv.lowL[c] = outL*(1-damping) + rv.lowL[c]*damping
			rv.lowR[c] = outR*(1-damping) + rv.lowR[c]*damping
			combL[rv.posL[c]] = l[i] + rv.lowL[c]*fbL
			combR[rv.posR[c]] = r[i] + rv.lowR[c]*fbR
			rv.posL[c]++
			if rv.posL[c] >= len(combL) {
				rv.posL[c] = 0
			}
			rv.posR[c]++
			if rv.posR[c] >= len(combR) {
				rv.posR[c] = 0
			}
			wetL += outL
			wetR += outR
		}
		wetL *= 0.25
		wetR *= 0.25
		l[i] = l[i]*(1-mix) + wetL*mix
		r[i] = r[i]*(1-mix) + wetR*mix
	}
}

// compressor is a feed-forward compressor with an exponential envelope
// follower on the stereo peak.
type compressor struct {
	baseProc
	envelope float32
}

func newCompressor(cfg Config, e dawg.Effect) *compressor {
	return &compressor{baseProc: newBase(cfg, e)}
}

func (c *compressor) process(l, r []float32) {
	if c.bypassed {
		return
	}
	threshold := dbToLinear(c.at("threshold"))
	ratio := c.at("ratio")
	attack := envCoef(c.cfg.SampleRate, c.at("attack"))
	release := envCoef(c.cfg.SampleRate, c.at("release"))
	for i := range l {
		makeup := dbToLinear(c.params["makeup"].advance())
		peak := math32.Max(math32.Abs(l[i]), math32.Abs(r[i]))
		if peak > c.envelope {
			c.envelope = peak + (c.envelope-peak)*attack
		} else {
			c.envelope = peak + (c.envelope-peak)*release
		}
		gain := float32(1)
		if c.envelope > threshold {
			compressed := threshold * math32.Pow(c.envelope/threshold, 1/ratio)
			gain = compressed / c.envelope
		}
		l[i] *= gain * makeup
		r[i] *= gain * makeup
	}
}

func envCoef(sampleRate int, seconds float32) float32 {
	if seconds <= 0 {
		return 0
	}
	return math32.Exp(-1 / (float32(sampleRate) * seconds))
}

// eq is a 3-band equalizer: low shelf, mid peak, high shelf, built from
// one-pole crossovers.
type eq struct {
	baseProc
	lowStateL, lowStateR   float32
	highStateL, highStateR float32
}

func newEQ(cfg Config, e dawg.Effect) *eq {
	return &eq{baseProc: newBase(cfg, e)}
}

func (q *eq) process(l, r []float32) {
	if q.bypassed {
		return
	}
	lowCoef := onePoleCoef(q.cfg.SampleRate, q.at("lowFreq"))
	highCoef := onePoleCoef(q.cfg.SampleRate, q.at("highFreq"))
	for i := range l {
		lowGain := dbToLinear(q.params["lowGain"].advance())
		midGain := dbToLinear(q.params["midGain"].advance())
		highGain := dbToLinear(q.params["highGain"].advance())

		q.lowStateL += lowCoef * (l[i] - q.lowStateL)
		q.lowStateR += lowCoef * (r[i] - q.lowStateR)
		q.highStateL += highCoef * (l[i] - q.highStateL)
		q.highStateR += highCoef * (r[i] - q.highStateR)

		lowL, lowR := q.lowStateL, q.lowStateR
		highL, highR := l[i]-q.highStateL, r[i]-q.highStateR
		midL, midR := l[i]-lowL-highL, r[i]-lowR-highR

		l[i] = lowL*lowGain + midL*midGain + highL*highGain
		r[i] = lowR*lowGain + midR*midGain + highR*highGain
	}
}

func onePoleCoef(sampleRate int, freq float32) float32 {
	c := 2 * math32.Pi * freq / float32(sampleRate)
	if c > 1 {
		c = 1
	}
	return c
}

// limiter is a hard-knee peak limiter with exponential release.
type limiter struct {
	baseProc
	gain float32
}

func newLimiter(cfg Config, e dawg.Effect) *limiter {
	return &limiter{baseProc: newBase(cfg, e), gain: 1}
}

func (lim *limiter) process(l, r []float32) {
	if lim.bypassed {
		return
	}
	release := envCoef(lim.cfg.SampleRate, lim.at("release"))
	for i := range l {
		ceiling := dbToLinear(lim.params["ceiling"].advance())
		peak := math32.Max(math32.Abs(l[i]), math32.Abs(r[i]))
		needed := float32(1)
		if peak*lim.gain > ceiling && peak > 0 {
			needed = ceiling / peak
		}
		if needed < lim.gain {
			lim.gain = needed
		} else {
			lim.gain = needed + (lim.gain-needed)*release
		}
		l[i] *= lim.gain
		r[i] *= lim.gain
	}
}

// distortion is tanh waveshaping with a dry/wet mix.
type distortion struct {
	baseProc
}

func newDistortion(cfg Config, e dawg.Effect) *distortion {
	return &distortion{baseProc: newBase(cfg, e)}
}

func (d *distortion) process(l, r []float32) {
	if d.bypassed {
		return
	}
	for i := range l {
		drive := d.params["drive"].advance()
		mix := d.params["mix"].advance()
		pre := 1 + drive*24
		wetL := math32.Tanh(l[i] * pre)
		wetR := math32.Tanh(r[i] * pre)
		l[i] = l[i]*(1-mix) + wetL*mix
		r[i] = r[i]*(1-mix) + wetR*mix
	}
}

// chorus is a single LFO-modulated delay line per channel, quadrature LFOs.
type chorus struct {
	baseProc
	bufL, bufR []float32
	pos        int
	phase      float32
}

func newChorus(cfg Config, e dawg.Effect) *chorus {
	c := &chorus{baseProc: newBase(cfg, e)}
	size := cfg.SampleRate / 20 // 50 ms is plenty for chorus depths
	c.bufL = make([]float32, size)
	c.bufR = make([]float32, size)
	return c
}

func (c *chorus) process(l, r []float32) {
	if c.bypassed {
		return
	}
	rate := c.at("rate")
	size := float32(len(c.bufL))
	for i := range l {
		depth := c.params["depth"].advance()
		mix := c.params["mix"].advance()
		c.bufL[c.pos] = l[i]
		c.bufR[c.pos] = r[i]
		base := size * 0.3
		span := size * 0.25 * depth
		offL := base + span*(1+math32.Sin(2*math32.Pi*c.phase))*0.5
		offR := base + span*(1+math32.Cos(2*math32.Pi*c.phase))*0.5
		wetL := c.tap(c.bufL, offL)
		wetR := c.tap(c.bufR, offR)
		l[i] = l[i]*(1-mix) + wetL*mix
		r[i] = r[i]*(1-mix) + wetR*mix
		c.pos++
		if c.pos >= len(c.bufL) {
			c.pos = 0
		}
		c.phase += rate / float32(c.cfg.SampleRate)
		if c.phase >= 1 {
			c.phase -= 1
		}
	}
}

func (c *chorus) tap(buf []float32, offset float32) float32 {
	idx := float32(c.pos) - offset
	for idx < 0 {
		idx += float32(len(buf))
	}
	i0 := int(idx)
	frac := idx - float32(i0)
	i1 := i0 + 1
	if i1 >= len(buf) {
		i1 = 0
	}
	return buf[i0]*(1-frac) + buf[i1]*frac
}

// filter is a Chamberlin state-variable filter, mode-switchable between
// lowpass, bandpass and highpass.
type filter struct {
	baseProc
	lowL, bandL float32
	lowR, bandR float32
}

func newFilter(cfg Config, e dawg.Effect) *filter {
	return &filter{baseProc: newBase(cfg, e)}
}

func (f *filter) process(l, r []float32) {
	if f.bypassed {
		return
	}
	mode := int(f.at("mode"))
	for i := range l {
		cutoff := f.params["cutoff"].advance()
		resonance := f.params["resonance"].advance()
		fc := 2 * math32.Sin(math32.Pi*cutoff/float32(f.cfg.SampleRate))
		if fc > 1 {
			fc = 1
		}
		damp := 1 / resonance
		if damp > 2 {
			damp = 2
		}
		l[i] = f.svf(&f.lowL, &f.bandL, l[i], fc, damp, mode)
		r[i] = f.svf(&f.lowR, &f.bandR, r[i], fc, damp, mode)
	}
}

func (f *filter) svf(low, band *float32, in, fc, damp float32, mode int) float32 {
	high := in - *low - damp*(*band)
	*band += fc * high
	*low += fc * (*band)
	switch mode {
	case 1:
		return *band
	case 2:
		return high
	}
	return *low
}
