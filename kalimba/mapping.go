package kalimba

import "math"

// Curve selects how a normalized control reading maps onto a parameter.
type Curve int

const (
	// CurveLinear: out = lo + v*(hi-lo).
	CurveLinear Curve = iota
	// CurveExponential: out = lo * (hi/lo)^v, for parameters perceived
	// logarithmically (frequency, time, rate). Requires lo > 0 and hi > 0.
	CurveExponential
)

// ParamMap converts a normalized [0,1] control reading into a parameter
// value. The output is clamped back into [lo,hi] even though the input
// domain should guarantee it: exponential mapping at the edges can overshoot
// by rounding.
type ParamMap struct {
	Lo    float32
	Hi    float32
	Curve Curve
}

// Apply maps a raw reading. Out-of-range or non-finite input is clamped to
// [0,1] first, never escalated.
func (m ParamMap) Apply(v float32) float32 {
	v = clamp01(v)
	var out float32
	switch m.Curve {
	case CurveExponential:
		out = m.Lo * float32(math.Pow(float64(m.Hi/m.Lo), float64(v)))
	default:
		out = m.Lo + v*(m.Hi-m.Lo)
	}
	return clampf(out, minf(m.Lo, m.Hi), maxf(m.Lo, m.Hi))
}

// Control channel layout, matching the pot assignment of the hardware
// instrument. Channels 0-5 are the six front-panel pots; 6 and 7 carry the
// reverb controls of the polyphonic build.
const (
	ChannelPitch = iota
	ChannelDecay
	ChannelBrightness
	ChannelExcite
	ChannelLFORate
	ChannelLFODepth
	ChannelReverbMix
	ChannelReverbSize
	NumChannels
)

// Fixed per-parameter mappings.
var (
	// 50 Hz .. 2000 Hz playing range.
	pitchMap = ParamMap{Lo: 50.0, Hi: 2000.0, Curve: CurveExponential}
	// Solo mode: damping pot is the direct damping value.
	dampingMap = ParamMap{Lo: 0.0, Hi: 1.0, Curve: CurveLinear}
	// Poly mode: decay and brightness pots are multipliers on the per-note
	// scale tables.
	decayMultMap  = ParamMap{Lo: 0.5, Hi: 1.0, Curve: CurveLinear}
	brightMultMap = ParamMap{Lo: 0.5, Hi: 1.0, Curve: CurveLinear}
	brightnessMap = ParamMap{Lo: 0.0, Hi: 1.0, Curve: CurveLinear}
	// Level-trigger threshold, 0.2 + 0.4*pot. The floor keeps resting noise
	// from firing, and the gating level can still cross the threshold once
	// the pot passes one third.
	thresholdMap = ParamMap{Lo: 0.2, Hi: 0.6, Curve: CurveLinear}
	// Auto-trigger interval, 100 ms .. 10 s.
	autoIntervalMap = ParamMap{Lo: 0.1, Hi: 10.0, Curve: CurveExponential}
	// LFO base rate, 0.1 Hz .. 20 Hz.
	lfoRateMap  = ParamMap{Lo: 0.1, Hi: 20.0, Curve: CurveExponential}
	lfoDepthMap = ParamMap{Lo: 0.0, Hi: 1.0, Curve: CurveLinear}
	reverbMixMap = ParamMap{Lo: 0.0, Hi: 1.0, Curve: CurveLinear}
	// Room size stays well below the instability cap in post.go.
	reverbSizeMap = ParamMap{Lo: 0.70, Hi: 0.95, Curve: CurveLinear}
)
