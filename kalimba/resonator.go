package kalimba

import dspcore "github.com/cwbudde/algo-dsp/dsp/core"

const (
	// Lowest playable fundamental; the delay buffer is sized for it once at
	// construction so SetFrequency never allocates.
	minFrequency = 20.0

	// Reflection (loop gain) range the damping control maps onto. The upper
	// bound stays strictly below unity so the loop can never diverge.
	reflectionLo = 0.90
	reflectionHi = 0.9999

	// Brightness maps onto the in-loop one-pole lowpass coefficient.
	lowpassCoeffScale = 0.7
	lowpassCoeffMax   = 0.95

	dispersionScale = -0.85

	// One-pole slew on the delay length so pitch changes glide instead of
	// jumping the read pointer mid-ring.
	delayGlide = 0.02
)

// StringResonator is a Karplus-Strong plucked string: a noise burst
// recirculated through a pitch-determined delay line with a damping and
// brightness filter in the feedback path.
type StringResonator struct {
	sampleRate float32
	frequency  float32

	delayLine   []float32
	writePos    int
	delayLength float32
	delayTarget float32

	reflection   float32
	lowpassCoeff float32
	loopState    float32

	dispersionCoeff float32
	dispersionX1    float32
	dispersionY1    float32
	dispersionX2    float32
	dispersionY2    float32

	noiseState uint32
}

// NewStringResonator creates a resonator tuned to f0 at the given sample rate.
func NewStringResonator(sampleRate int, f0 float32) *StringResonator {
	s := &StringResonator{
		sampleRate:   float32(sampleRate),
		reflection:   reflectionHi,
		lowpassCoeff: 0.35,
		noiseState:   1664525,
	}
	size := int(s.sampleRate/minFrequency) + 4
	s.delayLine = make([]float32, size)

	s.SetFrequency(f0)
	s.delayLength = s.delayTarget
	return s
}

// SetFrequency retunes the string. Out-of-range input is clamped, never an
// error; the delay length glides to the new value so a sounding string does
// not click.
func (s *StringResonator) SetFrequency(f float32) {
	nyquist := 0.5 * s.sampleRate
	f = clampf(f, minFrequency, nyquist)
	s.frequency = f
	s.delayTarget = s.sampleRate / f
}

// Frequency returns the current clamped fundamental in Hz.
func (s *StringResonator) Frequency() float32 {
	return s.frequency
}

// SetDamping maps d in [0,1] onto the feedback reflection gain: 0 gives a
// short dead pluck, 1 approaches but never reaches unity gain.
func (s *StringResonator) SetDamping(d float32) {
	d = clamp01(d)
	s.reflection = reflectionLo + d*(reflectionHi-reflectionLo)
}

// SetBrightness maps b in [0,1] onto the in-loop lowpass: low values darken
// the string and speed up high-partial decay.
func (s *StringResonator) SetBrightness(b float32) {
	b = clamp01(b)
	s.lowpassCoeff = minf((1.0-b)*lowpassCoeffScale, lowpassCoeffMax)
}

// SetNonlinearity maps a small amount in [0,1] onto the dispersion allpass
// coefficient, detuning upper partials for a stiffer, more metallic decay.
func (s *StringResonator) SetNonlinearity(amount float32) {
	amount = clamp01(amount)
	s.dispersionCoeff = dispersionScale * amount
}

// Excite overwrites the active delay window with a fresh broadband noise
// burst, giving a clean restrike rather than layering onto leftover energy.
func (s *StringResonator) Excite(level float32) {
	level = clampf(level, 0.0, 2.0)
	window := int(s.delayTarget) + 1
	if window > len(s.delayLine) {
		window = len(s.delayLine)
	}
	for i := 0; i < window; i++ {
		pos := (s.writePos - i + len(s.delayLine)) % len(s.delayLine)
		s.delayLine[pos] = level * s.nextNoise()
	}
	s.loopState = 0
}

// Process renders one sample and advances the string simulation. O(1), no
// allocation; call exactly once per audio-clock tick.
func (s *StringResonator) Process() float32 {
	s.delayLength += (s.delayTarget - s.delayLength) * delayGlide

	delayed := s.readDelayFractional(s.delayLength)
	dispersed := s.processDispersion(delayed)
	loopSample := s.processLoopLoss(dispersed)

	s.delayLine[s.writePos] = loopSample
	s.writePos = (s.writePos + 1) % len(s.delayLine)
	return delayed
}

func (s *StringResonator) processLoopLoss(input float32) float32 {
	lp := (1.0-s.lowpassCoeff)*input + s.lowpassCoeff*s.loopState
	lp = float32(dspcore.FlushDenormals(float64(lp)))
	s.loopState = lp
	return float32(dspcore.FlushDenormals(float64(lp * s.reflection)))
}

func (s *StringResonator) processDispersion(input float32) float32 {
	a := s.dispersionCoeff
	if a == 0.0 {
		return input
	}
	y := -a*input + s.dispersionX1 + a*s.dispersionY1
	s.dispersionX1 = input
	s.dispersionY1 = y

	z := -a*y + s.dispersionX2 + a*s.dispersionY2
	s.dispersionX2 = y
	s.dispersionY2 = z
	return z
}

func (s *StringResonator) readDelayFractional(delay float32) float32 {
	intDelay := int(delay)
	frac := delay - float32(intDelay)
	readPos1 := (s.writePos - intDelay + len(s.delayLine)) % len(s.delayLine)
	readPos2 := (s.writePos - intDelay - 1 + len(s.delayLine)) % len(s.delayLine)
	sample1 := s.delayLine[readPos1]
	sample2 := s.delayLine[readPos2]
	return sample1*(1.0-frac) + sample2*frac
}

// nextNoise is a small LCG producing values in [-1,1]; fast enough to run
// inside the audio callback on a trigger sample.
func (s *StringResonator) nextNoise() float32 {
	s.noiseState = s.noiseState*1664525 + 1013904223
	return float32(s.noiseState)*2.3283064365e-10*2.0 - 1.0
}
