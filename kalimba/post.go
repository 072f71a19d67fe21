package kalimba

import (
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/effects"
)

const (
	// DC blocker pole: close to but strictly below 1.0.
	dcBlockerPole = 0.995

	// Hard cap on the reverb comb feedback. The mapping layer already stays
	// below this; the cap holds even if it doesn't.
	maxReverbFeedback = 0.98

	// Freeverb's wet path is quiet at its fixed input gain; scale the wet leg
	// so a full-wet mix is comparable to the dry signal.
	reverbWetScale = 3.0

	softClipDrive  = 1.2
	softClipOutput = 0.8
)

// DCBlocker is a one-pole/one-zero high-pass removing the bias the string
// feedback loop accumulates. It runs before the limiter so offset never eats
// headroom.
type DCBlocker struct {
	x1 float32
	y1 float32
}

// Process filters one sample.
func (d *DCBlocker) Process(x float32) float32 {
	y := x - d.x1 + dcBlockerPole*d.y1
	d.x1 = x
	d.y1 = float32(dspcore.FlushDenormals(float64(y)))
	return d.y1
}

// Reset clears the filter state.
func (d *DCBlocker) Reset() {
	d.x1 = 0
	d.y1 = 0
}

// PostChain applies DC blocking, reverberation and soft saturation to the
// mixed voice signal before it reaches the output sink.
type PostChain struct {
	dc     DCBlocker
	reverb *effects.Reverb
	mix    float32
}

// NewPostChain creates the chain with reverb fully dry.
func NewPostChain(sampleRate int) *PostChain {
	p := &PostChain{
		reverb: effects.NewReverb(),
	}
	p.reverb.SetDamp(0.35)
	p.SetReverbMix(0.0)
	p.SetReverbSize(0.85)
	return p
}

// SetReverbMix sets the dry/wet crossfade in [0,1]; control-rate only.
func (p *PostChain) SetReverbMix(mix float32) {
	p.mix = clamp01(mix)
	p.reverb.SetWet(float64(p.mix) * reverbWetScale)
	p.reverb.SetDry(float64(1.0 - p.mix))
}

// SetReverbSize sets the comb feedback (room size), hard-capped below
// instability; control-rate only.
func (p *PostChain) SetReverbSize(size float32) {
	p.reverb.SetRoomSize(float64(clampf(size, 0.0, maxReverbFeedback)))
}

// SetReverbDamp sets the high-frequency damping inside the reverb tail.
func (p *PostChain) SetReverbDamp(damp float32) {
	p.reverb.SetDamp(float64(clampf(damp, 0.0, 0.99)))
}

// Process runs one sample through the chain.
func (p *PostChain) Process(x float32) float32 {
	x = p.dc.Process(x)
	x = float32(p.reverb.ProcessSample(float64(x)))
	return softClip(x)
}

// Reset clears all internal state.
func (p *PostChain) Reset() {
	p.dc.Reset()
	p.reverb.Reset()
}

// softClip is a gentle saturation keeping pluck transients out of hard
// clipping while leaving quiet passages uncolored.
func softClip(x float32) float32 {
	return fastTanh(x*softClipDrive) * softClipOutput
}
