package kalimba

import (
	"math"
	"sync/atomic"
)

// Mode selects the instrument topology.
type Mode int

const (
	// ModeSolo is the single-string machine: the pitch pot drives frequency
	// and the trigger engine (auto or level) re-excites the one voice.
	ModeSolo Mode = iota
	// ModePoly is the multi-tine kalimba: a scale table tunes the bank and
	// buttons trigger individual voices.
	ModePoly
)

// AnalogSource supplies pre-filtered normalized control readings, one per
// channel. The engine samples each channel once per audio block and never
// initiates a conversion itself.
type AnalogSource interface {
	Value(channel int) float32
}

// DigitalSource supplies debounced press events. Pressed reports and clears
// the "pressed since last poll" edge for one button; the engine consumes it
// once per block.
type DigitalSource interface {
	Pressed(button int) bool
}

// Snapshot is a display-friendly copy of the engine state, safe to read from
// a low-priority loop while audio runs.
type Snapshot struct {
	Mode        Mode
	TriggerMode TriggerMode
	ScaleName   string

	Frequency  float32
	Damping    float32
	Brightness float32
	ReverbMix  float32
	LFORate    float32
	LFODepth   float32

	ActiveNotes  [MaxVoices]bool
	TriggerPulse bool
}

// Engine is the complete instrument: voice bank, modulation bank, control
// mapper, trigger engine and post chain, processed one audio block at a
// time. ProcessBlock is the only method meant for the audio callback; it
// never blocks or allocates. Everything the UI loop touches goes through
// atomics.
type Engine struct {
	sampleRate int
	mode       Mode
	scale      Scale
	params     *Params

	bank    *VoiceBank
	mods    *ModulationBank
	trigger *TriggerEngine
	post    *PostChain

	analog  AnalogSource
	digital DigitalSource

	controls [NumChannels]float32

	// Block-rate mapped parameters.
	soloPitch  float32
	damping    float32
	brightness float32
	lfoDepth   float32

	activityTimers [MaxVoices]int
	pulseTimer     int

	desiredTriggerMode atomic.Int32

	// Snapshot mirror, written once per block by the audio context and read
	// by the display loop.
	snapFrequency  atomic.Uint32
	snapDamping    atomic.Uint32
	snapBrightness atomic.Uint32
	snapReverbMix  atomic.Uint32
	snapLFORate    atomic.Uint32
	snapLFODepth   atomic.Uint32
	snapActiveMask atomic.Uint32
	snapPulse      atomic.Bool
	snapTrigMode   atomic.Int32
}

// NewEngine creates an engine. In ModeSolo the scale argument is ignored and
// a single neutral voice is used.
func NewEngine(sampleRate int, mode Mode, scale Scale, params *Params) *Engine {
	if params == nil {
		params = NewDefaultParams()
	}
	if mode == ModeSolo {
		scale = SoloScale()
	}

	e := &Engine{
		sampleRate: sampleRate,
		mode:       mode,
		scale:      scale,
		params:     params,
		bank:       NewVoiceBank(sampleRate, scale),
		mods:       NewModulationBank(sampleRate),
		trigger:    NewTriggerEngine(sampleRate),
		post:       NewPostChain(sampleRate),
	}
	e.bank.SetExciteLevel(params.ExciteLevel)
	e.bank.SetNonlinearity(params.Nonlinearity)
	e.post.SetReverbDamp(params.ReverbDamp)

	if mode == ModePoly {
		e.trigger.SetMode(TriggerButton)
	}
	e.desiredTriggerMode.Store(int32(e.trigger.Mode()))

	e.controls = [NumChannels]float32{
		ChannelPitch:      0.40,
		ChannelDecay:      0.90,
		ChannelBrightness: 0.50,
		ChannelExcite:     0.50,
		ChannelLFORate:    0.50,
		ChannelLFODepth:   0.00,
		ChannelReverbMix:  0.30,
		ChannelReverbSize: 0.60,
	}
	return e
}

// SetAnalogSource attaches the control-channel collaborator. A nil source
// leaves the engine on its manually set control values.
func (e *Engine) SetAnalogSource(src AnalogSource) {
	e.analog = src
}

// SetDigitalSource attaches the button collaborator.
func (e *Engine) SetDigitalSource(src DigitalSource) {
	e.digital = src
}

// SetControl sets a channel value directly when no analog source is
// attached. Out-of-range input is clamped.
func (e *Engine) SetControl(channel int, v float32) {
	if channel < 0 || channel >= NumChannels {
		return
	}
	e.controls[channel] = clamp01(v)
}

// SetTriggerMode requests a trigger-mode switch; applied at the next block
// boundary so the audio path never sees a half-reset state machine.
func (e *Engine) SetTriggerMode(mode TriggerMode) {
	e.desiredTriggerMode.Store(int32(mode))
}

// NumVoices returns the bank size.
func (e *Engine) NumVoices() int {
	return e.bank.NumVoices()
}

// Scale returns the active tuning.
func (e *Engine) Scale() Scale {
	return e.scale
}

// ProcessBlock renders one block of stereo interleaved samples into out
// (len(out)/2 frames, identical left/right). Control channels are read and
// mapped before any sample is processed, so parameter changes land on block
// boundaries only.
func (e *Engine) ProcessBlock(out []float32) {
	frames := len(out) / 2
	if frames == 0 {
		return
	}

	if want := TriggerMode(e.desiredTriggerMode.Load()); want != e.trigger.Mode() {
		e.trigger.SetMode(want)
	}

	e.readControls()
	e.applyBlockParams()
	e.consumeButtons()

	exciteLevel := e.controls[ChannelExcite]
	vibratoDepth := e.params.VibratoDepth * e.lfoDepth
	tremoloDepth := e.params.TremoloDepth * e.lfoDepth
	sweepDepth := e.params.SweepDepth * e.lfoDepth

	for n := 0; n < frames; n++ {
		if e.trigger.Tick(exciteLevel) {
			e.bank.Trigger(0)
			e.markActivity(0)
		}

		sig := e.mods.Process()
		e.bank.ApplyPitchModulation(1.0 + sig.Vibrato*vibratoDepth)
		e.bank.ApplyBrightnessModulation(sig.Sweep * sweepDepth)

		mix := e.bank.ProcessSample()
		mix *= 1.0 - absf(sig.Tremolo)*tremoloDepth

		sample := e.post.Process(mix) * e.params.OutputGain
		out[2*n] = sample
		out[2*n+1] = sample

		if e.pulseTimer > 0 {
			e.pulseTimer--
		}
		for i := range e.activityTimers {
			if e.activityTimers[i] > 0 {
				e.activityTimers[i]--
			}
		}
	}

	e.publishSnapshot()
}

// Snapshot returns a copy of the current state for the status display. Safe
// to call from a different goroutine than ProcessBlock.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Mode:         e.mode,
		TriggerMode:  TriggerMode(e.snapTrigMode.Load()),
		ScaleName:    e.scale.Name,
		Frequency:    math.Float32frombits(e.snapFrequency.Load()),
		Damping:      math.Float32frombits(e.snapDamping.Load()),
		Brightness:   math.Float32frombits(e.snapBrightness.Load()),
		ReverbMix:    math.Float32frombits(e.snapReverbMix.Load()),
		LFORate:      math.Float32frombits(e.snapLFORate.Load()),
		LFODepth:     math.Float32frombits(e.snapLFODepth.Load()),
		TriggerPulse: e.snapPulse.Load(),
	}
	mask := e.snapActiveMask.Load()
	for i := 0; i < MaxVoices; i++ {
		s.ActiveNotes[i] = mask&(1<<uint(i)) != 0
	}
	return s
}

func (e *Engine) readControls() {
	if e.analog == nil {
		return
	}
	for ch := 0; ch < NumChannels; ch++ {
		e.controls[ch] = clamp01(e.analog.Value(ch))
	}
}

func (e *Engine) applyBlockParams() {
	if e.mode == ModeSolo {
		e.soloPitch = pitchMap.Apply(e.controls[ChannelPitch])
		e.damping = dampingMap.Apply(e.controls[ChannelDecay])
		e.brightness = brightnessMap.Apply(e.controls[ChannelBrightness])
		e.bank.SetVoiceFrequency(0, e.soloPitch)
	} else {
		e.damping = decayMultMap.Apply(e.controls[ChannelDecay])
		e.brightness = brightMultMap.Apply(e.controls[ChannelBrightness])
		e.soloPitch = e.bank.Voice(0).Frequency()
	}
	e.bank.SetGlobalDamping(e.damping)
	e.bank.SetGlobalBrightness(e.brightness)

	e.mods.SetBaseRate(lfoRateMap.Apply(e.controls[ChannelLFORate]))
	e.lfoDepth = lfoDepthMap.Apply(e.controls[ChannelLFODepth])

	e.post.SetReverbMix(reverbMixMap.Apply(e.controls[ChannelReverbMix]))
	e.post.SetReverbSize(reverbSizeMap.Apply(e.controls[ChannelReverbSize]))

	switch e.trigger.Mode() {
	case TriggerAuto:
		sec := autoIntervalMap.Apply(e.controls[ChannelExcite])
		e.trigger.SetAutoInterval(int(sec * float32(e.sampleRate)))
	case TriggerLevel:
		e.trigger.SetThreshold(thresholdMap.Apply(e.controls[ChannelExcite]))
	}
}

func (e *Engine) consumeButtons() {
	if e.digital == nil {
		return
	}
	for i := 0; i < e.bank.NumVoices(); i++ {
		if e.digital.Pressed(i) {
			e.bank.Trigger(i)
			e.markActivity(i)
		}
	}
}

func (e *Engine) markActivity(voice int) {
	e.activityTimers[voice] = e.sampleRate
	e.pulseTimer = e.sampleRate / 10
}

func (e *Engine) publishSnapshot() {
	e.snapFrequency.Store(math.Float32bits(e.soloPitch))
	e.snapDamping.Store(math.Float32bits(e.damping))
	e.snapBrightness.Store(math.Float32bits(e.brightness))
	e.snapReverbMix.Store(math.Float32bits(reverbMixMap.Apply(e.controls[ChannelReverbMix])))
	e.snapLFORate.Store(math.Float32bits(e.mods.BaseRate()))
	e.snapLFODepth.Store(math.Float32bits(e.lfoDepth))
	e.snapPulse.Store(e.pulseTimer > 0)
	e.snapTrigMode.Store(int32(e.trigger.Mode()))

	var mask uint32
	for i := range e.activityTimers {
		if e.activityTimers[i] > 0 {
			mask |= 1 << uint(i)
		}
	}
	e.snapActiveMask.Store(mask)
}
