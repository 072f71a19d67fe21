package kalimba

import "math"

// Waveform selects the LFO shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSaw
)

const (
	lfoRateMin = 0.01
	lfoRateMax = 100.0

	// Secondary LFOs run at musically unrelated fractions of the base rate so
	// the three modulation destinations never phase-lock.
	tremoloRateRatio = 0.7
	sweepRateRatio   = 0.4
)

// LFO is a phase-accumulator low-frequency oscillator with a bounded output
// in [-1,1].
type LFO struct {
	sampleRate float32
	waveform   Waveform
	frequency  float32
	phase      float32
	phaseStep  float32
}

// NewLFO creates an oscillator of the given shape and rate.
func NewLFO(sampleRate int, waveform Waveform, frequency float32) *LFO {
	l := &LFO{
		sampleRate: float32(sampleRate),
		waveform:   waveform,
	}
	l.SetFrequency(frequency)
	return l
}

// SetFrequency updates the rate; control-rate only.
func (l *LFO) SetFrequency(f float32) {
	l.frequency = clampf(f, lfoRateMin, lfoRateMax)
	l.phaseStep = l.frequency / l.sampleRate
}

// Frequency returns the current clamped rate in Hz.
func (l *LFO) Frequency() float32 {
	return l.frequency
}

// Process advances the phase by one sample and returns the next output.
func (l *LFO) Process() float32 {
	var out float32
	switch l.waveform {
	case WaveTriangle:
		out = 1.0 - 4.0*absf(l.phase-0.5)
	case WaveSaw:
		out = 2.0*l.phase - 1.0
	default:
		out = float32(math.Sin(2.0 * math.Pi * float64(l.phase)))
	}

	l.phase += l.phaseStep
	if l.phase >= 1.0 {
		l.phase -= 1.0
	}
	return out
}

// ModSignals carries one sample of each modulation output.
type ModSignals struct {
	Vibrato float32
	Tremolo float32
	Sweep   float32
}

// ModulationBank runs the three LFOs feeding pitch, amplitude and brightness
// modulation: a smooth sine for vibrato, a triangle for tremolo, a sawtooth
// for the filter sweep.
type ModulationBank struct {
	vibrato *LFO
	tremolo *LFO
	sweep   *LFO
}

// NewModulationBank creates the bank with a default base rate.
func NewModulationBank(sampleRate int) *ModulationBank {
	m := &ModulationBank{
		vibrato: NewLFO(sampleRate, WaveSine, 5.0),
		tremolo: NewLFO(sampleRate, WaveTriangle, 3.5),
		sweep:   NewLFO(sampleRate, WaveSaw, 2.0),
	}
	return m
}

// SetBaseRate sets the vibrato rate and re-derives the tremolo and sweep
// rates from it. Control-rate only.
func (m *ModulationBank) SetBaseRate(f float32) {
	m.vibrato.SetFrequency(f)
	m.tremolo.SetFrequency(f * tremoloRateRatio)
	m.sweep.SetFrequency(f * sweepRateRatio)
}

// BaseRate returns the vibrato LFO rate in Hz.
func (m *ModulationBank) BaseRate() float32 {
	return m.vibrato.Frequency()
}

// Process advances all three oscillators by one sample.
func (m *ModulationBank) Process() ModSignals {
	return ModSignals{
		Vibrato: m.vibrato.Process(),
		Tremolo: m.tremolo.Process(),
		Sweep:   m.sweep.Process(),
	}
}
