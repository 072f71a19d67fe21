package kalimba

import (
	"math"
	"testing"
)

func TestLFOOutputStaysBounded(t *testing.T) {
	for _, wf := range []Waveform{WaveSine, WaveTriangle, WaveSaw} {
		l := NewLFO(48000, wf, 7.3)
		for i := 0; i < 48000; i++ {
			v := l.Process()
			if v < -1.0 || v > 1.0 {
				t.Fatalf("waveform %d out of bounds at sample %d: %f", wf, i, v)
			}
		}
	}
}

func TestLFORateAccuracy(t *testing.T) {
	const sampleRate = 48000
	const freq = 4.0

	l := NewLFO(sampleRate, WaveSine, freq)
	samples := make([]float32, sampleRate*2)
	for i := range samples {
		samples[i] = l.Process()
	}
	measured := measureFundamentalFreq(samples, sampleRate)
	if math.Abs(float64(measured-freq)) > 0.2 {
		t.Fatalf("expected %.1f Hz, got %.3f Hz", freq, measured)
	}
}

func TestLFORateClamped(t *testing.T) {
	l := NewLFO(48000, WaveSine, 0.0)
	if l.Frequency() != lfoRateMin {
		t.Fatalf("zero rate not clamped up: %f", l.Frequency())
	}
	l.SetFrequency(float32(math.NaN()))
	if !isFinite(l.Frequency()) {
		t.Fatalf("NaN rate escaped clamping")
	}
	l.SetFrequency(1e6)
	if l.Frequency() != lfoRateMax {
		t.Fatalf("huge rate not clamped down: %f", l.Frequency())
	}
}

func TestLFOSawShape(t *testing.T) {
	l := NewLFO(48000, WaveSaw, 1.0)
	first := l.Process()
	if math.Abs(float64(first+1.0)) > 1e-5 {
		t.Fatalf("saw should start at -1, got %f", first)
	}
	prev := first
	rising := 0
	for i := 0; i < 40000; i++ {
		v := l.Process()
		if v > prev {
			rising++
		}
		prev = v
	}
	if rising < 39990 {
		t.Fatalf("saw should rise monotonically within a cycle, rose %d/40000", rising)
	}
}

func TestModulationBankRateRatios(t *testing.T) {
	m := NewModulationBank(48000)
	m.SetBaseRate(10.0)

	if got := m.BaseRate(); math.Abs(float64(got-10.0)) > 1e-5 {
		t.Fatalf("base rate mismatch: %f", got)
	}
	if got := m.tremolo.Frequency(); math.Abs(float64(got-7.0)) > 1e-4 {
		t.Fatalf("tremolo rate mismatch: %f", got)
	}
	if got := m.sweep.Frequency(); math.Abs(float64(got-4.0)) > 1e-4 {
		t.Fatalf("sweep rate mismatch: %f", got)
	}
}

func TestModulationBankOutputsBounded(t *testing.T) {
	m := NewModulationBank(48000)
	m.SetBaseRate(20.0)
	for i := 0; i < 48000; i++ {
		sig := m.Process()
		for _, v := range []float32{sig.Vibrato, sig.Tremolo, sig.Sweep} {
			if v < -1.0 || v > 1.0 {
				t.Fatalf("modulation out of bounds at sample %d: %+v", i, sig)
			}
		}
	}
}
