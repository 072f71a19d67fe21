package kalimba

import (
	"fmt"
	"math"
	"testing"
)

func renderResonator(s *StringResonator, numSamples int) []float32 {
	samples := make([]float32, numSamples)
	for i := range samples {
		samples[i] = s.Process()
	}
	return samples
}

func TestResonatorTuningAccuracy(t *testing.T) {
	const sampleRate = 48000

	tests := []struct {
		freq      float32
		tolerance float32
	}{
		{110.0, 1.0},
		{220.0, 1.0},
		{392.0, 2.0},
		{493.88, 3.0},
		{880.0, 5.0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.0fHz", tt.freq), func(t *testing.T) {
			s := NewStringResonator(sampleRate, tt.freq)
			s.SetDamping(1.0)
			s.SetBrightness(0.9)
			s.Excite(0.5)

			samples := renderResonator(s, sampleRate*2)
			measured := measureFundamentalFreq(samples, sampleRate)
			diff := math.Abs(float64(measured - tt.freq))
			if diff > float64(tt.tolerance) {
				t.Errorf("expected %.2f Hz, got %.2f Hz (diff %.2f, tolerance %.2f)",
					tt.freq, measured, diff, tt.tolerance)
			}
		})
	}
}

func TestResonatorDampingOrdersDecayTimes(t *testing.T) {
	const sampleRate = 48000
	const numSamples = sampleRate / 2

	tailEnergy := func(damping float32) float64 {
		s := NewStringResonator(sampleRate, 220.0)
		s.SetDamping(damping)
		s.SetBrightness(0.7)
		s.Excite(0.5)
		samples := renderResonator(s, numSamples)
		return windowRMS(samples[numSamples-4000:])
	}

	short := tailEnergy(0.5)
	mid := tailEnergy(0.9)
	long := tailEnergy(0.99)

	if !(short < mid && mid < long) {
		t.Fatalf("tail energy not ordered by damping: short=%.8f mid=%.8f long=%.8f",
			short, mid, long)
	}
}

func TestResonatorNeverDiverges(t *testing.T) {
	const sampleRate = 48000
	s := NewStringResonator(sampleRate, 220.0)
	s.SetDamping(1.0)
	s.SetBrightness(1.0)
	s.Excite(2.0)

	samples := renderResonator(s, sampleRate*4)
	if !allFinite(samples) {
		t.Fatalf("output contains non-finite samples")
	}

	early := windowRMS(samples[:4000])
	late := windowRMS(samples[len(samples)-4000:])
	if late > early {
		t.Fatalf("energy grew over time: early=%.6f late=%.6f", early, late)
	}
}

func TestResonatorSetterClampingNeverEscalates(t *testing.T) {
	const sampleRate = 48000
	s := NewStringResonator(sampleRate, 220.0)

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	s.SetFrequency(nan)
	if !isFinite(s.Frequency()) || s.Frequency() < minFrequency {
		t.Fatalf("NaN frequency not clamped: %f", s.Frequency())
	}
	s.SetFrequency(1e9)
	if s.Frequency() > 0.5*sampleRate {
		t.Fatalf("frequency above Nyquist: %f", s.Frequency())
	}
	s.SetFrequency(-50)
	if s.Frequency() != minFrequency {
		t.Fatalf("negative frequency not clamped to minimum: %f", s.Frequency())
	}

	s.SetDamping(inf)
	s.SetBrightness(nan)
	s.SetNonlinearity(5.0)
	s.Excite(nan)

	samples := renderResonator(s, sampleRate)
	if !allFinite(samples) {
		t.Fatalf("output contains non-finite samples after garbage inputs")
	}
}

func TestResonatorBrightnessRaisesCentroid(t *testing.T) {
	const sampleRate = 48000
	const numSamples = 16384

	render := func(brightness float32) []float32 {
		s := NewStringResonator(sampleRate, 220.0)
		s.SetDamping(1.0)
		s.SetBrightness(brightness)
		s.Excite(0.5)
		return renderResonator(s, numSamples)
	}

	dark := render(0.1)
	bright := render(0.9)

	darkCentroid := spectralCentroidOf(dark[2048:], sampleRate, 2048)
	brightCentroid := spectralCentroidOf(bright[2048:], sampleRate, 2048)
	if brightCentroid <= darkCentroid {
		t.Fatalf("expected higher brightness to raise centroid: dark=%.1fHz bright=%.1fHz",
			darkCentroid, brightCentroid)
	}
}

func TestResonatorRestrikeReplacesEnergy(t *testing.T) {
	const sampleRate = 48000
	s := NewStringResonator(sampleRate, 220.0)
	s.SetDamping(1.0)
	s.SetBrightness(0.8)

	s.Excite(0.5)
	first := renderResonator(s, 4800)

	// Restrike while still ringing; level must not stack.
	s.Excite(0.5)
	second := renderResonator(s, 4800)

	r1 := windowRMS(first)
	r2 := windowRMS(second)
	if r2 > r1*1.5 {
		t.Fatalf("restrike stacked energy: first=%.6f second=%.6f", r1, r2)
	}
	if r2 < r1*0.3 {
		t.Fatalf("restrike lost energy: first=%.6f second=%.6f", r1, r2)
	}
}

func TestResonatorGlideRetunesWithoutBlowup(t *testing.T) {
	const sampleRate = 48000
	s := NewStringResonator(sampleRate, 110.0)
	s.SetDamping(1.0)
	s.SetBrightness(0.8)
	s.Excite(0.5)

	samples := make([]float32, sampleRate)
	for i := range samples {
		if i == sampleRate/4 {
			s.SetFrequency(440.0)
		}
		samples[i] = s.Process()
	}
	if !allFinite(samples) {
		t.Fatalf("retune produced non-finite output")
	}

	tail := samples[sampleRate/2:]
	measured := measureFundamentalFreq(tail, sampleRate)
	if math.Abs(float64(measured-440.0)) > 8.0 {
		t.Fatalf("expected ~440 Hz after glide, got %.2f Hz", measured)
	}
}

func TestResonatorDispersionDetunesPartials(t *testing.T) {
	const sampleRate = 48000
	const f0 = 220.0
	const numSamples = 32768

	render := func(amount float32) []float32 {
		s := NewStringResonator(sampleRate, f0)
		s.SetDamping(1.0)
		s.SetBrightness(0.9)
		s.SetNonlinearity(amount)
		s.Excite(0.5)
		return renderResonator(s, numSamples)
	}

	base := render(0.0)[4096 : 4096+8192]
	disp := render(0.8)[4096 : 4096+8192]

	detuned := 0
	for partial := 2; partial <= 5; partial++ {
		target := float64(partial) * f0
		basePeak := peakNear(base, sampleRate, target, target*0.12)
		dispPeak := peakNear(disp, sampleRate, target, target*0.12)
		if basePeak <= 0 || dispPeak <= 0 {
			continue
		}
		if math.Abs(dispPeak-basePeak) > 1.0 {
			detuned++
		}
	}
	if detuned < 2 {
		t.Fatalf("expected at least 2 detuned partials, got %d", detuned)
	}
}

func peakNear(samples []float32, sampleRate int, centerHz float64, spanHz float64) float64 {
	n := len(samples)
	minBin := int((centerHz - spanHz) * float64(n) / float64(sampleRate))
	maxBin := int((centerHz + spanHz) * float64(n) / float64(sampleRate))
	if minBin < 1 {
		minBin = 1
	}
	if maxBin > n/2-1 {
		maxBin = n/2 - 1
	}
	if minBin >= maxBin {
		return 0
	}
	bestBin := minBin
	bestMag := 0.0
	for k := minBin; k <= maxBin; k++ {
		mag := dftBinMagnitude(samples, k)
		if mag > bestMag {
			bestMag = mag
			bestBin = k
		}
	}
	return float64(bestBin) * float64(sampleRate) / float64(n)
}
