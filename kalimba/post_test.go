package kalimba

import (
	"math"
	"testing"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	var dc DCBlocker
	var out float32
	for i := 0; i < 48000; i++ {
		out = dc.Process(0.5)
	}
	if absf(out) > 0.01 {
		t.Fatalf("constant input should settle near zero, got %f", out)
	}
}

func TestDCBlockerPassesAudioBand(t *testing.T) {
	const sampleRate = 48000
	var dc DCBlocker
	samples := make([]float32, 8192)
	for i := range samples {
		in := float32(math.Sin(2 * math.Pi * 220.0 * float64(i) / sampleRate))
		samples[i] = dc.Process(in)
	}
	r := windowRMS(samples[4096:])
	if r < 0.6 {
		t.Fatalf("220 Hz attenuated too much: rms=%f", r)
	}
}

func TestSoftClipBounds(t *testing.T) {
	inputs := []float32{-100, -5, -1, -0.5, 0, 0.5, 1, 5, 100}
	for _, in := range inputs {
		out := softClip(in)
		if !isFinite(out) {
			t.Fatalf("softClip(%f) not finite", in)
		}
		if absf(out) > softClipOutput+1e-4 {
			t.Fatalf("softClip(%f)=%f exceeds output ceiling", in, out)
		}
	}
	// Monotonic through zero.
	if !(softClip(-0.5) < softClip(0) && softClip(0) < softClip(0.5)) {
		t.Fatalf("softClip not monotonic around zero")
	}
	if absf(softClip(0)) > 1e-6 {
		t.Fatalf("softClip(0) should be zero, got %f", softClip(0))
	}
}

func TestSoftClipNearlyLinearWhenQuiet(t *testing.T) {
	in := float32(0.05)
	out := softClip(in)
	// Small signals pass with roughly drive*output gain.
	want := in * softClipDrive * softClipOutput
	if absf(out-want) > 0.01 {
		t.Fatalf("quiet signal distorted: got %f, want ~%f", out, want)
	}
}

func TestPostChainDryWhenMixZero(t *testing.T) {
	const sampleRate = 48000
	p := NewPostChain(sampleRate)
	p.SetReverbMix(0.0)

	var tail float64
	for i := 0; i < sampleRate; i++ {
		var in float32
		if i < 100 {
			in = 0.5
		}
		out := p.Process(in)
		if i > sampleRate/2 {
			tail += float64(absf(out))
		}
	}
	if tail/float64(sampleRate/2) > 1e-3 {
		t.Fatalf("dry chain rings after input stops: mean tail %e", tail/float64(sampleRate/2))
	}
}

func TestPostChainWetAddsTail(t *testing.T) {
	const sampleRate = 48000

	tailEnergy := func(mix float32) float64 {
		p := NewPostChain(sampleRate)
		p.SetReverbMix(mix)
		p.SetReverbSize(0.9)
		samples := make([]float32, sampleRate)
		for i := range samples {
			var in float32
			if i < 480 {
				in = 0.5
			}
			samples[i] = p.Process(in)
		}
		return windowRMS(samples[sampleRate/2:])
	}

	dry := tailEnergy(0.0)
	wet := tailEnergy(0.8)
	if wet <= dry {
		t.Fatalf("expected reverb tail: dry=%.8f wet=%.8f", dry, wet)
	}
}

func TestPostChainSizeCapped(t *testing.T) {
	p := NewPostChain(48000)
	// Oversized room must not destabilize the chain.
	p.SetReverbSize(5.0)
	p.SetReverbMix(1.0)

	samples := make([]float32, 96000)
	for i := range samples {
		var in float32
		if i < 4800 {
			in = 1.0
		}
		samples[i] = p.Process(in)
	}
	if !allFinite(samples) {
		t.Fatalf("chain produced non-finite output")
	}
	for i, v := range samples {
		if absf(v) > softClipOutput+1e-4 {
			t.Fatalf("output exceeds clip ceiling at %d: %f", i, v)
		}
	}
}
