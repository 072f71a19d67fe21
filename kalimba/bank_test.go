package kalimba

import (
	"math"
	"testing"
)

func TestBankBuildsOneVoicePerNote(t *testing.T) {
	b := NewVoiceBank(48000, GMajorPentatonic())
	if b.NumVoices() != 7 {
		t.Fatalf("expected 7 voices, got %d", b.NumVoices())
	}
	if got := b.Voice(1).Frequency(); math.Abs(float64(got-220.0)) > 0.01 {
		t.Fatalf("voice 1 frequency mismatch: %f", got)
	}
}

func TestBankEmptyScaleGetsDefaultVoice(t *testing.T) {
	b := NewVoiceBank(48000, Scale{Name: "empty"})
	if b.NumVoices() != 1 {
		t.Fatalf("expected 1 default voice, got %d", b.NumVoices())
	}
}

func TestBankTruncatesOversizedScale(t *testing.T) {
	notes := make([]ScaleNote, MaxVoices+3)
	for i := range notes {
		notes[i] = ScaleNote{Frequency: 200 + float32(i)*50, Damping: 0.9, Brightness: 0.5}
	}
	b := NewVoiceBank(48000, Scale{Name: "big", Notes: notes})
	if b.NumVoices() != MaxVoices {
		t.Fatalf("expected %d voices, got %d", MaxVoices, b.NumVoices())
	}
}

func TestBankTriggerConsumedOnce(t *testing.T) {
	b := NewVoiceBank(48000, GMajorPentatonic())
	b.Trigger(2)

	// The burst injects energy immediately; without a second trigger the
	// signal must only decay, never re-excite.
	var peak float32
	for i := 0; i < 4800; i++ {
		v := absf(b.ProcessSample())
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		t.Fatalf("trigger produced no output")
	}

	var tailPeak float32
	for i := 0; i < 48000; i++ {
		v := absf(b.ProcessSample())
		if v > tailPeak {
			tailPeak = v
		}
	}
	if tailPeak > peak {
		t.Fatalf("energy reappeared without a trigger: peak=%.6f tail=%.6f", peak, tailPeak)
	}
}

func TestBankMixStaysBounded(t *testing.T) {
	b := NewVoiceBank(48000, GMajorPentatonic())
	b.SetExciteLevel(1.0)
	for i := 0; i < b.NumVoices(); i++ {
		b.Trigger(i)
	}

	for i := 0; i < 48000; i++ {
		v := b.ProcessSample()
		if !isFinite(v) {
			t.Fatalf("non-finite mix at sample %d", i)
		}
		if absf(v) > 1.5 {
			t.Fatalf("mix out of bounds at sample %d: %f", i, v)
		}
	}
}

func TestBankGlobalDampingShortensDecay(t *testing.T) {
	tail := func(mult float32) float64 {
		b := NewVoiceBank(48000, GMajorPentatonic())
		b.SetGlobalDamping(mult)
		b.Trigger(0)
		samples := make([]float32, 24000)
		for i := range samples {
			samples[i] = b.ProcessSample()
		}
		return windowRMS(samples[20000:])
	}

	damped := tail(0.5)
	full := tail(1.0)
	if damped >= full {
		t.Fatalf("expected damping multiplier to shorten decay: damped=%.8f full=%.8f", damped, full)
	}
}

func TestBankPitchModulationFollowsRatio(t *testing.T) {
	b := NewVoiceBank(48000, GMajorPentatonic())
	base := b.Voice(0).Frequency()

	b.ApplyPitchModulation(1.02)
	up := b.Voice(0).Frequency()
	if math.Abs(float64(up/base)-1.02) > 1e-3 {
		t.Fatalf("pitch ratio not applied: base=%f up=%f", base, up)
	}

	b.ApplyPitchModulation(1.0)
	back := b.Voice(0).Frequency()
	if math.Abs(float64(back-base)) > 1e-3 {
		t.Fatalf("pitch did not return to base: base=%f back=%f", base, back)
	}
}
