package kalimba

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// midiNoteToFreq converts MIDI note number to frequency in Hz.
func midiNoteToFreq(note int) float32 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * pow2Approx(exponent)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// fastTanh is a bounded monotonic S-curve built on the exp approximation.
// Input is clamped so the exponential never overflows.
func fastTanh(x float32) float32 {
	if x > 10.0 {
		x = 10.0
	}
	if x < -10.0 {
		x = -10.0
	}
	return 1.0 - 2.0/(approx.FastExp(2.0*x)+1.0)
}

func log2f(x float32) float32 {
	return float32(math.Log2(float64(x)))
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

// clampf bounds v to [lo, hi]; non-finite input collapses to lo.
func clampf(v float32, lo float32, hi float32) float32 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float32) float32 {
	return clampf(v, 0.0, 1.0)
}

func maxf(a float32, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a float32, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func absf(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}
