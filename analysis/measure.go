// Package analysis provides offline signal measurements for plucked-string
// renders: fundamental estimation, decay envelopes and spectral statistics.
// It operates on float64 mono buffers and is not meant for real-time use.
package analysis

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

// Fundamental estimates the fundamental frequency of a decaying pluck by
// counting zero crossings over the sustained part of the signal. The first
// 10% is skipped so the noisy attack transient does not bias the count.
// Returns 0 if the signal is too short or never crosses zero.
func Fundamental(x []float64, sampleRate int) float64 {
	if sampleRate <= 0 || len(x) < 64 {
		return 0
	}
	start := len(x) / 10
	seg := x[start:]

	crossings := 0
	first := -1
	last := -1
	for i := 1; i < len(seg); i++ {
		if seg[i-1] < 0 && seg[i] >= 0 {
			if first < 0 {
				first = i
			}
			last = i
			crossings++
		}
	}
	if crossings < 2 || last <= first {
		return 0
	}
	periods := float64(crossings - 1)
	span := float64(last-first) / float64(sampleRate)
	return periods / span
}

// RMSEnvelope computes a hopped RMS envelope. Returns nil when the signal is
// shorter than one frame.
func RMSEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms(x[start : start+frame])
	}
	return out
}

// DecaySlopeDBPerS fits a line to the post-peak portion of a dB envelope and
// returns its slope in dB/s (negative for a decaying signal). NaN when the
// envelope is too short to fit.
func DecaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := -math.MaxFloat64
	peakIdx := 0
	for i, v := range env {
		db := linToDB(v)
		if db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}

	threshold := peak - 60.0
	end := len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < threshold {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		xv := float64(i-start) * hopSec
		yv := linToDB(env[i])
		sx += xv
		sy += yv
		sxx += xv * xv
		sxy += xv * yv
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

// DecayTimeT60 estimates the time for the signal to decay by 60 dB, derived
// from the fitted envelope slope. NaN when no decay can be measured.
func DecayTimeT60(x []float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return math.NaN()
	}
	env := RMSEnvelope(x, 1024, 256)
	slope := DecaySlopeDBPerS(env, 256.0/float64(sampleRate))
	if !isFinite(slope) || slope >= -1e-6 {
		return math.NaN()
	}
	return 60.0 / -slope
}

// Spectrum returns the Hann-windowed magnitude spectrum of x, truncated or
// zero-padded to fftSize (rounded up to a power of two, minimum 512). The
// result has fftSize/2+1 bins.
func Spectrum(x []float64, fftSize int) ([]float64, error) {
	n := 512
	for n < fftSize {
		n <<= 1
	}
	buf := make([]float64, n)
	m := len(x)
	if m > n {
		m = n
	}
	if m > 1 {
		for i := 0; i < m; i++ {
			w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(m-1))
			buf[i] = x[i] * w
		}
	}

	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return nil, err
	}
	spec := make([]complex128, n/2+1)
	plan.Forward(spec, buf)

	mags := make([]float64, len(spec))
	for i, c := range spec {
		mags[i] = math.Hypot(real(c), imag(c))
	}
	return mags, nil
}

// SpectralCentroid returns the magnitude-weighted mean frequency in Hz,
// a brightness proxy. Returns 0 for silent or degenerate input.
func SpectralCentroid(x []float64, sampleRate int) float64 {
	if sampleRate <= 0 || len(x) == 0 {
		return 0
	}
	size := len(x)
	if size > 8192 {
		size = 8192
	}
	mags, err := Spectrum(x[:size], size)
	if err != nil {
		return 0
	}
	binHz := float64(sampleRate) / float64(2*(len(mags)-1))
	var num, den float64
	for k, m := range mags {
		num += float64(k) * binHz * m
		den += m
	}
	if den < 1e-12 {
		return 0
	}
	return num / den
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
