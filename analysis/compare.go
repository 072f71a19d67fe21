package analysis

import (
	"math"
)

// Metrics contains distance measurements between a reference recording and a
// synthesized candidate.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	RefFundamentalHz  float64 `json:"ref_fundamental_hz"`
	CandFundamentalHz float64 `json:"cand_fundamental_hz"`
	FundamentalCents  float64 `json:"fundamental_cents"`

	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	Score float64 `json:"score"`
}

// Compare measures how closely a synthesized pluck matches a reference
// recording and combines the sub-metrics into a score in [0,1], lower being
// closer. Both signals are aligned to their onsets and RMS-normalized first,
// so recording level and pre-roll silence do not count against the match.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		m.Score = 1.0
		return m
	}

	ref, refLag := trimToOnset(reference, 1e-4)
	cand, candLag := trimToOnset(candidate, 1e-4)
	m.LagSamples = candLag - refLag
	if len(ref) == 0 || len(cand) == 0 {
		m.Score = 1.0
		return m
	}

	ref = normalizeRMS(ref, 0.1)
	cand = normalizeRMS(cand, 0.1)

	n := len(ref)
	if len(cand) < n {
		n = len(cand)
	}
	if n < 2048 {
		m.Score = 1.0
		return m
	}
	maxFrames := sampleRate * 8
	if n > maxFrames {
		n = maxFrames
	}
	ref = ref[:n]
	cand = cand[:n]
	m.AlignedFrames = n

	m.RefFundamentalHz = Fundamental(ref, sampleRate)
	m.CandFundamentalHz = Fundamental(cand, sampleRate)
	if m.RefFundamentalHz > 0 && m.CandFundamentalHz > 0 {
		m.FundamentalCents = 1200.0 * math.Log2(m.CandFundamentalHz/m.RefFundamentalHz)
	}

	refEnv := RMSEnvelope(ref, 1024, 256)
	candEnv := RMSEnvelope(cand, 1024, 256)
	envN := len(refEnv)
	if len(candEnv) < envN {
		envN = len(candEnv)
	}
	if envN > 0 {
		var sum float64
		for i := 0; i < envN; i++ {
			d := linToDB(refEnv[i]) - linToDB(candEnv[i])
			sum += d * d
		}
		m.EnvelopeRMSEDB = math.Sqrt(sum / float64(envN))
	}

	m.SpectralRMSEDB = spectralRMSEDB(ref, cand)

	hopSec := 256.0 / float64(sampleRate)
	m.RefDecayDBPerS = DecaySlopeDBPerS(refEnv, hopSec)
	m.CandDecayDBPerS = DecaySlopeDBPerS(candEnv, hopSec)
	if isFinite(m.RefDecayDBPerS) && isFinite(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	pitchNorm := clamp01(math.Abs(m.FundamentalCents) / 100.0)
	envNorm := clamp01(m.EnvelopeRMSEDB / 30.0)
	specNorm := clamp01(m.SpectralRMSEDB / 30.0)
	decNorm := clamp01(m.DecayDiffDBPerS / 40.0)
	m.Score = clamp01(0.30*pitchNorm + 0.25*envNorm + 0.25*specNorm + 0.20*decNorm)
	return m
}

// trimToOnset drops leading samples below threshold and reports how many
// were dropped.
func trimToOnset(x []float64, threshold float64) ([]float64, int) {
	for i := 0; i < len(x); i++ {
		if math.Abs(x[i]) > threshold {
			return x[i:], i
		}
	}
	return nil, len(x)
}

func normalizeRMS(x []float64, target float64) []float64 {
	if len(x) == 0 {
		return x
	}
	r := rms(x)
	if r <= 1e-12 {
		return append([]float64(nil), x...)
	}
	g := target / r
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * g
	}
	return out
}

// spectralRMSEDB compares Hann-windowed magnitude spectra bin-by-bin in dB.
// Bin 0 is skipped; the comparison never penalizes DC offset twice.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2048 {
		return 0
	}
	if n > 8192 {
		n = 8192
	}
	specA, errA := Spectrum(a[:n], n)
	specB, errB := Spectrum(b[:n], n)
	if errA != nil || errB != nil {
		return 0
	}
	bins := len(specA)
	if len(specB) < bins {
		bins = len(specB)
	}
	if bins < 2 {
		return 0
	}
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(specA[k]) - linToDB(specB[k])
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}
