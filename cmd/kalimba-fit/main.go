// kalimba-fit tunes the voicing of one tine (damping, brightness,
// nonlinearity) so a rendered pluck matches either a reference recording or
// explicit decay/brightness targets.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-kalimba/analysis"
	"github.com/cwbudde/algo-kalimba/internal/wavutil"
	"github.com/cwbudde/algo-kalimba/kalimba"
	"github.com/cwbudde/algo-kalimba/preset"
)

type knobDef struct {
	Name string
	Min  float64
	Max  float64
}

var knobDefs = []knobDef{
	{Name: "damping", Min: 0.80, Max: 0.999},
	{Name: "brightness", Min: 0.0, Max: 1.0},
	{Name: "nonlinearity", Min: 0.0, Max: 0.6},
}

type fitConfig struct {
	scale       kalimba.Scale
	params      *kalimba.Params
	note        int
	sampleRate  int
	duration    float64
	reference   []float64
	targetT60   float64
	targetCentr float64
}

func main() {
	referencePath := flag.String("reference", "", "Reference pluck WAV path (optional)")
	presetPath := flag.String("preset", "", "Base preset JSON path (optional)")
	outputPreset := flag.String("output-preset", "fitted.json", "Path to write the fitted preset JSON")
	scaleName := flag.String("scale", "", "Built-in scale name, overrides preset")
	note := flag.Int("note", 0, "Tine index to fit")
	targetT60 := flag.Float64("target-t60", 2.0, "Target decay time in seconds (used without -reference)")
	targetCentroid := flag.Float64("target-centroid", 0.0, "Target spectral centroid in Hz, 0 to skip (used without -reference)")
	duration := flag.Float64("duration", 4.0, "Evaluation render duration in seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	seed := flag.Int64("seed", 1, "Random seed")
	maxEvals := flag.Int("max-evals", 600, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size")
	flag.Parse()

	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *duration < 1.0 {
		*duration = 1.0
	}

	params := kalimba.NewDefaultParams()
	scale := kalimba.GMajorPentatonic()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
		params = p.Params
		scale = p.Scale
	}
	if *scaleName != "" {
		s, err := kalimba.ScaleByName(*scaleName)
		if err != nil {
			die("%v", err)
		}
		scale = s
	}
	if *note < 0 || *note >= len(scale.Notes) {
		die("note must be in 0..%d", len(scale.Notes)-1)
	}

	cfg := &fitConfig{
		scale:       scale,
		params:      params,
		note:        *note,
		sampleRate:  *sampleRate,
		duration:    *duration,
		targetT60:   *targetT60,
		targetCentr: *targetCentroid,
	}
	if *referencePath != "" {
		raw, sr, err := wavutil.ReadMono(*referencePath)
		if err != nil {
			die("failed to read reference: %v", err)
		}
		cfg.reference, err = wavutil.ResampleIfNeeded(raw, sr, *sampleRate)
		if err != nil {
			die("failed to resample reference: %v", err)
		}
	}

	iters := *maxEvals / (2 * *mayflyPop)
	if iters < 1 {
		iters = 1
	}
	mcfg, err := newMayflyConfig(strings.ToLower(*mayflyVariant), *mayflyPop, len(knobDefs), iters)
	if err != nil {
		die("%v", err)
	}
	mcfg.Rand = rand.New(rand.NewSource(*seed))

	start := time.Now()
	evals := 0
	bestScore := math.Inf(1)
	bestVals := make([]float64, len(knobDefs))
	mcfg.ObjectiveFunc = func(pos []float64) float64 {
		evals++
		vals := fromNormalized(pos)
		score := evaluate(cfg, vals)
		if score < bestScore {
			bestScore = score
			copy(bestVals, vals)
			fmt.Printf("Improved eval=%d score=%.4f damping=%.4f brightness=%.3f nonlinearity=%.3f\n",
				evals, score, vals[0], vals[1], vals[2])
		}
		if *reportEvery > 0 && evals%*reportEvery == 0 {
			fmt.Printf("Progress eval=%d/%d elapsed=%.1fs best=%.4f\n",
				evals, *maxEvals, time.Since(start).Seconds(), bestScore)
		}
		return score
	}

	if _, err := runMayfly(mcfg); err != nil {
		die("optimization failed: %v", err)
	}
	if math.IsInf(bestScore, 1) {
		die("no successful evaluation")
	}

	if err := writeFittedPreset(*outputPreset, cfg, bestVals); err != nil {
		die("failed to write preset: %v", err)
	}
	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f -> %s\n",
		evals, time.Since(start).Seconds(), bestScore, *outputPreset)
}

func fromNormalized(pos []float64) []float64 {
	vals := make([]float64, len(knobDefs))
	for i, d := range knobDefs {
		p := pos[i]
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		vals[i] = d.Min + p*(d.Max-d.Min)
	}
	return vals
}

// evaluate renders a single dry pluck with the candidate voicing and scores
// it against the reference or the explicit targets. Lower is better.
func evaluate(cfg *fitConfig, vals []float64) float64 {
	mono := renderPluck(cfg, vals)
	if len(mono) == 0 {
		return 10.0
	}

	if cfg.reference != nil {
		return analysis.Compare(cfg.reference, mono, cfg.sampleRate).Score
	}

	t60 := analysis.DecayTimeT60(mono, cfg.sampleRate)
	if math.IsNaN(t60) {
		return 5.0
	}
	score := math.Abs(t60-cfg.targetT60) / cfg.targetT60
	if cfg.targetCentr > 0 {
		c := analysis.SpectralCentroid(mono, cfg.sampleRate)
		score += math.Abs(c-cfg.targetCentr) / cfg.targetCentr
	}
	return score
}

func renderPluck(cfg *fitConfig, vals []float64) []float64 {
	scale := cfg.scale
	notes := make([]kalimba.ScaleNote, len(scale.Notes))
	copy(notes, scale.Notes)
	notes[cfg.note].Damping = float32(vals[0])
	notes[cfg.note].Brightness = float32(vals[1])
	scale.Notes = notes

	params := *cfg.params
	params.Nonlinearity = float32(vals[2])

	eng := kalimba.NewEngine(cfg.sampleRate, kalimba.ModePoly, scale, &params)
	eng.SetControl(kalimba.ChannelReverbMix, 0)
	eng.SetControl(kalimba.ChannelLFODepth, 0)
	src := &singlePress{button: cfg.note, armed: true}
	eng.SetDigitalSource(src)

	const blockSize = 128
	frames := int(cfg.duration * float64(cfg.sampleRate))
	stereo := make([]float32, 0, frames*2)
	block := make([]float32, blockSize*2)
	for rendered := 0; rendered < frames; {
		n := blockSize
		if rendered+n > frames {
			n = frames - rendered
		}
		out := block[:n*2]
		eng.ProcessBlock(out)
		stereo = append(stereo, out...)
		rendered += n
	}
	return wavutil.StereoToMono64(stereo)
}

type singlePress struct {
	button int
	armed  bool
}

func (s *singlePress) Pressed(button int) bool {
	if s.armed && button == s.button {
		s.armed = false
		return true
	}
	return false
}

func writeFittedPreset(path string, cfg *fitConfig, vals []float64) error {
	f := preset.File{
		Nonlinearity: ptr(float32(vals[2])),
		Notes:        make([]preset.NoteSetting, len(cfg.scale.Notes)),
	}
	for i, n := range cfg.scale.Notes {
		f.Notes[i] = preset.NoteSetting{
			Name:       n.Name,
			Frequency:  n.Frequency,
			Damping:    ptr(n.Damping),
			Brightness: ptr(n.Brightness),
		}
	}
	f.Notes[cfg.note].Damping = ptr(float32(vals[0]))
	f.Notes[cfg.note].Brightness = ptr(float32(vals[1]))

	b, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func ptr(v float32) *float32 {
	return &v
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = 1
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
