package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-kalimba/internal/wavutil"
	"github.com/cwbudde/algo-kalimba/kalimba"
	"github.com/cwbudde/algo-kalimba/preset"
)

// pressSource queues button presses for the engine to consume at the next
// block boundary.
type pressSource struct {
	pending [kalimba.MaxVoices]bool
}

func (s *pressSource) press(button int) {
	if button >= 0 && button < kalimba.MaxVoices {
		s.pending[button] = true
	}
}

func (s *pressSource) Pressed(button int) bool {
	if button < 0 || button >= kalimba.MaxVoices {
		return false
	}
	p := s.pending[button]
	s.pending[button] = false
	return p
}

func main() {
	mode := flag.String("mode", "poly", "Instrument mode: solo or poly")
	scaleName := flag.String("scale", "", "Built-in scale name (poly mode), overrides preset")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	pattern := flag.String("pattern", "0,1,2,3,4,5,6", "Comma-separated button indices to play (poly mode)")
	noteInterval := flag.Float64("note-interval", 0.5, "Seconds between pattern steps (poly mode)")
	trigger := flag.String("trigger", "auto", "Solo trigger mode: auto or level")
	duration := flag.Float64("duration", 6.0, "Duration in seconds")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Auto-stop when stereo block RMS falls below this dBFS (e.g. -90). Disabled by default")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop in auto-decay mode")
	maxDuration := flag.Float64("max-duration", 30.0, "Maximum render duration in seconds when using -decay-dbfs")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	output := flag.String("output", "output.wav", "Output WAV file path")

	controlFlags := map[int]*float64{
		kalimba.ChannelPitch:      flag.Float64("pitch", -1, "Pitch control in [0,1] (solo mode)"),
		kalimba.ChannelDecay:      flag.Float64("decay", -1, "Decay control in [0,1]"),
		kalimba.ChannelBrightness: flag.Float64("brightness", -1, "Brightness control in [0,1]"),
		kalimba.ChannelExcite:     flag.Float64("excite", -1, "Excite control in [0,1]"),
		kalimba.ChannelLFORate:    flag.Float64("lfo-rate", -1, "LFO rate control in [0,1]"),
		kalimba.ChannelLFODepth:   flag.Float64("lfo-depth", -1, "LFO depth control in [0,1]"),
		kalimba.ChannelReverbMix:  flag.Float64("reverb-mix", -1, "Reverb mix control in [0,1]"),
		kalimba.ChannelReverbSize: flag.Float64("reverb-size", -1, "Reverb size control in [0,1]"),
	}
	flag.Parse()

	params := kalimba.NewDefaultParams()
	scale := kalimba.GMajorPentatonic()
	controls := map[int]float32{}
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		params = p.Params
		scale = p.Scale
		controls = p.Controls
	}
	if *scaleName != "" {
		s, err := kalimba.ScaleByName(*scaleName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		scale = s
	}

	engMode := kalimba.ModePoly
	if *mode == "solo" {
		engMode = kalimba.ModeSolo
	} else if *mode != "poly" {
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q (use solo or poly)\n", *mode)
		os.Exit(1)
	}

	eng := kalimba.NewEngine(*sampleRate, engMode, scale, params)
	for ch, v := range controls {
		eng.SetControl(ch, v)
	}
	for ch, v := range controlFlags {
		if *v >= 0 {
			eng.SetControl(ch, float32(*v))
		}
	}

	var steps []int
	src := &pressSource{}
	if engMode == kalimba.ModePoly {
		var err error
		steps, err = parsePattern(*pattern, eng.NumVoices())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		eng.SetDigitalSource(src)
	} else {
		switch *trigger {
		case "auto":
			eng.SetTriggerMode(kalimba.TriggerAuto)
		case "level":
			eng.SetTriggerMode(kalimba.TriggerLevel)
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown trigger mode %q (use auto or level)\n", *trigger)
			os.Exit(1)
		}
	}

	fmt.Printf("Rendering %s mode, scale %q, %.2f seconds at %d Hz...\n",
		*mode, scale.Name, *duration, *sampleRate)

	const blockSize = 128
	autoStop := !math.IsInf(*decayDBFS, 1)

	minFrames := int(float64(*sampleRate) * (*duration))
	if minFrames < blockSize {
		minFrames = blockSize
	}
	maxFrames := minFrames
	if autoStop {
		maxFrames = int(float64(*sampleRate) * (*maxDuration))
		if maxFrames < minFrames {
			maxFrames = minFrames
		}
	}

	intervalFrames := int(*noteInterval * float64(*sampleRate))
	if intervalFrames < 1 {
		intervalFrames = 1
	}

	thresholdLin := math.Pow(10.0, *decayDBFS/20.0)
	if *decayHoldBlocks < 1 {
		*decayHoldBlocks = 1
	}

	samples := make([]float32, 0, minFrames*2)
	block := make([]float32, blockSize*2)
	framesRendered := 0
	step := 0
	nextTrigger := 0
	belowCount := 0

	for framesRendered < maxFrames {
		if engMode == kalimba.ModePoly && step < len(steps) && framesRendered >= nextTrigger {
			src.press(steps[step])
			step++
			nextTrigger += intervalFrames
		}

		framesToRender := blockSize
		if framesRendered+framesToRender > maxFrames {
			framesToRender = maxFrames - framesRendered
		}
		out := block[:framesToRender*2]
		eng.ProcessBlock(out)
		samples = append(samples, out...)
		framesRendered += framesToRender

		if autoStop && framesRendered >= minFrames && step >= len(steps) {
			if wavutil.StereoRMS(out) < thresholdLin {
				belowCount++
				if belowCount >= *decayHoldBlocks {
					break
				}
			} else {
				belowCount = 0
			}
		}
		if !autoStop && framesRendered >= minFrames {
			break
		}
	}

	if err := wavutil.WriteStereoInterleaved(*output, samples, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, framesRendered)
}

func parsePattern(raw string, numVoices int) ([]int, error) {
	parts := strings.Split(raw, ",")
	steps := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n >= numVoices {
			return nil, fmt.Errorf("invalid pattern step %q (expected 0..%d)", p, numVoices-1)
		}
		steps = append(steps, n)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("empty pattern")
	}
	return steps, nil
}
