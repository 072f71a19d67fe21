package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"golang.org/x/term"

	"github.com/cwbudde/algo-kalimba/kalimba"
	"github.com/cwbudde/algo-kalimba/preset"
)

const renderBlockFrames = 256

// keySource turns keyboard presses into button events. Pressed reports and
// clears the edge, so each keystroke plucks exactly once.
type keySource struct {
	pending [kalimba.MaxVoices]atomic.Bool
}

func (s *keySource) press(button int) {
	if button >= 0 && button < kalimba.MaxVoices {
		s.pending[button].Store(true)
	}
}

func (s *keySource) Pressed(button int) bool {
	if button < 0 || button >= kalimba.MaxVoices {
		return false
	}
	return s.pending[button].Swap(false)
}

// engineReader adapts the engine's block renderer to the io.Reader the audio
// backend pulls from, encoding float32 little-endian.
type engineReader struct {
	eng   *kalimba.Engine
	block []float32
}

func newEngineReader(eng *kalimba.Engine) *engineReader {
	return &engineReader{
		eng:   eng,
		block: make([]float32, renderBlockFrames*2),
	}
}

func (r *engineReader) Read(p []byte) (int, error) {
	written := 0
	for written+8 <= len(p) {
		frames := (len(p) - written) / 8
		if frames > renderBlockFrames {
			frames = renderBlockFrames
		}
		out := r.block[:frames*2]
		r.eng.ProcessBlock(out)
		for _, s := range out {
			binary.LittleEndian.PutUint32(p[written:], math.Float32bits(s))
			written += 4
		}
	}
	return written, nil
}

func main() {
	mode := flag.String("mode", "poly", "Instrument mode: solo or poly")
	scaleName := flag.String("scale", "", "Built-in scale name (poly mode), overrides preset")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	sampleRate := flag.Int("sample-rate", 48000, "Playback sample rate in Hz")
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

	keys := &keySource{}
	if engMode == kalimba.ModePoly {
		eng.SetDigitalSource(keys)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating audio context: %v\n", err)
		os.Exit(1)
	}
	<-ready

	player := ctx.NewPlayer(newEngineReader(eng))
	player.Play()
	defer player.Close()

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error entering raw mode: %v\n", err)
		os.Exit(1)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	if engMode == kalimba.ModePoly {
		loaded := eng.Scale()
		fmt.Printf("Scale: %s. Keys 1-%d pluck, q quits.\r\n", loaded.Name, eng.NumVoices())
		for i := 0; i < eng.NumVoices() && i < len(loaded.Notes); i++ {
			note := loaded.Notes[i]
			fmt.Printf("  %d: %-4s %7.2f Hz\r\n", i+1, note.Name, note.Frequency)
		}
	} else {
		fmt.Printf("Solo mode. m toggles auto/level trigger, q quits.\r\n")
	}

	quit := make(chan struct{})
	go statusLoop(eng, quit)

	buf := make([]byte, 1)
	levelMode := false
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			break
		}
		c := buf[0]
		if c == 'q' || c == 3 {
			break
		}
		switch {
		case c >= '1' && c <= '9':
			keys.press(int(c - '1'))
		case c == 'm' && engMode == kalimba.ModeSolo:
			levelMode = !levelMode
			if levelMode {
				eng.SetTriggerMode(kalimba.TriggerLevel)
			} else {
				eng.SetTriggerMode(kalimba.TriggerAuto)
			}
		}
	}
	close(quit)
	fmt.Printf("\r\n")
}

// statusLoop prints a single status line at roughly 10 Hz until quit closes.
func statusLoop(eng *kalimba.Engine, quit chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			s := eng.Snapshot()
			notes := make([]byte, eng.NumVoices())
			for i := range notes {
				if s.ActiveNotes[i] {
					notes[i] = '*'
				} else {
					notes[i] = '.'
				}
			}
			pulse := ' '
			if s.TriggerPulse {
				pulse = '!'
			}
			fmt.Printf("\r[%s]%c f=%6.1fHz damp=%.2f bright=%.2f rev=%.2f lfo=%.1fHz/%.2f  ",
				notes, pulse, s.Frequency, s.Damping, s.Brightness,
				s.ReverbMix, s.LFORate, s.LFODepth)
		}
	}
}
