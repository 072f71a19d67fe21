// Package preset loads instrument presets from JSON. A preset file is a
// partial override: only the fields present change the defaults.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cwbudde/algo-kalimba/kalimba"
)

// File is the JSON schema for kalimba presets.
type File struct {
	OutputGain   *float32 `json:"output_gain"`
	ExciteLevel  *float32 `json:"excite_level"`
	Nonlinearity *float32 `json:"nonlinearity"`
	ReverbDamp   *float32 `json:"reverb_damp"`
	VibratoDepth *float32 `json:"vibrato_depth"`
	TremoloDepth *float32 `json:"tremolo_depth"`
	SweepDepth   *float32 `json:"sweep_depth"`

	Scale string        `json:"scale"`
	Notes []NoteSetting `json:"notes"`

	Controls map[string]float32 `json:"controls"`
}

// NoteSetting is one tine of a custom tuning. Damping and brightness are
// optional; missing values are derived from the frequency.
type NoteSetting struct {
	Name       string   `json:"name"`
	Frequency  float32  `json:"frequency"`
	Damping    *float32 `json:"damping"`
	Brightness *float32 `json:"brightness"`
}

// Preset is a fully resolved preset ready to construct an engine from.
type Preset struct {
	Params   *kalimba.Params
	Scale    kalimba.Scale
	Controls map[int]float32
}

var controlNames = map[string]int{
	"pitch":       kalimba.ChannelPitch,
	"decay":       kalimba.ChannelDecay,
	"brightness":  kalimba.ChannelBrightness,
	"excite":      kalimba.ChannelExcite,
	"lfo_rate":    kalimba.ChannelLFORate,
	"lfo_depth":   kalimba.ChannelLFODepth,
	"reverb_mix":  kalimba.ChannelReverbMix,
	"reverb_size": kalimba.ChannelReverbSize,
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
func LoadJSON(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := &Preset{
		Params:   kalimba.NewDefaultParams(),
		Scale:    kalimba.GMajorPentatonic(),
		Controls: make(map[int]float32),
	}
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing preset.
func ApplyFile(dst *Preset, f *File) error {
	if dst == nil || dst.Params == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}

	if f.OutputGain != nil {
		if *f.OutputGain <= 0 {
			return fmt.Errorf("output_gain must be > 0")
		}
		dst.Params.OutputGain = *f.OutputGain
	}
	if f.ExciteLevel != nil {
		if *f.ExciteLevel <= 0 || *f.ExciteLevel > 1 {
			return fmt.Errorf("excite_level must be in (0,1]")
		}
		dst.Params.ExciteLevel = *f.ExciteLevel
	}
	if f.Nonlinearity != nil {
		if *f.Nonlinearity < 0 || *f.Nonlinearity > 1 {
			return fmt.Errorf("nonlinearity must be in [0,1]")
		}
		dst.Params.Nonlinearity = *f.Nonlinearity
	}
	if f.ReverbDamp != nil {
		if *f.ReverbDamp < 0 || *f.ReverbDamp > 1 {
			return fmt.Errorf("reverb_damp must be in [0,1]")
		}
		dst.Params.ReverbDamp = *f.ReverbDamp
	}
	if f.VibratoDepth != nil {
		if *f.VibratoDepth < 0 || *f.VibratoDepth > 0.5 {
			return fmt.Errorf("vibrato_depth must be in [0,0.5]")
		}
		dst.Params.VibratoDepth = *f.VibratoDepth
	}
	if f.TremoloDepth != nil {
		if *f.TremoloDepth < 0 || *f.TremoloDepth > 1 {
			return fmt.Errorf("tremolo_depth must be in [0,1]")
		}
		dst.Params.TremoloDepth = *f.TremoloDepth
	}
	if f.SweepDepth != nil {
		if *f.SweepDepth < 0 || *f.SweepDepth > 1 {
			return fmt.Errorf("sweep_depth must be in [0,1]")
		}
		dst.Params.SweepDepth = *f.SweepDepth
	}

	if f.Scale != "" {
		s, err := kalimba.ScaleByName(f.Scale)
		if err != nil {
			return err
		}
		dst.Scale = s
	}
	if len(f.Notes) > 0 {
		s, err := customScale(f.Notes)
		if err != nil {
			return err
		}
		dst.Scale = s
	}

	keys := make([]string, 0, len(f.Controls))
	for k := range f.Controls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ch, ok := controlNames[k]
		if !ok {
			return fmt.Errorf("unknown control %q", k)
		}
		v := f.Controls[k]
		if v < 0 || v > 1 {
			return fmt.Errorf("control %q must be in [0,1]", k)
		}
		dst.Controls[ch] = v
	}
	return nil
}

func customScale(notes []NoteSetting) (kalimba.Scale, error) {
	if len(notes) > kalimba.MaxVoices {
		return kalimba.Scale{}, fmt.Errorf("too many notes: %d (max %d)", len(notes), kalimba.MaxVoices)
	}
	s := kalimba.Scale{Name: "Custom", Notes: make([]kalimba.ScaleNote, 0, len(notes))}
	for i, n := range notes {
		if n.Frequency < 20 || n.Frequency > 5000 {
			return kalimba.Scale{}, fmt.Errorf("notes[%d].frequency must be in [20,5000]", i)
		}
		note := kalimba.NoteForFrequency(n.Frequency)
		if n.Name != "" {
			note.Name = n.Name
		}
		if n.Damping != nil {
			if *n.Damping < 0 || *n.Damping > 1 {
				return kalimba.Scale{}, fmt.Errorf("notes[%d].damping must be in [0,1]", i)
			}
			note.Damping = *n.Damping
		}
		if n.Brightness != nil {
			if *n.Brightness < 0 || *n.Brightness > 1 {
				return kalimba.Scale{}, fmt.Errorf("notes[%d].brightness must be in [0,1]", i)
			}
			note.Brightness = *n.Brightness
		}
		s.Notes = append(s.Notes, note)
	}
	return s, nil
}
