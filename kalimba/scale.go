package kalimba

import "fmt"

// ScaleNote is one tine of a tuning: fundamental plus the per-note damping
// and brightness that give the instrument its tonal balance (low notes
// sustain longer and sound warmer, high notes decay faster and brighter).
type ScaleNote struct {
	Name       string
	Frequency  float32
	Damping    float32
	Brightness float32
}

// Scale is a data-driven tuning table. Note order maps 1:1 to buttons,
// laid out center-out like physical kalimba tines.
type Scale struct {
	Name  string
	Notes []ScaleNote
}

// GMajorPentatonic is the traditional kalimba tuning, with per-note damping
// and brightness voiced by ear on the hardware instrument.
func GMajorPentatonic() Scale {
	return Scale{
		Name: "G Major Pentatonic",
		Notes: []ScaleNote{
			{Name: "G4", Frequency: 392.00, Damping: 0.96, Brightness: 0.82},
			{Name: "A3", Frequency: 220.00, Damping: 0.98, Brightness: 0.70},
			{Name: "B4", Frequency: 493.88, Damping: 0.87, Brightness: 0.90},
			{Name: "D4", Frequency: 293.66, Damping: 0.94, Brightness: 0.76},
			{Name: "E4", Frequency: 329.63, Damping: 0.92, Brightness: 0.78},
			{Name: "G3", Frequency: 196.00, Damping: 0.98, Brightness: 0.70},
			{Name: "A4", Frequency: 440.00, Damping: 0.90, Brightness: 0.85},
		},
	}
}

// CMajorPentatonic is a computed equal-temperament tuning using the same
// frequency-dependent damping/brightness rules.
func CMajorPentatonic() Scale {
	return computedScale("C Major Pentatonic", []scaleDegree{
		{"C5", 72}, {"D4", 62}, {"E5", 76}, {"G4", 67}, {"A4", 69}, {"C4", 60}, {"D5", 74},
	})
}

// AMinorPentatonic is a computed equal-temperament tuning using the same
// frequency-dependent damping/brightness rules.
func AMinorPentatonic() Scale {
	return computedScale("A Minor Pentatonic", []scaleDegree{
		{"A4", 69}, {"E4", 64}, {"C5", 72}, {"D4", 62}, {"G4", 67}, {"A3", 57}, {"E5", 76},
	})
}

// SoloScale is the single-voice tuning used by the solo (machine) mode; the
// pitch pot overrides the frequency, and damping/brightness multipliers act
// on a neutral base.
func SoloScale() Scale {
	return Scale{
		Name: "Solo",
		Notes: []ScaleNote{
			{Name: "A3", Frequency: 220.0, Damping: 1.0, Brightness: 1.0},
		},
	}
}

// Scales lists the built-in polyphonic tunings.
func Scales() []Scale {
	return []Scale{GMajorPentatonic(), CMajorPentatonic(), AMinorPentatonic()}
}

// ScaleByName finds a built-in scale by name.
func ScaleByName(name string) (Scale, error) {
	for _, s := range Scales() {
		if s.Name == name {
			return s, nil
		}
	}
	return Scale{}, fmt.Errorf("unknown scale %q", name)
}

// NoteForFrequency builds a note at an arbitrary frequency with damping and
// brightness derived from the hand-voiced trend. Used for custom tunings.
func NoteForFrequency(f float32) ScaleNote {
	return ScaleNote{
		Name:       fmt.Sprintf("%.0fHz", f),
		Frequency:  f,
		Damping:    dampingForFrequency(f),
		Brightness: brightnessForFrequency(f),
	}
}

type scaleDegree struct {
	name string
	note int
}

func computedScale(name string, degrees []scaleDegree) Scale {
	s := Scale{Name: name, Notes: make([]ScaleNote, 0, len(degrees))}
	for _, d := range degrees {
		f := midiNoteToFreq(d.note)
		s.Notes = append(s.Notes, ScaleNote{
			Name:       d.name,
			Frequency:  f,
			Damping:    dampingForFrequency(f),
			Brightness: brightnessForFrequency(f),
		})
	}
	return s
}

// dampingForFrequency reproduces the hand-voiced trend of the G major table:
// roughly -0.08 damping per octave above G3, bounded to a musical range.
func dampingForFrequency(f float32) float32 {
	d := 0.98 - 0.08*log2f(f/196.0)
	return clampf(d, 0.85, 0.98)
}

// brightnessForFrequency reproduces the hand-voiced trend of the G major
// table: warm low tines, bright high tines.
func brightnessForFrequency(f float32) float32 {
	b := 0.70 + 0.15*log2f(f/196.0)
	return clampf(b, 0.65, 0.92)
}
