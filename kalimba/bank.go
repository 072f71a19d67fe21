package kalimba

// MaxVoices is the largest supported polyphony (one voice per tine/button).
const MaxVoices = 7

// VoiceBank owns a fixed set of resonators, one per playable note. Voice
// order is meaningful: index i maps to button i and to the i-th scale degree.
type VoiceBank struct {
	voices  []*StringResonator
	pending []bool

	baseFrequency  []float32
	baseDamping    []float32
	baseBrightness []float32
	effBrightness  []float32

	exciteLevel float32
	mixScale    float32
}

// NewVoiceBank builds one resonator per scale note. Scales with more than
// MaxVoices notes are truncated; an empty scale gets a single default voice.
func NewVoiceBank(sampleRate int, scale Scale) *VoiceBank {
	notes := scale.Notes
	if len(notes) == 0 {
		notes = []ScaleNote{{Name: "A3", Frequency: 220.0, Damping: 0.9, Brightness: 0.5}}
	}
	if len(notes) > MaxVoices {
		notes = notes[:MaxVoices]
	}

	n := len(notes)
	b := &VoiceBank{
		voices:         make([]*StringResonator, n),
		pending:        make([]bool, n),
		baseFrequency:  make([]float32, n),
		baseDamping:    make([]float32, n),
		baseBrightness: make([]float32, n),
		effBrightness:  make([]float32, n),
		exciteLevel:    0.5,
		mixScale:       1.0 / float32(n),
	}
	for i, note := range notes {
		v := NewStringResonator(sampleRate, note.Frequency)
		v.SetDamping(note.Damping)
		v.SetBrightness(note.Brightness)
		b.voices[i] = v
		b.baseFrequency[i] = v.Frequency()
		b.baseDamping[i] = clamp01(note.Damping)
		b.baseBrightness[i] = clamp01(note.Brightness)
		b.effBrightness[i] = b.baseBrightness[i]
	}
	return b
}

// NumVoices returns the bank size.
func (b *VoiceBank) NumVoices() int {
	return len(b.voices)
}

// Voice exposes a resonator for per-voice configuration at setup time.
func (b *VoiceBank) Voice(i int) *StringResonator {
	return b.voices[i]
}

// SetExciteLevel sets the noise-burst amplitude used on trigger.
func (b *VoiceBank) SetExciteLevel(level float32) {
	b.exciteLevel = clampf(level, 0.0, 2.0)
}

// SetNonlinearity applies the same dispersion amount to every voice.
// Typically called once at init, not at control rate.
func (b *VoiceBank) SetNonlinearity(amount float32) {
	for _, v := range b.voices {
		v.SetNonlinearity(amount)
	}
}

// SetVoiceFrequency retunes the base frequency of one voice. The index must
// be valid; callers validate at the trigger/control boundary.
func (b *VoiceBank) SetVoiceFrequency(i int, f float32) {
	b.voices[i].SetFrequency(f)
	b.baseFrequency[i] = b.voices[i].Frequency()
}

// Trigger marks a voice for re-excitation; the flag is consumed by the next
// ProcessSample. The index must be valid; callers validate at the
// trigger/control boundary.
func (b *VoiceBank) Trigger(i int) {
	b.pending[i] = true
}

// SetGlobalDamping scales every voice's base damping by mult, clamped to
// [0,1]. Called once per control block.
func (b *VoiceBank) SetGlobalDamping(mult float32) {
	for i, v := range b.voices {
		v.SetDamping(clamp01(b.baseDamping[i] * mult))
	}
}

// SetGlobalBrightness scales every voice's base brightness by mult, clamped
// to [0,1]. Called once per control block.
func (b *VoiceBank) SetGlobalBrightness(mult float32) {
	for i, v := range b.voices {
		b.effBrightness[i] = clamp01(b.baseBrightness[i] * mult)
		v.SetBrightness(b.effBrightness[i])
	}
}

// ApplyPitchModulation retunes every voice to base frequency times ratio
// (vibrato). Safe to call per sample.
func (b *VoiceBank) ApplyPitchModulation(ratio float32) {
	for i, v := range b.voices {
		v.SetFrequency(b.baseFrequency[i] * ratio)
	}
}

// ApplyBrightnessModulation offsets the block-rate effective brightness of
// every voice (filter sweep). Safe to call per sample.
func (b *VoiceBank) ApplyBrightnessModulation(offset float32) {
	for i, v := range b.voices {
		v.SetBrightness(clamp01(b.effBrightness[i] + offset))
	}
}

// ProcessSample consumes pending excitation flags, advances every voice by
// one sample and returns the 1/N-scaled mix.
func (b *VoiceBank) ProcessSample() float32 {
	var sum float32
	for i, v := range b.voices {
		if b.pending[i] {
			b.pending[i] = false
			v.Excite(b.exciteLevel)
		}
		sum += v.Process()
	}
	return sum * b.mixScale
}
