package kalimba

// Params holds the compiled-in instrument parameters that are not driven by
// a control channel.
type Params struct {
	// OutputGain scales the final stereo output.
	OutputGain float32
	// ExciteLevel is the noise-burst amplitude injected on trigger.
	ExciteLevel float32
	// Nonlinearity is the dispersion amount applied to every voice at init.
	Nonlinearity float32
	// ReverbDamp is the high-frequency damping of the reverb tail.
	ReverbDamp float32
	// VibratoDepth is the peak pitch deviation at full LFO depth (ratio).
	VibratoDepth float32
	// TremoloDepth is the peak amplitude dip at full LFO depth.
	TremoloDepth float32
	// SweepDepth is the peak brightness offset at full LFO depth.
	SweepDepth float32
}

// NewDefaultParams creates the default instrument voicing.
func NewDefaultParams() *Params {
	return &Params{
		OutputGain:   1.0,
		ExciteLevel:  0.5,
		Nonlinearity: 0.1,
		ReverbDamp:   0.35,
		VibratoDepth: 0.02,
		TremoloDepth: 0.5,
		SweepDepth:   0.3,
	}
}
