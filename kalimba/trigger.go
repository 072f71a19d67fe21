package kalimba

// TriggerMode selects how excitation events are generated.
type TriggerMode int

const (
	// TriggerAuto fires from a free-running sample counter.
	TriggerAuto TriggerMode = iota
	// TriggerLevel fires on a rising edge of a control channel crossing the
	// threshold, gated by a lockout interval.
	TriggerLevel
	// TriggerButton fires only from discrete button events; the engine feeds
	// those to the bank directly, bypassing the lockout.
	TriggerButton
)

const (
	// LockoutSamples is the minimum interval between level-mode triggers:
	// 100 ms at 48 kHz.
	LockoutSamples = 4800

	// A level must fall this far below the threshold before it can re-arm.
	triggerHysteresis = 0.05
)

// TriggerEngine decides, once per sample, whether the solo voice should be
// re-excited.
type TriggerEngine struct {
	mode TriggerMode

	intervalSamples int
	counter         int

	threshold float32
	above     bool
	lockout   int
}

// NewTriggerEngine creates an engine with a 2-second auto interval.
func NewTriggerEngine(sampleRate int) *TriggerEngine {
	return &TriggerEngine{
		mode:            TriggerAuto,
		intervalSamples: 2 * sampleRate,
		threshold:       0.8,
	}
}

// SetMode switches trigger mode and resets the timers, so a stale auto
// counter or lockout never carries across modes.
func (t *TriggerEngine) SetMode(mode TriggerMode) {
	t.mode = mode
	t.counter = 0
	t.lockout = 0
	t.above = false
}

// Mode returns the current trigger mode.
func (t *TriggerEngine) Mode() TriggerMode {
	return t.mode
}

// SetAutoInterval sets the auto-trigger period in samples; control-rate only.
func (t *TriggerEngine) SetAutoInterval(samples int) {
	if samples < 1 {
		samples = 1
	}
	t.intervalSamples = samples
}

// SetThreshold sets the level-mode firing threshold; control-rate only.
func (t *TriggerEngine) SetThreshold(v float32) {
	t.threshold = clamp01(v)
}

// Tick advances the engine by one sample and reports whether to fire. level
// is the current excite-channel reading; it is ignored in auto mode.
func (t *TriggerEngine) Tick(level float32) bool {
	switch t.mode {
	case TriggerAuto:
		t.counter++
		if t.counter >= t.intervalSamples {
			t.counter = 0
			return true
		}
		return false

	case TriggerLevel:
		if t.lockout > 0 {
			t.lockout--
		}
		if !t.above && level > t.threshold {
			t.above = true
			if t.lockout == 0 {
				t.lockout = LockoutSamples
				return true
			}
			return false
		}
		if t.above && level < t.threshold-triggerHysteresis {
			t.above = false
		}
		return false
	}

	// Button mode: discrete events go straight to the bank.
	return false
}
