package dsp

// ADSR stages.
const (
	StageIdle = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

// ADSR is a linear-segment envelope generator driven one sample at a time.
// Release starts from whatever level was current at note off, so an early
// release never jumps.
type ADSR struct {
	attackSamples  int
	decaySamples   int
	sustainLevel   float64
	releaseSamples int

	stage       int
	stagePos    int
	level       float64
	releaseFrom float64
}

// NewADSR builds an envelope with times in seconds. Zero-length stages are
// treated as one sample landing on the stage target, so a zero attack hits
// full level immediately.
func NewADSR(attack, decay, sustain, release float64, sampleRate int) *ADSR {
	secs := func(s float64) int {
		n := int(s * float64(sampleRate))
		if n < 1 {
			n = 1
		}
		return n
	}
	return &ADSR{
		attackSamples:  secs(attack),
		decaySamples:   secs(decay),
		sustainLevel:   clampF(sustain, 0, 1),
		releaseSamples: secs(release),
	}
}

// NoteOn starts (or restarts) the envelope from the attack stage.
func (e *ADSR) NoteOn() {
	e.stage = StageAttack
	e.stagePos = 0
}

// NoteOff moves to the release stage from the current level. Calling it again
// while already releasing has no effect.
func (e *ADSR) NoteOff() {
	if e.stage == StageRelease || e.stage == StageIdle {
		return
	}
	e.releaseFrom = e.level
	e.stage = StageRelease
	e.stagePos = 0
}

// Next advances one sample and returns the envelope level in [0, 1].
func (e *ADSR) Next() float64 {
	switch e.stage {
	case StageAttack:
		e.stagePos++
		e.level = float64(e.stagePos) / float64(e.attackSamples)
		if e.stagePos >= e.attackSamples {
			e.stage = StageDecay
			e.stagePos = 0
		}
	case StageDecay:
		e.stagePos++
		t := float64(e.stagePos) / float64(e.decaySamples)
		e.level = 1 - t*(1-e.sustainLevel)
		if e.stagePos >= e.decaySamples {
			e.stage = StageSustain
			e.stagePos = 0
		}
	case StageSustain:
		e.level = e.sustainLevel
	case StageRelease:
		e.stagePos++
		t := float64(e.stagePos) / float64(e.releaseSamples)
		e.level = e.releaseFrom * (1 - t)
		if e.stagePos >= e.releaseSamples {
			e.stage = StageIdle
			e.level = 0
		}
	default:
		e.level = 0
	}
	return e.level
}

// Active reports whether the envelope is still producing output.
func (e *ADSR) Active() bool {
	return e.stage != StageIdle
}

// Stage returns the current stage constant.
func (e *ADSR) Stage() int {
	return e.stage
}
