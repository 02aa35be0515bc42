package funkin

// BeatHandler receives beat hits. Game states implement it to start dance or
// bump animations.
type BeatHandler interface {
	OnBeatHit(beat int)
}

// StepHandler receives every step hit. Optional; a BeatState checks its
// handler for it.
type StepHandler interface {
	OnStepHit(step int)
}

// BeatFunc adapts a function to BeatHandler.
type BeatFunc func(beat int)

// OnBeatHit implements BeatHandler.
func (f BeatFunc) OnBeatHit(beat int) { f(beat) }

// BeatEventKind distinguishes step and beat hits.
type BeatEventKind uint8

const (
	StepHit BeatEventKind = iota // fires on every new step > 0
	BeatHit                      // fires on steps divisible by StepsPerBeat
)

// BeatEvent carries one hit for a BeatStore.
type BeatEvent struct {
	Kind       BeatEventKind
	Step       int
	Beat       int
	PositionMs float64
}

// BeatStore is the interface for optional ECS integration. When set on a
// BeatState, every hit is forwarded to it.
type BeatStore interface {
	EmitBeat(event BeatEvent)
}

// BeatState watches a Conductor for step and beat transitions. Call Update
// once per simulation tick.
type BeatState struct {
	Conductor *Conductor
	Clock     PlaybackClock
	Handler   BeatHandler
	Store     BeatStore

	lastStep int
}

// NewBeatState wires a conductor to a clock and handler. handler may also
// implement StepHandler.
func NewBeatState(c *Conductor, clock PlaybackClock, handler BeatHandler) *BeatState {
	return &BeatState{Conductor: c, Clock: clock, Handler: handler}
}

// Update feeds the clock position to the conductor and fires hits for the
// steps crossed since the previous tick. A stopped clock leaves the
// conductor at its last position.
//
// Forward movement fires every step in (previous, current]; a backwards jump
// such as a loop restart fires only the new step. Step 0 never fires.
func (b *BeatState) Update() {
	if b.Clock != nil && b.Clock.Playing() {
		b.Conductor.Tick(b.Clock.PositionMs())
	} else {
		b.Conductor.Tick(b.Conductor.Position())
	}

	prev := b.lastStep
	cur := b.Conductor.Step()
	b.lastStep = cur
	if cur == prev {
		return
	}

	if cur < prev {
		b.stepHit(cur)
		return
	}
	for s := prev + 1; s <= cur; s++ {
		b.stepHit(s)
	}
}

// Reset forgets the last seen step, e.g. when a new song starts.
func (b *BeatState) Reset() {
	b.lastStep = 0
}

// LastStep returns the step seen by the previous Update.
func (b *BeatState) LastStep() int { return b.lastStep }

func (b *BeatState) stepHit(step int) {
	if step <= 0 {
		return
	}
	pos := b.Conductor.Position()
	if sh, ok := b.Handler.(StepHandler); ok {
		sh.OnStepHit(step)
	}
	if b.Store != nil {
		b.Store.EmitBeat(BeatEvent{Kind: StepHit, Step: step, Beat: floorDiv(step, StepsPerBeat), PositionMs: pos})
	}
	if step%StepsPerBeat != 0 {
		return
	}
	beat := step / StepsPerBeat
	debugf("beat %d (step %d) at %.1fms", beat, step, pos)
	if b.Handler != nil {
		b.Handler.OnBeatHit(beat)
	}
	if b.Store != nil {
		b.Store.EmitBeat(BeatEvent{Kind: BeatHit, Step: step, Beat: beat, PositionMs: pos})
	}
}
