package funkin

import (
	"reflect"
	"testing"
	"time"
)

type beatRecorder struct {
	beats []int
	steps []int
}

func (r *beatRecorder) OnBeatHit(beat int) { r.beats = append(r.beats, beat) }
func (r *beatRecorder) OnStepHit(step int) { r.steps = append(r.steps, step) }

type eventRecorder struct {
	events []BeatEvent
}

func (r *eventRecorder) EmitBeat(e BeatEvent) { r.events = append(r.events, e) }

func newTestBeatState(t *testing.T, bpm float64) (*BeatState, *ManualClock, *beatRecorder) {
	t.Helper()
	c := NewConductor()
	if err := c.SetBPM(bpm); err != nil {
		t.Fatal(err)
	}
	clock := &ManualClock{}
	rec := &beatRecorder{}
	return NewBeatState(c, clock, rec), clock, rec
}

func TestBeatStateFiresEachBeatOnce(t *testing.T) {
	b, clock, rec := newTestBeatState(t, 120)

	for clock.Ms <= 2000 {
		b.Update()
		clock.Advance(25 * time.Millisecond)
	}

	if want := []int{1, 2, 3, 4}; !reflect.DeepEqual(rec.beats, want) {
		t.Errorf("beats = %v, want %v", rec.beats, want)
	}
	if len(rec.steps) != 16 || rec.steps[0] != 1 || rec.steps[15] != 16 {
		t.Errorf("steps = %v, want 1..16", rec.steps)
	}
}

func TestBeatStateCatchesUpForward(t *testing.T) {
	b, clock, rec := newTestBeatState(t, 120)

	clock.Ms = 1000
	b.Update()

	if want := []int{1, 2, 3, 4, 5, 6, 7, 8}; !reflect.DeepEqual(rec.steps, want) {
		t.Errorf("steps = %v, want %v", rec.steps, want)
	}
	if want := []int{1, 2}; !reflect.DeepEqual(rec.beats, want) {
		t.Errorf("beats = %v, want %v", rec.beats, want)
	}
	if b.LastStep() != 8 {
		t.Errorf("LastStep() = %d, want 8", b.LastStep())
	}
}

func TestBeatStateBackwardJump(t *testing.T) {
	b, clock, rec := newTestBeatState(t, 120)
	clock.Ms = 1000
	b.Update()
	rec.beats, rec.steps = nil, nil

	// Loop restart lands mid-song: only the new step fires.
	clock.Ms = 250
	b.Update()
	if !reflect.DeepEqual(rec.steps, []int{2}) || rec.beats != nil {
		t.Errorf("after jump to 250ms: steps=%v beats=%v, want [2] []", rec.steps, rec.beats)
	}

	clock.Ms = 500
	b.Update()
	if !reflect.DeepEqual(rec.steps, []int{2, 3, 4}) || !reflect.DeepEqual(rec.beats, []int{1}) {
		t.Errorf("after 500ms: steps=%v beats=%v, want [2 3 4] [1]", rec.steps, rec.beats)
	}

	// Step 0 never fires.
	clock.Ms = 0
	b.Update()
	if len(rec.steps) != 3 || len(rec.beats) != 1 {
		t.Errorf("jump to 0 fired hits: steps=%v beats=%v", rec.steps, rec.beats)
	}
}

func TestBeatStateStoppedClock(t *testing.T) {
	b, clock, rec := newTestBeatState(t, 120)
	clock.Ms = 600
	b.Update()
	n := len(rec.steps)

	clock.Stopped = true
	clock.Ms = 5000
	for i := 0; i < 3; i++ {
		b.Update()
	}

	if len(rec.steps) != n {
		t.Errorf("stopped clock fired %d more steps", len(rec.steps)-n)
	}
	if b.Conductor.Position() != 600 {
		t.Errorf("Position() = %v, want 600", b.Conductor.Position())
	}
	if b.Conductor.Step() != 4 {
		t.Errorf("Step() = %d, want 4", b.Conductor.Step())
	}
}

func TestBeatStateNoHitsBeforeFirstStep(t *testing.T) {
	b, clock, rec := newTestBeatState(t, 120)
	for clock.Ms < 125 {
		b.Update()
		clock.Advance(10 * time.Millisecond)
	}
	if len(rec.steps) != 0 || len(rec.beats) != 0 {
		t.Errorf("hits before step 1: steps=%v beats=%v", rec.steps, rec.beats)
	}
}

func TestBeatStateStore(t *testing.T) {
	b, clock, _ := newTestBeatState(t, 120)
	store := &eventRecorder{}
	b.Store = store

	clock.Ms = 500
	b.Update()

	want := []BeatEvent{
		{Kind: StepHit, Step: 1, Beat: 0, PositionMs: 500},
		{Kind: StepHit, Step: 2, Beat: 0, PositionMs: 500},
		{Kind: StepHit, Step: 3, Beat: 0, PositionMs: 500},
		{Kind: StepHit, Step: 4, Beat: 1, PositionMs: 500},
		{Kind: BeatHit, Step: 4, Beat: 1, PositionMs: 500},
	}
	if !reflect.DeepEqual(store.events, want) {
		t.Errorf("events = %+v, want %+v", store.events, want)
	}
}

func TestBeatStateBeatFuncAndNilHandler(t *testing.T) {
	c := NewConductor()
	_ = c.SetBPM(120)
	clock := &ManualClock{Ms: 1000}

	var beats []int
	NewBeatState(c, clock, BeatFunc(func(beat int) { beats = append(beats, beat) })).Update()
	if !reflect.DeepEqual(beats, []int{1, 2}) {
		t.Errorf("beats = %v, want [1 2]", beats)
	}

	// No handler and no store.
	NewBeatState(NewConductor(), clock, nil).Update()
}

func TestBeatStateReset(t *testing.T) {
	b, clock, rec := newTestBeatState(t, 120)
	clock.Ms = 500
	b.Update()

	b.Reset()
	if b.LastStep() != 0 {
		t.Fatalf("LastStep() = %d after Reset, want 0", b.LastStep())
	}
	rec.beats = nil
	b.Update()
	if !reflect.DeepEqual(rec.beats, []int{1}) {
		t.Errorf("beats after Reset = %v, want [1]", rec.beats)
	}
}
