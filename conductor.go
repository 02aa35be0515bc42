package funkin

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultBPM is the tempo a Conductor starts with before a song sets one.
const DefaultBPM = 100

// StepsPerBeat is the number of steps in one beat.
const StepsPerBeat = 4

// ErrInvalidBPM is returned for tempos that are not finite and positive.
var ErrInvalidBPM = errors.New("invalid bpm")

// BpmChangeEvent is a tempo change taking effect at SongTime (ms), which
// corresponds to step StepTime of the song.
type BpmChangeEvent struct {
	StepTime    int
	SongTime    float64
	BPM         float64
	StepCrochet float64 // ms per step at BPM
}

// NewBpmChangeEvent builds an event with StepCrochet derived from bpm.
func NewBpmChangeEvent(stepTime int, songTime, bpm float64) BpmChangeEvent {
	return BpmChangeEvent{
		StepTime:    stepTime,
		SongTime:    songTime,
		BPM:         bpm,
		StepCrochet: stepCrochetFor(bpm),
	}
}

// TempoChange declares a tempo switch at a song step, as written in song
// configuration. BuildTimeline converts a list of them into song times.
type TempoChange struct {
	Step int     `yaml:"step"`
	BPM  float64 `yaml:"bpm"`
}

// BuildTimeline turns step-based tempo changes into a timeline of
// BpmChangeEvents, accumulating song time segment by segment from baseBPM.
func BuildTimeline(baseBPM float64, changes []TempoChange) ([]BpmChangeEvent, error) {
	if !validBPM(baseBPM) {
		return nil, fmt.Errorf("funkin: base tempo %v: %w", baseBPM, ErrInvalidBPM)
	}
	sorted := make([]TempoChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Step < sorted[j].Step })

	events := make([]BpmChangeEvent, 0, len(sorted))
	curBPM := baseBPM
	curStep := 0
	curTime := 0.0
	for _, c := range sorted {
		if !validBPM(c.BPM) {
			return nil, fmt.Errorf("funkin: tempo change at step %d: %w", c.Step, ErrInvalidBPM)
		}
		if c.Step < 0 {
			return nil, fmt.Errorf("funkin: tempo change at negative step %d", c.Step)
		}
		curTime += float64(c.Step-curStep) * stepCrochetFor(curBPM)
		curStep = c.Step
		curBPM = c.BPM
		events = append(events, NewBpmChangeEvent(curStep, curTime, curBPM))
	}
	return events, nil
}

// Conductor converts a song playback position into step and beat counters.
// It holds no global state; each song owns one. A Conductor is not safe for
// concurrent use.
type Conductor struct {
	bpm         float64
	crochet     float64
	stepCrochet float64
	timeline    []BpmChangeEvent

	position float64
	step     int
	beat     int
	decStep  float64
	decBeat  float64
}

// NewConductor creates a conductor at DefaultBPM with an empty timeline.
func NewConductor() *Conductor {
	c := &Conductor{}
	c.applyBPM(DefaultBPM)
	return c
}

// SetBPM changes the base tempo.
func (c *Conductor) SetBPM(bpm float64) error {
	if !validBPM(bpm) {
		return fmt.Errorf("funkin: set bpm %v: %w", bpm, ErrInvalidBPM)
	}
	c.applyBPM(bpm)
	return nil
}

func (c *Conductor) applyBPM(bpm float64) {
	c.bpm = bpm
	c.crochet = 60000 / bpm
	c.stepCrochet = c.crochet / StepsPerBeat
}

// SetTimeline replaces the tempo change timeline with a copy of events,
// sorted by SongTime. Events without a StepCrochet get one from their BPM.
// On error the previous timeline is kept.
func (c *Conductor) SetTimeline(events []BpmChangeEvent) error {
	tl := make([]BpmChangeEvent, len(events))
	copy(tl, events)
	for i := range tl {
		if !validBPM(tl[i].BPM) {
			return fmt.Errorf("funkin: timeline event %d: bpm %v: %w", i, tl[i].BPM, ErrInvalidBPM)
		}
		switch sc := tl[i].StepCrochet; {
		case sc == 0:
			tl[i].StepCrochet = stepCrochetFor(tl[i].BPM)
		case !validBPM(sc):
			return fmt.Errorf("funkin: timeline event %d: step crochet %v: %w", i, sc, ErrInvalidBPM)
		}
		if math.IsNaN(tl[i].SongTime) || math.IsInf(tl[i].SongTime, 0) {
			return fmt.Errorf("funkin: timeline event %d: song time %v is not finite", i, tl[i].SongTime)
		}
	}
	sort.SliceStable(tl, func(i, j int) bool { return tl[i].SongTime < tl[j].SongTime })
	c.timeline = tl
	return nil
}

// Timeline returns a copy of the active timeline.
func (c *Conductor) Timeline() []BpmChangeEvent {
	out := make([]BpmChangeEvent, len(c.timeline))
	copy(out, c.timeline)
	return out
}

// BPMAt returns the tempo change in effect at ms: the last timeline event
// whose SongTime is not after ms, or the base tempo at song start.
func (c *Conductor) BPMAt(ms float64) BpmChangeEvent {
	last := BpmChangeEvent{BPM: c.bpm, StepCrochet: c.stepCrochet}
	for _, e := range c.timeline {
		if e.SongTime > ms {
			break
		}
		last = e
	}
	return last
}

// Tick recomputes the counters for playback position ms.
func (c *Conductor) Tick(ms float64) {
	e := c.BPMAt(ms)
	remainder := (ms - e.SongTime) / e.StepCrochet

	c.position = ms
	c.decStep = float64(e.StepTime) + remainder
	c.step = e.StepTime + int(math.Floor(remainder))
	c.beat = floorDiv(c.step, StepsPerBeat)
	c.decBeat = c.decStep / StepsPerBeat
}

// Position returns the playback position of the last Tick, in ms.
func (c *Conductor) Position() float64 { return c.position }

// Step returns the current whole step.
func (c *Conductor) Step() int { return c.step }

// Beat returns the current whole beat, floor(Step/4).
func (c *Conductor) Beat() int { return c.beat }

// DecStep returns the fractional step, for blending.
func (c *Conductor) DecStep() float64 { return c.decStep }

// DecBeat returns the fractional beat.
func (c *Conductor) DecBeat() float64 { return c.decBeat }

// BPM returns the base tempo.
func (c *Conductor) BPM() float64 { return c.bpm }

// Crochet returns the base beat length in ms.
func (c *Conductor) Crochet() float64 { return c.crochet }

// StepCrochet returns the base step length in ms.
func (c *Conductor) StepCrochet() float64 { return c.stepCrochet }

func stepCrochetFor(bpm float64) float64 {
	return 60000 / bpm / StepsPerBeat
}

func validBPM(bpm float64) bool {
	return bpm > 0 && !math.IsInf(bpm, 0) && !math.IsNaN(bpm)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
