package funkin

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// tweenTrack drives one sprite field.
type tweenTrack struct {
	tween *gween.Tween
	field *float64
}

// TweenGroup animates fields of one sprite together. Create one with
// TweenScale, TweenAlpha or BeatPulse and either call Update(dt) each frame
// or hand it to Scene.AddTween. A group on a disposed sprite stops without
// touching it.
type TweenGroup struct {
	tracks []tweenTrack
	target *AnimatedSprite

	// OnDone, if set, runs once when every track has finished.
	OnDone func()
	Done   bool
}

func newTweenGroup(s *AnimatedSprite, n int) *TweenGroup {
	return &TweenGroup{target: s, tracks: make([]tweenTrack, 0, n)}
}

func (g *TweenGroup) track(field *float64, from, to float64, duration float32, fn ease.TweenFunc) {
	g.tracks = append(g.tracks, tweenTrack{
		tween: gween.New(float32(from), float32(to), duration, fn),
		field: field,
	})
}

// Update advances every track by dt seconds.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target != nil && g.target.disposed {
		g.Done = true
		return
	}

	finished := true
	for _, tr := range g.tracks {
		v, done := tr.tween.Update(dt)
		*tr.field = float64(v)
		finished = finished && done
	}
	if !finished {
		return
	}
	g.Done = true
	if g.OnDone != nil {
		g.OnDone()
	}
}

// TweenScale sets the sprite's scale to from and animates both axes to to.
func TweenScale(s *AnimatedSprite, from, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(s, 2)
	g.track(&s.ScaleX, from, to, duration, fn)
	g.track(&s.ScaleY, from, to, duration, fn)
	s.ScaleX, s.ScaleY = from, from
	return g
}

// TweenAlpha animates the sprite's alpha from its current value to to.
func TweenAlpha(s *AnimatedSprite, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(s, 1)
	g.track(&s.Alpha, s.Alpha, to, duration, fn)
	return g
}

// BeatPulse scales the sprite up to peak and eases it back to 1 over half a
// beat at the conductor's current tempo.
func BeatPulse(s *AnimatedSprite, peak float64, c *Conductor) *TweenGroup {
	e := c.BPMAt(c.Position())
	halfBeat := float32(e.StepCrochet * StepsPerBeat / 2 / 1000)
	return TweenScale(s, peak, 1, halfBeat, ease.OutQuad)
}
