package funkin

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Virtual screen size. Sprite positions are authored against it and scaled
// to the actual window at draw time.
const (
	VirtualWidth  = 1280
	VirtualHeight = 720
)

const defaultSpriteCap = 16

// Scene owns the sprites, beat states and tweens of one game state and
// advances them once per tick.
type Scene struct {
	ClearColor Color

	// OnUpdate, if set, runs at the end of every Update.
	OnUpdate func(dt time.Duration)

	sprites []*AnimatedSprite
	tweens  []*TweenGroup
	beats   []*BeatState
	overlay *DebugOverlay
	debug   bool
}

// NewScene creates an empty scene that clears to black.
func NewScene() *Scene {
	return &Scene{
		ClearColor: ColorBlack,
		sprites:    make([]*AnimatedSprite, 0, defaultSpriteCap),
	}
}

// AddSprite appends a sprite; sprites draw in insertion order.
func (s *Scene) AddSprite(sp *AnimatedSprite) {
	s.sprites = append(s.sprites, sp)
}

// RemoveSprite removes a sprite from the scene without disposing it.
func (s *Scene) RemoveSprite(sp *AnimatedSprite) {
	for i, c := range s.sprites {
		if c == sp {
			s.sprites = append(s.sprites[:i], s.sprites[i+1:]...)
			return
		}
	}
}

// Sprites returns the scene's sprites. The returned slice MUST NOT be mutated.
func (s *Scene) Sprites() []*AnimatedSprite {
	return s.sprites
}

// AddTween registers a tween to be advanced every tick until Done.
func (s *Scene) AddTween(g *TweenGroup) {
	s.tweens = append(s.tweens, g)
}

// AddBeatState registers a beat state to be updated every tick.
func (s *Scene) AddBeatState(b *BeatState) {
	s.beats = append(s.beats, b)
}

// SetDebugMode enables or disables debug mode. When enabled, beat hits,
// missing frame regions, out-of-bounds atlas regions and slow ticks are
// logged to stderr.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
}

// SetOverlay attaches a debug overlay drawn above all sprites. nil removes it.
func (s *Scene) SetOverlay(o *DebugOverlay) {
	s.overlay = o
}

// Update advances the scene by one Ebitengine tick.
func (s *Scene) Update() {
	tps := ebiten.TPS()
	if tps <= 0 {
		tps = ebiten.DefaultTPS
	}
	s.Step(time.Second / time.Duration(tps))
}

// Step advances the scene by dt: sprite animations first, then beat states
// (whose handlers may start new clips), then tweens.
func (s *Scene) Step(dt time.Duration) {
	var stats debugStats
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	live := s.sprites[:0]
	for _, sp := range s.sprites {
		if sp.disposed {
			continue
		}
		sp.Update(dt)
		live = append(live, sp)
	}
	for i := len(live); i < len(s.sprites); i++ {
		s.sprites[i] = nil
	}
	s.sprites = live

	if s.debug {
		stats.spriteTime = time.Since(t0)
		stats.spriteCount = len(s.sprites)
		t0 = time.Now()
	}

	for _, b := range s.beats {
		b.Update()
	}

	if s.debug {
		stats.beatTime = time.Since(t0)
		t0 = time.Now()
	}

	sec := float32(dt.Seconds())
	running := s.tweens[:0]
	for _, g := range s.tweens {
		g.Update(sec)
		if !g.Done {
			running = append(running, g)
		}
	}
	for i := len(running); i < len(s.tweens); i++ {
		s.tweens[i] = nil
	}
	s.tweens = running

	if s.overlay != nil {
		s.overlay.Update(dt)
	}

	if s.debug {
		stats.tweenTime = time.Since(t0)
		stats.tweenCount = len(s.tweens)
		s.debugLog(stats)
	}

	if s.OnUpdate != nil {
		s.OnUpdate(dt)
	}
}

// Draw clears screen and draws every visible sprite, scaling positions from
// the virtual screen to the screen's size.
func (s *Scene) Draw(screen *ebiten.Image) {
	screen.Fill(s.ClearColor.toRGBA())

	b := screen.Bounds()
	sx := float64(b.Dx()) / VirtualWidth
	sy := float64(b.Dy()) / VirtualHeight
	for _, sp := range s.sprites {
		sp.Draw(screen, sx, sy)
	}

	if s.overlay != nil {
		s.overlay.Draw(screen)
	}
}
