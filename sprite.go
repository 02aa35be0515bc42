package funkin

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// spriteIDCounter is only touched from the tick goroutine.
var spriteIDCounter uint32

func nextSpriteID() uint32 {
	spriteIDCounter++
	return spriteIDCounter
}

// AnimatedSprite draws the current frame of an AnimationPlayer from an atlas
// image at a position in virtual screen space.
type AnimatedSprite struct {
	// Identity
	ID   uint32
	Name string

	// Transform, in virtual screen coordinates
	X, Y   float64
	ScaleX float64
	ScaleY float64

	// Appearance
	Alpha   float64
	Color   Color
	Visible bool

	// Source
	Image *ebiten.Image
	Atlas *AtlasData

	// OnUpdate is called once per tick after the animation advances.
	OnUpdate func(dt time.Duration)

	player   *AnimationPlayer
	disposed bool
}

// NewAnimatedSprite creates a visible sprite at (x, y) playing clips from
// clips. img may be nil for headless use.
func NewAnimatedSprite(name string, img *ebiten.Image, atlas *AtlasData, clips *ClipSet, x, y float64) *AnimatedSprite {
	return &AnimatedSprite{
		ID:      nextSpriteID(),
		Name:    name,
		X:       x,
		Y:       y,
		ScaleX:  1,
		ScaleY:  1,
		Alpha:   1,
		Color:   ColorWhite,
		Visible: true,
		Image:   img,
		Atlas:   atlas,
		player:  NewAnimationPlayer(clips),
	}
}

// Player returns the sprite's animation player.
func (s *AnimatedSprite) Player() *AnimationPlayer { return s.player }

// Play starts the named clip. Unknown names return an error wrapping
// ErrUnknownAnimation and leave the current clip playing.
func (s *AnimatedSprite) Play(name string, loop bool) error {
	if err := s.player.Play(name, loop); err != nil {
		return fmt.Errorf("funkin: sprite %q: %w", s.Name, err)
	}
	return nil
}

// Update advances the animation by dt.
func (s *AnimatedSprite) Update(dt time.Duration) {
	if s.disposed {
		return
	}
	s.player.Update(dt)
	if s.OnUpdate != nil {
		s.OnUpdate(dt)
	}
}

// CurrentRegion returns the atlas region of the frame being shown.
func (s *AnimatedSprite) CurrentRegion() (Region, bool) {
	if s.Atlas == nil {
		return Region{}, false
	}
	idx, ok := s.player.Frame()
	if !ok {
		return Region{}, false
	}
	r, ok := s.Atlas.FrameRegion(idx)
	if !ok && globalDebug {
		debugf("warning: sprite %q frame %d has no region", s.Name, idx)
	}
	return r, ok
}

// Draw renders the current frame onto dst. sx and sy map virtual screen
// coordinates to dst pixels; only the position is scaled by them.
func (s *AnimatedSprite) Draw(dst *ebiten.Image, sx, sy float64) {
	if s.disposed || !s.Visible || s.Image == nil || s.Alpha <= 0 {
		return
	}
	r, ok := s.CurrentRegion()
	if !ok {
		return
	}
	src, ok := s.Image.SubImage(r.Rect()).(*ebiten.Image)
	if !ok {
		return
	}

	var op ebiten.DrawImageOptions
	op.GeoM.Scale(s.ScaleX, s.ScaleY)
	op.GeoM.Translate(s.X*sx, s.Y*sy)
	op.ColorScale.Scale(float32(s.Color.R), float32(s.Color.G), float32(s.Color.B), 1)
	op.ColorScale.ScaleAlpha(float32(clamp01(s.Alpha * s.Color.A)))
	dst.DrawImage(src, &op)
}

// Dispose marks the sprite dead. Tweens targeting it stop and Scene drops it
// on the next Update.
func (s *AnimatedSprite) Dispose() {
	s.disposed = true
}

// IsDisposed reports whether Dispose was called.
func (s *AnimatedSprite) IsDisposed() bool { return s.disposed }
