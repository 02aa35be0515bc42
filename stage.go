package funkin

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// BuildClips registers the clips a sprite config asks for against atlas.
// With no clips configured every atlas span becomes a clip.
func BuildClips(atlas *AtlasData, cfg SpriteConfig, frame time.Duration) (*ClipSet, error) {
	b := NewClipBuilder()
	b.SetFrameDuration(frame)

	if len(cfg.Clips) == 0 {
		if err := b.RegisterSpans(atlas.Spans); err != nil {
			return nil, fmt.Errorf("funkin: sprite %q: %w", cfg.Name, err)
		}
		return b.Build(), nil
	}

	for _, cl := range cfg.Clips {
		span, ok := atlas.Span(cl.Prefix)
		if !ok {
			return nil, fmt.Errorf("funkin: sprite %q clip %q: %w", cfg.Name, cl.Name, &UnknownAnimationError{Name: cl.Prefix})
		}
		d := fpsDuration(cl.FPS, frame)
		if err := b.RegisterWithDuration(cl.Name, span.Start, span.End, cl.Indices, d); err != nil {
			return nil, fmt.Errorf("funkin: sprite %q: %w", cfg.Name, err)
		}
	}
	return b.Build(), nil
}

// BuildConductor creates a conductor at the song's tempo with its tempo
// changes applied.
func BuildConductor(song SongConfig) (*Conductor, error) {
	c := NewConductor()
	if err := c.SetBPM(song.BPM); err != nil {
		return nil, err
	}
	tl, err := BuildTimeline(song.BPM, song.TempoChanges)
	if err != nil {
		return nil, err
	}
	if err := c.SetTimeline(tl); err != nil {
		return nil, err
	}
	return c, nil
}

// Stage is a Scene populated from a StageConfig, with one conductor and beat
// state driven by the song clock.
type Stage struct {
	Config    *StageConfig
	Scene     *Scene
	Conductor *Conductor
	Beat      *BeatState

	// NewImage converts decoded atlas images for drawing. Defaults to
	// ebiten.NewImageFromImage; tests set it to return nil.
	NewImage func(image.Image) *ebiten.Image

	loader  *AssetLoader
	sprites map[string]*AnimatedSprite
}

// StageOption customizes NewStage.
type StageOption func(*Stage)

// WithImageFactory overrides how decoded atlas images become drawable.
func WithImageFactory(f func(image.Image) *ebiten.Image) StageOption {
	return func(st *Stage) { st.NewImage = f }
}

// NewStage loads every asset the configuration names, builds its sprites
// and wires a BeatState from clock to handler. handler may be nil.
func NewStage(ctx context.Context, cfg *StageConfig, loader *AssetLoader, clock PlaybackClock, handler BeatHandler, opts ...StageOption) (*Stage, error) {
	cond, err := BuildConductor(cfg.Song)
	if err != nil {
		return nil, err
	}

	st := &Stage{
		Config:    cfg,
		Scene:     NewScene(),
		Conductor: cond,
		Beat:      NewBeatState(cond, clock, handler),
		NewImage:  ebiten.NewImageFromImage,
		loader:    loader,
		sprites:   make(map[string]*AnimatedSprite, len(cfg.Sprites)),
	}
	for _, o := range opts {
		o(st)
	}
	st.Scene.SetDebugMode(cfg.Debug)
	if cfg.Background != nil {
		st.Scene.ClearColor = *cfg.Background
	}
	st.Scene.AddBeatState(st.Beat)

	assets, err := loader.LoadSprites(ctx, cfg.Assets()...)
	if err != nil {
		return nil, err
	}

	// Images are converted here, on the caller's goroutine.
	images := make(map[string]*ebiten.Image, len(assets))
	for name, a := range assets {
		images[name] = st.NewImage(a.Image)
	}

	for _, spc := range cfg.Sprites {
		asset := assets[spc.Asset]
		clips, err := BuildClips(asset.Atlas, spc, cfg.FrameDuration())
		if err != nil {
			return nil, err
		}
		sp := NewAnimatedSprite(spc.Name, images[spc.Asset], asset.Atlas, clips, spc.X, spc.Y)
		if spc.Play != "" {
			if err := sp.Play(spc.Play, spc.Loop); err != nil {
				return nil, err
			}
		}
		st.sprites[spc.Name] = sp
		st.Scene.AddSprite(sp)
	}
	return st, nil
}

// Sprite returns the sprite configured under name.
func (st *Stage) Sprite(name string) (*AnimatedSprite, bool) {
	sp, ok := st.sprites[name]
	return sp, ok
}

// Play starts a clip on a named sprite.
func (st *Stage) Play(sprite, clip string, loop bool) error {
	sp, ok := st.sprites[sprite]
	if !ok {
		return fmt.Errorf("funkin: no sprite %q on stage", sprite)
	}
	return sp.Play(clip, loop)
}

// ReloadAsset re-reads an asset from disk and rebuilds the clips of every
// sprite using it. Sprites restart their configured clip. If any sprite
// cannot be rebuilt, no sprite changes and the previous parse stays cached.
func (st *Stage) ReloadAsset(asset string) error {
	atlasPath := st.loader.AtlasPath(asset)
	prev, hadPrev := st.loader.cached(atlasPath)
	st.loader.Invalidate(atlasPath)

	a, err := st.loader.LoadSprite(asset)
	if err != nil {
		st.restore(atlasPath, prev, hadPrev)
		return err
	}

	type rebuilt struct {
		sprite *AnimatedSprite
		player *AnimationPlayer
	}
	var pending []rebuilt
	for _, spc := range st.Config.Sprites {
		if spc.Asset != asset {
			continue
		}
		clips, err := BuildClips(a.Atlas, spc, st.Config.FrameDuration())
		if err != nil {
			st.restore(atlasPath, prev, hadPrev)
			return err
		}
		player := NewAnimationPlayer(clips)
		if spc.Play != "" {
			if err := player.Play(spc.Play, spc.Loop); err != nil {
				st.restore(atlasPath, prev, hadPrev)
				return fmt.Errorf("funkin: sprite %q: %w", spc.Name, err)
			}
		}
		pending = append(pending, rebuilt{sprite: st.sprites[spc.Name], player: player})
	}

	img := st.NewImage(a.Image)
	for _, r := range pending {
		r.sprite.Image = img
		r.sprite.Atlas = a.Atlas
		r.sprite.player = r.player
	}
	debugf("reloaded asset %q", asset)
	return nil
}

func (st *Stage) restore(atlasPath string, prev *AtlasData, ok bool) {
	st.loader.Invalidate(atlasPath)
	if ok {
		st.loader.store(atlasPath, prev)
	}
}

// AssetForPath returns the asset name whose description or image lives at
// the fs path p.
func (st *Stage) AssetForPath(p string) (string, bool) {
	for _, name := range st.Config.Assets() {
		if st.loader.AtlasPath(name) == p || st.loader.ImagePath(name) == p {
			return name, true
		}
	}
	return "", false
}
