package funkin

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFrameDuration is the frame time of Sparrow exports (24 FPS).
const DefaultFrameDuration = time.Second / 24

// ErrUnknownAnimation is matched by every UnknownAnimationError.
var ErrUnknownAnimation = errors.New("unknown animation")

// UnknownAnimationError reports a lookup of a clip that was never registered.
type UnknownAnimationError struct {
	Name string
}

func (e *UnknownAnimationError) Error() string {
	return fmt.Sprintf("funkin: unknown animation %q", e.Name)
}

// Is reports whether target is ErrUnknownAnimation.
func (e *UnknownAnimationError) Is(target error) bool {
	return target == ErrUnknownAnimation
}

// SpanIndices returns the contiguous frame indices for [start, end].
//
// The length is end-start+1 capped at end and then raised to at least 1, so
// a span starting at 0 loses its last frame and a span ending at 0 has
// exactly one frame.
func SpanIndices(start, end int) []int {
	n := end - start + 1
	if n > end {
		n = end
	}
	if n < 1 {
		n = 1
	}
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// AnimationClip is an immutable, named sequence of absolute frame indices.
type AnimationClip struct {
	name          string
	frames        []int
	frameDuration time.Duration
}

// Name returns the name the clip was registered under.
func (c *AnimationClip) Name() string { return c.name }

// Len returns the number of frames.
func (c *AnimationClip) Len() int { return len(c.frames) }

// Frame returns the absolute frame index at position i.
func (c *AnimationClip) Frame(i int) int { return c.frames[i] }

// Frames returns a copy of the frame indices.
func (c *AnimationClip) Frames() []int {
	out := make([]int, len(c.frames))
	copy(out, c.frames)
	return out
}

// FrameDuration returns how long each frame is shown.
func (c *AnimationClip) FrameDuration() time.Duration { return c.frameDuration }

// Duration returns the length of one pass through the clip.
func (c *AnimationClip) Duration() time.Duration {
	return c.frameDuration * time.Duration(len(c.frames))
}

// ClipBuilder collects clip registrations for one sprite. Build produces an
// immutable ClipSet; the builder can keep being used afterwards without
// affecting sets it already built.
type ClipBuilder struct {
	clips         map[string]*AnimationClip
	order         []string
	frameDuration time.Duration
}

// NewClipBuilder creates an empty builder using DefaultFrameDuration.
func NewClipBuilder() *ClipBuilder {
	return &ClipBuilder{
		clips:         make(map[string]*AnimationClip),
		frameDuration: DefaultFrameDuration,
	}
}

// SetFrameDuration changes the frame duration applied to clips registered
// from now on. A non-positive value restores DefaultFrameDuration.
func (b *ClipBuilder) SetFrameDuration(d time.Duration) {
	if d <= 0 {
		d = DefaultFrameDuration
	}
	b.frameDuration = d
}

// Register adds or replaces the clip called name. When indices is nil the
// clip plays SpanIndices(start, end); otherwise it plays a copy of indices
// and start/end are ignored.
func (b *ClipBuilder) Register(name string, start, end int, indices []int) error {
	return b.RegisterWithDuration(name, start, end, indices, b.frameDuration)
}

// RegisterWithDuration is Register with a per-clip frame duration.
func (b *ClipBuilder) RegisterWithDuration(name string, start, end int, indices []int, d time.Duration) error {
	if name == "" {
		return errors.New("funkin: animation name is empty")
	}
	if d <= 0 {
		return fmt.Errorf("funkin: animation %q: frame duration %v must be positive", name, d)
	}

	var frames []int
	if indices == nil {
		frames = SpanIndices(start, end)
	} else {
		if len(indices) == 0 {
			return fmt.Errorf("funkin: animation %q has no frames", name)
		}
		frames = make([]int, len(indices))
		copy(frames, indices)
	}

	if _, ok := b.clips[name]; !ok {
		b.order = append(b.order, name)
	}
	b.clips[name] = &AnimationClip{name: name, frames: frames, frameDuration: d}
	return nil
}

// RegisterSpan registers a clip named after the span.
func (b *ClipBuilder) RegisterSpan(span AnimationSpan) error {
	return b.Register(span.Name, span.Start, span.End, nil)
}

// RegisterSpans registers every span, stopping at the first error.
func (b *ClipBuilder) RegisterSpans(spans []AnimationSpan) error {
	for _, s := range spans {
		if err := b.RegisterSpan(s); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFromAtlas registers name using the span of the atlas animation
// called prefix. indices, when non-nil, overrides the span's frame list.
func (b *ClipBuilder) RegisterFromAtlas(atlas *AtlasData, name, prefix string, indices []int) error {
	span, ok := atlas.Span(prefix)
	if !ok {
		return fmt.Errorf("funkin: register %q: %w", name, &UnknownAnimationError{Name: prefix})
	}
	return b.Register(name, span.Start, span.End, indices)
}

// Build returns an immutable snapshot of the registered clips.
func (b *ClipBuilder) Build() *ClipSet {
	set := &ClipSet{
		clips: make(map[string]*AnimationClip, len(b.clips)),
		names: make([]string, len(b.order)),
	}
	copy(set.names, b.order)
	for name, c := range b.clips {
		// Clips are never mutated after registration, sharing is safe.
		set.clips[name] = c
	}
	return set
}

// ClipSet is a read-only collection of clips keyed by name.
type ClipSet struct {
	clips map[string]*AnimationClip
	names []string
}

// Clip returns the named clip or an error wrapping ErrUnknownAnimation.
func (s *ClipSet) Clip(name string) (*AnimationClip, error) {
	if s != nil {
		if c, ok := s.clips[name]; ok {
			return c, nil
		}
	}
	return nil, &UnknownAnimationError{Name: name}
}

// Names returns clip names in first-registration order.
func (s *ClipSet) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of clips.
func (s *ClipSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.clips)
}

// AnimationPlayer plays clips from a ClipSet, one at a time.
type AnimationPlayer struct {
	clips    *ClipSet
	clip     *AnimationClip
	pos      int
	elapsed  time.Duration
	loop     bool
	finished bool

	// OnComplete, if set, is called when a non-looping clip reaches its
	// last frame.
	OnComplete func(name string)
}

// NewAnimationPlayer creates a player with no active clip.
func NewAnimationPlayer(clips *ClipSet) *AnimationPlayer {
	return &AnimationPlayer{clips: clips}
}

// Clips returns the set the player draws from.
func (p *AnimationPlayer) Clips() *ClipSet { return p.clips }

// Play switches to the named clip from its first frame. On error the
// current clip keeps playing.
func (p *AnimationPlayer) Play(name string, loop bool) error {
	clip, err := p.clips.Clip(name)
	if err != nil {
		return err
	}
	p.clip = clip
	p.pos = 0
	p.elapsed = 0
	p.loop = loop
	p.finished = false
	return nil
}

// Update advances playback by dt.
func (p *AnimationPlayer) Update(dt time.Duration) {
	if p.clip == nil || p.finished || dt <= 0 {
		return
	}
	p.elapsed += dt
	fd := p.clip.frameDuration
	for p.elapsed >= fd {
		p.elapsed -= fd
		if p.pos+1 < len(p.clip.frames) {
			p.pos++
			continue
		}
		if p.loop {
			p.pos = 0
			continue
		}
		p.finished = true
		p.elapsed = 0
		if p.OnComplete != nil {
			p.OnComplete(p.clip.name)
		}
		return
	}
}

// Frame returns the absolute frame index currently shown.
func (p *AnimationPlayer) Frame() (int, bool) {
	if p.clip == nil {
		return 0, false
	}
	return p.clip.frames[p.pos], true
}

// Position returns the index into the current clip's frame list.
func (p *AnimationPlayer) Position() int { return p.pos }

// Current returns the playing clip's name, or "" before the first Play.
func (p *AnimationPlayer) Current() string {
	if p.clip == nil {
		return ""
	}
	return p.clip.name
}

// Looping reports whether the current clip loops.
func (p *AnimationPlayer) Looping() bool { return p.loop }

// Finished reports whether a non-looping clip has played through.
func (p *AnimationPlayer) Finished() bool { return p.finished }
