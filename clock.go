package funkin

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/hajimehoshi/ebiten/v2/audio"
)

// PlaybackClock is the song position source a BeatState polls each tick.
type PlaybackClock interface {
	// PositionMs returns the playback position in milliseconds.
	PositionMs() float64
	// Playing reports whether the song is advancing.
	Playing() bool
}

// AudioPlayerClock reads the position of an Ebitengine audio player.
type AudioPlayerClock struct {
	Player *audio.Player
}

// PositionMs implements PlaybackClock.
func (c AudioPlayerClock) PositionMs() float64 {
	if c.Player == nil {
		return 0
	}
	return durationMs(c.Player.Position())
}

// Playing implements PlaybackClock.
func (c AudioPlayerClock) Playing() bool {
	return c.Player != nil && c.Player.IsPlaying()
}

// BeepClock reads the position of a beep stream. Ctrl, when set, is the
// control wrapping the stream; a paused control stops the clock.
type BeepClock struct {
	Stream     beep.StreamSeeker
	SampleRate beep.SampleRate
	Ctrl       *beep.Ctrl
}

// PositionMs implements PlaybackClock.
func (c BeepClock) PositionMs() float64 {
	if c.Stream == nil || c.SampleRate <= 0 {
		return 0
	}
	return durationMs(c.SampleRate.D(c.Stream.Position()))
}

// Playing implements PlaybackClock.
func (c BeepClock) Playing() bool {
	if c.Stream == nil {
		return false
	}
	if c.Ctrl != nil && c.Ctrl.Paused {
		return false
	}
	return c.Stream.Position() < c.Stream.Len()
}

// ManualClock is a PlaybackClock driven by hand, for tests and tools that
// have no audio device.
type ManualClock struct {
	Ms      float64
	Stopped bool
}

// PositionMs implements PlaybackClock.
func (c *ManualClock) PositionMs() float64 { return c.Ms }

// Playing implements PlaybackClock.
func (c *ManualClock) Playing() bool { return !c.Stopped }

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.Ms += durationMs(d)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
