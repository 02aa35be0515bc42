package funkin

import (
	"fmt"
	"os"
	"time"
)

// globalDebug mirrors the most recently set Scene debug flag so that code
// without a Scene pointer (beat states, loaders) can check it
// cheaply. Only valid with a single Scene.
var globalDebug bool

// debugf prints a [funkin] line to stderr when debug mode is on.
func debugf(format string, args ...any) {
	if !globalDebug {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "[funkin] "+format+"\n", args...)
}

// debugStats holds per-tick timing and counts.
// Only populated when Scene.debug is true.
type debugStats struct {
	beatTime    time.Duration
	spriteTime  time.Duration
	tweenTime   time.Duration
	spriteCount int
	tweenCount  int
}

// debugLogThreshold keeps per-tick stats quiet unless a tick is slow.
const debugLogThreshold = 4 * time.Millisecond

// debugLog prints tick stats to stderr when the tick took longer than
// debugLogThreshold.
func (s *Scene) debugLog(stats debugStats) {
	if !s.debug {
		return
	}
	total := stats.beatTime + stats.spriteTime + stats.tweenTime
	if total < debugLogThreshold {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr,
		"[funkin] slow tick: beat: %v | sprites: %v (%d) | tweens: %v (%d) | total: %v\n",
		stats.beatTime, stats.spriteTime, stats.spriteCount,
		stats.tweenTime, stats.tweenCount, total)
}

// debugCheckBounds warns on stderr about regions that fall outside their
// atlas image.
func debugCheckBounds(asset string, atlas *AtlasData, w, h int) {
	if !globalDebug {
		return
	}
	for _, name := range atlas.OutOfBounds(w, h) {
		_, _ = fmt.Fprintf(os.Stderr, "[funkin] warning: %s: region %q exceeds %dx%d image\n",
			asset, name, w, h)
	}
}
