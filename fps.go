package funkin

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/shirou/gopsutil/v3/process"
)

// overlayRefresh is how often the overlay text is rebuilt.
const overlayRefresh = 500 * time.Millisecond

// DebugOverlay shows FPS, TPS and process memory in the top-left corner.
type DebugOverlay struct {
	img     *ebiten.Image
	proc    *process.Process
	elapsed time.Duration
	text    string
}

// NewDebugOverlay creates an overlay. Memory readings are omitted when the
// process cannot be inspected.
func NewDebugOverlay() *DebugOverlay {
	// 140x48 is enough for "FPS: 60.0\nTPS: 60.0\nMemory: 123MB"
	o := &DebugOverlay{img: ebiten.NewImage(140, 48)}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		o.proc = p
	}
	o.elapsed = overlayRefresh
	return o
}

// Update rebuilds the overlay text every overlayRefresh.
func (o *DebugOverlay) Update(dt time.Duration) {
	o.elapsed += dt
	if o.elapsed < overlayRefresh {
		return
	}
	o.elapsed = 0
	o.text = overlayText(ebiten.ActualFPS(), ebiten.ActualTPS(), o.residentMB())

	o.img.Clear()
	// Semi-transparent background for readability
	o.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(o.img, o.text)
}

// Draw draws the overlay at (10, 10).
func (o *DebugOverlay) Draw(screen *ebiten.Image) {
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(10, 10)
	screen.DrawImage(o.img, &op)
}

// residentMB returns the process RSS in MiB, or -1 if unavailable.
func (o *DebugOverlay) residentMB() int64 {
	if o.proc == nil {
		return -1
	}
	mem, err := o.proc.MemoryInfo()
	if err != nil {
		return -1
	}
	return int64(mem.RSS / (1024 * 1024))
}

func overlayText(fps, tps float64, memMB int64) string {
	s := fmt.Sprintf("FPS: %.1f\nTPS: %.1f", fps, tps)
	if memMB >= 0 {
		s += fmt.Sprintf("\nMemory: %dMB", memMB)
	}
	return s
}
