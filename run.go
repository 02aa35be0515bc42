package funkin

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures the window created by Run.
type RunConfig struct {
	Title string
	// Width and Height are the initial window size; zero uses the
	// virtual screen size.
	Width, Height int
	// ShowFPS attaches a DebugOverlay to the scene.
	ShowFPS bool
	// Fullscreen starts the window in fullscreen mode.
	Fullscreen bool
	// OnUpdate runs before the scene each tick; a non-nil error stops the
	// game (return ebiten.Termination to exit cleanly).
	OnUpdate func() error
}

type runner struct {
	scene    *Scene
	onUpdate func() error
}

func (r *runner) Update() error {
	if r.onUpdate != nil {
		if err := r.onUpdate(); err != nil {
			return err
		}
	}
	r.scene.Update()
	return nil
}

func (r *runner) Draw(screen *ebiten.Image) { r.scene.Draw(screen) }

func (r *runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// Run opens a resizable window and runs scene until the window closes or
// cfg.OnUpdate returns an error.
func Run(scene *Scene, cfg RunConfig) error {
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = VirtualWidth, VirtualHeight
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Fullscreen)
	if cfg.ShowFPS {
		scene.SetOverlay(NewDebugOverlay())
	}
	return ebiten.RunGame(&runner{scene: scene, onUpdate: cfg.OnUpdate})
}
