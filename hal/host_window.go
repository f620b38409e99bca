//go:build !tinygo && cgo

package hal

import (
	"rmskernel/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const (
	windowWidth  = 640
	windowHeight = 360
)

// RunWindow starts a desktop window that steps newApp's kernel once per
// frame and renders its status text. It blocks until the window closes.
func RunWindow(newApp func(HAL) App) error {
	h := New().(*hostHAL)
	app := newApp(h)

	g := &hostGame{h: h, app: app}
	ebiten.SetWindowTitle("rmskernel (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h   *hostHAL
	app App
}

func (g *hostGame) Update() error {
	g.h.t.step(1)
	if g.app != nil {
		return g.app.Step()
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	status := ""
	if g.app != nil {
		status = g.app.Status()
	}
	ebitenutil.DebugPrint(screen, status)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowWidth, windowHeight
}
