// Package ebitendisplay shows the panel in an ebiten window.
//
// ebiten and raylib each link their own GLFW, so a binary uses one or the other; main
// selects this backend with the ebiten build tag.
package ebitendisplay

import (
	"context"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/pthm-cable/fluidpanel/renderer"
)

// Trigger receives the stir state from the window. sim.Switch satisfies it.
type Trigger interface {
	Set(on bool)
}

// Options configures the window.
type Options struct {
	Title     string
	Zoom      int
	TargetFPS int
}

// Window is a renderer.Sink presented by ebiten's game loop. Space or the left mouse
// button stirs while held; S latches stirring.
type Window struct {
	*renderer.MemorySink

	ctx     context.Context
	trigger Trigger
	status  func() string

	latched bool
}

// New creates the window's staging sink. Nothing is opened until Loop.
func New(width, height int, trigger Trigger, status func() string) *Window {
	if status == nil {
		status = func() string { return "" }
	}
	return &Window{
		MemorySink: renderer.NewMemorySink(width, height),
		trigger:    trigger,
		status:     status,
	}
}

// Loop runs ebiten's game loop on the calling goroutine until the window closes or
// ctx is cancelled.
func (w *Window) Loop(ctx context.Context, opts Options) error {
	if opts.Zoom < 1 {
		opts.Zoom = 1
	}
	pw, ph := w.Size()
	w.ctx = ctx

	ebiten.SetWindowSize(pw*opts.Zoom, ph*opts.Zoom)
	ebiten.SetWindowTitle(opts.Title)
	if opts.TargetFPS > 0 {
		ebiten.SetTPS(opts.TargetFPS)
	}
	return ebiten.RunGame(w)
}

func (w *Window) Update() error {
	if w.ctx != nil && w.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		w.latched = !w.latched
	}
	held := ebiten.IsKeyPressed(ebiten.KeySpace) || ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	w.trigger.Set(w.latched || held)
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	w.View(func(src *image.RGBA, _ int) {
		screen.WritePixels(src.Pix)
	})
	ebitenutil.DebugPrint(screen, w.status())
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return w.Size()
}
