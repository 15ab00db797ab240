// Package rldisplay shows the panel in a raylib window.
package rldisplay

import (
	"context"
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
	gui "github.com/gen2brain/raylib-go/raygui"

	"github.com/pthm-cable/fluidpanel/renderer"
)

const statusHeight = 44

// Trigger receives the stir state from the window. sim.Switch satisfies it.
type Trigger interface {
	Set(on bool)
}

// Options configures the window.
type Options struct {
	Title     string
	Zoom      int // window pixels per panel pixel
	TargetFPS int
}

// Window is a renderer.Sink that the renderer goroutine writes into and the main
// thread presents. Holding Space or the left mouse button stirs; the button latches.
type Window struct {
	*renderer.MemorySink

	trigger Trigger
	status  func() string

	latched bool
}

// New creates the window's staging sink. No raylib call happens until Loop.
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

// Loop opens the window and presents frames until it is closed or ctx is cancelled.
// It must run on the main OS thread.
func (w *Window) Loop(ctx context.Context, opts Options) {
	if opts.Zoom < 1 {
		opts.Zoom = 1
	}
	pw, ph := w.Size()
	viewW, viewH := pw*opts.Zoom, ph*opts.Zoom

	rl.InitWindow(int32(viewW), int32(viewH+statusHeight), opts.Title)
	defer rl.CloseWindow()
	if opts.TargetFPS > 0 {
		rl.SetTargetFPS(int32(opts.TargetFPS))
	}

	img := rl.GenImageColor(pw, ph, rl.Black)
	tex := rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(tex, rl.FilterPoint)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(tex)

	pixels := make([]color.RGBA, pw*ph)
	shown := -1

	for !rl.WindowShouldClose() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fresh := false
		w.View(func(src *image.RGBA, batches int) {
			if batches == shown {
				return
			}
			shown, fresh = batches, true
			for i := range pixels {
				o := i * 4
				pixels[i] = color.RGBA{R: src.Pix[o], G: src.Pix[o+1], B: src.Pix[o+2], A: src.Pix[o+3]}
			}
		})
		if fresh {
			rl.UpdateTexture(tex, pixels)
		}

		view := rl.Rectangle{X: 0, Y: 0, Width: float32(viewW), Height: float32(viewH)}
		held := rl.IsKeyDown(rl.KeySpace) ||
			(rl.IsMouseButtonDown(rl.MouseButtonLeft) && rl.CheckCollisionPointRec(rl.GetMousePosition(), view))

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		rl.DrawTexturePro(
			tex,
			rl.Rectangle{X: 0, Y: 0, Width: float32(pw), Height: float32(ph)},
			view,
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)

		label := "Stir: off"
		if w.latched {
			label = "Stir: on"
		}
		if gui.Button(rl.Rectangle{X: 6, Y: float32(viewH + 8), Width: 80, Height: 28}, label) {
			w.latched = !w.latched
		}
		rl.DrawText(w.status(), 96, int32(viewH+14), 14, rl.LightGray)
		rl.EndDrawing()

		w.trigger.Set(w.latched || held)
	}
}
