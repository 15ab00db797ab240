//go:build !ebiten

package main

import (
	"context"

	"github.com/pthm-cable/fluidpanel/display/rldisplay"
	"github.com/pthm-cable/fluidpanel/engine"
)

// runWindow presents the panel with raylib. raylib-go pins the main goroutine to the
// main OS thread, so the window loop runs here and the pipeline runs on goroutines.
func runWindow(ctx context.Context, p *engine.Pipeline, maxTicks int64) error {
	cfg := p.Config
	win := rldisplay.New(cfg.Derived.ScreenWidth, cfg.Derived.ScreenHeight, p.Stir, p.Status)

	return p.Run(ctx, win, maxTicks, func(ctx context.Context) error {
		win.Loop(ctx, rldisplay.Options{
			Title:     cfg.Display.Title,
			Zoom:      cfg.Display.Zoom,
			TargetFPS: cfg.Display.TargetFPS,
		})
		return nil
	})
}
