//go:build ebiten

package main

import (
	"context"

	"github.com/pthm-cable/fluidpanel/display/ebitendisplay"
	"github.com/pthm-cable/fluidpanel/engine"
)

// runWindow presents the panel with ebiten.
func runWindow(ctx context.Context, p *engine.Pipeline, maxTicks int64) error {
	cfg := p.Config
	win := ebitendisplay.New(cfg.Derived.ScreenWidth, cfg.Derived.ScreenHeight, p.Stir, p.Status)

	return p.Run(ctx, win, maxTicks, func(ctx context.Context) error {
		return win.Loop(ctx, ebitendisplay.Options{
			Title:     cfg.Display.Title,
			Zoom:      cfg.Display.Zoom,
			TargetFPS: cfg.Display.TargetFPS,
		})
	})
}
