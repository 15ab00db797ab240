// Package renderer turns committed colour frames into RGB565 tiles and streams them
// to a Sink.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pthm-cable/fluidpanel/frame"
	"github.com/pthm-cable/fluidpanel/telemetry"
)

// Options configures a Renderer.
type Options struct {
	Scale      int // pixels per cell
	TileWidth  int // pixels
	TileHeight int // pixels

	Perf   *telemetry.PerfCollector // optional, receives one RecordFrame per frame
	Logger *slog.Logger
}

// Renderer is the consumer side of a frame.Channel.
type Renderer struct {
	frames *frame.Channel
	sink   Sink
	perf   *telemetry.PerfCollector
	logger *slog.Logger

	scale          int
	tileW, tileH   int
	tilesX, tilesY int

	// Two tile buffers alternate so one fills while the other transfers.
	bufs    [2]*TileBuffer
	pending [2]*Transfer

	rendered atomic.Uint64

	// afterTile, when set, runs after each tile is handed to the sink.
	afterTile func(tile int)
}

// New validates the tile geometry against the sink and allocates the tile buffers.
// rows and cols are the simulation grid size.
func New(frames *frame.Channel, sink Sink, rows, cols int, opts Options) (*Renderer, error) {
	if opts.Scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %d", opts.Scale)
	}
	if opts.TileWidth <= 0 || opts.TileHeight <= 0 {
		return nil, fmt.Errorf("invalid tile size %dx%d", opts.TileWidth, opts.TileHeight)
	}
	if opts.TileWidth%opts.Scale != 0 || opts.TileHeight%opts.Scale != 0 {
		return nil, fmt.Errorf("tile %dx%d is not a multiple of scale %d", opts.TileWidth, opts.TileHeight, opts.Scale)
	}

	w, h := sink.Size()
	if w != cols*opts.Scale || h != rows*opts.Scale {
		return nil, fmt.Errorf("sink is %dx%d, grid %dx%d at scale %d needs %dx%d",
			w, h, cols, rows, opts.Scale, cols*opts.Scale, rows*opts.Scale)
	}
	if w%opts.TileWidth != 0 || h%opts.TileHeight != 0 {
		return nil, fmt.Errorf("tile %dx%d does not divide screen %dx%d", opts.TileWidth, opts.TileHeight, w, h)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Renderer{
		frames: frames,
		sink:   sink,
		perf:   opts.Perf,
		logger: logger,
		scale:  opts.Scale,
		tileW:  opts.TileWidth,
		tileH:  opts.TileHeight,
		tilesX: w / opts.TileWidth,
		tilesY: h / opts.TileHeight,
	}
	for i := range r.bufs {
		buf, err := sink.CreateBuffer(opts.TileWidth, opts.TileHeight)
		if err != nil {
			return nil, fmt.Errorf("creating tile buffer: %w", err)
		}
		r.bufs[i] = buf
	}
	return r, nil
}

// Tiles returns the tile grid dimensions.
func (r *Renderer) Tiles() (x, y int) { return r.tilesX, r.tilesY }

// Rendered returns how many frames have been fully presented.
func (r *Renderer) Rendered() uint64 { return r.rendered.Load() }

// Run renders frames until ctx is cancelled or the sink fails.
func (r *Renderer) Run(ctx context.Context) error {
	r.logger.Info("renderer started", "tiles_x", r.tilesX, "tiles_y", r.tilesY, "tile_w", r.tileW, "tile_h", r.tileH)
	for {
		if err := r.RenderFrame(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// RenderFrame waits for the next commit and streams it to the sink tile by tile. The
// frame stays locked until every transfer has completed.
func (r *Renderer) RenderFrame(ctx context.Context) error {
	f, err := r.frames.Receive(ctx)
	if err != nil {
		return err
	}
	defer r.frames.Release()

	r.sink.BeginBatch()

	cellsW, cellsH := r.tileW/r.scale, r.tileH/r.scale
	tile := 0
	var firstErr error
	for ty := 0; ty < r.tilesY; ty++ {
		for tx := 0; tx < r.tilesX; tx++ {
			slot := tile % len(r.bufs)
			if err := r.pending[slot].Wait(); err != nil && firstErr == nil {
				firstErr = err
			}
			r.pending[slot] = nil

			buf := r.bufs[slot]
			r.fillTile(buf, f, ty*cellsH, tx*cellsW, cellsH, cellsW)
			r.pending[slot] = r.sink.TransferAsync(tx*r.tileW, ty*r.tileH, buf)

			if r.afterTile != nil {
				r.afterTile(tile)
			}
			tile++
		}
	}

	for slot := range r.pending {
		if err := r.pending[slot].Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.pending[slot] = nil
	}
	if firstErr != nil {
		return fmt.Errorf("tile transfer: %w", firstErr)
	}
	if err := r.sink.EndBatch(); err != nil {
		return fmt.Errorf("presenting frame: %w", err)
	}

	r.rendered.Add(1)
	if r.perf != nil {
		r.perf.RecordFrame()
	}
	return nil
}

// fillTile writes the cells [row0, row0+rows) x [col0, col0+cols) of f into buf, each
// cell as a scale x scale block.
func (r *Renderer) fillTile(buf *TileBuffer, f *frame.Frame, row0, col0, rows, cols int) {
	s := r.scale
	for i := 0; i < rows; i++ {
		red := f.Red.Row(row0 + i)[col0 : col0+cols]
		green := f.Green.Row(row0 + i)[col0 : col0+cols]
		blue := f.Blue.Row(row0 + i)[col0 : col0+cols]
		for j := range red {
			px := PackRGB565(Quantize(red[j]), Quantize(green[j]), Quantize(blue[j]))
			buf.FillRect(j*s, i*s, s, s, px)
		}
	}
}
