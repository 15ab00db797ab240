package renderer

import (
	"context"
	"errors"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pthm-cable/fluidpanel/fluid"
	"github.com/pthm-cable/fluidpanel/frame"
	"github.com/pthm-cable/fluidpanel/telemetry"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   fluid.Scalar
		want uint8
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 127},
		{1, 255},
		{3, 255},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPackRGB565(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    Pixel
	}{
		{0, 0, 0, 0x0000},
		{255, 255, 255, 0xFFFF},
		{255, 0, 0, 0xF800},
		{0, 255, 0, 0x07E0},
		{0, 0, 255, 0x001F},
		{0x7, 0x3, 0x7, 0x0000}, // low bits dropped
	}
	for _, tt := range tests {
		if got := PackRGB565(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("PackRGB565(%d,%d,%d) = %#04x, want %#04x", tt.r, tt.g, tt.b, got, tt.want)
		}
	}

	if c := Pixel(0xFFFF).RGBA(); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("white expands to %+v", c)
	}
	if c := Pixel(0xF800).RGBA(); c != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("red expands to %+v", c)
	}
}

func TestTileBufferFillRect(t *testing.T) {
	buf, err := NewTileBuffer(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	buf.FillRect(1, 1, 2, 2, 7)

	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			want := Pixel(0)
			if x >= 1 && x < 3 && y >= 1 {
				want = 7
			}
			if got := buf.At(x, y); got != want {
				t.Errorf("(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}

	if _, err := NewTileBuffer(0, 3); err == nil {
		t.Error("expected error for empty tile")
	}
}

func TestNewValidatesGeometry(t *testing.T) {
	ch := frame.NewChannel(frame.New(6, 8))

	tests := []struct {
		name string
		sink Sink
		opts Options
	}{
		{"sink size mismatch", NewMemorySink(30, 24), Options{Scale: 4, TileWidth: 16, TileHeight: 8}},
		{"tile not a multiple of scale", NewMemorySink(32, 24), Options{Scale: 4, TileWidth: 6, TileHeight: 8}},
		{"tile does not divide screen", NewMemorySink(32, 24), Options{Scale: 4, TileWidth: 12, TileHeight: 8}},
		{"zero scale", NewMemorySink(32, 24), Options{Scale: 0, TileWidth: 16, TileHeight: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(ch, tt.sink, 6, 8, tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}

	r, err := New(ch, NewMemorySink(32, 24), 6, 8, Options{Scale: 4, TileWidth: 16, TileHeight: 8})
	if err != nil {
		t.Fatalf("valid geometry rejected: %v", err)
	}
	if x, y := r.Tiles(); x != 2 || y != 3 {
		t.Errorf("expected 2x3 tiles, got %dx%d", x, y)
	}
}

func commit(t *testing.T, ch *frame.Channel, fill func(f *frame.Frame)) {
	t.Helper()
	f, err := ch.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	fill(f)
	ch.Commit()
}

func TestRenderMapsCellsToPixels(t *testing.T) {
	const rows, cols, scale = 4, 6, 2
	ch := frame.NewChannel(frame.New(rows, cols))
	sink := NewMemorySink(cols*scale, rows*scale)
	perf := telemetry.NewPerfCollector(10)

	r, err := New(ch, sink, rows, cols, Options{Scale: scale, TileWidth: 4, TileHeight: 4, Perf: perf})
	if err != nil {
		t.Fatal(err)
	}

	commit(t, ch, func(f *frame.Frame) {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				f.Red.Set(i, j, fluid.Scalar(float32(j)/float32(cols-1)))
				f.Green.Set(i, j, fluid.Scalar(float32(i)/float32(rows-1)))
				f.Blue.Set(i, j, 0.5)
			}
		}
	})

	if err := r.RenderFrame(context.Background()); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	img := sink.Snapshot()
	for y := 0; y < rows*scale; y++ {
		for x := 0; x < cols*scale; x++ {
			i, j := y/scale, x/scale
			want := PackRGB565(
				Quantize(fluid.Scalar(float32(j)/float32(cols-1))),
				Quantize(fluid.Scalar(float32(i)/float32(rows-1))),
				Quantize(0.5),
			).RGBA()
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d): got %+v, want %+v", x, y, got, want)
			}
		}
	}

	if r.Rendered() != 1 || sink.Batches() != 1 || perf.Frames() != 1 {
		t.Errorf("expected one frame everywhere, got rendered=%d batches=%d perf=%d",
			r.Rendered(), sink.Batches(), perf.Frames())
	}
}

// recordingSink collects the distinct pixels of each batch after random transfer delays.
type recordingSink struct {
	w, h int

	mu      sync.Mutex
	current map[Pixel]bool
	torn    int
	batches int
}

func (s *recordingSink) Size() (int, int) { return s.w, s.h }

func (s *recordingSink) CreateBuffer(w, h int) (*TileBuffer, error) { return NewTileBuffer(w, h) }

func (s *recordingSink) BeginBatch() {
	s.mu.Lock()
	s.current = make(map[Pixel]bool)
	s.mu.Unlock()
}

func (s *recordingSink) EndBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.current) != 1 {
		s.torn++
	}
	s.batches++
	return nil
}

func (s *recordingSink) TransferAsync(x, y int, buf *TileBuffer) *Transfer {
	t := NewTransfer()
	go func() {
		time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)
		s.mu.Lock()
		for _, px := range buf.Pix {
			s.current[px] = true
		}
		s.mu.Unlock()
		t.Complete(nil)
	}()
	return t
}

func TestRenderNeverTearsUnderRandomDelays(t *testing.T) {
	const rows, cols, scale, frames = 8, 12, 2, 40
	ch := frame.NewChannel(frame.New(rows, cols))
	sink := &recordingSink{w: cols * scale, h: rows * scale}

	r, err := New(ch, sink, rows, cols, Options{Scale: scale, TileWidth: 8, TileHeight: 4})
	if err != nil {
		t.Fatal(err)
	}
	r.afterTile = func(int) {
		time.Sleep(time.Duration(rand.Intn(300)) * time.Microsecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		spare := [3]*fluid.ScalarField{}
		for k := range spare {
			spare[k] = fluid.NewScalarField(rows, cols, fluid.Clone)
		}
		for n := 1; ; n++ {
			v := fluid.Scalar(float32(n%32) / 31)
			f, err := ch.Acquire(ctx)
			if err != nil {
				return
			}
			// Install each channel by swapping, the way the simulation commits.
			for k, c := range frame.Colors {
				val := v
				if c == frame.Green {
					val = 1 - v
				}
				spare[k].Fill(val)
				spare[k] = f.Swap(c, spare[k])
				time.Sleep(time.Duration(rand.Intn(100)) * time.Microsecond)
			}
			ch.Commit()
		}
	}()

	for i := 0; i < frames; i++ {
		if err := r.RenderFrame(ctx); err != nil {
			t.Fatalf("RenderFrame %d: %v", i, err)
		}
	}
	cancel()
	<-done

	if sink.batches != frames {
		t.Errorf("expected %d batches, got %d", frames, sink.batches)
	}
	if sink.torn != 0 {
		t.Errorf("%d of %d frames mixed pixels from different commits", sink.torn, frames)
	}
}

type failingSink struct {
	*MemorySink
}

func (f failingSink) TransferAsync(x, y int, buf *TileBuffer) *Transfer {
	return Completed(errors.New("bus error"))
}

func TestTransferErrorReleasesFrame(t *testing.T) {
	ch := frame.NewChannel(frame.New(2, 2))
	r, err := New(ch, failingSink{NewMemorySink(2, 2)}, 2, 2, Options{Scale: 1, TileWidth: 2, TileHeight: 2})
	if err != nil {
		t.Fatal(err)
	}

	commit(t, ch, func(*frame.Frame) {})
	if err := r.RenderFrame(context.Background()); err == nil {
		t.Fatal("expected transfer error")
	}

	// The lock must be free again for the producer.
	acquired := make(chan struct{})
	go func() {
		commit(t, ch, func(*frame.Frame) {})
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("frame stayed locked after a failed render")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ch := frame.NewChannel(frame.New(2, 2))
	r, err := New(ch, NewMemorySink(2, 2), 2, 2, Options{Scale: 1, TileWidth: 1, TileHeight: 1})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()

	commit(t, ch, func(f *frame.Frame) { f.Red.Fill(1) })
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWritePNGWithCaption(t *testing.T) {
	sink := NewMemorySink(40, 20)
	path := filepath.Join(t.TempDir(), "frame.png")

	if err := sink.WritePNG(path, "tick 10"); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20+captionHeight {
		t.Errorf("expected 40x%d, got %dx%d", 20+captionHeight, b.Dx(), b.Dy())
	}

	// Some caption pixel must be lit.
	lit := false
	for y := 20; y < 20+captionHeight && !lit; y++ {
		for x := 0; x < 40; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r > 0 {
				lit = true
				break
			}
		}
	}
	if !lit {
		t.Error("expected caption text below the frame")
	}
}
