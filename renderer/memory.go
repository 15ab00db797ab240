package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MemorySink renders into an in-memory RGBA image. It backs headless runs and tests.
// Transfers complete on their own goroutines.
type MemorySink struct {
	mu      sync.Mutex
	img     *image.RGBA
	batches int
	wg      sync.WaitGroup
}

// NewMemorySink creates a black w x h sink.
func NewMemorySink(w, h int) *MemorySink {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return &MemorySink{img: img}
}

func (m *MemorySink) Size() (int, int) {
	b := m.img.Bounds()
	return b.Dx(), b.Dy()
}

func (m *MemorySink) CreateBuffer(w, h int) (*TileBuffer, error) {
	return NewTileBuffer(w, h)
}

func (m *MemorySink) BeginBatch() {}

func (m *MemorySink) EndBatch() error {
	m.wg.Wait()
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	return nil
}

func (m *MemorySink) TransferAsync(x, y int, buf *TileBuffer) *Transfer {
	t := NewTransfer()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.blit(x, y, buf)
		t.Complete(nil)
	}()
	return t
}

func (m *MemorySink) blit(x, y int, buf *TileBuffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for row := 0; row < buf.H; row++ {
		for col := 0; col < buf.W; col++ {
			m.img.SetRGBA(x+col, y+row, buf.At(col, row).RGBA())
		}
	}
}

// Batches returns how many frames have been presented.
func (m *MemorySink) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// View calls fn with the screen and the number of presented frames while holding the
// sink's lock. fn must not retain img.
func (m *MemorySink) View(fn func(img *image.RGBA, batches int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.img, m.batches)
}

// Snapshot returns a copy of the current screen.
func (m *MemorySink) Snapshot() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := image.NewRGBA(m.img.Bounds())
	copy(out.Pix, m.img.Pix)
	return out
}

// captionHeight is the strip added below the screen for the caption.
const captionHeight = 16

// WritePNG saves the current screen to path. A non-empty caption is drawn on a strip
// below the image.
func (m *MemorySink) WritePNG(path, caption string) error {
	snap := m.Snapshot()
	var img image.Image = snap
	if caption != "" {
		b := snap.Bounds()
		canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+captionHeight))
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
		draw.Draw(canvas, b, snap, image.Point{}, draw.Src)
		d := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(2, b.Dy()+captionHeight-4),
		}
		d.DrawString(caption)
		img = canvas
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return f.Close()
}
