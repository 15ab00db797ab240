package renderer

import (
	"fmt"
	"sync"
)

// Sink is a pixel destination that accepts tiles asynchronously.
//
// A frame is one BeginBatch, a series of TransferAsync calls and one EndBatch. The
// renderer does not touch a buffer again until the Transfer returned for it completes.
type Sink interface {
	// Size returns the screen dimensions in pixels.
	Size() (width, height int)
	// CreateBuffer allocates a tile buffer in memory the sink can transfer from.
	CreateBuffer(width, height int) (*TileBuffer, error)
	BeginBatch()
	// EndBatch presents the frame once every transfer of the batch has completed.
	EndBatch() error
	// TransferAsync starts copying buf to the screen with its top-left corner at (x, y).
	TransferAsync(x, y int, buf *TileBuffer) *Transfer
}

// TileBuffer is a row-major block of pixels.
type TileBuffer struct {
	W, H int
	Pix  []Pixel
}

// NewTileBuffer allocates a w x h buffer on the Go heap.
func NewTileBuffer(w, h int) (*TileBuffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid tile size %dx%d", w, h)
	}
	return &TileBuffer{W: w, H: h, Pix: make([]Pixel, w*h)}, nil
}

// FillRect sets a w x h rectangle at (x, y) to px. The rectangle must lie inside the buffer.
func (b *TileBuffer) FillRect(x, y, w, h int, px Pixel) {
	for row := y; row < y+h; row++ {
		line := b.Pix[row*b.W+x : row*b.W+x+w]
		for i := range line {
			line[i] = px
		}
	}
}

// At returns the pixel at (x, y).
func (b *TileBuffer) At(x, y int) Pixel {
	return b.Pix[y*b.W+x]
}

// Transfer tracks one asynchronous tile copy.
type Transfer struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewTransfer returns a pending transfer for sinks to complete.
func NewTransfer() *Transfer {
	return &Transfer{done: make(chan struct{})}
}

// Completed returns a transfer that has already finished with err.
func Completed(err error) *Transfer {
	t := NewTransfer()
	t.Complete(err)
	return t
}

// Complete marks the transfer finished. Later calls are ignored.
func (t *Transfer) Complete(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Wait blocks until the transfer finishes and returns its error. A nil transfer is
// already complete.
func (t *Transfer) Wait() error {
	if t == nil {
		return nil
	}
	<-t.done
	return t.err
}
