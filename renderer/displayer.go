package renderer

import (
	"tinygo.org/x/drivers"
)

// DisplayerSink drives a tinygo display driver. Each transfer is written pixel by
// pixel from a single worker goroutine and EndBatch calls Display to flush the panel.
type DisplayerSink struct {
	dev  drivers.Displayer
	jobs chan displayJob
}

type displayJob struct {
	x, y int
	buf  *TileBuffer
	t    *Transfer
}

// NewDisplayerSink starts the transfer worker. Close stops it.
func NewDisplayerSink(dev drivers.Displayer) *DisplayerSink {
	s := &DisplayerSink{dev: dev, jobs: make(chan displayJob, 2)}
	go s.worker()
	return s
}

func (s *DisplayerSink) worker() {
	for job := range s.jobs {
		for row := 0; row < job.buf.H; row++ {
			for col := 0; col < job.buf.W; col++ {
				s.dev.SetPixel(int16(job.x+col), int16(job.y+row), job.buf.At(col, row).RGBA())
			}
		}
		job.t.Complete(nil)
	}
}

func (s *DisplayerSink) Size() (int, int) {
	w, h := s.dev.Size()
	return int(w), int(h)
}

func (s *DisplayerSink) CreateBuffer(w, h int) (*TileBuffer, error) {
	return NewTileBuffer(w, h)
}

func (s *DisplayerSink) BeginBatch() {}

func (s *DisplayerSink) EndBatch() error {
	return s.dev.Display()
}

func (s *DisplayerSink) TransferAsync(x, y int, buf *TileBuffer) *Transfer {
	t := NewTransfer()
	s.jobs <- displayJob{x: x, y: y, buf: buf, t: t}
	return t
}

// Close stops the worker. No transfers may be started afterwards.
func (s *DisplayerSink) Close() {
	close(s.jobs)
}
