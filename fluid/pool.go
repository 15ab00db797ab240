package fluid

import "sync"

// minRowsPerChunk keeps tiny grids on the calling goroutine.
const minRowsPerChunk = 8

type rowChunk struct {
	start, end int
	fn         func(i0, i1 int)
}

// Pool splits row loops across a fixed set of worker goroutines.
// A nil Pool, or one with a single worker, runs everything inline.
type Pool struct {
	numWorkers int
	workChan   chan rowChunk
	doneChan   chan struct{}
	stopChan   chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewPool starts n workers. n <= 1 returns nil, which is a valid inline pool.
func NewPool(n int) *Pool {
	if n <= 1 {
		return nil
	}
	p := &Pool{
		numWorkers: n,
		workChan:   make(chan rowChunk, n),
		doneChan:   make(chan struct{}, n),
		stopChan:   make(chan struct{}),
	}
	for w := 0; w < n; w++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Workers returns the number of worker goroutines, 1 for an inline pool.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.numWorkers
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk := <-p.workChan:
			chunk.fn(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// Run calls fn over [0, n) in contiguous row bands and returns when every band is done.
// Bands never overlap, so fn may write its own rows without locking.
func (p *Pool) Run(n int, fn func(i0, i1 int)) {
	if p == nil || n < 2*minRowsPerChunk {
		fn(0, n)
		return
	}

	workers := p.numWorkers
	if limit := n / minRowsPerChunk; workers > limit {
		workers = limit
	}
	chunkSize := (n + workers - 1) / workers

	dispatched := 0
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		p.workChan <- rowChunk{start: start, end: end, fn: fn}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// Close stops the workers. Run must not be called afterwards.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.stopChan)
		p.wg.Wait()
	})
}
