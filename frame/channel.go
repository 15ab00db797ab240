package frame

import (
	"context"
	"sync"
)

// Channel hands a single Frame from one producer to one consumer.
//
// A mutex serialises access to the frame. The ready channel carries at most one
// unread commit notification. The credit channel holds the producer's permission to
// start another commit; the consumer hands it back only when it takes a frame, so
// with the consumer stalled the producer completes one commit and then blocks in
// Acquire. The backlog never exceeds one frame.
//
// Waits are unbounded. Context cancellation exists for teardown, not as a timeout.
type Channel struct {
	mu    sync.Mutex
	frame *Frame

	ready  chan struct{}
	credit chan struct{}
}

// NewChannel wraps f. The producer starts with one credit; the consumer has nothing
// to read until the first Commit.
func NewChannel(f *Frame) *Channel {
	c := &Channel{
		frame:  f,
		ready:  make(chan struct{}, 1),
		credit: make(chan struct{}, 1),
	}
	c.credit <- struct{}{}
	return c
}

// Acquire blocks until the consumer has taken the previous commit, then locks the
// frame for writing. Every successful Acquire must be followed by Commit.
func (c *Channel) Acquire(ctx context.Context) (*Frame, error) {
	select {
	case <-c.credit:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.mu.Lock()
	return c.frame, nil
}

// Commit publishes the frame written since Acquire, unlocks it and raises ready.
func (c *Channel) Commit() {
	c.frame.Seq++
	c.mu.Unlock()
	// Never blocks: the credit taken in Acquire guarantees ready is empty.
	c.ready <- struct{}{}
}

// Receive blocks until a commit is ready, locks the frame for reading and returns the
// producer's credit. Every successful Receive must be followed by Release.
func (c *Channel) Receive(ctx context.Context) (*Frame, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.mu.Lock()
	c.credit <- struct{}{}
	return c.frame, nil
}

// Release unlocks the frame after reading.
func (c *Channel) Release() {
	c.mu.Unlock()
}

// Pending reports whether a commit is waiting for the consumer.
func (c *Channel) Pending() bool {
	return len(c.ready) > 0
}
