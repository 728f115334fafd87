// Package framebuf provides the audio frame queue shared by a capture
// callback and a session's recognition loop.
package framebuf

import (
	"context"
	"sync"
	"time"
)

// Buffer is an unbounded FIFO of raw audio frames. Push never blocks; Pop
// waits up to a timeout. All methods are safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	frames [][]byte
	// ready is closed and replaced whenever a frame is pushed.
	ready chan struct{}
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{ready: make(chan struct{})}
}

// Push appends a copy of frame. Capture backends reuse their sample buffers
// between callbacks, so the bytes are copied under the lock.
func (b *Buffer) Push(frame []byte) {
	if len(frame) == 0 {
		return
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)

	b.mu.Lock()
	b.frames = append(b.frames, cp)
	close(b.ready)
	b.ready = make(chan struct{})
	b.mu.Unlock()
}

// Pop removes and returns the oldest frame, waiting up to timeout for one to
// arrive. It returns false when the timeout elapses or ctx is done first.
func (b *Buffer) Pop(ctx context.Context, timeout time.Duration) ([]byte, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		b.mu.Lock()
		if len(b.frames) > 0 {
			frame := b.frames[0]
			b.frames[0] = nil
			b.frames = b.frames[1:]
			b.mu.Unlock()
			return frame, true
		}
		ready := b.ready
		b.mu.Unlock()

		select {
		case <-ready:
		case <-timer.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Drain removes every queued frame and returns how many were dropped.
func (b *Buffer) Drain() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.frames)
	b.frames = nil
	return n
}

// Len returns the number of queued frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}
