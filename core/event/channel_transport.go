package event

import (
	"context"
	"sync"
)

// ChannelTransport queues events in a buffered channel consumed by Processor workers.
// Dispatch never blocks: a full buffer yields ErrBufferFull.
type ChannelTransport struct {
	mu     sync.RWMutex
	ch     chan envelope
	closed bool
}

// NewChannelTransport creates an async transport. bufferSize must be at least 1.
func NewChannelTransport(bufferSize int) *ChannelTransport {
	if bufferSize < 1 {
		panic("event: bufferSize must be at least 1")
	}
	return &ChannelTransport{ch: make(chan envelope, bufferSize)}
}

// Dispatch enqueues the event together with the caller's context.
func (t *ChannelTransport) Dispatch(ctx context.Context, evt Event) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return ErrTransportClosed
	}

	select {
	case t.ch <- envelope{ctx: context.WithoutCancel(ctx), event: evt}:
		return nil
	default:
		return ErrBufferFull
	}
}

// Subscribe returns the queue.
func (t *ChannelTransport) Subscribe(context.Context) (<-chan envelope, error) {
	return t.ch, nil
}

// Close stops accepting events. Workers drain what is already queued. Idempotent.
func (t *ChannelTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.ch)
	}
	return nil
}
