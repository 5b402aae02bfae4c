package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// SyncTransport runs handlers in the publisher's goroutine.
// Dispatch returns once every handler has finished, with their errors joined.
// Deterministic, so it suits tests and short-lived programs.
type SyncTransport struct {
	mu     sync.RWMutex
	lookup func(string) []Handler
}

// NewSyncTransport creates a transport that must be handed to NewProcessor before use.
func NewSyncTransport() *SyncTransport {
	return &SyncTransport{}
}

// Dispatch executes all handlers registered for the event.
// Handler panics are recovered and reported as errors.
func (t *SyncTransport) Dispatch(ctx context.Context, evt Event) error {
	t.mu.RLock()
	lookup := t.lookup
	t.mu.RUnlock()

	if lookup == nil {
		return ErrTransportNotBound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx = WithEventMeta(ctx, evt)

	var errs []error
	for _, h := range lookup(evt.Name) {
		if err := safeHandle(ctx, h, evt.Payload); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", h.EventName(), err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe returns a nil channel: there is nothing for workers to consume.
func (t *SyncTransport) Subscribe(context.Context) (<-chan envelope, error) {
	return nil, nil
}

// Close is a no-op.
func (t *SyncTransport) Close() error {
	return nil
}

func (t *SyncTransport) bindHandlers(lookup func(string) []Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lookup == nil {
		t.lookup = lookup
	}
}

func safeHandle(ctx context.Context, h Handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, payload)
}
