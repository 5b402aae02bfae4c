package event

import "context"

// PublisherTransport defines how events are dispatched.
type PublisherTransport interface {
	// Dispatch hands an event over for processing.
	Dispatch(ctx context.Context, evt Event) error
}

// ProcessorTransport defines how a Processor receives events.
type ProcessorTransport interface {
	// Subscribe returns the channel of events to consume.
	// A nil channel means the transport runs handlers itself on Dispatch.
	Subscribe(ctx context.Context) (<-chan envelope, error)

	// Close releases resources. Pending events may still be drained.
	Close() error
}

// handlerBinder is implemented by transports that execute handlers inline.
type handlerBinder interface {
	bindHandlers(lookup func(name string) []Handler)
}

type envelope struct {
	ctx   context.Context
	event Event
}
