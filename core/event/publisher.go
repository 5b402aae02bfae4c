package event

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/cudatel/core/logger"
)

// Publisher wraps payloads in Events and hands them to a transport.
// It is stateless; use Processor for handler lifecycle.
type Publisher struct {
	transport PublisherTransport
	logger    *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger for the publisher.
func WithPublisherLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPublisher creates a publisher on the given transport.
func NewPublisher(transport PublisherTransport, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		transport: transport,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends payload to every handler registered for its type.
// With a SyncTransport the handlers' errors are returned; async transports
// only report dispatch failures.
func (p *Publisher) Publish(ctx context.Context, payload any) error {
	if payload == nil {
		return ErrNilPayload
	}

	evt := NewEvent(payload)
	if err := p.transport.Dispatch(ctx, evt); err != nil {
		p.logger.WarnContext(ctx, "event dispatch failed",
			logger.Event(evt.Name),
			logger.ID("event_id", evt.ID),
			logger.Error(err))
		return err
	}

	p.logger.DebugContext(ctx, "event published",
		logger.Event(evt.Name),
		logger.ID("event_id", evt.ID))
	return nil
}
