package event

import (
	"context"
	"time"
)

type eventMetaCtx struct{}

type eventMeta struct {
	id        string
	name      string
	createdAt time.Time
}

// WithEventMeta attaches the event's ID, name and creation time to ctx.
// Processors do this before invoking handlers.
func WithEventMeta(ctx context.Context, evt Event) context.Context {
	return context.WithValue(ctx, eventMetaCtx{}, eventMeta{
		id:        evt.ID,
		name:      evt.Name,
		createdAt: evt.CreatedAt,
	})
}

// EventID returns the ID of the event being handled, or "".
func EventID(ctx context.Context) string {
	m, _ := ctx.Value(eventMetaCtx{}).(eventMeta)
	return m.id
}

// EventName returns the name of the event being handled, or "".
func EventName(ctx context.Context) string {
	m, _ := ctx.Value(eventMetaCtx{}).(eventMeta)
	return m.name
}

// EventTime returns the creation time of the event being handled.
func EventTime(ctx context.Context) time.Time {
	m, _ := ctx.Value(eventMetaCtx{}).(eventMeta)
	return m.createdAt
}
