package event

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// HandlerFunc is a type-safe function processing events of type T.
type HandlerFunc[T any] func(context.Context, T) error

// Handler processes events of one name.
type Handler interface {
	// EventName returns the event name this handler processes.
	EventName() string

	// Handle executes the handler with the given event payload.
	Handle(ctx context.Context, payload any) error
}

// NewHandler creates a handler bound to an explicit event name.
func NewHandler[T any](eventName string, fn HandlerFunc[T]) Handler {
	return &typedHandler[T]{name: eventName, fn: fn}
}

// NewHandlerFunc creates a handler whose event name is derived from T.
//
//	h := event.NewHandlerFunc(func(ctx context.Context, e tunnel.SessionOpened) error {
//		log.Info("session opened", "user", e.User)
//		return nil
//	})
func NewHandlerFunc[T any](fn HandlerFunc[T]) Handler {
	var zero T
	return &typedHandler[T]{name: typeName(reflect.TypeOf(&zero).Elem()), fn: fn}
}

type typedHandler[T any] struct {
	name string
	fn   HandlerFunc[T]
}

func (h *typedHandler[T]) EventName() string {
	return h.name
}

func (h *typedHandler[T]) Handle(ctx context.Context, payload any) error {
	typed, err := unmarshalPayload[T](payload)
	if err != nil {
		return err
	}
	return h.fn(ctx, typed)
}

// getEventName returns the bare type name of v, unwrapping pointers.
// Type names must be unique across packages publishing on the same bus.
func getEventName(v any) string {
	return typeName(reflect.TypeOf(v))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// unmarshalPayload converts payload to T. Raw JSON and decoded maps are accepted
// so events can cross a serialization boundary.
func unmarshalPayload[T any](payload any) (T, error) {
	var zero T

	switch v := payload.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	case []byte:
		var evt T
		if err := json.Unmarshal(v, &evt); err != nil {
			return zero, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		return evt, nil
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal map payload: %w", err)
		}
		var evt T
		if err := json.Unmarshal(data, &evt); err != nil {
			return zero, fmt.Errorf("failed to unmarshal map payload: %w", err)
		}
		return evt, nil
	}

	return zero, fmt.Errorf("unexpected payload type: %T", payload)
}
