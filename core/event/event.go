package event

import (
	"time"

	"github.com/google/uuid"
)

// Event wraps a payload with delivery metadata.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent wraps payload in an Event with a fresh UUID and timestamp.
// The name is the payload's type name, so SessionOpened{} becomes "SessionOpened".
func NewEvent(payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Name:      getEventName(payload),
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}
