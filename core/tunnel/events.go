package tunnel

import "context"

// Publisher receives lifecycle events. *event.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, payload any) error
}

// StateChanged is published on every state transition.
type StateChanged struct {
	User string `json:"user"`
	From State  `json:"from"`
	To   State  `json:"to"`
}

// SessionOpened is published when Open succeeds.
// Reused is set when the cached token passed the status check.
type SessionOpened struct {
	User      string `json:"user"`
	SessionID string `json:"session_id"`
	Reused    bool   `json:"reused"`
}

// LoginRetried is published before the second login attempt.
type LoginRetried struct {
	User    string `json:"user"`
	Attempt int    `json:"attempt"`
}

// SessionClosed is published when Shut completes.
type SessionClosed struct {
	User      string `json:"user"`
	SessionID string `json:"session_id"`
	Wiped     bool   `json:"wiped"`
}
