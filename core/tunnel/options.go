package tunnel

import (
	"log/slog"
	"time"
)

const (
	// DefaultRetryDelay is the pause before the second login attempt.
	DefaultRetryDelay = 250 * time.Millisecond
	minRetryDelay     = time.Millisecond
)

// Option configures a Manager.
type Option func(*Manager)

// WithScheme sets the URL scheme used for requests and the Origin header. Default "http".
func WithScheme(scheme string) Option {
	return func(m *Manager) {
		m.scheme = scheme
	}
}

// WithTransport replaces the default HTTPTransport.
func WithTransport(t Transport) Option {
	return func(m *Manager) {
		if t != nil {
			m.transport = t
		}
	}
}

// WithLogger sets the logger. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithPublisher sends lifecycle events to p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithTimeout bounds every Open, Send and Shut call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.timeout = d
		}
	}
}

// WithRetryDelay sets the pause before the second login attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.retryDelay = max(d, minRetryDelay)
	}
}
