package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Attribute helpers return an empty Attr for zero input, so calls like
// log.Info("msg", logger.Error(err)) need no nil checks.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// ============================================================================
// Errors
// ============================================================================

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups multiple non-nil errors under the key "errors", keyed by argument index.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// ============================================================================
// Timing
// ============================================================================

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed logs the time passed since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ============================================================================
// HTTP
// ============================================================================

// Method creates an attribute for HTTP methods.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path creates an attribute for URL paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// StatusCode creates an attribute for HTTP status codes.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// Host creates an attribute for the remote host.
func Host(host string) slog.Attr {
	if host == "" {
		return slog.Attr{}
	}
	return slog.String("host", host)
}

// ============================================================================
// Session
// ============================================================================

// Username creates an attribute for the account a session belongs to.
func Username(user string) slog.Attr {
	if user == "" {
		return slog.Attr{}
	}
	return slog.String("username", user)
}

// SessionID logs a masked session token: the first six characters followed by "...".
func SessionID(token string) slog.Attr {
	if token == "" {
		return slog.Attr{}
	}
	const visible = 6
	if len(token) <= visible {
		return slog.String("session_id", "...")
	}
	return slog.String("session_id", token[:visible]+"...")
}

// State creates an attribute for a state-machine state.
func State(state string) slog.Attr {
	return slog.String("state", state)
}

// Transition creates a group describing a state change.
func Transition(from, to string) slog.Attr {
	return Group("transition", slog.String("from", from), slog.String("to", to))
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// ============================================================================
// Generic metadata
// ============================================================================

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event creates an attribute for event names.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Action creates an attribute for action names.
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Result creates an attribute for operation results (success/failure).
func Result(result string) slog.Attr {
	return slog.String("result", result)
}

// ID creates an identifier attribute with a custom key. Nil values yield an empty Attr.
func ID(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}
