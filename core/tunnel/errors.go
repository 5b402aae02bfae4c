package tunnel

import "errors"

var (
	// ErrTransport is returned for network failures and 5xx responses.
	ErrTransport = errors.New("transport failure")

	// ErrAuthentication is returned when the server rejects a login twice in a row.
	ErrAuthentication = errors.New("authentication rejected")

	// ErrPersistence is returned when the session store cannot be read or written.
	ErrPersistence = errors.New("session persistence failure")

	// ErrMalformedResponse is returned for non-JSON bodies and unusable Set-Cookie headers.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNotAuthenticated is returned when a request needs a session that does not exist.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrConfiguration is returned for a missing host, store or username.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrTimeout is returned when an operation deadline expires.
	ErrTimeout = errors.New("operation timed out")
)

// errNotAuthorized marks a NOTAUTHORIZED login response inside the retry loop.
var errNotAuthorized = errors.New("login not authorized")
