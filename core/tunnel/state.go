package tunnel

// State is a Manager lifecycle state.
type State int32

const (
	// StateIdle: no token loaded.
	StateIdle State = iota
	// StateResolving: looking up a cached session.
	StateResolving
	// StateAuthenticated: a token is current; requests may be sent.
	StateAuthenticated
	// StateRetrying: performing a fresh login.
	StateRetrying
	// StateLoggedOut: the session was closed by Shut. Open may start over.
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateResolving:
		return "Resolving"
	case StateAuthenticated:
		return "Authenticated"
	case StateRetrying:
		return "Retrying"
	case StateLoggedOut:
		return "LoggedOut"
	default:
		return "Unknown"
	}
}
