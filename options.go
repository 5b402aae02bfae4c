package cudatel

import (
	"log/slog"

	"github.com/dmitrymomot/cudatel/core/event"
	"github.com/dmitrymomot/cudatel/core/sessionstore"
	"github.com/dmitrymomot/cudatel/core/tunnel"
)

type options struct {
	cfg       *Config
	env       string
	profile   *Profile
	store     sessionstore.Store
	transport tunnel.Transport
	logger    *slog.Logger
	handlers  []event.Handler
}

// Option configures Boot.
type Option func(*options)

// WithConfig skips loading Config from the environment.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithEnv selects the profile, overriding CUDATEL_ENV.
func WithEnv(env string) Option {
	return func(o *options) {
		o.env = env
	}
}

// WithProfile skips loading the CUDATEL_<ENV>_* profile.
func WithProfile(p Profile) Option {
	return func(o *options) {
		o.profile = &p
	}
}

// WithStore uses store instead of the backend named by CUDATEL_STORE.
// The caller keeps ownership of its connections.
func WithStore(store sessionstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(t tunnel.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithLogger sets the logger. Defaults to one built from Config.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithEventHandlers subscribes handlers to session lifecycle events
// (tunnel.StateChanged, tunnel.SessionOpened, tunnel.LoginRetried,
// tunnel.SessionClosed). Handlers run on the event workers, off the
// request path.
func WithEventHandlers(handlers ...event.Handler) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, handlers...)
	}
}
